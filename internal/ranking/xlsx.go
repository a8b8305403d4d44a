package ranking

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName é a aba única da planilha exportada.
const SheetName = "Ranking"

var header = []string{"Posição", "Staff", "Departamento", "Relatórios", "Tarefas concluídas", "Vendas", "Último relatório"}

var columnWidths = []float64{10, 32, 22, 12, 20, 10, 20}

// WriteXLSX monta a planilha com título do evento na primeira linha e cabeçalho congelado.
func WriteXLSX(eventName string, entries []Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return nil, fmt.Errorf("criar aba: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("remover aba padrão: %w", err)
	}
	index, err := f.GetSheetIndex(SheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	if err := f.SetCellValue(SheetName, "A1", "Ranking - "+eventName); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("estilo do cabeçalho: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, title); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return nil, err
		}
	}

	for i, e := range entries {
		row := i + 3
		dept := ""
		if e.DepartmentName != nil {
			dept = *e.DepartmentName
		}
		last := ""
		if e.LastReportAt != nil {
			last = e.LastReportAt.Format("02/01/2006 15:04")
		}
		values := []any{e.Position, e.StaffName, dept, e.Reports, e.TasksCompleted, e.Sales, last}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("linha %d: %w", row, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("congelar cabeçalho: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

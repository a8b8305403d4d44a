package admin

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/apperr"
	"github.com/gestaozabele/eventos/internal/casing"
)

var (
	ErrUnknownTable  = apperr.New(apperr.NotFound, "tabela não encontrada")
	ErrRowNotFound   = apperr.New(apperr.NotFound, "registro não encontrado")
	ErrInvalidColumn = apperr.New(apperr.Validation, "coluna inválida")
	ErrEmptyBody     = apperr.New(apperr.Validation, "nenhum campo informado")
)

// Tabelas expostas pelo CRUD genérico. Colunas ocultas nunca saem nem entram por ele.
var crudTables = map[string][]string{
	"users":                         {"password_hash"},
	"events":                        nil,
	"organizer_companies":           nil,
	"departments":                   nil,
	"staff":                         nil,
	"staff_event_assignments":       nil,
	"participant_companies":         nil,
	"collaborators":                 nil,
	"vehicle_stock":                 nil,
	"report_button_configs":         nil,
	"reports":                       nil,
	"staff_activities":              nil,
	"stock_movements":               nil,
	"company_calls":                 nil,
	"telao_requests":                nil,
	"telao_notification_recipients": nil,
	"staff_feature_grants":          nil,
}

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Tables lista as tabelas disponíveis em ordem alfabética.
func Tables() []string {
	out := make([]string, 0, len(crudTables))
	for name := range crudTables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Row é uma linha com chaves snake_case, como o banco devolve.
type Row map[string]any

// TableStore executa o SQL do CRUD genérico.
type TableStore interface {
	ListRows(ctx context.Context, table string, limit, offset int) ([]Row, error)
	GetRow(ctx context.Context, table string, id uuid.UUID) (Row, error)
	InsertRow(ctx context.Context, table string, values Row) (Row, error)
	UpdateRow(ctx context.Context, table string, id uuid.UUID, values Row) (Row, error)
	DeleteRow(ctx context.Context, table string, id uuid.UUID) error
}

// CrudService expõe as tabelas com chaves camelCase na fronteira. Só ADMIN.
type CrudService struct {
	store TableStore
}

func NewCrudService(store TableStore) *CrudService {
	return &CrudService{store: store}
}

func (s *CrudService) List(ctx context.Context, p Principal, table string, limit, offset int) ([]any, error) {
	hidden, err := s.check(p, table)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.store.ListRows(ctx, table, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, present(row, hidden))
	}
	return out, nil
}

func (s *CrudService) Get(ctx context.Context, p Principal, table string, id uuid.UUID) (any, error) {
	hidden, err := s.check(p, table)
	if err != nil {
		return nil, err
	}
	row, err := s.store.GetRow(ctx, table, id)
	if err != nil {
		return nil, err
	}
	return present(row, hidden), nil
}

func (s *CrudService) Create(ctx context.Context, p Principal, table string, body map[string]any) (any, error) {
	hidden, err := s.check(p, table)
	if err != nil {
		return nil, err
	}
	values, err := prepare(body, hidden)
	if err != nil {
		return nil, err
	}
	row, err := s.store.InsertRow(ctx, table, values)
	if err != nil {
		return nil, err
	}
	return present(row, hidden), nil
}

func (s *CrudService) Update(ctx context.Context, p Principal, table string, id uuid.UUID, body map[string]any) (any, error) {
	hidden, err := s.check(p, table)
	if err != nil {
		return nil, err
	}
	values, err := prepare(body, hidden)
	if err != nil {
		return nil, err
	}
	delete(values, "id")
	if len(values) == 0 {
		return nil, ErrEmptyBody
	}
	row, err := s.store.UpdateRow(ctx, table, id, values)
	if err != nil {
		return nil, err
	}
	return present(row, hidden), nil
}

func (s *CrudService) Delete(ctx context.Context, p Principal, table string, id uuid.UUID) error {
	if _, err := s.check(p, table); err != nil {
		return err
	}
	return s.store.DeleteRow(ctx, table, id)
}

func (s *CrudService) check(p Principal, table string) ([]string, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	hidden, ok := crudTables[table]
	if !ok {
		return nil, ErrUnknownTable
	}
	return hidden, nil
}

// prepare converte o corpo camelCase em colunas snake_case validadas.
func prepare(body map[string]any, hidden []string) (Row, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	snake, _ := casing.KeysToSnake(body).(map[string]any)
	values := make(Row, len(snake))
	for col, v := range snake {
		if !columnPattern.MatchString(col) || contains(hidden, col) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, col)
		}
		values[col] = normalizeInput(v)
	}
	return values, nil
}

// normalizeInput ajusta valores decodificados de JSON para o driver:
// números inteiros viram int64 e listas de texto viram []string.
func normalizeInput(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case []any:
		strs := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return val
			}
			strs = append(strs, s)
		}
		return strs
	default:
		return v
	}
}

// present esconde colunas ocultas, formata uuids e devolve chaves camelCase.
func present(row Row, hidden []string) any {
	out := make(map[string]any, len(row))
	for col, v := range row {
		if contains(hidden, col) {
			continue
		}
		out[col] = normalizeOutput(v)
	}
	return casing.KeysToCamel(out)
}

func normalizeOutput(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeOutput(item)
		}
		return out
	default:
		return v
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

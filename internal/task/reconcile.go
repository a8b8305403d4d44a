package task

import "strings"

// Reconcile separa tarefas pendentes e concluídas. A ordem de entrada é a do
// armazenamento; para atribuições repetidas com a mesma chave, vale a primeira
// vista. Atividades com prefixo de atribuição mas texto ilegível são ignoradas.
func Reconcile(activities []Activity) []Task {
	completed := make(map[string]Activity)
	for _, a := range activities {
		if !strings.HasPrefix(a.Description, CompletedPrefix) {
			continue
		}
		key := CorrelationKey(a.StaffID, a.Description)
		if _, seen := completed[key]; !seen {
			completed[key] = a
		}
	}

	seen := make(map[string]struct{})
	tasks := make([]Task, 0)
	for _, a := range activities {
		if !strings.HasPrefix(a.Description, AssignedPrefix) {
			continue
		}
		key := CorrelationKey(a.StaffID, a.Description)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		core := CoreDescription(a.Description)
		parsed, ok := Parse(core)
		if !ok {
			continue
		}
		detail, _ := Detail(core)

		t := Task{
			ID:          a.ID,
			StaffID:     a.StaffID,
			StaffName:   a.StaffName,
			EventID:     a.EventID,
			CompanyName: parsed.CompanyName,
			BoothCode:   parsed.BoothCode,
			ActionLabel: parsed.ActionLabel,
			Description: core,
			Detail:      detail,
			Timestamp:   a.Timestamp,
			Status:      StatusPending,
		}
		if done, ok := completed[key]; ok {
			at := done.Timestamp
			t.Status = StatusCompleted
			t.CompletedAt = &at
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// Pending filtra as tarefas ainda não concluídas.
func Pending(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == StatusPending {
			out = append(out, t)
		}
	}
	return out
}

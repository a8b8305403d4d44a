package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/call"
	httpmiddleware "github.com/gestaozabele/eventos/internal/http/middleware"
	"github.com/gestaozabele/eventos/internal/task"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminLogin autentica organizadores e administradores.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "e-mail e senha são obrigatórios", nil)
		return
	}

	result, err := h.AdminAuth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

type refreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) AdminRefresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.AdminAuth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	var payload refreshPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if err := h.AdminAuth.Logout(r.Context(), payload.RefreshToken); err != nil {
		WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminMe(w http.ResponseWriter, r *http.Request) {
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"userId":             p.UserID,
		"roles":              p.Roles,
		"organizerCompanyId": p.OrganizerID,
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	events, err := h.Events.List(r.Context(), p)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	if events == nil {
		events = []admin.Event{}
	}
	WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, _ := httpmiddleware.GetEvent(r.Context())
	WriteJSON(w, http.StatusOK, event)
}

// DeleteEvent apaga o evento e tudo que depende dele.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	event, _ := httpmiddleware.GetEvent(r.Context())
	summary, err := h.Events.Delete(r.Context(), p, event.ID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": event.ID, "rows": summary})
}

func (h *Handler) ListEventTasks(w http.ResponseWriter, r *http.Request) {
	event, _ := httpmiddleware.GetEvent(r.Context())
	tasks, err := h.Tasks.ListForEvent(r.Context(), event.ID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *Handler) AssignTask(w http.ResponseWriter, r *http.Request) {
	var in task.AssignInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, _ := httpmiddleware.GetEvent(r.Context())
	in.EventID = event.ID

	t, err := h.Tasks.Assign(r.Context(), in)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListEventCalls(kind call.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, _ := httpmiddleware.GetEvent(r.Context())

		var status call.Status
		switch r.URL.Query().Get("status") {
		case "":
		case "pending":
			status = call.StatusPending
		case "resolved":
			status = call.StatusResolved
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", nil)
			return
		}

		items, err := h.Calls.ListForEvent(r.Context(), kind, event.ID, status)
		if err != nil {
			WriteAppError(w, r, err)
			return
		}
		if items == nil {
			items = []call.Call{}
		}
		WriteJSON(w, http.StatusOK, items)
	}
}

func (h *Handler) EventBadge(w http.ResponseWriter, r *http.Request) {
	event, _ := httpmiddleware.GetEvent(r.Context())
	WriteJSON(w, http.StatusOK, h.Dashboard.Badge(r.Context(), event.ID))
}

func (h *Handler) EventRanking(w http.ResponseWriter, r *http.Request) {
	event, _ := httpmiddleware.GetEvent(r.Context())
	entries, err := h.Ranking.Ranking(r.Context(), event.ID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}

// EventRankingXLSX devolve o ranking como planilha para download.
func (h *Handler) EventRankingXLSX(w http.ResponseWriter, r *http.Request) {
	event, _ := httpmiddleware.GetEvent(r.Context())
	data, err := h.Ranking.Export(r.Context(), event.ID, event.Name)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ranking-%s.xlsx"`, event.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) ListStaffFeatures(w http.ResponseWriter, r *http.Request) {
	staffID, ok := uuidParam(w, r, "staffID")
	if !ok {
		return
	}
	event, _ := httpmiddleware.GetEvent(r.Context())
	features, err := h.Features.List(r.Context(), staffID, event.ID)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, features)
}

func (h *Handler) GrantFeature(w http.ResponseWriter, r *http.Request) {
	staffID, ok := uuidParam(w, r, "staffID")
	if !ok {
		return
	}
	var payload struct {
		Feature string `json:"feature"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	event, _ := httpmiddleware.GetEvent(r.Context())
	f, err := h.Features.Grant(r.Context(), staffID, event.ID, payload.Feature)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"staffId": staffID, "eventId": event.ID, "feature": f})
}

func (h *Handler) RevokeFeature(w http.ResponseWriter, r *http.Request) {
	staffID, ok := uuidParam(w, r, "staffID")
	if !ok {
		return
	}
	event, _ := httpmiddleware.GetEvent(r.Context())
	if err := h.Features.Revoke(r.Context(), staffID, event.ID, chi.URLParam(r, "feature")); err != nil {
		WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, admin.Tables())
}

func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	rows, err := h.Tables.List(r.Context(), p, chi.URLParam(r, "table"), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) GetRow(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	row, err := h.Tables.Get(r.Context(), p, chi.URLParam(r, "table"), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, row)
}

func (h *Handler) CreateRow(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return
	}
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	row, err := h.Tables.Create(r.Context(), p, chi.URLParam(r, "table"), body)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, row)
}

func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var body map[string]any
	if !decodeJSON(w, r, &body) {
		return
	}
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	row, err := h.Tables.Update(r.Context(), p, chi.URLParam(r, "table"), id, body)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, row)
}

func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, _ := httpmiddleware.GetPrincipal(r.Context())
	if err := h.Tables.Delete(r.Context(), p, chi.URLParam(r, "table"), id); err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]uuid.UUID{"deleted": id})
}

package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gestaozabele/eventos/internal/call"
	httpmiddleware "github.com/gestaozabele/eventos/internal/http/middleware"
	"github.com/gestaozabele/eventos/internal/report"
	"github.com/gestaozabele/eventos/internal/sales"
	"github.com/gestaozabele/eventos/internal/session"
)

// CheckIn resolve os dois códigos e devolve o token da sessão.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BoothCode string `json:"boothCode"`
		Code      string `json:"code"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if strings.TrimSpace(payload.BoothCode) == "" || strings.TrimSpace(payload.Code) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "código do estande e código pessoal são obrigatórios", nil)
		return
	}

	result, err := h.Sessions.CheckIn(r.Context(), payload.BoothCode, payload.Code)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// RestoreSession aceita a sessão antiga guardada pelo navegador e emite um token novo.
func (h *Handler) RestoreSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		StorageKey string          `json:"storageKey"`
		Stored     json.RawMessage `json:"stored"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	result, err := h.Sessions.Restore(r.Context(), payload.StorageKey, payload.Stored)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := httpmiddleware.GetSession(r.Context())
	WriteJSON(w, http.StatusOK, sess)
}

// ExitSession encerra a sessão; o token deixa de valer.
func (h *Handler) ExitSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := httpmiddleware.GetSession(r.Context())
	if err := h.Sessions.Exit(r.Context(), sess.ID); err != nil {
		WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SessionBadge(w http.ResponseWriter, r *http.Request) {
	sess, _ := httpmiddleware.GetSession(r.Context())
	badge := h.Dashboard.Badge(r.Context(), sess.EventID())
	WriteJSON(w, http.StatusOK, map[string]any{
		"eventId":      badge.EventID,
		"pendingCalls": badge.PendingCalls,
		"pendingTelao": badge.PendingTelao,
		"total":        badge.Total(),
		"updatedAt":    badge.UpdatedAt,
	})
}

func (h *Handler) OpenCall(kind call.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Message string `json:"message"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		sess, _ := httpmiddleware.GetSession(r.Context())
		c, err := h.Calls.Open(r.Context(), sess, kind, payload.Message)
		if err != nil {
			WriteAppError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusCreated, c)
	}
}

// ListCalls separa pendentes e concluídos por ?status=pending|resolved (padrão pending).
func (h *Handler) ListCalls(kind call.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := httpmiddleware.GetSession(r.Context())

		var (
			items []call.Call
			err   error
		)
		switch r.URL.Query().Get("status") {
		case "", "pending":
			items, err = h.Calls.ListPending(r.Context(), sess, kind)
		case "resolved":
			items, err = h.Calls.ListResolved(r.Context(), sess, kind)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", nil)
			return
		}
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

func (h *Handler) ResolveCall(kind call.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var payload struct {
			Feedback string `json:"feedback"`
		}
		if !decodeJSON(w, r, &payload) {
			return
		}
		sess, _ := httpmiddleware.GetSession(r.Context())
		c, err := h.Calls.Resolve(r.Context(), sess, kind, id, payload.Feedback)
		if err != nil {
			WriteAppError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	sess := staffSession(r)
	tasks, err := h.Tasks.ListForStaff(r.Context(), sess.Staff.StaffID, sess.EventID())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *Handler) ListPendingTasks(w http.ResponseWriter, r *http.Request) {
	sess := staffSession(r)
	tasks, err := h.Tasks.PendingForStaff(r.Context(), sess.Staff.StaffID, sess.EventID())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tasks)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.Tasks.Complete(r.Context(), staffSession(r), id)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ListButtons(w http.ResponseWriter, r *http.Request) {
	buttons, err := h.Reports.ListVisible(r.Context(), staffSession(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, buttons)
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var ans report.Answer
	if !decodeJSON(w, r, &ans) {
		return
	}
	rep, err := h.Reports.Submit(r.Context(), staffSession(r), id, ans)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) SalesCheckin(w http.ResponseWriter, r *http.Request) {
	var in sales.SaleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rep, err := h.Sales.SalesCheckin(r.Context(), staffSession(r), in)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rep)
}

func (h *Handler) RecordStockMovement(w http.ResponseWriter, r *http.Request) {
	var in sales.MovementInput
	if !decodeJSON(w, r, &in) {
		return
	}
	movement, vehicle, err := h.Sales.RecordStockMovement(r.Context(), staffSession(r), in)
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"movement": movement, "vehicle": vehicle})
}

func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Sales.Stock(r.Context(), staffSession(r))
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, vehicles)
}

func (h *Handler) ListOwnFeatures(w http.ResponseWriter, r *http.Request) {
	sess := staffSession(r)
	features, err := h.Features.List(r.Context(), sess.Staff.StaffID, sess.EventID())
	if err != nil {
		WriteAppError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, features)
}

// staffSession só é chamado atrás de RequireStaff.
func staffSession(r *http.Request) session.Session {
	sess, _ := httpmiddleware.GetSession(r.Context())
	return sess
}

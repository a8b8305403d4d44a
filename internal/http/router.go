package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/gestaozabele/eventos/internal/admin"
	"github.com/gestaozabele/eventos/internal/auth"
	"github.com/gestaozabele/eventos/internal/call"
	"github.com/gestaozabele/eventos/internal/config"
	"github.com/gestaozabele/eventos/internal/dashboard"
	"github.com/gestaozabele/eventos/internal/feature"
	httpmiddleware "github.com/gestaozabele/eventos/internal/http/middleware"
	"github.com/gestaozabele/eventos/internal/ranking"
	"github.com/gestaozabele/eventos/internal/report"
	"github.com/gestaozabele/eventos/internal/sales"
	"github.com/gestaozabele/eventos/internal/session"
	"github.com/gestaozabele/eventos/internal/task"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps reúne os serviços montados pelo cmd/api.
type Deps struct {
	Config    *config.Config
	DB        dbPinger
	Redis     redisPinger
	JWT       *auth.JWTManager
	Sessions  *session.Service
	Reports   *report.Service
	Tasks     *task.Service
	Calls     *call.Service
	Sales     *sales.Service
	Features  *feature.Service
	Dashboard *dashboard.Service
	Ranking   *ranking.Service
	AdminAuth *admin.AuthService
	Events    *admin.EventService
	Tables    *admin.CrudService
}

type Handler struct {
	Deps
	checkinLimiter *httpmiddleware.RateLimiter
	authLimiter    *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		Deps:           deps,
		checkinLimiter: httpmiddleware.NewRateLimiter(deps.Config.RateLimitCheckin.RequestsPerSecond, deps.Config.RateLimitCheckin.Burst),
		authLimiter:    httpmiddleware.NewRateLimiter(deps.Config.RateLimitAuth.RequestsPerSecond, deps.Config.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(deps.Config.AllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.checkinLimiter))
		public.Post("/checkin", h.CheckIn)
		public.Post("/checkin/restore", h.RestoreSession)
	})

	r.Group(func(sess chi.Router) {
		sess.Use(httpmiddleware.Session(h.Sessions))
		sess.Use(httpmiddleware.SubjectRateLimit(h.authLimiter))

		sess.Get("/session", h.CurrentSession)
		sess.Delete("/session", h.ExitSession)
		sess.Get("/dashboard/badge", h.SessionBadge)
		sess.Post("/calls", h.OpenCall(call.CompanyCall))
		sess.Get("/calls", h.ListCalls(call.CompanyCall))
		sess.Post("/telao", h.OpenCall(call.TelaoRequest))
		sess.Get("/telao", h.ListCalls(call.TelaoRequest))

		sess.Group(func(staff chi.Router) {
			staff.Use(httpmiddleware.RequireStaff)

			staff.Get("/tasks", h.ListTasks)
			staff.Get("/tasks/pending", h.ListPendingTasks)
			staff.Post("/tasks/{id}/complete", h.CompleteTask)
			staff.Get("/reports/buttons", h.ListButtons)
			staff.Post("/reports/buttons/{id}", h.SubmitReport)
			staff.Post("/calls/{id}/resolve", h.ResolveCall(call.CompanyCall))
			staff.Post("/telao/{id}/resolve", h.ResolveCall(call.TelaoRequest))
			staff.Post("/sales/checkin", h.SalesCheckin)
			staff.Post("/stock/movements", h.RecordStockMovement)
			staff.Get("/stock", h.ListStock)
			staff.Get("/features", h.ListOwnFeatures)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Group(func(public chi.Router) {
			public.Use(httpmiddleware.IPRateLimit(h.authLimiter))
			public.Post("/login", h.AdminLogin)
			public.Post("/refresh", h.AdminRefresh)
			public.Post("/logout", h.AdminLogout)
		})

		adm := r.With(httpmiddleware.Admin(h.JWT), httpmiddleware.SubjectRateLimit(h.authLimiter))
		adm.Get("/me", h.AdminMe)
		adm.Get("/events", h.ListEvents)

		adm.Route("/events/{eventID}", func(ev chi.Router) {
			ev.Use(httpmiddleware.EventScope(h.Events))

			ev.Get("/", h.GetEvent)
			ev.Delete("/", h.DeleteEvent)
			ev.Get("/tasks", h.ListEventTasks)
			ev.Post("/tasks", h.AssignTask)
			ev.Get("/calls", h.ListEventCalls(call.CompanyCall))
			ev.Get("/telao", h.ListEventCalls(call.TelaoRequest))
			ev.Get("/dashboard/badge", h.EventBadge)
			ev.Get("/ranking", h.EventRanking)
			ev.Get("/ranking.xlsx", h.EventRankingXLSX)
			ev.Get("/staff/{staffID}/features", h.ListStaffFeatures)
			ev.Post("/staff/{staffID}/features", h.GrantFeature)
			ev.Delete("/staff/{staffID}/features/{feature}", h.RevokeFeature)
		})

		adm.Group(func(tables chi.Router) {
			tables.Use(httpmiddleware.RequireAdmin)
			tables.Get("/tables", h.ListTables)
			tables.Get("/tables/{table}", h.ListRows)
			tables.Post("/tables/{table}", h.CreateRow)
			tables.Get("/tables/{table}/{id}", h.GetRow)
			tables.Patch("/tables/{table}/{id}", h.UpdateRow)
			tables.Delete("/tables/{table}/{id}", h.DeleteRow)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var dbErr, redisErr error
	if h.DB != nil {
		dbErr = h.DB.Ping(ctx)
	}
	if h.Redis != nil {
		redisErr = h.Redis.Ping(ctx).Err()
	}

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Package escalapi exposes the escalation coordinator over HTTP, mapping
// domain operations 1:1 onto JSON endpoints.
package escalapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation"
)

// Coordinator defines the business operations escalapi needs.
type Coordinator interface {
	Create(ctx context.Context, req *escalation.CreateRequest) (*escalation.Escalation, error)
	Assign(ctx context.Context, id, agentID, agentName string, start bool) (*escalation.Escalation, error)
	UpdateStatus(ctx context.Context, id string, to escalation.Status, note string) (*escalation.Escalation, error)
	Resolve(ctx context.Context, id string, res *escalation.Resolution) (*escalation.Escalation, error)
	Get(ctx context.Context, id string) (*escalation.Escalation, bool, error)
	Queue(ctx context.Context) ([]escalation.QueueItem, error)
	TeamQueue(ctx context.Context, team escalation.Team) ([]escalation.QueueItem, error)
	OldestFirst(ctx context.Context) ([]escalation.QueueItem, error)
	CheckSLA(ctx context.Context, id string) (*escalation.SLAStatus, error)
	WaitTimes(ctx context.Context, id string) (*escalation.WaitTimes, error)
	Breaches(ctx context.Context) ([]*escalation.Escalation, error)
	Dashboard(ctx context.Context) (*escalation.DashboardMetrics, error)
	TeamMetrics(ctx context.Context, team escalation.Team) (*escalation.TeamMetrics, error)
	Report(ctx context.Context, start, end time.Time, team escalation.Team) (*escalation.Report, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    Coordinator
}

// New creates a new API handler.
func New(logger log.Logger, svc Coordinator) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("escalation coordinator is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/escalations", a.handleCreate)
		r.Get("/escalations/{id}", a.handleGet)
		r.Post("/escalations/{id}/assign", a.handleAssign)
		r.Post("/escalations/{id}/status", a.handleUpdateStatus)
		r.Post("/escalations/{id}/resolve", a.handleResolve)
		r.Get("/escalations/{id}/sla", a.handleCheckSLA)
		r.Get("/escalations/{id}/wait", a.handleWaitTimes)
		r.Get("/queue", a.handleQueue)
		r.Get("/sla/breaches", a.handleBreaches)
		r.Get("/metrics/dashboard", a.handleDashboard)
		r.Get("/metrics/teams/{team}", a.handleTeamMetrics)
		r.Get("/reports", a.handleReport)
	})
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req escalation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	e, err := a.svc.Create(r.Context(), &req)
	if err != nil {
		a.writeError(w, r, err, "create escalation")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("escalation.id", e.ID),
		attribute.String("escalation.team", string(e.Team)),
	)

	writeJSON(w, http.StatusCreated, e)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("escalation.id", id))

	e, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get escalation", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("escalation.status", string(e.Status)))

	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleAssign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		AgentID   string `json:"agent_id"`
		AgentName string `json:"agent_name"`
		Start     bool   `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	e, err := a.svc.Assign(r.Context(), id, req.AgentID, req.AgentName, req.Start)
	if err != nil {
		a.writeError(w, r, err, "assign escalation")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status escalation.Status `json:"status"`
		Note   string            `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	e, err := a.svc.UpdateStatus(r.Context(), id, req.Status, req.Note)
	if err != nil {
		a.writeError(w, r, err, "update escalation status")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req escalation.Resolution
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	e, err := a.svc.Resolve(r.Context(), id, &req)
	if err != nil {
		a.writeError(w, r, err, "resolve escalation")
		return
	}

	writeJSON(w, http.StatusOK, e)
}

// writeError maps domain errors onto HTTP status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, escalation.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	case errors.Is(err, escalation.ErrInvalidInput):
		http.Error(w, `{"error":"`+jsonSafe(err.Error())+`"}`, http.StatusBadRequest)
	case errors.Is(err, escalation.ErrAlreadyResolved), errors.Is(err, escalation.ErrInvalidTransition):
		http.Error(w, `{"error":"`+jsonSafe(err.Error())+`"}`, http.StatusConflict)
	default:
		a.logger.Error(r.Context(), err, "failed to "+op)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonSafe strips characters that would break a hand-built JSON string.
func jsonSafe(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

package escalapi

import (
	"net/http"
	"time"

	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation"
	"github.com/go-chi/chi/v5"
)

func (a *API) handleQueue(w http.ResponseWriter, r *http.Request) {
	var (
		items []escalation.QueueItem
		err   error
	)

	switch {
	case r.URL.Query().Get("order") == "age":
		items, err = a.svc.OldestFirst(r.Context())
	case r.URL.Query().Get("team") != "":
		items, err = a.svc.TeamQueue(r.Context(), escalation.Team(r.URL.Query().Get("team")))
	default:
		items, err = a.svc.Queue(r.Context())
	}
	if err != nil {
		a.writeError(w, r, err, "build queue view")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"queue": items,
		"count": len(items),
	})
}

func (a *API) handleCheckSLA(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.CheckSLA(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err, "check sla")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"breached":               st.Breached,
		"time_remaining_seconds": st.TimeRemaining.Seconds(),
	})
}

func (a *API) handleWaitTimes(w http.ResponseWriter, r *http.Request) {
	wt, err := a.svc.WaitTimes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err, "compute wait times")
		return
	}

	resp := map[string]any{
		"total_wait_seconds": wt.Total.Seconds(),
		"queue_wait_seconds": wt.Queue.Seconds(),
		"resolution_seconds": nil,
	}
	if wt.Resolution != nil {
		resp["resolution_seconds"] = wt.Resolution.Seconds()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBreaches(w http.ResponseWriter, r *http.Request) {
	breaches, err := a.svc.Breaches(r.Context())
	if err != nil {
		a.writeError(w, r, err, "list sla breaches")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"breaches": breaches,
		"count":    len(breaches),
	})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Dashboard(r.Context())
	if err != nil {
		a.writeError(w, r, err, "build dashboard metrics")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (a *API) handleTeamMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.TeamMetrics(r.Context(), escalation.Team(chi.URLParam(r, "team")))
	if err != nil {
		a.writeError(w, r, err, "build team metrics")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		http.Error(w, `{"error":"invalid start, want RFC3339"}`, http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		http.Error(w, `{"error":"invalid end, want RFC3339"}`, http.StatusBadRequest)
		return
	}

	report, err := a.svc.Report(r.Context(), start, end, escalation.Team(q.Get("team")))
	if err != nil {
		a.writeError(w, r, err, "generate report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

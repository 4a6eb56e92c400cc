package http

import (
	"net/http"
	"time"

	"github.com/intermine/authserver/pkg/httpx"
	"github.com/intermine/authserver/pkg/slogx"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// handleLivez reports process liveness only; it never touches the store.
func (r *Router) handleLivez(w http.ResponseWriter, req *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: r.buildVersion,
		Uptime:  time.Since(r.startTime).Round(time.Second).String(),
	})
}

// handleReadyz reports readiness, which requires a reachable database.
func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if err := r.store.Ping(ctx); err != nil {
		slogx.FromContext(ctx).Warn("readiness check failed", "error", err)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: r.buildVersion,
	})
}

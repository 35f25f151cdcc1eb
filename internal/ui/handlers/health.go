package handlers

import (
	"net/http"

	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/version"
)

// HandleLive reports that the UI server is up. It does not contact the backend.
func (h *HandlerService) HandleLive(w http.ResponseWriter, r *http.Request) {
	response.RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Get(),
	})
}

// HandleAPIHealth passes through the backend auth service health report.
// Anything but a healthy report is a 503.
func (h *HandlerService) HandleAPIHealth(w http.ResponseWriter, r *http.Request) {
	env, _ := h.APIClient.AuthHealth(r.Context())

	switch {
	case !env.OK():
		response.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  env.Error,
		})
	case env.Data == nil || !env.Data.Healthy():
		response.RespondWithJSON(w, http.StatusServiceUnavailable, env.Data)
	default:
		response.RespondWithJSON(w, http.StatusOK, env.Data)
	}
}

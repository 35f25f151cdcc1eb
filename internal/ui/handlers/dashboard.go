package handlers

import (
	"context"
	"net/http"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/response"
	"github.com/velocity-platform/console/internal/session"
)

// DashboardSection is one backend document on the dashboard. A failed section carries
// its error; the rest of the dashboard still renders.
type DashboardSection struct {
	Data   map[string]any `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
	Status int            `json:"status"`
}

type Dashboard struct {
	User         *apiclient.User  `json:"user,omitempty"`
	Overview     DashboardSection `json:"overview"`
	TrustScore   DashboardSection `json:"trust_score"`
	SystemHealth DashboardSection `json:"system_health"`
}

type documentFetcher func(ctx context.Context) (apiclient.Envelope[map[string]any], error)

// HandleDashboard returns the dashboard documents as passed through by the backend.
func (h *HandlerService) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	client, store := h.sessionClient(w, r)

	var d Dashboard
	var user apiclient.User
	if err := session.LoadUser(r.Context(), store, &user); err == nil {
		d.User = &user
	}

	sections := []struct {
		into  *DashboardSection
		fetch documentFetcher
	}{
		{&d.Overview, client.DashboardOverview},
		{&d.TrustScore, client.TrustScore},
		{&d.SystemHealth, client.SystemHealth},
	}

	for _, s := range sections {
		env, err := s.fetch(r.Context())
		if err != nil {
			return // redirected to login
		}
		*s.into = section(env)
	}

	response.RespondWithJSON(w, http.StatusOK, d)
}

func section(env apiclient.Envelope[map[string]any]) DashboardSection {
	s := DashboardSection{Status: env.Status, Error: env.Error}
	if env.Data != nil {
		s.Data = *env.Data
	}
	return s
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/output"
)

type dashboardSection struct {
	name  string
	title string
	fetch func(*apiclient.Client, context.Context) (apiclient.Envelope[map[string]any], error)
}

var dashboardSections = []dashboardSection{
	{name: "overview", title: "Overview", fetch: (*apiclient.Client).DashboardOverview},
	{name: "trust-score", title: "Trust score", fetch: (*apiclient.Client).TrustScore},
	{name: "system-health", title: "System health", fetch: (*apiclient.Client).SystemHealth},
}

func sectionNames() []string {
	names := make([]string, len(dashboardSections))
	for i, s := range dashboardSections {
		names[i] = s.name
	}
	return names
}

func (a *App) dashboardCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:       "dashboard [" + strings.Join(sectionNames(), "|") + "]",
		Short:     "Show the compliance dashboard",
		Long:      "Shows every dashboard section, or only the one named. A failing section is reported and the others are still shown.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: sectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			sections := dashboardSections
			if len(args) == 1 {
				for _, s := range dashboardSections {
					if s.name == args[0] {
						sections = []dashboardSection{s}
					}
				}
			}

			failed := 0
			for _, s := range sections {
				env, err := s.fetch(a.client, cmd.Context())
				if err != nil {
					return err
				}
				if !env.OK() {
					failed++
					a.printer.Error("%s: %s", s.title, env.Error)
					continue
				}
				if err := a.renderSection(s.title, env, raw); err != nil {
					return err
				}
			}

			if failed == len(sections) {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the responses as JSON")
	return cmd
}

func (a *App) renderSection(title string, env apiclient.Envelope[map[string]any], raw bool) error {
	if raw {
		if env.Data == nil {
			return a.printer.JSON(map[string]any{})
		}
		return a.printer.JSON(*env.Data)
	}

	a.printer.Header(title)
	if env.Data == nil || len(*env.Data) == 0 {
		a.printer.Info("No data")
		return nil
	}
	return a.printer.Document(*env.Data)
}

func (a *App) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API auth service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.client.AuthHealth(cmd.Context())
			if err != nil {
				return err
			}

			t := output.NewTable(a.printer.Out(), []string{"Check", "Result"})
			t.AddRow("API", a.apiBaseURL)
			if !env.OK() {
				t.AddRow("Status", a.printer.StatusBadge("unavailable"))
				t.AddRow("Error", fmt.Sprintf("%s (status %d)", env.Error, env.Status))
				if err := t.Render(); err != nil {
					return err
				}
				return errReported
			}

			h := env.Data
			if h == nil {
				h = &apiclient.HealthStatus{Status: "unknown"}
			}
			t.AddRow("Status", a.printer.StatusBadge(h.Status))
			t.AddRow("Database connected", output.FormatValue(h.SupabaseConnected))
			t.AddRow("JWT secret configured", output.FormatValue(h.JWTSecretConfigured))
			if h.Error != "" {
				t.AddRow("Error", h.Error)
			}
			if err := t.Render(); err != nil {
				return err
			}
			if !h.Healthy() {
				return errReported
			}
			return nil
		},
	}
}

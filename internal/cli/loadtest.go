package cli

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/loadtest"
	"github.com/velocity-platform/console/internal/output"
)

func (a *App) loadtestCommand() *cobra.Command {
	cfg := loadtest.Config{
		Requests:    loadtest.DefaultRequests,
		Concurrency: loadtest.DefaultConcurrency,
	}

	cmd := &cobra.Command{
		Use:       "loadtest [section]",
		Short:     "Measure dashboard response times with the current session",
		Long:      "Sends repeated requests for one dashboard section (overview by default) and reports latency and throughput.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: sectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := dashboardSections[0]
			if len(args) == 1 {
				for _, s := range dashboardSections {
					if s.name == args[0] {
						section = s
					}
				}
			}

			cfg.Progress = func(done, status int, latency time.Duration) {
				if done <= 10 || done%50 == 0 || status != http.StatusOK {
					a.logger.Info("request completed",
						"n", done, "status", status, "latency", latency)
				}
			}

			a.printer.Info("Sending %d %s requests, %d at a time", cfg.Requests, section.name, cfg.Concurrency)
			probe := loadtest.EnvelopeProbe(func(ctx context.Context) (apiclient.Envelope[map[string]any], error) {
				return section.fetch(a.client, ctx)
			})
			m, err := loadtest.Run(cmd.Context(), probe, cfg)
			if err != nil {
				return err
			}
			if err := a.renderMetrics(m); err != nil {
				return err
			}
			if m.Failed > 0 {
				a.printer.Warning("%d of %d requests failed", m.Failed, m.TotalRequests)
				return errReported
			}
			a.printer.Success("All requests succeeded")
			return nil
		},
	}

	cmd.Flags().IntVarP(&cfg.Requests, "requests", "n", cfg.Requests, "number of requests")
	cmd.Flags().IntVarP(&cfg.Concurrency, "concurrency", "c", cfg.Concurrency, "requests in flight at once")
	return cmd
}

func (a *App) renderMetrics(m loadtest.Metrics) error {
	t := output.NewTable(a.printer.Out(), []string{"Metric", "Value"})
	t.AddRow("Requests", strconv.Itoa(m.TotalRequests))
	t.AddRow("Succeeded", strconv.Itoa(m.Succeeded))
	t.AddRow("Failed", strconv.Itoa(m.Failed))

	statuses := make([]int, 0, len(m.StatusCounts))
	for s := range m.StatusCounts {
		statuses = append(statuses, s)
	}
	slices.Sort(statuses)
	for _, s := range statuses {
		t.AddRow(fmt.Sprintf("HTTP %d", s), strconv.Itoa(m.StatusCounts[s]))
	}

	t.AddRow("Duration", m.TotalDuration.Round(time.Millisecond).String())
	t.AddRow("Average latency", m.AverageLatency.Round(time.Microsecond).String())
	t.AddRow("Min latency", m.MinLatency.Round(time.Microsecond).String())
	t.AddRow("Max latency", m.MaxLatency.Round(time.Microsecond).String())
	t.AddRow("Requests/second", fmt.Sprintf("%.2f", m.RequestsPerSecond))
	return t.Render()
}

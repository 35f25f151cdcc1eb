package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/output"
	"github.com/velocity-platform/console/internal/session"
)

// now is replaced in tests.
var now = time.Now

func (a *App) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session",
		Long:  "Reads the session file without contacting the API. Token claims are decoded for display only and are not verified.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t := output.NewTable(a.printer.Out(), []string{"Field", "Value"})
			t.AddRow("API", a.apiBaseURL)
			t.AddRow("Session file", a.sessionFile)

			token, err := session.Token(ctx, a.store)
			if err != nil {
				return err
			}
			if token == "" {
				t.AddRow("State", a.printer.StatusBadge("signed out"))
				return t.Render()
			}
			t.AddRow("State", a.printer.StatusBadge("signed in"))

			var user apiclient.User
			switch err := session.LoadUser(ctx, a.store, &user); {
			case err == nil:
				t.AddRow("User", user.Email)
				t.AddRow("Role", user.Role)
			case errors.Is(err, session.ErrNoSession):
			default:
				a.logger.Warn("stored user could not be read", "error", err)
			}

			info, err := session.InspectToken(token)
			if err != nil {
				t.AddRow("Token", "opaque")
				return t.Render()
			}
			if info.Subject != "" {
				t.AddRow("Subject", info.Subject)
			}
			if !info.ExpiresAt.IsZero() {
				expiry := info.ExpiresAt.Local().Format(time.RFC1123)
				if info.Expired(now()) {
					expiry += " " + a.printer.StatusBadge("expired")
				}
				t.AddRow("Expires", expiry)
			}
			return t.Render()
		},
	}
}

package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/output"
	"github.com/velocity-platform/console/internal/utils"
)

func (a *App) profileCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.client.Profile(cmd.Context())
			if err != nil {
				return err
			}
			if !env.OK() {
				return envelopeError(env)
			}
			if raw {
				return a.printer.JSON(env.Data)
			}
			return a.renderUser(env.Data)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response as JSON")

	cmd.AddCommand(a.profileUpdateCommand())
	return cmd
}

func (a *App) profileUpdateCommand() *cobra.Command {
	var name, email, timezone string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields",
		Long:  "Only the flags that are given are sent to the API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update apiclient.ProfileUpdate
			if cmd.Flags().Changed("name") {
				v := strings.TrimSpace(name)
				update.Name = &v
			}
			if cmd.Flags().Changed("email") {
				v := utils.NormalizeEmail(email)
				if err := utils.ValidateEmail(v); err != nil {
					return err
				}
				update.Email = &v
			}
			if cmd.Flags().Changed("timezone") {
				v := strings.TrimSpace(timezone)
				update.Timezone = &v
			}
			if update.Empty() {
				return errors.New("nothing to update: pass --name, --email or --timezone")
			}

			env, err := a.client.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			if !env.OK() {
				return envelopeError(env)
			}

			msg := env.Message
			if msg == "" {
				msg = "Profile updated"
			}
			a.printer.Success("%s", msg)
			if env.Data != nil && env.Data.ID != "" {
				return a.renderUser(env.Data)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&email, "email", "", "email address")
	f.StringVar(&timezone, "timezone", "", "IANA timezone, e.g. Europe/London")
	return cmd
}

func (a *App) renderUser(u *apiclient.User) error {
	if u == nil {
		a.printer.Warning("The API returned no profile")
		return nil
	}

	t := output.NewTable(a.printer.Out(), []string{"Field", "Value"})
	t.AddRow("ID", u.ID)
	t.AddRow("Name", u.Name)
	t.AddRow("Email", u.Email)
	t.AddRow("Role", u.Role)
	org := u.OrganizationName
	if org == "" {
		org = u.OrganizationID
	}
	t.AddRow("Organization", org)
	t.AddRow("Active", output.FormatValue(u.IsActive))
	if u.CreatedAt != nil {
		t.AddRow("Created", u.CreatedAt.Format("2006-01-02 15:04 MST"))
	}
	return t.Render()
}

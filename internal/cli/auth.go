package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/session"
	"github.com/velocity-platform/console/internal/utils"
)

func (a *App) loginCommand() *cobra.Command {
	var (
		email, password  string
		showRefreshToken bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := cmd.ErrOrStderr()

			email, err := a.textOrPrompt(prompts, email, "Email")
			if err != nil {
				return err
			}
			email = utils.NormalizeEmail(email)
			if err := utils.ValidateEmail(email); err != nil {
				return err
			}

			if password == "" {
				if password, err = a.promptPassword(prompts, "Password"); err != nil {
					return err
				}
			}
			if password == "" {
				return fmt.Errorf("password is required")
			}

			client := a.client.WithSession(a.store, quietNavigator)
			env, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				a.printer.Error("Invalid email or password.")
				return errReported
			}
			if !env.OK() {
				return envelopeError(env)
			}

			a.printer.Success("Signed in as %s", signedInAs(env.Data))
			a.logger.Debug("session saved", "path", a.sessionFile)
			return a.keepRefreshToken(cmd.Context(), env.Data, showRefreshToken)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted without echo when omitted)")
	cmd.Flags().BoolVar(&showRefreshToken, "show-refresh-token", false, "print the refresh token issued with the session")
	return cmd
}

func (a *App) registerCommand() *cobra.Command {
	var (
		req              apiclient.SignupRequest
		password         string
		showRefreshToken bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and organization, then sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := cmd.ErrOrStderr()
			var err error

			if req.Name, err = a.textOrPrompt(prompts, req.Name, "Full name"); err != nil {
				return err
			}
			if req.Email, err = a.textOrPrompt(prompts, req.Email, "Email"); err != nil {
				return err
			}
			if req.CompanyName, err = a.textOrPrompt(prompts, req.CompanyName, "Company"); err != nil {
				return err
			}
			req.Email = utils.NormalizeEmail(req.Email)
			if req.Name == "" || req.CompanyName == "" {
				return fmt.Errorf("name and company are required")
			}
			if err := utils.ValidateEmail(req.Email); err != nil {
				return err
			}

			confirm := password
			if password == "" {
				if password, err = a.promptPassword(prompts, "Password"); err != nil {
					return err
				}
				if confirm, err = a.promptPassword(prompts, "Confirm password"); err != nil {
					return err
				}
			}
			if err := utils.ValidatePassword(password, confirm); err != nil {
				return err
			}
			req.Password = password

			client := a.client.WithSession(a.store, quietNavigator)
			env, err := client.Register(cmd.Context(), req)
			if err != nil {
				a.printer.Error("Registration was rejected.")
				return errReported
			}
			if !env.OK() {
				return envelopeError(env)
			}

			a.printer.Success("Account created. Signed in as %s", signedInAs(env.Data))
			return a.keepRefreshToken(cmd.Context(), env.Data, showRefreshToken)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "full name")
	f.StringVar(&req.Email, "email", "", "account email")
	f.StringVar(&req.CompanyName, "company", "", "organization name")
	f.StringVar(&req.Tier, "tier", "", "subscription tier (server default starter)")
	f.StringVar(&req.Role, "role", "", "role in the organization (server default admin)")
	f.StringVar(&password, "password", "", "account password (prompted twice when omitted)")
	f.BoolVar(&showRefreshToken, "show-refresh-token", false, "print the refresh token issued with the session")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Long:  "Notifies the API and removes the local session. The local session is removed even when the API call fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.client.WithSession(a.store, quietNavigator).Logout(cmd.Context())
			if err == nil && !env.OK() {
				a.printer.Warning("API logout failed: %s", env.Error)
			}
			if err := session.Clear(cmd.Context(), a.store); err != nil {
				a.printer.Error("Could not remove the local session %s: %v", a.sessionFile, err)
				return errReported
			}
			a.printer.Success("Signed out")
			return nil
		},
	}
}

func (a *App) refreshCommand() *cobra.Command {
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new access token",
		Long:  "Uses --refresh-token when given, otherwise the refresh token kept by the last login.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if refreshToken == "" {
				kept, err := session.RefreshToken(cmd.Context(), a.store)
				if err != nil {
					return err
				}
				if kept == "" {
					return fmt.Errorf("no refresh token kept for this session: pass --refresh-token")
				}
				refreshToken = kept
			}

			env, err := a.client.RefreshToken(cmd.Context(), refreshToken)
			if err != nil {
				return err
			}
			if !env.OK() {
				return envelopeError(env)
			}
			if err := a.keepRefreshToken(cmd.Context(), env.Data, false); err != nil {
				return err
			}

			msg := "Session refreshed"
			if env.Data != nil && env.Data.ExpiresIn > 0 {
				msg += fmt.Sprintf(", expires in %s", time.Duration(env.Data.ExpiresIn)*time.Second)
			}
			a.printer.Success("%s", msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token issued at login (defaults to the kept one)")
	return cmd
}

// keepRefreshToken saves the refresh token next to the session and optionally prints it.
// A response without one leaves the kept token alone.
func (a *App) keepRefreshToken(ctx context.Context, auth *apiclient.AuthResponse, show bool) error {
	if auth == nil || auth.RefreshToken == "" {
		return nil
	}
	if err := session.SaveRefreshToken(ctx, a.store, auth.RefreshToken); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	if show {
		a.printer.Print("Refresh token: %s", auth.RefreshToken)
	}
	return nil
}

func signedInAs(auth *apiclient.AuthResponse) string {
	if auth == nil {
		return "unknown user"
	}
	u := auth.User
	if u.Name != "" && u.Email != "" {
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	}
	if u.Email != "" {
		return u.Email
	}
	if id := strings.TrimSpace(u.ID); id != "" {
		return id
	}
	return "unknown user"
}

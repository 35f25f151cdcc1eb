// Package cli implements the velocity command line client.
//
// The session lives in a JSON file (session.FileStore) so consecutive invocations share
// it. When the backend rejects the stored token the API client clears the file and the
// LoginPrompter tells the user to sign in again.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/velocity-platform/console/internal/apiclient"
	"github.com/velocity-platform/console/internal/config"
	"github.com/velocity-platform/console/internal/logger"
	"github.com/velocity-platform/console/internal/output"
	"github.com/velocity-platform/console/internal/session"
	"github.com/velocity-platform/console/internal/version"
)

// App holds what the commands share. It is populated before any command runs.
type App struct {
	stdin   io.Reader
	in      *bufio.Reader
	printer *output.Printer
	logger  *slog.Logger

	store       *session.FileStore
	client      *apiclient.Client
	apiBaseURL  string
	sessionFile string

	flags globalFlags
}

type globalFlags struct {
	api         string
	apiVersion  string
	sessionFile string
	logLevel    string
	noColor     bool
}

// LoginPrompter is the CLI's apiclient.Navigator.
type LoginPrompter struct {
	printer *output.Printer
}

func (p LoginPrompter) RedirectToLogin(context.Context) {
	p.printer.Error("Authentication required. Run `velocity login` to sign in again.")
}

// quietNavigator is used by login and register, which report a rejection themselves.
var quietNavigator = apiclient.NavigatorFunc(func(context.Context) {})

// errReported marks failures that have already been shown to the user.
var errReported = errors.New("reported")

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := &App{stdin: stdin, in: bufio.NewReader(stdin)}
	root := app.rootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) && !errors.Is(err, apiclient.ErrAuthenticationRequired) {
		if app.printer == nil {
			app.printer = output.NewPrinter(stdout, stderr, false)
		}
		app.printer.Error("%v", err)
	}
	return 1
}

func (a *App) rootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "velocity",
		Short: "Velocity compliance platform client",
		Long: `velocity signs in to the Velocity API and shows your account and dashboard.

Example usage:
  velocity login --email you@example.com
  velocity dashboard
  velocity dashboard trust-score --raw
  velocity status
  velocity loadtest trust-score -n 200 -c 10`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, stdout, stderr)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.api, "api", "", "API base URL (env VELOCITY_API_URL)")
	pf.StringVar(&a.flags.apiVersion, "api-version", "", "API version (env VELOCITY_API_VERSION)")
	pf.StringVar(&a.flags.sessionFile, "session-file", "", "session file (env VELOCITY_SESSION_FILE)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (env VELOCITY_LOG_LEVEL)")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		a.loginCommand(),
		a.registerCommand(),
		a.logoutCommand(),
		a.refreshCommand(),
		a.profileCommand(),
		a.dashboardCommand(),
		a.healthCommand(),
		a.statusCommand(),
		a.loadtestCommand(),
		a.versionCommand(),
	)
	return root
}

// init resolves configuration: flags override environment, environment overrides defaults.
func (a *App) init(cmd *cobra.Command, stdout, stderr io.Writer) error {
	a.printer = output.NewPrinter(stdout, stderr, output.ResolveColors(a.flags.noColor))

	cfg, err := config.NewCLI()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api") {
		cfg.APIBaseURL = a.flags.api
	}
	if cmd.Flags().Changed("api-version") {
		cfg.APIVersion = a.flags.apiVersion
	}
	if cmd.Flags().Changed("session-file") {
		cfg.SessionFile = a.flags.sessionFile
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.logger = logger.CLILogger(stderr, logger.ParseLogLevel(cfg.LogLevel), !a.printer.UseColors())

	a.sessionFile = cfg.SessionFile
	if a.sessionFile == "" {
		a.sessionFile, err = session.DefaultSessionFile()
		if err != nil {
			return fmt.Errorf("locating session file: %w", err)
		}
	}
	a.store = session.NewFileStore(a.sessionFile)

	a.client, err = apiclient.New(
		apiclient.Config{BaseURL: cfg.APIBaseURL, Version: cfg.APIVersion},
		a.store,
		LoginPrompter{printer: a.printer},
		apiclient.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.apiBaseURL = a.client.BaseURL()

	a.logger.Debug("configuration loaded",
		slog.String("api", a.apiBaseURL),
		slog.String("session_file", a.sessionFile),
	)
	return nil
}

// envelopeError turns a failed envelope into a command error.
func envelopeError[T any](env apiclient.Envelope[T]) error {
	return fmt.Errorf("%s (status %d)", env.Error, env.Status)
}

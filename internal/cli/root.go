package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"todo-cli/internal/api"
	"todo-cli/internal/format"
	"todo-cli/internal/logging"
	"todo-cli/internal/state"
	"todo-cli/internal/store"
	"todo-cli/internal/tui"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// App holds the persistent flags and, after setup, the effective
// configuration (defaults < config file < env < flags).
type App struct {
	ConfigPath string
	APIBase    string
	OwnerID    int
	Format     string
	PrettyJSON bool
	LogLevel   string
	LogFile    string

	cfg       *store.Config
	cfgPath   string
	log       *log.Logger
	logCloser io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Todo list client: TUI, browser UI and scriptable commands",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo list --filter active
  todo add Buy milk
  todo toggle 3

  # Direct lookup (shortcut for: todo show <id>)
  todo 3

  # Local stand-in for the remote API
  todo mockapi --latency 400ms --fail-rate 0.2
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.setup(cmd); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.close()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TODO_CONFIG", ""), "Config file (default: $XDG_CONFIG_HOME/todo/config.toml)")
	cmd.PersistentFlags().StringVar(&app.APIBase, "api", "", "Base URL of the task API (env TODO_API)")
	cmd.PersistentFlags().IntVar(&app.OwnerID, "owner", 0, "Owner (user) id (env TODO_OWNER)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "", "Output format (json|edn|text) (env TODO_FORMAT)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error) (env TODO_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Write logs to this file instead of stderr (env TODO_LOG_FILE)")

	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newToggleAllCmd(app))
	cmd.AddCommand(newClearCompletedCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newMockAPICmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	closeAfterRun(cmd, app)
	return cmd
}

// closeAfterRun makes every command release the app's log file when its RunE
// returns. Cobra skips PersistentPostRunE after a failing RunE.
func closeAfterRun(c *cobra.Command, app *App) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			defer app.close()
			return run(cmd, args)
		}
	}
	for _, sub := range c.Commands() {
		closeAfterRun(sub, app)
	}
}

// setup resolves the effective configuration and the command logger.
func (app *App) setup(cmd *cobra.Command) error {
	path := strings.TrimSpace(app.ConfigPath)
	if path == "" {
		p, err := store.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIBase = app.APIBase
	}
	if flags.Changed("owner") {
		cfg.OwnerID = app.OwnerID
	}
	if flags.Changed("format") {
		cfg.Format = app.Format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = app.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = app.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	f, err := format.Parse(cfg.Format)
	if err != nil {
		return err
	}
	cfg.Format = f

	app.cfg = cfg
	app.cfgPath = path
	opts := logging.Options{Level: cfg.LogLevel}
	if cfg.LogFile != "" {
		l, closer, err := logging.OpenFile(cfg.LogFile, opts)
		if err != nil {
			return err
		}
		app.log, app.logCloser = l, closer
		return nil
	}
	app.log = logging.New(cmd.ErrOrStderr(), opts)
	return nil
}

func (app *App) close() {
	if app.logCloser != nil {
		_ = app.logCloser.Close()
		app.logCloser = nil
	}
}

func (app *App) newClient(l *log.Logger) (*api.Client, error) {
	return api.New(app.cfg.APIBase, api.WithLogger(l))
}

func (app *App) newController(l *log.Logger) (*state.Controller, error) {
	client, err := app.newClient(l)
	if err != nil {
		return nil, err
	}
	return state.New(client, state.Options{OwnerID: app.cfg.OwnerID, Logger: l}), nil
}

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal UI (same as running todo without a command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	// The TUI owns the terminal: log to a file, never to stderr.
	path := app.cfg.LogFile
	if path == "" {
		p, err := store.DefaultLogFile()
		if err != nil {
			return writeErr(cmd, err)
		}
		path = p
	}
	l, closer, err := logging.OpenFile(path, logging.Options{Level: app.cfg.LogLevel, Prefix: "tui"})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closer.Close()

	ctl, err := app.newController(l)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer ctl.Close()

	stateDir, err := store.ConfigDir()
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), tui.Options{
		Controller: ctl,
		UIState:    store.UIStateStore{Dir: stateDir},
		Logger:     l,
		Glyphs:     app.cfg.TUI.Glyphs,
	})
}

// withLoaded runs fn against a controller holding the owner's current todos.
func (app *App) withLoaded(cmd *cobra.Command, fn func(ctx context.Context, ctl *state.Controller) error) error {
	ctl, err := app.newController(app.log)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer ctl.Close()

	ctx := cmd.Context()
	if err := ctl.Load(ctx); err != nil {
		return writeErr(cmd, opError(ctl, err))
	}
	if err := fn(ctx, ctl); err != nil {
		return writeErr(cmd, opError(ctl, err))
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	f, pretty := format.JSON, app.PrettyJSON
	if app.cfg != nil {
		f = app.cfg.Format
	}
	return format.Write(cmd.OutOrStdout(), v, f, pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

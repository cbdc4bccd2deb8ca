package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spending/internal/config"
	applog "spending/internal/log"
)

// Options configure the spendctl command tree. Zero values read the
// environment and open the configured backend.
type Options struct {
	Output io.Writer
	// LoadConfig returns the validated configuration.
	LoadConfig func() (*config.Config, error)
	// OpenApp builds the services for cfg. The caller closes the App.
	OpenApp func(ctx context.Context, cfg *config.Config) (*App, error)
	// Now supplies today's date for queries without --as-of.
	Now func() time.Time
}

// CLI is the spendctl command-line interface.
type CLI struct {
	opts     Options
	reporter *Reporter
	format   string
	rootCmd  *cobra.Command
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = loadConfigFromEnv
	}
	if opts.OpenApp == nil {
		opts.OpenApp = openAppQuiet
	}

	c := &CLI{opts: opts, reporter: NewReporter(opts.Output)}
	c.rootCmd = c.newRootCmd()
	return c
}

func (c *CLI) Execute() error {
	return c.rootCmd.Execute()
}

// ExecuteContext runs the command tree with args instead of os.Args.
func (c *CLI) ExecuteContext(ctx context.Context, args ...string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "spendctl",
		Short:         "Query and record recurring spending",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.reporter.setFormat(c.format)
		},
	}
	cmd.SetOut(c.opts.Output)
	cmd.PersistentFlags().StringVarP(&c.format, "output", "o", formatText, "Output format (text or json)")

	cmd.AddCommand(c.newSpendCmd())
	cmd.AddCommand(c.newActivityCmd())
	cmd.AddCommand(c.newSnapshotCmd())
	cmd.AddCommand(c.newMigrateCmd())

	return cmd
}

// withApp opens the app for the duration of fn.
func (c *CLI) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := c.opts.LoadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := c.opts.OpenApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func loadConfigFromEnv() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openAppQuiet logs to stderr so command output stays parseable.
func openAppQuiet(ctx context.Context, cfg *config.Config) (*App, error) {
	logCfg := applog.DefaultConfig()
	logCfg.Level = applog.ParseLevel(cfg.LogLevel)
	logCfg.Component = applog.ComponentCLI
	logCfg.Output = os.Stderr
	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	return NewApp(ctx, cfg, logger.Logger)
}

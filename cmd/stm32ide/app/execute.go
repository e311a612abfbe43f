package app

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/alerts"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cmd/output"
)

// flagValues receives parsed flags; only flags the user set override the
// loaded configuration.
type flagValues struct {
	configFile     string
	verbose        bool
	quiet          bool
	noColor        bool
	format         string
	logLevel       string
	root           string
	noPrompt       bool
	createBuildDir bool
	dryRun         bool
	timeout        time.Duration
}

// Execute runs the stm32ide CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	flags := &flagValues{}

	rootCmd := &cobra.Command{
		Use:     "stm32ide",
		Short:   "Synchronize .vscode/buildData.json with the Makefile and toolchain",
		Version: a.version,
		Long: `stm32ide reads the project's generated Makefile, checks the recorded
toolchain and debugger paths, and rewrites .vscode/buildData.json so the
editor tasks and IntelliSense configuration match the current build.

Keys written by other tools are preserved. A missing or unreadable
buildData.json is recreated from the built-in template.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, flags)
		},
		RunE:          a.runSync,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default is $HOME/.stm32ide.yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&flags.format, "format", "o", "", "output format: table, json, yaml, wide")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	pf.StringVarP(&flags.root, "root", "C", "", "project root containing the Makefile (default is the working directory)")

	f := rootCmd.Flags()
	f.BoolVar(&flags.noPrompt, "no-prompt", false, "never ask for missing toolchain paths")
	f.BoolVar(&flags.createBuildDir, "create-build-dir", false, "create the Makefile's build directory after syncing")
	f.BoolVar(&flags.dryRun, "dry-run", false, "report changes without writing buildData.json")
	f.DurationVar(&flags.timeout, "timeout", 0, "abort the sync after this duration (0 disables)")

	rootCmd.SetVersionTemplate("stm32ide {{.Version}}\n")

	rootCmd.AddCommand(a.NewCheckCommand())
	rootCmd.AddCommand(a.NewVersionCommand())

	return rootCmd
}

// setupCommand is called before any command runs. It reloads the config
// file when --config is given, applies explicitly set flags on top and
// rebuilds the logger.
func (a *App) setupCommand(cmd *cobra.Command, flags *flagValues) error {
	a.command = cmd.Name()
	if !cmd.HasParent() {
		a.command = "sync"
	}
	changed := cmd.Flags().Changed

	if changed("config") {
		config, err := LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	c := a.config
	if changed("verbose") {
		c.Verbose = flags.verbose
	}
	if changed("quiet") {
		c.Quiet = flags.quiet
	}
	if changed("no-color") {
		c.NoColor = flags.noColor
	}
	if changed("format") {
		c.Format = flags.format
	}
	if changed("log-level") {
		c.LogLevel = flags.logLevel
	}
	if changed("root") {
		c.Root = flags.root
	}
	if changed("no-prompt") {
		c.NoPrompt = flags.noPrompt
	}
	if changed("create-build-dir") {
		c.CreateBuildDir = flags.createBuildDir
	}
	if changed("dry-run") {
		c.DryRun = flags.dryRun
	}
	if changed("timeout") {
		c.Timeout = flags.timeout
	}

	if _, err := output.ParseFormat(c.Format); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	logger := NewLogger(c)
	a.logger = &logger

	return nil
}

// ReportError prints err as an error status line with a hint when one applies.
func (a *App) ReportError(err error) {
	noColor := a.config != nil && a.config.NoColor
	_ = alerts.NewWriterTo(a.stderr, noColor).WriteAlert(errorAlert(a.command, err))
}

// ExitOnError prints an error and exits with status 1. It is used before
// an App exists.
func ExitOnError(err error) {
	if err != nil {
		_ = alerts.NewWriterTo(os.Stderr, false).WriteAlert(errorAlert("", err))
		os.Exit(1)
	}
}

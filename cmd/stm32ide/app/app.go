// Package app wires configuration, logging and the reconciliation engine
// into the stm32ide command line.
package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	stm32ide "github.com/jhonToni/VS-Code-STM32-IDE"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/toolchain"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// App represents the stm32ide application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Standard streams; prompts and status lines go to stderr
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Extra engine options applied after the configured ones
	engineOpts []stm32ide.Option

	// Name of the command being run, used in failure messages
	command string
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Engine builds a reconciliation engine from the current configuration.
func (a *App) Engine() (stm32ide.Engine, error) {
	engine, err := stm32ide.New(a.buildEngineOptions()...)
	if err != nil {
		return nil, errors.NewConfigError("engine", "cannot create sync engine", err)
	}
	return engine, nil
}

// buildEngineOptions constructs engine options from the app configuration.
func (a *App) buildEngineOptions() []stm32ide.Option {
	opts := []stm32ide.Option{
		stm32ide.WithVersion(a.version),
		stm32ide.WithLogger(a.logger),
		stm32ide.WithResolver(a.resolver()),
		stm32ide.WithCreateBuildDir(a.config.CreateBuildDir),
		stm32ide.WithDryRun(a.config.DryRun),
		stm32ide.WithTimeout(a.config.Timeout),
	}
	if a.config.Root != "" {
		opts = append(opts, stm32ide.WithRoot(a.config.Root))
	}
	return append(opts, a.engineOpts...)
}

// resolver searches PATH first and asks on the terminal for whatever is
// left, unless prompting is disabled or stdin is not interactive.
func (a *App) resolver() toolchain.Resolver {
	chain := toolchain.Chain{&toolchain.LookupResolver{}}
	if a.config.NoPrompt || !isInteractive(a.stdin) {
		return chain
	}
	return append(chain, &toolchain.PromptResolver{In: a.stdin, Out: a.stderr})
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithIO replaces the standard streams (useful for testing).
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
		return nil
	}
}

// WithEngineOptions appends engine options after the configured ones.
func WithEngineOptions(opts ...stm32ide.Option) Option {
	return func(a *App) error {
		a.engineOpts = append(a.engineOpts, opts...)
		return nil
	}
}

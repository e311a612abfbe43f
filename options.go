package stm32ide

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhonToni/VS-Code-STM32-IDE/internal/cubemx"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/store"
	"github.com/jhonToni/VS-Code-STM32-IDE/internal/toolchain"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/metadata"
)

// DefaultVersion is written to VERSION when no version is configured.
const DefaultVersion = "dev"

// Option is a function that configures an Engine
type Option func(*config) error

// config holds the engine configuration
type config struct {
	root           string
	storePath      string
	makefile       string
	version        string
	timeout        time.Duration
	dryRun         bool
	createBuildDir bool

	extractor   metadata.Extractor
	resolver    toolchain.Resolver
	resolverSet bool
	locator     cubemx.Locator
	clock       func() time.Time
	logger      *zerolog.Logger
	template    []byte
}

func defaultConfig() *config {
	return &config{
		root:    ".",
		version: DefaultVersion,
		clock:   time.Now,
		locator: cubemx.Default,
	}
}

// complete resolves the project root and fills in collaborators that
// depend on it.
func (c *config) complete() error {
	root, err := filepath.Abs(c.root)
	if err != nil {
		return errors.NewConfigError("root", "cannot resolve project root", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return errors.NewConfigError("root", "project root is not accessible", err)
	}
	if !info.IsDir() {
		return errors.NewConfigError("root", root+" is not a directory", nil)
	}
	c.root = root

	if c.makefile == "" {
		c.makefile = filepath.Join(root, constants.MakefileName)
	} else if !filepath.IsAbs(c.makefile) {
		c.makefile = filepath.Join(root, c.makefile)
	}
	if c.storePath == "" {
		c.storePath = store.Path(root)
	}
	if c.extractor == nil {
		c.extractor = &metadata.MakeExtractor{Dir: root, Makefile: c.makefile}
	}
	if !c.resolverSet {
		c.resolver = &toolchain.LookupResolver{}
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	return nil
}

// WithRoot sets the project root; defaults to the working directory.
func WithRoot(root string) Option {
	return func(c *config) error {
		if root == "" {
			return errors.NewValidationError("root", root, "must not be empty")
		}
		c.root = root
		return nil
	}
}

// WithVersion sets the value stamped into VERSION on every persist.
func WithVersion(version string) Option {
	return func(c *config) error {
		if version == "" {
			return errors.NewValidationError("version", version, "must not be empty")
		}
		c.version = version
		return nil
	}
}

// WithExtractor replaces the make-based metadata extractor.
func WithExtractor(extractor metadata.Extractor) Option {
	return func(c *config) error {
		if extractor == nil {
			return errors.NewValidationError("extractor", nil, "must not be nil")
		}
		c.extractor = extractor
		return nil
	}
}

// WithResolver sets the resolver asked for stale toolchain paths. A nil
// resolver makes stale paths fatal.
func WithResolver(resolver toolchain.Resolver) Option {
	return func(c *config) error {
		c.resolver = resolver
		c.resolverSet = true
		return nil
	}
}

// WithLocator replaces the CubeMX project file locator.
func WithLocator(locator cubemx.Locator) Option {
	return func(c *config) error {
		if locator == nil {
			return errors.NewValidationError("locator", nil, "must not be nil")
		}
		c.locator = locator
		return nil
	}
}

// WithClock sets the time source for LAST_RUN.
func WithClock(clock func() time.Time) Option {
	return func(c *config) error {
		if clock == nil {
			return errors.NewValidationError("clock", nil, "must not be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithLogger sets the logger passed down through the sync context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithStorePath overrides the location of buildData.json.
func WithStorePath(path string) Option {
	return func(c *config) error {
		c.storePath = path
		return nil
	}
}

// WithMakefile overrides the Makefile path, absolute or relative to the root.
func WithMakefile(path string) Option {
	return func(c *config) error {
		c.makefile = path
		return nil
	}
}

// WithTemplate replaces the built-in template used to create the store.
func WithTemplate(template []byte) Option {
	return func(c *config) error {
		c.template = template
		return nil
	}
}

// WithCreateBuildDir creates the build directory after a successful sync.
func WithCreateBuildDir(enabled bool) Option {
	return func(c *config) error {
		c.createBuildDir = enabled
		return nil
	}
}

// WithDryRun computes the result without writing anything.
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithTimeout bounds a whole sync, including external processes.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return errors.NewValidationError("timeout", timeout, "must not be negative")
		}
		c.timeout = timeout
		return nil
	}
}

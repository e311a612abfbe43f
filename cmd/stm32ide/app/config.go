package app

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "STM32IDE"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string `validate:"omitempty,oneof=table json yaml wide"`

	// Config file
	ConfigFile string

	// Sync configuration
	Root           string
	NoPrompt       bool
	CreateBuildDir bool
	DryRun         bool
	Timeout        time.Duration `validate:"gte=0"`

	// Logging configuration
	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=auto json console pretty"`
	LogOutput string
}

var validate = validator.New()

// Validate checks enumerated and ranged settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return errors.NewConfigError(first.Field(), "invalid value "+quote(first.Value()), err)
		}
		return errors.NewConfigError("", err.Error(), err)
	}
	return nil
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by the root command)
//  2. STM32IDE_* environment variables
//  3. .env and .env.local in the working directory
//  4. Config file (configFile, or ~/.stm32ide.yaml / ./.stm32ide.yaml)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", "")
	v.SetDefault("log-format", "auto")
	v.SetDefault("log-output", "stderr")

	// The unprefixed logging variables are honoured as well
	_ = v.BindEnv("log-level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log-format", EnvPrefix+"_LOG_FORMAT", "LOG_FORMAT")
	_ = v.BindEnv("log-output", EnvPrefix+"_LOG_OUTPUT", "LOG_OUTPUT")
	_ = v.BindEnv("no-color", EnvPrefix+"_NO_COLOR", "NO_COLOR")

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".stm32ide")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "cannot read "+v.ConfigFileUsed(), err)
			}
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  strings.ToLower(v.GetString("format")),

		ConfigFile: v.ConfigFileUsed(),

		Root:           v.GetString("root"),
		NoPrompt:       v.GetBool("no-prompt"),
		CreateBuildDir: v.GetBool("create-build-dir"),
		DryRun:         v.GetBool("dry-run"),
		Timeout:        v.GetDuration("timeout"),

		LogLevel:  strings.ToLower(v.GetString("log-level")),
		LogFormat: strings.ToLower(v.GetString("log-format")),
		LogOutput: v.GetString("log-output"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are kept, so .env.local takes precedence over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return `"` + s + `"`
	}
	if d, ok := v.(time.Duration); ok {
		return d.String()
	}
	return "value"
}

// Package config provides configuration management for the devlog site
// using Viper for loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files (.devlog.yml), environment
// variable overrides with the DEVLOG_ prefix, defaults and validation. It
// manages server settings, the location of the static content files, and
// logging options.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	siteerrors "github.com/conneroisu/devlog/internal/errors"
	"github.com/conneroisu/devlog/internal/validation"
	"github.com/spf13/viper"
)

// Default values applied by Load when a key is not set.
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8080
	DefaultEnvironment     = "development"
	DefaultContentDir      = "./content"
	DefaultEntriesFile     = "entries.json"
	DefaultDevlogFile      = "devlog.json"
	DefaultJourneyFile     = "journey.json"
	DefaultSectionsFile    = "sections.json"
	DefaultPostsDir        = "posts"
	DefaultDebounce        = 300 * time.Millisecond
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Environment     string        `mapstructure:"environment" yaml:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ContentConfig locates the static content files. File names are relative
// to Dir.
type ContentConfig struct {
	Dir          string        `mapstructure:"dir" yaml:"dir"`
	EntriesFile  string        `mapstructure:"entries_file" yaml:"entries_file"`
	DevlogFile   string        `mapstructure:"devlog_file" yaml:"devlog_file"`
	JourneyFile  string        `mapstructure:"journey_file" yaml:"journey_file"`
	SectionsFile string        `mapstructure:"sections_file" yaml:"sections_file"`
	PostsDir     string        `mapstructure:"posts_dir" yaml:"posts_dir"`
	Watch        bool          `mapstructure:"watch" yaml:"watch"`
	Debounce     time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment reports whether the server runs in development mode.
func (s ServerConfig) IsDevelopment() bool {
	return s.Environment == "development"
}

// Path joins a content file name onto the content directory.
func (c ContentConfig) Path(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(c.Dir, name)
}

// Default returns a fully populated configuration without consulting viper.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, viper.New())
	return cfg
}

// EnvPrefix prefixes every environment override, as in DEVLOG_SERVER_PORT.
const EnvPrefix = "DEVLOG"

// keys lists every configuration key in dotted form.
var keys = []string{
	"server.port",
	"server.host",
	"server.allowed_origins",
	"server.environment",
	"server.shutdown_timeout",
	"content.dir",
	"content.entries_file",
	"content.devlog_file",
	"content.journey_file",
	"content.sections_file",
	"content.posts_dir",
	"content.watch",
	"content.debounce",
	"logging.level",
	"logging.format",
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnv registers every key with v. Unmarshal only decodes keys viper
// knows about, so without this an override for a key that no config file
// or flag mentions would be ignored.
func bindEnv(v *viper.Viper) error {
	for _, key := range keys {
		if err := v.BindEnv(key, EnvVar(key)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the configuration viper has collected from the config file,
// environment and bound flags.
func Load() (*Config, error) {
	if err := bindEnv(viper.GetViper()); err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, "failed to bind environment", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, "failed to decode configuration", err)
	}

	applyDefaults(&config, viper.GetViper())

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config, v *viper.Viper) {
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !v.IsSet("server.port") {
		config.Server.Port = DefaultPort
	}
	if config.Server.Environment == "" {
		config.Server.Environment = DefaultEnvironment
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Handle allowed_origins set as a comma separated env value
	if v.IsSet("server.allowed_origins") && len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if config.Content.Dir == "" {
		config.Content.Dir = DefaultContentDir
	}
	if config.Content.EntriesFile == "" {
		config.Content.EntriesFile = DefaultEntriesFile
	}
	if config.Content.DevlogFile == "" {
		config.Content.DevlogFile = DefaultDevlogFile
	}
	if config.Content.JourneyFile == "" {
		config.Content.JourneyFile = DefaultJourneyFile
	}
	if config.Content.SectionsFile == "" {
		config.Content.SectionsFile = DefaultSectionsFile
	}
	if !v.IsSet("content.posts_dir") && config.Content.PostsDir == "" {
		config.Content.PostsDir = DefaultPostsDir
	}
	if config.Content.Debounce == 0 {
		config.Content.Debounce = DefaultDebounce
	}
	// Watching defaults on in development only
	if v.IsSet("content.watch") {
		config.Content.Watch = v.GetBool("content.watch")
	} else {
		config.Content.Watch = config.Server.IsDevelopment()
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	var errs siteerrors.ValidationErrorCollection

	validateServerConfig(&config.Server, &errs)
	validateContentConfig(&config.Content, &errs)
	validateLoggingConfig(&config.Logging, &errs)

	return errs.Err()
}

func validateServerConfig(config *ServerConfig, errs *siteerrors.ValidationErrorCollection) {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		errs.AddField("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				errs.AddField("server.host", config.Host, "host contains dangerous character: "+char)
				break
			}
		}
	}

	for _, origin := range config.AllowedOrigins {
		if err := validation.ValidateOriginSetting(origin); err != nil {
			errs.AddField("server.allowed_origins", origin, err.Error())
		}
	}

	switch config.Environment {
	case "development", "production":
	default:
		errs.AddField("server.environment", config.Environment, "unknown environment", "use development or production")
	}

	if config.ShutdownTimeout < 0 {
		errs.AddField("server.shutdown_timeout", config.ShutdownTimeout, "shutdown timeout must not be negative")
	}
}

func validateContentConfig(config *ContentConfig, errs *siteerrors.ValidationErrorCollection) {
	if err := validatePath(config.Dir); err != nil {
		errs.AddField("content.dir", config.Dir, siteerrors.PublicMessage(err))
	}

	files := map[string]string{
		"content.entries_file":  config.EntriesFile,
		"content.devlog_file":   config.DevlogFile,
		"content.journey_file":  config.JourneyFile,
		"content.sections_file": config.SectionsFile,
	}
	for _, field := range []string{"content.entries_file", "content.devlog_file", "content.journey_file", "content.sections_file"} {
		if err := validateFileName(files[field]); err != nil {
			errs.AddField(field, files[field], siteerrors.PublicMessage(err))
		}
	}

	if config.PostsDir != "" {
		if err := validateFileName(config.PostsDir); err != nil {
			errs.AddField("content.posts_dir", config.PostsDir, siteerrors.PublicMessage(err))
		}
	}

	if config.Debounce < 0 {
		errs.AddField("content.debounce", config.Debounce, "debounce must not be negative")
	}
}

func validateLoggingConfig(config *LoggingConfig, errs *siteerrors.ValidationErrorCollection) {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("logging.level", config.Level, "unknown log level", "use one of: debug, info, warn, error")
	}

	switch config.Format {
	case "text", "json":
	default:
		errs.AddField("logging.format", config.Format, "unknown log format", "use text or json")
	}
}

// validatePath validates a directory path for security
func validatePath(path string) error {
	if path == "" {
		return siteerrors.ErrInvalidPath(path)
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return siteerrors.ErrPathTraversal(path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return siteerrors.ErrInvalidPath(path)
		}
	}

	return nil
}

// validateFileName validates a name that is joined onto the content dir.
func validateFileName(name string) error {
	if err := validatePath(name); err != nil {
		return err
	}
	if filepath.IsAbs(name) {
		return siteerrors.NewValidationError(siteerrors.ErrCodeInvalidPath, "should be relative to the content dir: "+name)
	}
	return nil
}

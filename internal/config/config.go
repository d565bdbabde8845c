package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of all configuration environment variables,
// e.g. TAB_SERVER_PORT.
const EnvPrefix = "TAB"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// LoggingConfig tunes the structured logger.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig is the data directory layout. Relative paths resolve
// against the working directory.
type PathsConfig struct {
	Input       string `yaml:"input" envconfig:"INPUT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	Archive     string `yaml:"archive" envconfig:"ARCHIVE"`
	Quarantine  string `yaml:"quarantine" envconfig:"QUARANTINE"`
	Schemas     string `yaml:"schemas" envconfig:"SCHEMAS"`
	Logs        string `yaml:"logs" envconfig:"LOGS"`
	Connections string `yaml:"connections" envconfig:"CONNECTIONS"`
}

// PipelineConfig carries the batch processing defaults.
type PipelineConfig struct {
	ValidationLevel string `yaml:"validation_level" envconfig:"VALIDATION_LEVEL" validate:"oneof=off coerce contract"`
	OutputFormat    string `yaml:"output_format" envconfig:"OUTPUT_FORMAT" validate:"oneof=xlsx csv jsonl"`
	FailOnMissing   bool   `yaml:"fail_on_missing" envconfig:"FAIL_ON_MISSING"`
	FailOnExtra     bool   `yaml:"fail_on_extra" envconfig:"FAIL_ON_EXTRA"`
	PreviewRows     int    `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"min=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			FilePath: "logs/tabcli.log",
		},
		Paths: PathsConfig{
			Input:       "data/input",
			Output:      "data/output",
			Archive:     "data/archive",
			Quarantine:  "data/quarantine",
			Schemas:     "schemas",
			Logs:        "logs",
			Connections: "connections.yaml",
		},
		Pipeline: PipelineConfig{
			ValidationLevel: "coerce",
			OutputFormat:    "xlsx",
			PreviewRows:     20,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file when it
// exists, then TAB_* environment variables.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = "config.yaml"
	}
	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", configFile, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Ensure creates every data directory the pipeline writes into.
func (p PathsConfig) Ensure() error {
	for _, dir := range []string{p.Input, p.Output, p.Archive, p.Quarantine, p.Schemas, p.Logs} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// LogFile resolves the log file path, creating its directory.
func (c *Config) LogFile() (string, error) {
	path := c.Logging.FilePath
	if path == "" {
		path = filepath.Join(c.Paths.Logs, "tabcli.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	return path, nil
}

// Package config provides the configuration for a txnguard run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	tgerrors "github.com/txnguard/txnguard/internal/errors"
)

// Source and sink types.
const (
	TypeCSV      = "csv"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeProtobuf = "protobuf"
)

// Config holds the configuration for one batch run.
type Config struct {
	// Input describes where transactions are read from
	Input InputConfig `json:"input" yaml:"input"`

	// Output describes where flagged transactions are written to
	Output OutputConfig `json:"output" yaml:"output"`

	// ThresholdsPath is a JSON or YAML merchant threshold file. Empty means
	// no merchant thresholds.
	ThresholdsPath string `json:"thresholds_path" yaml:"thresholds_path"`

	// Blacklist overrides the default merchant blacklist when set
	Blacklist []string `json:"blacklist,omitempty" yaml:"blacklist,omitempty"`

	// Engine configuration
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Storage configuration for staged input and published output
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// WorkDir holds staged downloads and outputs awaiting upload
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// InputConfig holds input configuration.
type InputConfig struct {
	// Type is the source type: csv, sqlite, postgres
	Type string `json:"type" yaml:"type"`

	// Path is the CSV file path (csv type)
	Path string `json:"path" yaml:"path"`

	// DSN is the database connection string (sqlite, postgres types)
	DSN string `json:"dsn" yaml:"dsn"`

	// Query selects user_id, timestamp, merchant_name, amount
	Query string `json:"query" yaml:"query"`

	// ObjectKey, when set, is downloaded from storage into the work dir and
	// read as a CSV file instead of Path
	ObjectKey string `json:"object_key" yaml:"object_key"`
}

// OutputConfig holds output configuration.
type OutputConfig struct {
	// Type is the sink type: csv, sqlite, postgres, protobuf
	Type string `json:"type" yaml:"type"`

	// Path is the output file path (csv, protobuf types)
	Path string `json:"path" yaml:"path"`

	// DSN is the database connection string (sqlite, postgres types)
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the output table (sqlite, postgres types)
	Table string `json:"table" yaml:"table"`

	// Compress snappy-frames CSV output
	Compress bool `json:"compress" yaml:"compress"`

	// ObjectKey, when set, receives the output file after it is written
	ObjectKey string `json:"object_key" yaml:"object_key"`
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	// Workers is the number of goroutines users are sharded over
	Workers int `json:"workers" yaml:"workers"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" yaml:"level"`

	// Format is json or console
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Textfile is a path for Prometheus textfile-collector output. Empty
	// disables metrics output.
	Textfile string `json:"textfile" yaml:"textfile"`
}

// DefaultConfig returns the default configuration: the CSV layout of the
// classic daily job.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Type: TypeCSV,
			Path: "data/transactions.csv",
		},
		Output: OutputConfig{
			Type: TypeCSV,
			Path: "data/flagged_transactions.csv",
		},
		Engine: EngineConfig{
			Workers: 1,
		},
		Storage: StorageConfig{
			Type: "local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		WorkDir: "",
	}
}

// Resolve fills in derived defaults.
func (c *Config) Resolve() {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "txnguard")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join("data", "storage")
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = 1
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Input.Type {
	case TypeCSV:
		if c.Input.Path == "" && c.Input.ObjectKey == "" {
			return invalid("input.path is required for csv input")
		}
	case TypeSQLite, TypePostgres:
		if c.Input.DSN == "" {
			return invalid(fmt.Sprintf("input.dsn is required for %s input", c.Input.Type))
		}
		if c.Input.ObjectKey != "" {
			return invalid("input.object_key is only supported for csv input")
		}
	default:
		return invalid(fmt.Sprintf("invalid input type: %s (must be csv, sqlite or postgres)", c.Input.Type))
	}

	switch c.Output.Type {
	case TypeCSV, TypeProtobuf:
		if c.Output.Path == "" {
			return invalid(fmt.Sprintf("output.path is required for %s output", c.Output.Type))
		}
	case TypeSQLite, TypePostgres:
		if c.Output.DSN == "" {
			return invalid(fmt.Sprintf("output.dsn is required for %s output", c.Output.Type))
		}
		if c.Output.ObjectKey != "" {
			return invalid("output.object_key is only supported for file output")
		}
	default:
		return invalid(fmt.Sprintf("invalid output type: %s (must be csv, sqlite, postgres or protobuf)", c.Output.Type))
	}

	if c.Engine.Workers < 1 {
		return invalid(fmt.Sprintf("engine.workers must be >= 1, got %d", c.Engine.Workers))
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return invalid(fmt.Sprintf("invalid storage type: %s (must be local or s3)", c.Storage.Type))
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return invalid("s3.bucket is required when storage type is s3")
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return invalid(fmt.Sprintf("invalid logging format: %s (must be json or console)", c.Logging.Format))
	}

	return nil
}

// UsesStorage reports whether the run stages input or publishes output
// through object storage.
func (c *Config) UsesStorage() bool {
	return c.Input.ObjectKey != "" || c.Output.ObjectKey != ""
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "failed to read config file", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "failed to parse YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "failed to parse JSON config", err)
		}
	default:
		return nil, invalid(fmt.Sprintf("unsupported config file format: %s", ext))
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "failed to load "+path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TXNGUARD_ prefix.
func LoadFromEnv(cfg *Config) {
	// Input configuration
	if v := os.Getenv("TXNGUARD_INPUT_TYPE"); v != "" {
		cfg.Input.Type = v
	}
	if v := os.Getenv("TXNGUARD_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("TXNGUARD_INPUT_DSN"); v != "" {
		cfg.Input.DSN = v
	}
	if v := os.Getenv("TXNGUARD_INPUT_QUERY"); v != "" {
		cfg.Input.Query = v
	}
	if v := os.Getenv("TXNGUARD_INPUT_OBJECT_KEY"); v != "" {
		cfg.Input.ObjectKey = v
	}

	// Output configuration
	if v := os.Getenv("TXNGUARD_OUTPUT_TYPE"); v != "" {
		cfg.Output.Type = v
	}
	if v := os.Getenv("TXNGUARD_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("TXNGUARD_OUTPUT_DSN"); v != "" {
		cfg.Output.DSN = v
	}
	if v := os.Getenv("TXNGUARD_OUTPUT_TABLE"); v != "" {
		cfg.Output.Table = v
	}
	if v := os.Getenv("TXNGUARD_OUTPUT_COMPRESS"); v != "" {
		cfg.Output.Compress = parseBool(v)
	}
	if v := os.Getenv("TXNGUARD_OUTPUT_OBJECT_KEY"); v != "" {
		cfg.Output.ObjectKey = v
	}

	// Policy configuration
	if v := os.Getenv("TXNGUARD_THRESHOLDS_PATH"); v != "" {
		cfg.ThresholdsPath = v
	}
	if v, ok := os.LookupEnv("TXNGUARD_BLACKLIST"); ok {
		cfg.Blacklist = splitList(v)
	}

	// Engine configuration
	if v := os.Getenv("TXNGUARD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}

	// Storage configuration
	if v := os.Getenv("TXNGUARD_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("TXNGUARD_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TXNGUARD_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("TXNGUARD_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("TXNGUARD_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("TXNGUARD_S3_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = parseBool(v)
	}

	// Logging and metrics
	if v := os.Getenv("TXNGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TXNGUARD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TXNGUARD_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := os.Getenv("TXNGUARD_WORK_DIR"); v != "" {
		cfg.WorkDir = v
	}
}

// EnsureDirectories creates the directories the run writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.WorkDir}
	if c.Storage.Type == "local" && c.UsesStorage() {
		dirs = append(dirs, c.Storage.Path)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func invalid(msg string) error {
	return tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, msg, nil)
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// splitList splits a comma-separated list, dropping blanks. An empty value
// yields an empty, non-nil list.
func splitList(v string) []string {
	out := []string{}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

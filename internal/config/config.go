// Package config provides unified configuration for tabloader.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tabloader/tabloader/pkg/types"
)

// Config holds the unified configuration for tabloader.
type Config struct {
	// DataDir is the base directory for downloads and written files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Log configuration
	Log LogConfig `json:"log" yaml:"log"`

	// Hub is the dataset hub configuration
	Hub HubConfig `json:"hub" yaml:"hub"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Files holds delimited file defaults
	Files FilesConfig `json:"files" yaml:"files"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `json:"level" yaml:"level"`

	// Pretty enables console output instead of JSON lines
	Pretty bool `json:"pretty" yaml:"pretty"`
}

// HubConfig holds dataset hub configuration.
type HubConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local hub root (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`

	// DownloadDir is where dataset files are saved
	DownloadDir string `json:"download_dir" yaml:"download_dir"`

	// Concurrency is the number of parallel file downloads
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DatabaseConfig holds relational database connection settings.
type DatabaseConfig struct {
	// Driver is postgres or sqlite3, or one of their aliases
	Driver string `json:"driver" yaml:"driver"`

	// Host, Port, Name, User and Password are used by postgres
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Name     string `json:"name" yaml:"name"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`

	// SSLMode is passed to postgres as sslmode
	SSLMode string `json:"ssl_mode" yaml:"ssl_mode"`

	// Path is the database file for sqlite3 (":memory:" for in-memory)
	Path string `json:"path" yaml:"path"`

	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// FilesConfig holds delimited file defaults.
type FilesConfig struct {
	// Delimiter is the field separator, a single character
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// HeadRows is the default number of raw lines returned by head
	HeadRows int `json:"head_rows" yaml:"head_rows"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/tabloader",
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Hub: HubConfig{
			Type:        "local",
			Concurrency: 4,
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
		},
		Files: FilesConfig{
			Delimiter: ",",
			HeadRows:  20,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/tabloader"
	}
	if c.Hub.Path == "" {
		c.Hub.Path = filepath.Join(c.DataDir, "hub")
	}
	if c.Hub.DownloadDir == "" {
		c.Hub.DownloadDir = filepath.Join(c.DataDir, "downloads")
	}
	if c.Hub.Concurrency <= 0 {
		c.Hub.Concurrency = 4
	}
	if d, ok := types.CanonicalDriver(c.Database.Driver); ok {
		c.Database.Driver = d
	}
	if c.Database.Driver == types.DriverSQLite && c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "tabloader.db")
	}
	if c.Files.Delimiter == "" {
		c.Files.Delimiter = ","
	}
	if c.Files.HeadRows <= 0 {
		c.Files.HeadRows = 20
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Hub.Type != "local" && c.Hub.Type != "s3" {
		return fmt.Errorf("invalid hub type: %s (must be local or s3)", c.Hub.Type)
	}
	if c.Hub.Type == "s3" && c.Hub.S3.Bucket == "" {
		return fmt.Errorf("hub.s3.bucket is required when hub type is s3")
	}

	driver, _ := types.CanonicalDriver(c.Database.Driver)
	switch driver {
	case types.DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
	case types.DriverSQLite:
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres, postgresql, pgx, sqlite or sqlite3)", c.Database.Driver)
	}

	if len([]rune(c.Files.Delimiter)) != 1 {
		return fmt.Errorf("files.delimiter must be a single character, got %q", c.Files.Delimiter)
	}

	return nil
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if driver, _ := types.CanonicalDriver(d.Driver); driver == types.DriverSQLite {
		return d.Path
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   d.Host,
		Path:   "/" + d.Name,
	}
	if d.Port > 0 {
		u.Host = net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(d.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DelimiterRune returns the configured field separator.
func (f FilesConfig) DelimiterRune() rune {
	r := []rune(f.Delimiter)
	if len(r) != 1 {
		return ','
	}
	return r[0]
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadCredentials loads a .env file into the process environment.
// Variables already set in the environment are not overridden.
func LoadCredentials(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load credentials from %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Database credentials are read from HOST, DB, USER, PASS and PORT, the names
// used by credential .env files. Everything else uses the TABLOADER_ prefix,
// which takes precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("USER"); v != "" && os.Getenv("PASS") != "" {
		// USER is only honored alongside PASS; shells export it by default.
		cfg.Database.User = v
	}
	if v := os.Getenv("PASS"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Database.Port)
	}

	if v := os.Getenv("TABLOADER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TABLOADER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Hub configuration
	if v := os.Getenv("TABLOADER_HUB_TYPE"); v != "" {
		cfg.Hub.Type = v
	}
	if v := os.Getenv("TABLOADER_HUB_PATH"); v != "" {
		cfg.Hub.Path = v
	}
	if v := os.Getenv("TABLOADER_HUB_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Hub.Concurrency)
	}
	if v := os.Getenv("TABLOADER_S3_BUCKET"); v != "" {
		cfg.Hub.S3.Bucket = v
	}
	if v := os.Getenv("TABLOADER_S3_REGION"); v != "" {
		cfg.Hub.S3.Region = v
	}
	if v := os.Getenv("TABLOADER_S3_ENDPOINT"); v != "" {
		cfg.Hub.S3.Endpoint = v
	}

	// Database configuration
	if v := os.Getenv("TABLOADER_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("TABLOADER_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("TABLOADER_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("TABLOADER_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("TABLOADER_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("TABLOADER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TABLOADER_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("TABLOADER_DB_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Database.ConnectTimeout = d
		}
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.Hub.DownloadDir}
	if c.Hub.Type == "local" {
		dirs = append(dirs, c.Hub.Path)
	}
	if driver, _ := types.CanonicalDriver(c.Database.Driver); driver == types.DriverSQLite && c.Database.Path != ":memory:" && c.Database.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
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

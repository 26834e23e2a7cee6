package logistics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the order engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.logistics/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "orders".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.logistics/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// OrdersDir is where uploaded delivery notes are kept, in yyyy/mm
	// subdirectories. Defaults to an "orders" directory next to the database.
	OrdersDir string `json:"orders_dir" yaml:"orders_dir"`

	// MaxConcurrency bounds parallel ingestion in batch commands; 0 means
	// unbounded.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// MaxUploadBytes caps the size of one uploaded file.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// PDFRows rebuilds PDF text rows from glyph positions instead of
	// reading the plain content stream.
	PDFRows bool `json:"pdf_rows" yaml:"pdf_rows"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.logistics/orders.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:         "orders",
		StorageDir:     "home",
		MaxConcurrency: 4,
		MaxUploadBytes: 25 << 20,
	}
}

// LoadConfig reads a YAML (or JSON) config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from LOGISTICS_* environment variables.
func (c *Config) ApplyEnv() {
	c.DBPath = getEnv("LOGISTICS_DB_PATH", c.DBPath)
	c.DBName = getEnv("LOGISTICS_DB_NAME", c.DBName)
	c.StorageDir = getEnv("LOGISTICS_STORAGE_DIR", c.StorageDir)
	c.OrdersDir = getEnv("LOGISTICS_ORDERS_DIR", c.OrdersDir)
	c.MaxConcurrency = getEnvAsInt("LOGISTICS_MAX_CONCURRENCY", c.MaxConcurrency)
	if v, err := strconv.ParseInt(os.Getenv("LOGISTICS_MAX_UPLOAD_BYTES"), 10, 64); err == nil {
		c.MaxUploadBytes = v
	}
	if v, err := strconv.ParseBool(os.Getenv("LOGISTICS_PDF_ROWS")); err == nil {
		c.PDFRows = v
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch c.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: storage_dir %q", ErrInvalidConfig, c.StorageDir)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency %d", ErrInvalidConfig, c.MaxConcurrency)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: max_upload_bytes %d", ErrInvalidConfig, c.MaxUploadBytes)
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "orders"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".logistics", name+".db")
	}
}

// resolveOrdersDir returns OrdersDir, or "orders" beside the database.
func (c *Config) resolveOrdersDir() string {
	if c.OrdersDir != "" {
		return c.OrdersDir
	}
	return filepath.Join(filepath.Dir(c.resolveDBPath()), "orders")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

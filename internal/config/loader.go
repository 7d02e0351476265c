package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings for the graph database connection, the HTTP
// server and the CSV import.
type Config struct {
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	DefaultGraph  string `yaml:"default_graph"`

	HTTPAddr     string        `yaml:"http_addr"`
	QueryTimeout time.Duration `yaml:"query_timeout"`

	ConnectRetries int           `yaml:"connect_retries"`
	ConnectDelay   time.Duration `yaml:"connect_delay"`

	LogLevel    string `yaml:"log_level"`
	ImportBatch int    `yaml:"import_batch"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		DefaultGraph:   "neo4j",
		HTTPAddr:       ":8080",
		QueryTimeout:   30 * time.Second,
		ConnectRetries: 10,
		ConnectDelay:   2 * time.Second,
		LogLevel:       "info",
		ImportBatch:    500,
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file at
// path and the environment, in that order of precedence.
func LoadConfig(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with every environment variable that is set.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.Neo4jURI, "NEO4J_URI")
	setString(&cfg.Neo4jUser, "NEO4J_USER")
	setString(&cfg.Neo4jPassword, "NEO4J_PASSWORD")
	setString(&cfg.DefaultGraph, "NEO4J_DATABASE")
	setString(&cfg.HTTPAddr, "GRAPHBROWSER_ADDR")
	setString(&cfg.LogLevel, "GRAPHBROWSER_LOG_LEVEL")

	if err := setDuration(&cfg.QueryTimeout, "GRAPHBROWSER_QUERY_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ConnectDelay, "GRAPHBROWSER_CONNECT_DELAY"); err != nil {
		return err
	}
	if err := setInt(&cfg.ConnectRetries, "GRAPHBROWSER_CONNECT_RETRIES"); err != nil {
		return err
	}
	return setInt(&cfg.ImportBatch, "GRAPHBROWSER_IMPORT_BATCH")
}

// Validate reports settings that make the configuration unusable.
func (c Config) Validate() error {
	var errs []error
	if c.Neo4jURI == "" {
		errs = append(errs, errors.New("NEO4J_URI is not set"))
	}
	if c.DefaultGraph == "" {
		errs = append(errs, errors.New("default graph is empty"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("query timeout must not be negative"))
	}
	if c.ConnectRetries < 1 {
		errs = append(errs, errors.New("connect retries must be at least 1"))
	}
	if c.ConnectDelay < 0 {
		errs = append(errs, errors.New("connect delay must not be negative"))
	}
	if c.ImportBatch < 1 {
		errs = append(errs, errors.New("import batch must be at least 1"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// LoadEnv loads environment variables from a .env file, searching up the directory tree.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached root
		}
		dir = parent
	}

	// Not found is fine
	return nil
}

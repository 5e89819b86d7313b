package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION LOADER
// ============================================================================

// FileLoader decodes one configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// Loader applies configuration sources in priority order:
//  1. defaults
//  2. <dir>/.env (fills unset environment variables only)
//  3. base.{yaml,json}
//  4. <environment>.{yaml,json}
//  5. local.{yaml,json}, development only
//  6. environment variables
type Loader struct {
	basePath    string
	environment Environment
	fileLoaders []FileLoader
	sources     []string
}

// NewLoader creates a loader reading files from basePath.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	return &Loader{
		basePath:    basePath,
		environment: env,
		fileLoaders: []FileLoader{&YAMLLoader{}, &JSONLoader{}},
	}
}

// BasePath returns the directory files are read from.
func (l *Loader) BasePath() string {
	return l.basePath
}

// Load builds and validates a fresh configuration.
func (l *Loader) Load() (*Config, error) {
	l.sources = []string{"defaults"}
	cfg := l.defaultConfig()

	dotenv := filepath.Join(l.basePath, ".env")
	if err := loadDotenv(dotenv); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	} else if fileExists(dotenv) {
		l.sources = append(l.sources, dotenv)
	}

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load local config: %w", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	// Files may not override the environment the loader was built for.
	cfg.Environment = l.environment
	cfg.LoadedFrom = l.sources

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the first <name>.<ext> found, trying formats in order.
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, loader := range l.fileLoaders {
		path := filepath.Join(l.basePath, name+"."+loader.Extension())

		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}

		err = loader.Load(file, cfg)
		file.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		l.sources = append(l.sources, path)
		return nil
	}
	return fs.ErrNotExist
}

func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.URI, "NEO4J_URI")
	setString(&cfg.Store.Username, "NEO4J_USERNAME")
	setString(&cfg.Store.Password, "NEO4J_PASSWORD")
	setString(&cfg.Store.Database, "NEO4J_DATABASE")

	setString(&cfg.Server.Address, "SERVER_ADDRESS")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setBool(&cfg.Metrics.Enabled, "ENABLE_METRICS")

	setBool(&cfg.Tracing.Enabled, "ENABLE_TRACING")
	setString(&cfg.Tracing.Endpoint, "OTLP_ENDPOINT")
	if val := os.Getenv("TRACE_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Tracing.SampleRate = rate
		}
	}

	setString(&cfg.Events.Provider, "EVENTS_PROVIDER")
	setString(&cfg.Events.EventBusName, "EVENT_BUS_NAME")
	setString(&cfg.Events.Region, "AWS_REGION")
}

func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Store: Store{
			Driver:                       "neo4j",
			URI:                          "neo4j://localhost:7687",
			Username:                     "neo4j",
			Database:                     "neo4j",
			MaxTransactionRetryTime:      30 * time.Second,
			MaxConnectionPoolSize:        10,
			ConnectionAcquisitionTimeout: 60 * time.Second,
		},
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "curriculum",
		},
		Tracing: Tracing{
			ServiceName: "curriculum-graph",
			Insecure:    true,
			SampleRate:  0.1,
		},
		Events: Events{
			Provider: "none",
			Region:   "us-east-1",
		},
		Breaker: Breaker{
			Enabled:             true,
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
			HalfOpenRequests:    1,
		},
	}
}

// ============================================================================
// FILE LOADERS
// ============================================================================

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// loadDotenv exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// LoaderFromEnvironment loads ./.env, then builds a loader for the
// environment and directory named by ENVIRONMENT and CONFIG_DIR.
func LoaderFromEnvironment() (*Loader, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return NewLoader(getEnv("CONFIG_DIR", "config"), ParseEnvironment(getEnv("ENVIRONMENT", "development"))), nil
}

// Load is the usual entry point for commands.
func Load() (*Config, error) {
	loader, err := LoaderFromEnvironment()
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

// Package config loads the application configuration from defaults, an
// optional .env file, YAML or JSON files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"curriculum-graph/internal/domain/topic"
	apperrors "curriculum-graph/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ParseEnvironment maps a free-form value onto a known environment,
// defaulting to Development.
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Production
	case "stage", "staging":
		return Staging
	default:
		return Development
	}
}

// Config is the complete application configuration.
type Config struct {
	Environment Environment    `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Store       Store          `yaml:"store" json:"store"`
	Server      Server         `yaml:"server" json:"server"`
	Logging     Logging        `yaml:"logging" json:"logging"`
	Metrics     Metrics        `yaml:"metrics" json:"metrics"`
	Tracing     Tracing        `yaml:"tracing" json:"tracing"`
	Events      Events         `yaml:"events" json:"events"`
	Breaker     Breaker        `yaml:"breaker" json:"breaker"`
	Classes     []ClassMapping `yaml:"classes" json:"classes" validate:"dive"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Store selects and configures the graph store.
type Store struct {
	Driver                       string        `yaml:"driver" json:"driver" validate:"required,oneof=neo4j memory"`
	URI                          string        `yaml:"uri" json:"uri" validate:"required_if=Driver neo4j"`
	Username                     string        `yaml:"username" json:"username"`
	Password                     string        `yaml:"password" json:"password"`
	Database                     string        `yaml:"database" json:"database"`
	MaxTransactionRetryTime      time.Duration `yaml:"max_transaction_retry_time" json:"max_transaction_retry_time" validate:"gte=0"`
	MaxConnectionPoolSize        int           `yaml:"max_connection_pool_size" json:"max_connection_pool_size" validate:"gte=0"`
	ConnectionAcquisitionTimeout time.Duration `yaml:"connection_acquisition_timeout" json:"connection_acquisition_timeout" validate:"gte=0"`
}

// Server configures the HTTP API.
type Server struct {
	Address         string        `yaml:"address" json:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins"`
}

// Logging configures zap.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"required,oneof=json console"`
}

// Metrics configures the Prometheus collector.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
}

// Tracing configures OpenTelemetry export.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name" validate:"required"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
}

// Events configures where graph change events go.
type Events struct {
	Provider     string `yaml:"provider" json:"provider" validate:"required,oneof=none log eventbridge"`
	EventBusName string `yaml:"event_bus_name" json:"event_bus_name" validate:"required_if=Provider eventbridge"`
	Region       string `yaml:"region" json:"region"`
}

// Breaker configures the graph store circuit breaker.
type Breaker struct {
	Enabled             bool          `yaml:"enabled" json:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" json:"consecutive_failures" validate:"required_if=Enabled true"`
	OpenTimeout         time.Duration `yaml:"open_timeout" json:"open_timeout" validate:"gte=0"`
	HalfOpenRequests    uint32        `yaml:"half_open_requests" json:"half_open_requests"`
}

// ClassMapping is one entry of a configured class catalogue.
type ClassMapping struct {
	Tag       string `yaml:"tag" json:"tag" validate:"required"`
	Namespace string `yaml:"namespace" json:"namespace" validate:"required"`
}

var validate = validator.New()

// Validate checks struct constraints and that the class table forms a
// valid catalogue.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewValidation(apperrors.CodeInvalidConfig, formatValidationError(err))
	}
	if _, err := c.Catalog(); err != nil {
		return apperrors.NewValidation(apperrors.CodeInvalidConfig, err.Error())
	}
	return nil
}

// Catalog builds the class catalogue; an empty table selects the reference one.
func (c *Config) Catalog() (*topic.Catalog, error) {
	if len(c.Classes) == 0 {
		return topic.DefaultCatalog(), nil
	}
	entries := make([]topic.ClassEntry, 0, len(c.Classes))
	for _, m := range c.Classes {
		entries = append(entries, topic.ClassEntry{Tag: topic.ClassTag(m.Tag), Namespace: topic.Namespace(m.Namespace)})
	}
	return topic.NewCatalog(entries...)
}

// IsDevelopment reports whether hot reload and local overrides apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

func formatValidationError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

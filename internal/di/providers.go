package di

import (
	"context"
	"fmt"

	"curriculum-graph/internal/config"
	"curriculum-graph/internal/domain/topic"
	"curriculum-graph/internal/events"
	"curriculum-graph/internal/graphstore"
	"curriculum-graph/internal/graphstore/memstore"
	"curriculum-graph/internal/graphstore/neo4jstore"
	"curriculum-graph/internal/interfaces/http/rest"
	"curriculum-graph/internal/observability"
	"curriculum-graph/internal/topicgraph"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ServiceVersion is reported in trace resources. Overridden at link time.
var ServiceVersion = "dev"

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(observability.LoggerConfig{
		Production: cfg.Environment == config.Production,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", string(cfg.Environment))), nil
}

// provideCollector returns nil when metrics are disabled; every Collector
// method accepts a nil receiver.
func provideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    string(cfg.Environment),
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	})
}

func provideCatalog(cfg *config.Config) (*topic.Catalog, error) {
	return cfg.Catalog()
}

// provideGraphStore opens the configured driver and wraps it as
// instrumentation(breaker(driver)), so breaker rejections are counted too.
func provideGraphStore(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	tracing *observability.TracerProvider,
) (graphstore.GraphStore, error) {
	var store graphstore.GraphStore
	switch cfg.Store.Driver {
	case "memory":
		store = memstore.New()
	case "neo4j":
		s, err := neo4jstore.New(ctx, neo4jstore.Settings{
			URI:                          cfg.Store.URI,
			Username:                     cfg.Store.Username,
			Password:                     cfg.Store.Password,
			Database:                     cfg.Store.Database,
			MaxTransactionRetryTime:      cfg.Store.MaxTransactionRetryTime,
			MaxConnectionPoolSize:        cfg.Store.MaxConnectionPoolSize,
			ConnectionAcquisitionTimeout: cfg.Store.ConnectionAcquisitionTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown graph store driver %q", cfg.Store.Driver)
	}

	decorators := []graphstore.Decorator{
		graphstore.WithInstrumentation(collector, tracing.Tracer("curriculum-graph/graphstore"), logger),
	}
	if cfg.Breaker.Enabled {
		settings := graphstore.DefaultBreakerSettings()
		settings.ConsecutiveFailures = cfg.Breaker.ConsecutiveFailures
		if cfg.Breaker.OpenTimeout > 0 {
			settings.OpenTimeout = cfg.Breaker.OpenTimeout
		}
		if cfg.Breaker.HalfOpenRequests > 0 {
			settings.HalfOpenRequests = cfg.Breaker.HalfOpenRequests
		}
		decorators = append(decorators, graphstore.WithCircuitBreaker(settings, logger))
	}

	logger.Info("graph store ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("circuit_breaker", cfg.Breaker.Enabled),
	)
	return graphstore.Chain(store, decorators...), nil
}

func providePublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Provider {
	case "", "none":
		return events.Noop{}, nil
	case "log":
		return events.NewLogPublisher(logger), nil
	case "eventbridge":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Events.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Events.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awseventbridge.NewFromConfig(awsCfg)
		return events.NewEventBridgePublisher(client, cfg.Events.EventBusName, logger), nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

func provideBuilder(
	store graphstore.GraphStore,
	catalog *topic.Catalog,
	logger *zap.Logger,
	collector *observability.Collector,
	publisher events.Publisher,
) *topicgraph.Builder {
	return topicgraph.NewBuilder(store, catalog,
		topicgraph.WithLogger(logger),
		topicgraph.WithMetrics(collector),
		topicgraph.WithPublisher(publisher),
	)
}

func provideRouter(builder *topicgraph.Builder, logger *zap.Logger, cfg *config.Config, collector *observability.Collector) *rest.Router {
	return rest.NewRouter(rest.Static(builder), logger, rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Collector:      collector,
	})
}

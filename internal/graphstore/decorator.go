package graphstore

import (
	"context"
	"errors"
	"time"

	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Decorator wraps a GraphStore with additional behaviour.
type Decorator func(GraphStore) GraphStore

// Chain applies decorators in order; the first one is outermost.
func Chain(store GraphStore, decorators ...Decorator) GraphStore {
	for i := len(decorators) - 1; i >= 0; i-- {
		store = decorators[i](store)
	}
	return store
}

// ============================================================================
// CIRCUIT BREAKER
// ============================================================================

// BreakerSettings configures the circuit breaker decorator.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32        // failures in a row that open the circuit
	OpenTimeout         time.Duration // how long the circuit stays open
	HalfOpenRequests    uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state counter reset period, 0 = never
}

// DefaultBreakerSettings returns the settings used when config leaves them unset.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "graphstore",
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

type breakerStore struct {
	inner   GraphStore
	breaker *gobreaker.CircuitBreaker
}

// WithCircuitBreaker fails fast with a CIRCUIT_OPEN store error once the
// underlying store has failed repeatedly. Context cancellation does not count
// as a store failure.
func WithCircuitBreaker(settings BreakerSettings, logger *zap.Logger) Decorator {
	return func(inner GraphStore) GraphStore {
		cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: settings.HalfOpenRequests,
			Interval:    settings.Interval,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("graph store circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
		})
		return &breakerStore{inner: inner, breaker: cb}
	}
}

func (s *breakerStore) RunWrite(ctx context.Context, work UnitOfWork) ([]Row, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.RunWrite(ctx, work)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewStoreError(apperrors.CodeCircuitOpen, OperationFrom(ctx),
				"graph store circuit breaker is open", err)
		}
		return nil, err
	}
	rows, _ := result.([]Row)
	return rows, nil
}

// Close forwards to the wrapped store.
func (s *breakerStore) Close(ctx context.Context) error {
	return closeInner(ctx, s.inner)
}

// ============================================================================
// INSTRUMENTATION
// ============================================================================

type instrumentedStore struct {
	inner     GraphStore
	collector *observability.Collector
	tracer    trace.Tracer
	logger    *zap.Logger
}

// WithInstrumentation opens one span per transaction and records transaction
// counts and latency by primitive.
func WithInstrumentation(collector *observability.Collector, tracer trace.Tracer, logger *zap.Logger) Decorator {
	return func(inner GraphStore) GraphStore {
		return &instrumentedStore{inner: inner, collector: collector, tracer: tracer, logger: logger}
	}
}

func (s *instrumentedStore) RunWrite(ctx context.Context, work UnitOfWork) ([]Row, error) {
	operation := OperationFrom(ctx)
	ctx, span := s.tracer.Start(ctx, "graphstore.RunWrite",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("graph.operation", operation),
		),
	)
	defer span.End()

	start := time.Now()
	rows, err := s.inner.RunWrite(ctx, work)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = string(apperrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("graph transaction failed",
			zap.String("operation", operation),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
	} else {
		span.SetAttributes(attribute.Int("graph.rows", len(rows)))
		s.logger.Debug("graph transaction committed",
			zap.String("operation", operation),
			zap.Int("rows", len(rows)),
			zap.Duration("duration", elapsed),
		)
	}
	s.collector.ObserveTransaction(operation, status, elapsed)

	return rows, err
}

// Close forwards to the wrapped store.
func (s *instrumentedStore) Close(ctx context.Context) error {
	return closeInner(ctx, s.inner)
}

func closeInner(ctx context.Context, inner GraphStore) error {
	if c, ok := inner.(Closer); ok {
		return c.Close(ctx)
	}
	return nil
}

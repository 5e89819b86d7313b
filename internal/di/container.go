// Package di wires the application from configuration using google/wire.
package di

import (
	"context"
	"errors"

	"curriculum-graph/internal/config"
	"curriculum-graph/internal/events"
	"curriculum-graph/internal/graphstore"
	"curriculum-graph/internal/interfaces/http/rest"
	"curriculum-graph/internal/observability"
	"curriculum-graph/internal/topicgraph"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     graphstore.GraphStore
	Publisher events.Publisher
	Builder   *topicgraph.Builder
	Router    *rest.Router
}

// Rebuild returns a builder for cfg that shares this container's store,
// publisher and collector. Only the class catalogue is taken from cfg; store,
// server and telemetry settings need a restart.
func (c *Container) Rebuild(cfg *config.Config) (*topicgraph.Builder, error) {
	catalog, err := provideCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return provideBuilder(c.Store, catalog, c.Logger, c.Metrics, c.Publisher), nil
}

// Shutdown closes the graph store and flushes traces and logs.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if closer, ok := c.Store.(graphstore.Closer); ok {
		if err := closer.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	// Sync fails on stderr/stdout for some platforms; nothing to do about it.
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}

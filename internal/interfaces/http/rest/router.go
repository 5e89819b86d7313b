// Package rest exposes the topic graph builder over HTTP.
package rest

import (
	"context"
	"net/http"

	"curriculum-graph/internal/domain/topic"
	"curriculum-graph/internal/interfaces/http/middleware"
	"curriculum-graph/internal/interfaces/http/validation"
	"curriculum-graph/internal/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// GraphBuilder is the builder surface the API serves.
type GraphBuilder interface {
	Catalog() *topic.Catalog
	WipeAll(ctx context.Context) error
	DumpAllNames(ctx context.Context) ([]string, error)
	DuplicateNames(ctx context.Context) ([]topic.DuplicateName, error)
	CreateTopic(ctx context.Context, name string) error
	CreateRelationshipsToOne(ctx context.Context, root string, targets ...string) (topic.LinkReport, error)
	CreateRelationshipsToMany(ctx context.Context, root string, targets ...string) (topic.LinkReport, error)
	CreateRelationshipsConsecutively(ctx context.Context, chain ...string) (topic.LinkReport, error)
	LinkSubTopicsToOne(ctx context.Context, class topic.ClassTag, root string, subtopics ...string) error
	LinkSubTopicsConsecutively(ctx context.Context, class topic.ClassTag, path ...string) error
	RenameNode(ctx context.Context, oldName, newName string, class topic.ClassTag) (int, error)
}

// BuilderSource returns the builder serving the current request.
type BuilderSource func() GraphBuilder

// Static always serves b.
func Static(b GraphBuilder) BuilderSource {
	return func() GraphBuilder { return b }
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	Collector      *observability.Collector
}

// Router creates and configures the HTTP router
type Router struct {
	builders  BuilderSource
	logger    *zap.Logger
	collector *observability.Collector
	origins   []string
	validator *validation.Validator
}

// NewRouter creates a new router instance
func NewRouter(builders BuilderSource, logger *zap.Logger, opts Options) *Router {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Router{
		builders:  builders,
		logger:    logger.Named("http"),
		collector: opts.Collector,
		origins:   origins,
		validator: validation.New(func() *topic.Catalog { return builders().Catalog() }),
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.collector))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	h := &handler{builders: rt.builders, logger: rt.logger, validator: rt.validator}

	router.Route("/api/v1", func(r chi.Router) {
		r.Delete("/graph", h.wipeAll)

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", h.dumpAllNames)
			r.Post("/", h.createTopic)
			r.Get("/duplicates", h.duplicateNames)
			r.Put("/rename", h.renameNode)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/to-one", h.createRelationshipsToOne)
			r.Post("/to-many", h.createRelationshipsToMany)
			r.Post("/chain", h.createRelationshipsConsecutively)
		})

		r.Route("/subtopics", func(r chi.Router) {
			r.Post("/to-one", h.linkSubTopicsToOne)
			r.Post("/chain", h.linkSubTopicsConsecutively)
		})

		r.Get("/classes", h.listClasses)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

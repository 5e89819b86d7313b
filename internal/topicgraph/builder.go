// Package topicgraph builds the curriculum graph. Every primitive runs exactly
// one write transaction; per-pair statements inside it are independent, so a
// missing endpoint is reported rather than aborting the call.
package topicgraph

import (
	"context"
	"fmt"
	"strings"

	"curriculum-graph/internal/domain/topic"
	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/events"
	"curriculum-graph/internal/graphstore"
	"curriculum-graph/internal/observability"

	"go.uber.org/zap"
)

// Primitive names, used for logging, metrics, spans and event payloads.
const (
	OpWipeAll                          = "wipeAll"
	OpDumpAllNames                     = "dumpAllNames"
	OpCreateTopic                      = "createTopic"
	OpCreateRelationshipsToOne         = "createRelationshipsToOne"
	OpCreateRelationshipsToMany        = "createRelationshipsToMany"
	OpCreateRelationshipsConsecutively = "createRelationshipsConsecutively"
	OpLinkSubTopicsToOne               = "linkSubTopicsToOne"
	OpLinkSubTopicsConsecutively       = "linkSubTopicsConsecutively"
	OpRenameNode                       = "renameNode"
	OpDuplicateNames                   = "duplicateNames"
)

// Builder exposes the graph construction primitives. It holds no graph state;
// every call is a fresh round trip to the store.
type Builder struct {
	store     graphstore.GraphStore
	catalog   *topic.Catalog
	logger    *zap.Logger
	metrics   *observability.Collector
	publisher events.Publisher
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records link outcomes and node counts on collector.
func WithMetrics(collector *observability.Collector) Option {
	return func(b *Builder) { b.metrics = collector }
}

// WithPublisher emits an event after each committed primitive.
func WithPublisher(publisher events.Publisher) Option {
	return func(b *Builder) {
		if publisher != nil {
			b.publisher = publisher
		}
	}
}

// NewBuilder creates a builder over store. A nil catalog selects the
// reference catalogue.
func NewBuilder(store graphstore.GraphStore, catalog *topic.Catalog, opts ...Option) *Builder {
	if catalog == nil {
		catalog = topic.DefaultCatalog()
	}
	b := &Builder{
		store:     store,
		catalog:   catalog,
		logger:    zap.NewNop(),
		publisher: events.Noop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("topicgraph")
	return b
}

// Catalog returns the class catalogue the builder was constructed with.
func (b *Builder) Catalog() *topic.Catalog {
	return b.catalog
}

// WipeAll deletes every node and relationship.
func (b *Builder) WipeAll(ctx context.Context) error {
	ctx = graphstore.WithOperation(ctx, OpWipeAll)
	_, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtDeleteAll, nil)
	})
	if err != nil {
		return err
	}

	b.logger.Info("all nodes and relationships deleted")
	b.publish(ctx, events.TypeGraphWiped, OpWipeAll, nil)
	return nil
}

// DumpAllNames returns the name of every node in store order.
func (b *Builder) DumpAllNames(ctx context.Context) ([]string, error) {
	ctx = graphstore.WithOperation(ctx, OpDumpAllNames)
	rows, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtReturnNames, nil)
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		// Nodes without a name property come back as nil.
		name, _ := row["name"].(string)
		names = append(names, name)
	}
	return names, nil
}

// CreateTopic creates a new Topic node. No check is made for an existing
// node with the same name.
func (b *Builder) CreateTopic(ctx context.Context, name string) error {
	if err := requireNames(name); err != nil {
		return err
	}

	ctx = graphstore.WithOperation(ctx, OpCreateTopic)
	_, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtCreateTopic, map[string]any{"name": name})
	})
	if err != nil {
		return err
	}

	b.logger.Info("topic created", zap.String("name", name))
	b.metrics.RecordNodesCreated(OpCreateTopic, 1)
	b.publish(ctx, events.TypeTopicCreated, OpCreateTopic, map[string]any{"name": name})
	return nil
}

// CreateRelationshipsToOne points every target at root (target -> root).
func (b *Builder) CreateRelationshipsToOne(ctx context.Context, root string, targets ...string) (topic.LinkReport, error) {
	if err := requireNames(append([]string{root}, targets...)...); err != nil {
		return nil, err
	}

	pairs := make([]linkPair, 0, len(targets))
	for _, target := range targets {
		pairs = append(pairs, linkPair{from: root, to: target, edgeFrom: target, edgeTo: root})
	}
	return b.link(ctx, OpCreateRelationshipsToOne, pairs)
}

// CreateRelationshipsToMany points root at every target (root -> target).
func (b *Builder) CreateRelationshipsToMany(ctx context.Context, root string, targets ...string) (topic.LinkReport, error) {
	if err := requireNames(append([]string{root}, targets...)...); err != nil {
		return nil, err
	}

	pairs := make([]linkPair, 0, len(targets))
	for _, target := range targets {
		pairs = append(pairs, linkPair{from: root, to: target, edgeFrom: root, edgeTo: target})
	}
	return b.link(ctx, OpCreateRelationshipsToMany, pairs)
}

// CreateRelationshipsConsecutively links each adjacent pair of chain in order.
func (b *Builder) CreateRelationshipsConsecutively(ctx context.Context, chain ...string) (topic.LinkReport, error) {
	if err := requireNames(chain...); err != nil {
		return nil, err
	}

	pairs := make([]linkPair, 0, len(chain))
	for i := 0; i+1 < len(chain); i++ {
		pairs = append(pairs, linkPair{from: chain[i], to: chain[i+1], edgeFrom: chain[i], edgeTo: chain[i+1]})
	}
	return b.link(ctx, OpCreateRelationshipsConsecutively, pairs)
}

// LinkSubTopicsToOne creates a new node for every subtopic, labelled with the
// class namespace, under each node named root. Subtopics equal to root are
// skipped. Repeating the call creates further nodes with the same names.
func (b *Builder) LinkSubTopicsToOne(ctx context.Context, class topic.ClassTag, root string, subtopics ...string) error {
	namespace, err := b.catalog.Namespace(class)
	if err != nil {
		return err
	}
	if err := requireNames(append([]string{root}, subtopics...)...); err != nil {
		return err
	}

	pairs := make([]linkPair, 0, len(subtopics))
	for _, sub := range subtopics {
		if sub == root {
			continue
		}
		pairs = append(pairs, linkPair{from: root, to: sub})
	}
	return b.linkSubTopics(ctx, OpLinkSubTopicsToOne, class, namespace, pairs)
}

// LinkSubTopicsConsecutively walks path, creating each element after the
// first as a new labelled node under its predecessor.
func (b *Builder) LinkSubTopicsConsecutively(ctx context.Context, class topic.ClassTag, path ...string) error {
	namespace, err := b.catalog.Namespace(class)
	if err != nil {
		return err
	}
	if err := requireNames(path...); err != nil {
		return err
	}

	pairs := make([]linkPair, 0, len(path))
	for i := 0; i+1 < len(path); i++ {
		pairs = append(pairs, linkPair{from: path[i], to: path[i+1]})
	}
	return b.linkSubTopics(ctx, OpLinkSubTopicsConsecutively, class, namespace, pairs)
}

// RenameNode renames nodes labelled with the class namespace and named
// oldName. It returns how many were renamed; zero is not an error.
func (b *Builder) RenameNode(ctx context.Context, oldName, newName string, class topic.ClassTag) (int, error) {
	namespace, err := b.catalog.Namespace(class)
	if err != nil {
		return 0, err
	}
	if err := requireNames(oldName, newName); err != nil {
		return 0, err
	}

	ctx = graphstore.WithOperation(ctx, OpRenameNode)
	rows, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtRenameNode, map[string]any{
			"label":   string(namespace),
			"name":    oldName,
			"newName": newName,
		})
	})
	if err != nil {
		return 0, err
	}

	renamed := len(rows)
	if renamed == 0 {
		b.logger.Debug("no node to rename",
			zap.String("name", oldName),
			zap.String("class", string(class)),
		)
		return 0, nil
	}

	b.logger.Info("node renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
		zap.String("class", string(class)),
		zap.Int("count", renamed),
	)
	b.metrics.RecordNodesRenamed(renamed)
	b.publish(ctx, events.TypeNodeRenamed, OpRenameNode, map[string]any{
		"from":    oldName,
		"to":      newName,
		"class":   string(class),
		"renamed": renamed,
	})
	return renamed, nil
}

// DuplicateNames lists every name carried by more than one node, by name.
func (b *Builder) DuplicateNames(ctx context.Context) ([]topic.DuplicateName, error) {
	ctx = graphstore.WithOperation(ctx, OpDuplicateNames)
	rows, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtDuplicateNames, nil)
	})
	if err != nil {
		return nil, err
	}

	dups := make([]topic.DuplicateName, 0, len(rows))
	for _, row := range rows {
		name, err := row.String("name")
		if err != nil {
			return nil, apperrors.NewInternal("unexpected duplicate names row", err)
		}
		n, err := row.Int64("occurrences")
		if err != nil {
			return nil, apperrors.NewInternal("unexpected duplicate names row", err)
		}
		dups = append(dups, topic.DuplicateName{Name: name, Occurrences: n})
	}
	return dups, nil
}

// linkPair is one link request. from/to are what the report shows; edgeFrom
// and edgeTo give the direction of the relationship actually created.
type linkPair struct {
	from, to         string
	edgeFrom, edgeTo string
}

func (b *Builder) link(ctx context.Context, operation string, pairs []linkPair) (topic.LinkReport, error) {
	ctx = graphstore.WithOperation(ctx, operation)

	var report topic.LinkReport
	_, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		report = make(topic.LinkReport, 0, len(pairs))
		for _, p := range pairs {
			rows, err := tx.Run(ctx, graphstore.StmtLinkPair, map[string]any{"from": p.edgeFrom, "to": p.edgeTo})
			if err != nil {
				return nil, err
			}
			report = append(report, topic.LinkResult{From: p.from, To: p.to, Found: len(rows) > 0})
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range report {
		if r.Found {
			b.logger.Info("relationship created", zap.String("from", r.From), zap.String("to", r.To))
		} else {
			b.logger.Warn("relationship unable to be created", zap.String("from", r.From), zap.String("to", r.To))
		}
	}

	found, missing := report.Counts()
	b.metrics.RecordLinks(operation, found, missing)
	b.publish(ctx, events.TypeRelationshipsCreated, operation, map[string]any{
		"found":   found,
		"missing": missing,
		"results": report,
	})
	return report, nil
}

func (b *Builder) linkSubTopics(ctx context.Context, operation string, class topic.ClassTag, namespace topic.Namespace, pairs []linkPair) error {
	ctx = graphstore.WithOperation(ctx, operation)

	created := 0
	_, err := b.store.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		created = 0
		for _, p := range pairs {
			rows, err := tx.Run(ctx, graphstore.StmtCreateSubTopic, map[string]any{
				"start": p.from,
				"topic": p.to,
				"label": string(namespace),
			})
			if err != nil {
				return nil, err
			}
			created += len(rows)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("sub-topics linked",
		zap.String("operation", operation),
		zap.String("class", string(class)),
		zap.Int("requested", len(pairs)),
		zap.Int("created", created),
	)
	b.metrics.RecordNodesCreated(operation, created)
	b.publish(ctx, events.TypeSubTopicsLinked, operation, map[string]any{
		"class":   string(class),
		"created": created,
	})
	return nil
}

// publish runs after commit, so failures are only logged and counted.
func (b *Builder) publish(ctx context.Context, eventType events.Type, operation string, payload map[string]any) {
	if err := b.publisher.Publish(ctx, events.New(eventType, operation, payload)); err != nil {
		b.metrics.RecordEvent("failed")
		b.logger.Warn("failed to publish graph event",
			zap.String("type", string(eventType)),
			zap.String("operation", operation),
			zap.Error(err),
		)
		return
	}
	b.metrics.RecordEvent("published")
}

func requireNames(names ...string) error {
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return apperrors.NewValidation(apperrors.CodeInvalidName,
				fmt.Sprintf("topic name at position %d is blank", i))
		}
	}
	return nil
}

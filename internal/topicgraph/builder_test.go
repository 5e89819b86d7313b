package topicgraph_test

import (
	"context"
	"errors"
	"testing"

	"curriculum-graph/internal/domain/topic"
	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/events"
	"curriculum-graph/internal/graphstore"
	"curriculum-graph/internal/graphstore/memstore"
	"curriculum-graph/internal/observability"
	"curriculum-graph/internal/topicgraph"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBuilder(t *testing.T, opts ...topicgraph.Option) (*topicgraph.Builder, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return topicgraph.NewBuilder(store, topic.DefaultCatalog(), opts...), store
}

func mustCreate(t *testing.T, b *topicgraph.Builder, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, b.CreateTopic(context.Background(), name))
	}
}

func namespaceFor(t *testing.T, tag topic.ClassTag) string {
	t.Helper()
	ns, err := topic.DefaultCatalog().Namespace(tag)
	require.NoError(t, err)
	return string(ns)
}

func TestCreateTopicThenDumpContainsNameOnce(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()

	require.NoError(t, b.CreateTopic(ctx, "Vectors"))

	names, err := b.DumpAllNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vectors"}, names)

	node := store.Snapshot().NodesNamed("Vectors")[0]
	assert.Equal(t, []string{topic.TopicLabel}, node.Labels)
}

func TestCreateTopicDoesNotDeduplicate(t *testing.T) {
	b, _ := newBuilder(t)
	ctx := context.Background()

	mustCreate(t, b, "Vectors", "Vectors")

	names, err := b.DumpAllNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vectors", "Vectors"}, names)

	dups, err := b.DuplicateNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []topic.DuplicateName{{Name: "Vectors", Occurrences: 2}}, dups)
}

func TestWipeAllEmptiesGraph(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()

	mustCreate(t, b, "A", "B")
	_, err := b.CreateRelationshipsConsecutively(ctx, "A", "B")
	require.NoError(t, err)

	require.NoError(t, b.WipeAll(ctx))

	names, err := b.DumpAllNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Empty(t, store.Snapshot().Edges)
}

func TestCreateRelationshipsConsecutively(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "a", "b", "c")

	report, err := b.CreateRelationshipsConsecutively(ctx, "a", "b", "c")

	require.NoError(t, err)
	assert.Equal(t, topic.LinkReport{
		{From: "a", To: "b", Found: true},
		{From: "b", To: "c", Found: true},
	}, report)
	snap := store.Snapshot()
	assert.Equal(t, 1, snap.EdgeCount("a", "b"))
	assert.Equal(t, 1, snap.EdgeCount("b", "c"))
	assert.Len(t, snap.Edges, 2)
}

func TestCreateRelationshipsConsecutivelyShortChain(t *testing.T) {
	b, _ := newBuilder(t)

	report, err := b.CreateRelationshipsConsecutively(context.Background(), "only")

	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestCreateRelationshipsToOneMissingTarget(t *testing.T) {
	b, store := newBuilder(t)
	mustCreate(t, b, "root")

	report, err := b.CreateRelationshipsToOne(context.Background(), "root", "x")

	require.NoError(t, err)
	assert.Equal(t, topic.LinkReport{{From: "root", To: "x", Found: false}}, report)
	assert.Empty(t, store.Snapshot().Edges)
}

func TestCreateRelationshipsToOnePointsTargetsAtRoot(t *testing.T) {
	b, store := newBuilder(t)
	mustCreate(t, b, "root", "x", "y")

	report, err := b.CreateRelationshipsToOne(context.Background(), "root", "x", "ghost", "y")

	require.NoError(t, err)
	assert.Equal(t, topic.LinkReport{
		{From: "root", To: "x", Found: true},
		{From: "root", To: "ghost", Found: false},
		{From: "root", To: "y", Found: true},
	}, report)

	snap := store.Snapshot()
	assert.True(t, snap.HasEdge("x", "root"))
	assert.True(t, snap.HasEdge("y", "root"))
	assert.False(t, snap.HasEdge("root", "x"))
}

func TestCreateRelationshipsToManyPointsRootAtTargets(t *testing.T) {
	b, store := newBuilder(t)
	mustCreate(t, b, "root", "x", "y")

	report, err := b.CreateRelationshipsToMany(context.Background(), "root", "x", "y")

	require.NoError(t, err)
	assert.True(t, report.AllFound())
	snap := store.Snapshot()
	assert.True(t, snap.HasEdge("root", "x"))
	assert.True(t, snap.HasEdge("root", "y"))
	assert.False(t, snap.HasEdge("x", "root"))
}

func TestRepeatedLinksCreateParallelEdges(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "a", "b")

	for i := 0; i < 2; i++ {
		_, err := b.CreateRelationshipsToMany(ctx, "a", "b")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, store.Snapshot().EdgeCount("a", "b"))
}

func TestLinkSubTopicsToOneIsNotIdempotent(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "root")
	maths := namespaceFor(t, topic.ClassALevelMaths)

	require.NoError(t, b.LinkSubTopicsToOne(ctx, topic.ClassALevelMaths, "root", "s1", "s2"))

	snap := store.Snapshot()
	require.Len(t, snap.Nodes, 3)
	for _, name := range []string{"s1", "s2"} {
		nodes := snap.NodesNamed(name)
		require.Len(t, nodes, 1)
		assert.Equal(t, []string{maths}, nodes[0].Labels)
		assert.True(t, snap.HasEdge("root", name))
	}

	require.NoError(t, b.LinkSubTopicsToOne(ctx, topic.ClassALevelMaths, "root", "s1", "s2"))

	snap = store.Snapshot()
	assert.Len(t, snap.Nodes, 5)
	assert.Equal(t, 2, snap.CountNamed("s1"))
	assert.Equal(t, 2, snap.CountNamed("s2"))
	assert.Equal(t, 2, snap.EdgeCount("root", "s1"))
}

func TestLinkSubTopicsToOneSkipsRoot(t *testing.T) {
	b, store := newBuilder(t)
	mustCreate(t, b, "root")

	require.NoError(t, b.LinkSubTopicsToOne(context.Background(), topic.ClassFurtherPure1, "root", "root", "child"))

	snap := store.Snapshot()
	assert.Equal(t, 1, snap.CountNamed("root"))
	assert.Equal(t, 1, snap.CountNamed("child"))
}

func TestLinkSubTopicsWithoutRootCreatesNothing(t *testing.T) {
	b, store := newBuilder(t)

	require.NoError(t, b.LinkSubTopicsToOne(context.Background(), topic.ClassALevelMaths, "absent", "child"))

	assert.Empty(t, store.Snapshot().Nodes)
}

func TestRenameNodeWithoutMatchIsNoop(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "root")
	require.NoError(t, b.LinkSubTopicsToOne(ctx, topic.ClassCambridgeCompSci, "root", "Old"))
	before := store.Snapshot()

	renamed, err := b.RenameNode(ctx, "Old", "New", topic.ClassALevelMaths)

	require.NoError(t, err)
	assert.Zero(t, renamed)
	assert.Equal(t, before, store.Snapshot())
}

func TestRenameNodeMatchesClassNamespace(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "root")
	require.NoError(t, b.LinkSubTopicsToOne(ctx, topic.ClassALevelMaths, "root", "Old"))

	renamed, err := b.RenameNode(ctx, "Old", "New", topic.ClassALevelMaths)

	require.NoError(t, err)
	assert.Equal(t, 1, renamed)
	snap := store.Snapshot()
	assert.Zero(t, snap.CountNamed("Old"))
	assert.True(t, snap.HasEdge("root", "New"))
}

func TestEndToEndChainThenCycle(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	maths := namespaceFor(t, topic.ClassALevelMaths)

	require.NoError(t, b.WipeAll(ctx))
	require.NoError(t, b.CreateTopic(ctx, "Root"))
	require.NoError(t, b.LinkSubTopicsConsecutively(ctx, topic.ClassALevelMaths, "Root", "A", "B"))

	snap := store.Snapshot()
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, []string{maths}, snap.NodesNamed("A")[0].Labels)
	assert.Equal(t, []string{maths}, snap.NodesNamed("B")[0].Labels)
	assert.True(t, snap.HasEdge("Root", "A"))
	assert.True(t, snap.HasEdge("A", "B"))
	assert.Len(t, snap.Edges, 2)

	report, err := b.CreateRelationshipsToOne(ctx, "B", "Root")

	require.NoError(t, err)
	assert.Equal(t, topic.LinkReport{{From: "B", To: "Root", Found: true}}, report)
	snap = store.Snapshot()
	assert.True(t, snap.HasEdge("Root", "B"))
	assert.Len(t, snap.Edges, 3)
}

func TestValidationHappensBeforeAnyTransaction(t *testing.T) {
	store := memstore.New()
	store.FailNext(errors.New("store must not be reached"))
	b := topicgraph.NewBuilder(store, nil)
	ctx := context.Background()

	err := b.CreateTopic(ctx, "  ")
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, apperrors.CodeInvalidName, apperrors.CodeOf(err))

	_, err = b.CreateRelationshipsToMany(ctx, "root", "")
	assert.Equal(t, apperrors.CodeInvalidName, apperrors.CodeOf(err))

	err = b.LinkSubTopicsToOne(ctx, "XX", "root", "child")
	assert.Equal(t, apperrors.CodeUnknownClass, apperrors.CodeOf(err))

	err = b.LinkSubTopicsConsecutively(ctx, "nope", "a", "b")
	assert.Equal(t, apperrors.CodeUnknownClass, apperrors.CodeOf(err))

	_, err = b.RenameNode(ctx, "a", "b", "nope")
	assert.Equal(t, apperrors.CodeUnknownClass, apperrors.CodeOf(err))

	// The queued failure is still pending, so no transaction was attempted.
	assert.True(t, apperrors.IsStoreError(b.WipeAll(ctx)))
	assert.Empty(t, store.Snapshot().Nodes)
}

func TestStoreErrorsPropagate(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	mustCreate(t, b, "a", "b")

	store.FailNext(errors.New("connection reset"))
	report, err := b.CreateRelationshipsConsecutively(ctx, "a", "b")

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsStoreError(err))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, topicgraph.OpCreateRelationshipsConsecutively, appErr.Operation)
	assert.Empty(t, store.Snapshot().Edges)

	store.FailNext(errors.New("connection reset"))
	assert.True(t, apperrors.IsStoreError(b.WipeAll(ctx)))
	assert.Equal(t, 2, store.Snapshot().CountNamed("a")+store.Snapshot().CountNamed("b"))
}

// failingStore runs the first statement of each unit and then aborts, to show
// that a failed unit leaves nothing behind even after earlier pairs succeeded.
type failingStore struct {
	inner *memstore.Store
}

func (s failingStore) RunWrite(ctx context.Context, work graphstore.UnitOfWork) ([]graphstore.Row, error) {
	return s.inner.RunWrite(ctx, func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return work(ctx, &abortAfterFirst{tx: tx})
	})
}

type abortAfterFirst struct {
	tx    graphstore.Tx
	calls int
}

func (t *abortAfterFirst) Run(ctx context.Context, statement string, params map[string]any) ([]graphstore.Row, error) {
	t.calls++
	if t.calls > 1 {
		return nil, errors.New("transaction terminated")
	}
	return t.tx.Run(ctx, statement, params)
}

func TestFailedTransactionHasNoPartialWrites(t *testing.T) {
	mem := memstore.New()
	seed := topicgraph.NewBuilder(mem, nil)
	mustCreate(t, seed, "a", "b", "c")

	b := topicgraph.NewBuilder(failingStore{inner: mem}, nil)
	_, err := b.CreateRelationshipsConsecutively(context.Background(), "a", "b", "c")

	require.Error(t, err)
	assert.True(t, apperrors.IsStoreError(err))
	assert.Empty(t, mem.Snapshot().Edges)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func TestEventsArePublishedAfterCommit(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evts []events.Event) bool {
		return len(evts) == 1 && evts[0].Type == events.TypeTopicCreated && evts[0].Payload["name"] == "A"
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(evts []events.Event) bool {
		return len(evts) == 1 && evts[0].Type == events.TypeRelationshipsCreated &&
			evts[0].Operation == topicgraph.OpCreateRelationshipsToMany
	})).Return(nil).Once()

	b, _ := newBuilder(t, topicgraph.WithPublisher(publisher))
	ctx := context.Background()

	require.NoError(t, b.CreateTopic(ctx, "A"))
	_, err := b.CreateRelationshipsToMany(ctx, "A", "missing")
	require.NoError(t, err)

	publisher.AssertExpectations(t)
}

func TestNoEventWhenTransactionFails(t *testing.T) {
	publisher := new(mockPublisher)
	b, store := newBuilder(t, topicgraph.WithPublisher(publisher))

	store.FailNext(errors.New("down"))
	require.Error(t, b.CreateTopic(context.Background(), "A"))

	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestPublishFailureDoesNotFailPrimitive(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus unavailable"))
	collector := observability.NewCollector("test")
	core, logs := observer.New(zapcore.WarnLevel)

	b, store := newBuilder(t,
		topicgraph.WithPublisher(publisher),
		topicgraph.WithMetrics(collector),
		topicgraph.WithLogger(zap.New(core)),
	)

	require.NoError(t, b.CreateTopic(context.Background(), "A"))
	assert.Equal(t, 1, store.Snapshot().CountNamed("A"))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.EventsPublished.WithLabelValues("failed")))
	assert.Equal(t, 1, logs.FilterMessage("failed to publish graph event").Len())
}

func TestMetricsRecordLinkOutcomesAndNodes(t *testing.T) {
	collector := observability.NewCollector("test")
	b, _ := newBuilder(t, topicgraph.WithMetrics(collector))
	ctx := context.Background()
	mustCreate(t, b, "root", "x")

	_, err := b.CreateRelationshipsToOne(ctx, "root", "x", "ghost")
	require.NoError(t, err)
	require.NoError(t, b.LinkSubTopicsConsecutively(ctx, topic.ClassDecisionMaths1, "root", "p", "q"))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Links.WithLabelValues(topicgraph.OpCreateRelationshipsToOne, "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Links.WithLabelValues(topicgraph.OpCreateRelationshipsToOne, "missing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.NodesCreated.WithLabelValues(topicgraph.OpLinkSubTopicsConsecutively)))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.NodesCreated.WithLabelValues(topicgraph.OpCreateTopic)))
}

func TestLinkLogsMirrorReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b, _ := newBuilder(t, topicgraph.WithLogger(zap.New(core)))
	mustCreate(t, b, "a", "b")

	_, err := b.CreateRelationshipsConsecutively(context.Background(), "a", "b", "zzz")
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("relationship created").Len())
	assert.Equal(t, 1, logs.FilterMessage("relationship unable to be created").Len())
}

func TestCustomCatalogIsUsed(t *testing.T) {
	catalog, err := topic.NewCatalog(topic.ClassEntry{Tag: "Phys", Namespace: "A_level_physics"})
	require.NoError(t, err)
	store := memstore.New()
	b := topicgraph.NewBuilder(store, catalog)
	ctx := context.Background()
	mustCreate(t, b, "Mechanics")

	require.NoError(t, b.LinkSubTopicsToOne(ctx, "Phys", "Mechanics", "Kinematics"))
	assert.Equal(t, []string{"A_level_physics"}, store.Snapshot().NodesNamed("Kinematics")[0].Labels)

	err = b.LinkSubTopicsToOne(ctx, topic.ClassALevelMaths, "Mechanics", "Forces")
	assert.Equal(t, apperrors.CodeUnknownClass, apperrors.CodeOf(err))
	assert.Same(t, catalog, b.Catalog())
}

package memstore_test

import (
	"context"
	"errors"
	"testing"

	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/graphstore"
	"curriculum-graph/internal/graphstore/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, s *memstore.Store, statement string, params map[string]any) []graphstore.Row {
	t.Helper()
	rows, err := s.RunWrite(context.Background(), func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, statement, params)
	})
	require.NoError(t, err)
	return rows
}

func createTopics(t *testing.T, s *memstore.Store, names ...string) {
	t.Helper()
	for _, name := range names {
		run(t, s, graphstore.StmtCreateTopic, map[string]any{"name": name})
	}
}

func TestCreateTopicAndReturnNames(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "Root", "A", "A")

	rows := run(t, s, graphstore.StmtReturnNames, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "Root", rows[0]["name"])

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.CountNamed("A"))
	assert.Equal(t, []string{"Topic"}, snap.Nodes[0].Labels)
}

func TestLinkPairIsCartesian(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "X", "X", "Y", "Y", "Y")

	rows := run(t, s, graphstore.StmtLinkPair, map[string]any{"from": "X", "to": "Y"})

	assert.Len(t, rows, 6)
	assert.Equal(t, 6, s.Snapshot().EdgeCount("X", "Y"))
}

func TestLinkPairWithMissingEndpointCreatesNothing(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "X")

	rows := run(t, s, graphstore.StmtLinkPair, map[string]any{"from": "X", "to": "Ghost"})

	assert.Empty(t, rows)
	assert.Empty(t, s.Snapshot().Edges)
}

func TestCreateSubTopicPerMatchedParent(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "P", "P")

	rows := run(t, s, graphstore.StmtCreateSubTopic, map[string]any{"start": "P", "topic": "C", "label": "FS1"})

	assert.Len(t, rows, 2)
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.CountNamed("C"))
	assert.Equal(t, 2, snap.EdgeCount("P", "C"))
	for _, n := range snap.NodesNamed("C") {
		assert.Equal(t, []string{"FS1"}, n.Labels)
	}
}

func TestCreateSubTopicWithoutParentCreatesNothing(t *testing.T) {
	s := memstore.New()

	rows := run(t, s, graphstore.StmtCreateSubTopic, map[string]any{"start": "Nowhere", "topic": "C", "label": "M"})

	assert.Empty(t, rows)
	assert.Empty(t, s.Snapshot().Nodes)
}

func TestRenameMatchesLabelAndName(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "P")
	run(t, s, graphstore.StmtCreateSubTopic, map[string]any{"start": "P", "topic": "Old", "label": "M"})
	run(t, s, graphstore.StmtCreateSubTopic, map[string]any{"start": "P", "topic": "Old", "label": "Uni"})

	rows := run(t, s, graphstore.StmtRenameNode, map[string]any{"label": "M", "name": "Old", "newName": "New"})

	assert.Len(t, rows, 1)
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.CountNamed("New"))
	assert.Equal(t, []string{"Uni"}, snap.NodesNamed("Old")[0].Labels)
	assert.True(t, snap.HasEdge("P", "New"))
}

func TestDeleteAllAndDuplicates(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "B", "A", "B", "A", "A", "C")

	rows := run(t, s, graphstore.StmtDuplicateNames, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, graphstore.Row{"name": "A", "occurrences": int64(3)}, rows[0])
	assert.Equal(t, graphstore.Row{"name": "B", "occurrences": int64(2)}, rows[1])

	run(t, s, graphstore.StmtDeleteAll, nil)
	assert.Empty(t, s.Snapshot().Nodes)
	assert.Empty(t, run(t, s, graphstore.StmtReturnNames, nil))
}

func TestFailedUnitOfWorkRollsBack(t *testing.T) {
	s := memstore.New()
	createTopics(t, s, "Keep")

	boom := errors.New("boom")
	_, err := s.RunWrite(context.Background(), func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		if _, err := tx.Run(ctx, graphstore.StmtCreateTopic, map[string]any{"name": "Lost"}); err != nil {
			return nil, err
		}
		return nil, boom
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsStoreError(err))
	assert.Equal(t, apperrors.CodeTransactionFailed, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Snapshot().CountNamed("Lost"))
	assert.Equal(t, 1, s.Snapshot().CountNamed("Keep"))
}

func TestFailNext(t *testing.T) {
	s := memstore.New()
	s.FailNext(errors.New("connection refused"))

	called := false
	_, err := s.RunWrite(graphstore.WithOperation(context.Background(), "createTopic"),
		func(context.Context, graphstore.Tx) ([]graphstore.Row, error) {
			called = true
			return nil, nil
		})

	require.Error(t, err)
	assert.False(t, called)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeStoreUnavailable, appErr.Code)
	assert.Equal(t, "createTopic", appErr.Operation)

	createTopics(t, s, "Recovered")
	assert.Equal(t, 1, s.Snapshot().CountNamed("Recovered"))
}

func TestUnsupportedStatement(t *testing.T) {
	s := memstore.New()
	_, err := s.RunWrite(context.Background(), func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, "MATCH (n) SET n.x = 1", nil)
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnsupportedStatement, apperrors.CodeOf(err))
}

func TestMissingParameter(t *testing.T) {
	s := memstore.New()
	_, err := s.RunWrite(context.Background(), func(ctx context.Context, tx graphstore.Tx) ([]graphstore.Row, error) {
		return tx.Run(ctx, graphstore.StmtCreateTopic, map[string]any{"title": "x"})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "$name")
}

func TestCancelledContext(t *testing.T) {
	s := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunWrite(ctx, func(context.Context, graphstore.Tx) ([]graphstore.Row, error) {
		return nil, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

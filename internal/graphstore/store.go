// Package graphstore defines the transactional contract the topic graph
// builder needs from a graph database, the fixed catalogue of statements it
// issues, and decorators that add resilience and instrumentation around any
// store implementation.
package graphstore

import (
	"context"
	"fmt"
)

// Row is one result record, keyed by the statement's RETURN aliases.
type Row map[string]any

// Tx runs statements inside an open write transaction.
type Tx interface {
	Run(ctx context.Context, statement string, params map[string]any) ([]Row, error)
}

// UnitOfWork is executed inside exactly one write transaction. Stores may run
// it more than once when a transient failure forces a replay, so a unit must
// rebuild its result from scratch on every invocation.
type UnitOfWork func(ctx context.Context, tx Tx) ([]Row, error)

// GraphStore executes units of work atomically. Rows are returned only after
// the transaction committed; on failure nothing the unit wrote is visible.
type GraphStore interface {
	RunWrite(ctx context.Context, work UnitOfWork) ([]Row, error)
}

// Closer is implemented by stores holding a driver or connection pool.
type Closer interface {
	Close(ctx context.Context) error
}

// String returns a string column.
func (r Row) String(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", fmt.Errorf("column %q missing from row", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q is %T, not string", key, v)
	}
	return s, nil
}

// Int64 returns an integer column. Both int and int64 are accepted.
func (r Row) Int64(key string) (int64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("column %q missing from row", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("column %q is %T, not integer", key, v)
	}
}

type operationKey struct{}

// WithOperation tags ctx with the name of the primitive issuing a transaction.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFrom returns the primitive name stored in ctx.
func OperationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return "unknown"
}

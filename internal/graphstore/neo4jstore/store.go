// Package neo4jstore implements graphstore.GraphStore on the Neo4j Bolt driver.
package neo4jstore

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/graphstore"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Settings holds connection parameters for the Neo4j driver.
type Settings struct {
	URI      string
	Username string
	Password string
	Database string

	MaxTransactionRetryTime      time.Duration
	MaxConnectionPoolSize        int
	ConnectionAcquisitionTimeout time.Duration
}

// Store runs every unit of work as a managed write transaction.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// New opens a driver and verifies the server is reachable.
func New(ctx context.Context, settings Settings, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		settings.URI,
		neo4j.BasicAuth(settings.Username, settings.Password, ""),
		func(c *neo4j.Config) {
			if settings.MaxTransactionRetryTime > 0 {
				c.MaxTransactionRetryTime = settings.MaxTransactionRetryTime
			}
			if settings.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = settings.MaxConnectionPoolSize
			}
			if settings.ConnectionAcquisitionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = settings.ConnectionAcquisitionTimeout
			}
		},
	)
	if err != nil {
		return nil, apperrors.NewStoreError(apperrors.CodeStoreUnavailable, "connect", "failed to create neo4j driver", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, classify("connect", err)
	}

	logger.Info("connected to neo4j",
		zap.String("uri", settings.URI),
		zap.String("database", settings.Database),
	)

	return &Store{driver: driver, database: settings.Database, logger: logger}, nil
}

// RunWrite implements graphstore.GraphStore. The driver replays work on
// transient failures, up to MaxTransactionRetryTime.
func (s *Store) RunWrite(ctx context.Context, work graphstore.UnitOfWork) ([]graphstore.Row, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(ctx, &managedTx{tx: tx})
	})
	if err != nil {
		return nil, classify(graphstore.OperationFrom(ctx), err)
	}

	rows, _ := result.([]graphstore.Row)
	return rows, nil
}

// Close releases the driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type managedTx struct {
	tx neo4j.ManagedTransaction
}

func (t *managedTx) Run(ctx context.Context, statement string, params map[string]any) ([]graphstore.Row, error) {
	result, err := t.tx.Run(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]graphstore.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, graphstore.Row(record.AsMap()))
	}
	return rows, nil
}

// classify maps driver failures onto store error codes.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsStoreError(err) {
		return err
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return apperrors.NewStoreError(apperrors.CodeStoreAuth, operation, "neo4j rejected credentials", err)
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewStoreError(apperrors.CodeStoreUnavailable, operation, "transaction interrupted", err)
	case neo4j.IsConnectivityError(err):
		return apperrors.NewStoreError(apperrors.CodeStoreUnavailable, operation, "neo4j unreachable", err)
	case neo4j.IsTransactionExecutionLimit(err):
		return apperrors.NewStoreError(apperrors.CodeStoreUnavailable, operation, "transaction retries exhausted", err)
	default:
		return apperrors.NewStoreError(apperrors.CodeTransactionFailed, operation, "transaction failed", err)
	}
}

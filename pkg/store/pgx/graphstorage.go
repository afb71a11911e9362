package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements store.GraphStorage on PostgreSQL with pgvector
// for the embedding column. Snapshot replacement happens in a single
// transaction; queries run against the committed snapshot.
type GraphDBStorage struct {
	conn pgxIConn
	pool *pgxpool.Pool
}

// NewGraphDBStorageWithConnection creates a storage over an existing
// connection. The caller owns the connection's lifecycle.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

// NewGraphDBStorage creates a storage that owns the given pool and closes
// it on Close.
func NewGraphDBStorage(pool *pgxpool.Pool) *GraphDBStorage {
	return &GraphDBStorage{conn: pool, pool: pool}
}

// Close releases the owned pool, if any.
func (s *GraphDBStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

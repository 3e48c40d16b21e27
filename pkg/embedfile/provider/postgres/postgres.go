package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-embed/pkg/embedfile"
)

// Schema creates the table the provider reads from
const Schema = `CREATE TABLE IF NOT EXISTS embedded_resources (
	owner      TEXT        NOT NULL,
	name       TEXT        NOT NULL,
	data       BYTEA       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (owner, name)
)`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Provider implements embedfile.ContentProvider using PostgreSQL
type Provider struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL provider
func New(db DBTX) *Provider {
	return &Provider{db: db}
}

// NewWithPool creates a new PostgreSQL provider with connection pool
func NewWithPool(pool *pgxpool.Pool) *Provider {
	return &Provider{db: pool, pool: pool}
}

// Close releases the connection pool when the provider was built with one
func (p *Provider) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the embedded_resources table when missing
func (p *Provider) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Open loads the payload row into memory and returns a reader over it
func (p *Provider) Open(ctx context.Context, owner embedfile.Owner, qualifiedName string) (io.ReadCloser, error) {
	var data []byte
	err := p.db.QueryRow(ctx,
		`SELECT data FROM embedded_resources WHERE owner = $1 AND name = $2`,
		string(owner), qualifiedName,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, embedfile.ResourceNotFound(owner, qualifiedName)
	}
	if err != nil {
		return nil, handlePostgresError("open", err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put inserts or replaces a payload
func (p *Provider) Put(ctx context.Context, owner embedfile.Owner, qualifiedName string, data []byte) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO embedded_resources (owner, name, data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner, name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		string(owner), qualifiedName, data,
	)
	if err != nil {
		return handlePostgresError("put", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - run EnsureSchema first: %w", err)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s): %w", operation, pgErr.Message, pgErr.Code, err)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
)

const (
	DefaultTableName = "kv_store"

	operationTimeout = 5 * time.Second
)

// Postgres is a KVStore on a single table. The table is created on first use.
// A failed connection or table creation is retried by the next call.
type Postgres struct {
	dsn       string
	tableName string

	mu sync.Mutex
	db *sql.DB
}

var _ interfaces.KVStore = &Postgres{}

type Option func(*Postgres)

func WithTableName(name string) Option {
	return func(p *Postgres) {
		p.tableName = name
	}
}

var ErrEmptyDSN = errors.New("postgres DSN is empty")

func New(dsn string, opts ...Option) (*Postgres, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, goerr.Wrap(ErrEmptyDSN, "failed to create postgres store")
	}

	p := &Postgres{
		dsn:       dsn,
		tableName: DefaultTableName,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Postgres) table() string {
	return pq.QuoteIdentifier(p.tableName)
}

func (p *Postgres) ensureReady(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.table())
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create kv table", goerr.V("table", p.tableName))
	}

	p.db = db
	return db, nil
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	db, err := p.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var value []byte
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", p.table())
	err = db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "key not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to select value", goerr.V("key", key))
	}
	return value, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	db, err := p.ensureReady(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, p.table())
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return goerr.Wrap(err, "failed to upsert value", goerr.V("key", key))
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	db, err := p.ensureReady(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", p.table())
	if _, err := db.ExecContext(ctx, query, key); err != nil {
		return goerr.Wrap(err, "failed to delete value", goerr.V("key", key))
	}
	return nil
}

func (p *Postgres) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	db, err := p.ensureReady(ctx)
	if err != nil {
		return err
	}

	// Rows are collected first so fn may use the store while the scan is in progress
	type row struct {
		key   string
		value []byte
	}
	var result []row

	err = func() error {
		ctx, cancel := context.WithTimeout(ctx, operationTimeout)
		defer cancel()

		query := fmt.Sprintf("SELECT key, value FROM %s WHERE left(key, length($1)) = $1 ORDER BY key", p.table())
		rows, err := db.QueryContext(ctx, query, prefix)
		if err != nil {
			return goerr.Wrap(err, "failed to scan values", goerr.V("prefix", prefix))
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var r row
			if err := rows.Scan(&r.key, &r.value); err != nil {
				return goerr.Wrap(err, "failed to read row", goerr.V("prefix", prefix))
			}
			result = append(result, r)
		}
		if err := rows.Err(); err != nil {
			return goerr.Wrap(err, "failed to iterate rows", goerr.V("prefix", prefix))
		}
		return nil
	}()
	if err != nil {
		return err
	}

	for _, r := range result {
		if err := fn(r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close postgres")
	}
	p.db = nil
	return nil
}

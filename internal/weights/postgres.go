package weights

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/pawn-calculator/pkg/rates"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	createWeightDocumentsTable = `CREATE TABLE IF NOT EXISTS weight_documents (
	app_id text PRIMARY KEY,
	document jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`
	selectWeightDocument          = `SELECT document FROM weight_documents WHERE app_id = $1`
	selectWeightDocumentForUpdate = `SELECT document FROM weight_documents WHERE app_id = $1 FOR UPDATE`
	selectWeightDocumentUpdatedAt = `SELECT updated_at FROM weight_documents WHERE app_id = $1`
	upsertWeightDocument          = `INSERT INTO weight_documents (app_id, document, updated_at) VALUES ($1, $2, now())
ON CONFLICT (app_id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`
)

// PostgresStore keeps the document in a jsonb column, one row per app id.
// Changes are detected by polling the row's updated_at.
type PostgresStore struct {
	db           *sql.DB
	appID        string
	pollInterval time.Duration
	logger       *zap.Logger
}

// OpenPostgres opens a connection pool for dsn.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// NewPostgresStore returns a store for appID's document.
func NewPostgresStore(db *sql.DB, appID string, pollInterval time.Duration, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, appID: appID, pollInterval: pollInterval, logger: logger}
}

// EnsureSchema creates the weight_documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createWeightDocumentsTable); err != nil {
		return fmt.Errorf("failed to create weight_documents table: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load reads and decodes the document.
func (s *PostgresStore) Load(ctx context.Context) (rates.WeightTable, error) {
	return s.load(ctx, s.db, selectWeightDocument)
}

func (s *PostgresStore) load(ctx context.Context, q rowQuerier, query string) (rates.WeightTable, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, query, s.appID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.WeightTable{}, ErrNotFound
	}
	if err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to read weights for %s: %w", s.appID, err)
	}

	var table rates.WeightTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to decode weights for %s: %w", s.appID, err)
	}
	return table, nil
}

// Save merges update into the document within a transaction holding the row
// lock.
func (s *PostgresStore) Save(ctx context.Context, update rates.WeightTable) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	current, err := s.load(ctx, tx, selectWeightDocumentForUpdate)
	var merged rates.WeightTable
	switch {
	case errors.Is(err, ErrNotFound):
		merged = update.Clone()
	case err != nil:
		return err
	default:
		merged = current.Merge(update)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upsertWeightDocument, s.appID, raw); err != nil {
		return fmt.Errorf("failed to write weights for %s: %w", s.appID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weights for %s: %w", s.appID, err)
	}
	return nil
}

// Watch polls updated_at and reloads the document when it moves.
func (s *PostgresStore) Watch(ctx context.Context, fn func(rates.WeightTable)) error {
	last, err := s.updatedAt(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, err := s.updatedAt(ctx)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("failed to poll weights",
				zap.String("op", "weights.PostgresStore.Watch"),
				zap.Error(err),
			)
			continue
		}
		if current.Equal(last) {
			continue
		}

		table, err := s.Load(ctx)
		if err != nil {
			s.logger.Warn("failed to reload weights",
				zap.String("op", "weights.PostgresStore.Watch"),
				zap.Error(err),
			)
			continue
		}
		last = current
		fn(table)
	}
}

func (s *PostgresStore) updatedAt(ctx context.Context) (time.Time, error) {
	var updated time.Time
	err := s.db.QueryRowContext(ctx, selectWeightDocumentUpdatedAt, s.appID).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read weights timestamp for %s: %w", s.appID, err)
	}
	return updated, nil
}

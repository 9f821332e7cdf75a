// Package catalog records manifests of completed writes in PostgreSQL.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

const (
	table        = "write_manifests"
	defaultLimit = 50
	maxLimit     = 1000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// manifestColumns lists columns in insert and scan order.
var manifestColumns = []string{
	"job_id", "endpoint", "write_type", "number_of_rows", "number_of_chunks",
	"write_path", "extracted_at", "elapsed_ns",
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Endpoint string // "domain/subject"
	Limit    int
}

// Store persists manifests.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}
	return db, nil
}

// Record inserts one manifest.
func (s *Store) Record(ctx context.Context, m model.Manifest) error {
	query, args, err := psq.Insert(table).
		Columns(manifestColumns...).
		Values(
			m.JobID.String(),
			m.Endpoint,
			m.WriteType,
			m.Rows,
			m.Chunks,
			m.Location,
			m.ExtractedAt.UTC(),
			m.Elapsed.Nanoseconds(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("building manifest insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting manifest %s: %w", m.JobID, err)
	}
	return nil
}

// List returns manifests matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]model.Manifest, error) {
	qb := psq.Select(manifestColumns...).From(table)
	if filter.Endpoint != "" {
		qb = qb.Where(sq.Eq{"endpoint": filter.Endpoint})
	}
	qb = qb.OrderBy("extracted_at DESC").Limit(uint64(clampLimit(filter.Limit)))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building manifest query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var manifests []model.Manifest
	for rows.Next() {
		var (
			m         model.Manifest
			jobID     string
			elapsedNs int64
		)
		if err := rows.Scan(
			&jobID,
			&m.Endpoint,
			&m.WriteType,
			&m.Rows,
			&m.Chunks,
			&m.Location,
			&m.ExtractedAt,
			&elapsedNs,
		); err != nil {
			return nil, fmt.Errorf("scanning manifest: %w", err)
		}
		m.JobID = model.JobID(jobID)
		m.Elapsed = time.Duration(elapsedNs)
		manifests = append(manifests, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifests: %w", err)
	}
	return manifests, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}

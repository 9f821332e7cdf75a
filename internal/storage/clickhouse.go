package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/dataset"
	"github.com/kacper-wojtaszczyk/jackfruit/chunkstore-go/internal/model"
)

// Columns added to every row so each chunk can be traced back to its write.
var clickHouseMetaColumns = []string{"_location", "_chunk", "_row"}

type ClickHouseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// OpenClickHouse returns a database/sql handle backed by the ClickHouse driver.
func OpenClickHouse(cfg ClickHouseConfig) *sql.DB {
	return clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})
}

// ClickHouseStore writes chunks as rows of one table per endpoint.
type ClickHouseStore struct {
	db       *sql.DB
	database string
}

func NewClickHouseStore(db *sql.DB, database string) *ClickHouseStore {
	return &ClickHouseStore{db: db, database: database}
}

func (c *ClickHouseStore) Location(layout Layout) string {
	return "clickhouse://" + c.database + "/" + layout.Dir()
}

func (c *ClickHouseStore) Ensure(ctx context.Context, layout Layout) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}
	return nil
}

// Write creates the endpoint table if needed and inserts the chunk in one batch.
func (c *ClickHouseStore) Write(ctx context.Context, key ChunkKey, chunk *dataset.Dataset) (retErr error) {
	if err := c.CheckColumns(chunk.Columns); err != nil {
		return err
	}
	table := tableName(key.Endpoint)
	if _, err := c.db.ExecContext(ctx, createTableSQL(table, chunk.Columns)); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL(table, chunk.Columns))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	location := key.Dir()
	name := key.Name()
	args := make([]any, len(clickHouseMetaColumns)+len(chunk.Columns))
	for i, row := range chunk.Rows {
		args[0], args[1], args[2] = location, name, uint64(i)
		for j, cell := range row {
			args[len(clickHouseMetaColumns)+j] = cell
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	slog.DebugContext(ctx, "chunk rows inserted", "table", table, "chunk", name, "rows", len(chunk.Rows))
	return nil
}

// CheckColumns rejects data columns that collide with the bookkeeping columns.
func (c *ClickHouseStore) CheckColumns(columns []string) error {
	for _, col := range columns {
		if slices.Contains(clickHouseMetaColumns, col) {
			return &ReservedColumnError{Column: col}
		}
	}
	return nil
}

// tableName maps an endpoint to "<domain>_<subject>", lower-cased with anything
// outside [a-z0-9_] replaced.
func tableName(e model.Endpoint) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, e.String())
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), "`", "\\`") + "`"
}

func createTableSQL(table string, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (%s String, %s String, %s UInt64",
		quoteIdent(table), quoteIdent("_location"), quoteIdent("_chunk"), quoteIdent("_row"))
	for _, col := range columns {
		fmt.Fprintf(&b, ", %s String", quoteIdent(col))
	}
	b.WriteString(") ENGINE = MergeTree ORDER BY (`_location`, `_chunk`, `_row`)")
	return b.String()
}

func insertSQL(table string, columns []string) string {
	quoted := make([]string, 0, len(clickHouseMetaColumns)+len(columns))
	for _, col := range clickHouseMetaColumns {
		quoted = append(quoted, quoteIdent(col))
	}
	for _, col := range columns {
		quoted = append(quoted, quoteIdent(col))
	}
	return fmt.Sprintf("INSERT INTO %s (%s)", quoteIdent(table), strings.Join(quoted, ", "))
}

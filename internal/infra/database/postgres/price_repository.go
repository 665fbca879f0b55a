package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
)

// DB is the subset of pgxpool.Pool the repository needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// postgres error codes the repository distinguishes
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

var priceColumns = []string{"date", "open", "high", "low", "close", "volume"}

// PriceRepository stores one symbol's daily bars in a single table
type PriceRepository struct {
	db    DB
	table pgx.Identifier
}

// NewPriceRepository creates a PriceRepository for table ("apple_stock" or "schema.table")
func NewPriceRepository(db DB, table string) *PriceRepository {
	return &PriceRepository{db: db, table: tableIdentifier(table)}
}

func tableIdentifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// Replace drops the table, recreates it, and bulk-loads series.
// The statements run without an enclosing transaction: a failure after the
// drop leaves the table missing or partially filled until the next run.
func (r *PriceRepository) Replace(ctx context.Context, series *price.Series) (int64, error) {
	name := r.table.Sanitize()

	if _, err := r.db.Exec(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return 0, fmt.Errorf("%w: drop %s: %v", price.ErrPersistence, name, err)
	}

	create := `CREATE TABLE ` + name + ` (
		date   DATE PRIMARY KEY,
		open   DOUBLE PRECISION NOT NULL,
		high   DOUBLE PRECISION NOT NULL,
		low    DOUBLE PRECISION NOT NULL,
		close  DOUBLE PRECISION NOT NULL,
		volume BIGINT NOT NULL
	)`
	if _, err := r.db.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("%w: create %s: %v", price.ErrPersistence, name, err)
	}

	bars := series.Bars
	copied, err := r.db.CopyFrom(ctx, r.table, priceColumns, pgx.CopyFromSlice(len(bars), func(i int) ([]any, error) {
		b := bars[i]
		return []any{b.Date, b.Open, b.High, b.Low, b.Close, b.Volume}, nil
	}))
	if err != nil {
		return copied, fmt.Errorf("%w: copy into %s: %v", price.ErrPersistence, name, err)
	}

	log.Debug().Str("table", name).Int64("rows", copied).Msg("Price table replaced")

	return copied, nil
}

// LoadAll reads every bar ordered by date
func (r *PriceRepository) LoadAll(ctx context.Context, symbol string) (*price.Series, error) {
	query := `SELECT date, open, high, low, close, volume FROM ` + r.table.Sanitize() + ` ORDER BY date`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, classify(err, "query "+r.table.Sanitize())
	}

	bars, err := pgx.CollectRows(rows, pgx.RowToStructByName[price.Bar])
	if err != nil {
		return nil, classify(err, "scan "+r.table.Sanitize())
	}

	return price.NewSeries(symbol, bars)
}

// Count returns the number of rows in the table
func (r *PriceRepository) Count(ctx context.Context) (int64, error) {
	return countRows(ctx, r.db, strings.Join(r.table, "."))
}

func countRows(ctx context.Context, db DB, table string) (int64, error) {
	var n int64
	err := db.QueryRow(ctx, `SELECT COUNT(*) FROM `+tableIdentifier(table).Sanitize()).Scan(&n)
	if err != nil {
		return 0, classify(err, "count "+table)
	}
	return n, nil
}

// classify maps a missing table to ErrPersistence, a missing column to
// ErrDataShape, and everything else to ErrPersistence.
func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return fmt.Errorf("%w: %s: table does not exist (run upload first): %v", price.ErrPersistence, op, err)
		case codeUndefinedColumn:
			return fmt.Errorf("%w: %s: %v", price.ErrDataShape, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", price.ErrPersistence, op, err)
}

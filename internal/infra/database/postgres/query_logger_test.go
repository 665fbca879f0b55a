package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceQuery(t *testing.T, sql string, end pgx.TraceQueryEndData) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	ql := NewQueryLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	ctx := ql.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
	ql.TraceQueryEnd(ctx, nil, end)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestQueryLogger_CarriesSQLToEnd(t *testing.T) {
	entry := traceQuery(t, `SELECT count(*) FROM "apple_stock"`, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 1"),
	})

	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, `SELECT count(*) FROM "apple_stock"`, entry["sql"])
	assert.Equal(t, "SELECT 1", entry["command_tag"])
	assert.Contains(t, entry, "duration_ms")
}

func TestQueryLogger_FailedQueryIsError(t *testing.T) {
	entry := traceQuery(t, `DROP TABLE IF EXISTS "apple_stock"`, pgx.TraceQueryEndData{
		Err: errors.New("permission denied"),
	})

	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, `DROP TABLE IF EXISTS "apple_stock"`, entry["sql"])
	assert.Equal(t, "permission denied", entry["error"])
}

func TestQueryLogger_EndWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	ql := NewQueryLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	ql.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "", entry["sql"])
}

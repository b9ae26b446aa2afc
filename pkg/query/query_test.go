package query

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
)

func TestProbeSQL(t *testing.T) {
	assert.Equal(t,
		"SELECT * FROM (SELECT id FROM users) AS q LIMIT 0",
		probeSQL("SELECT id FROM users"))
}

func TestCopySQL(t *testing.T) {
	assert.Equal(t,
		"COPY (SELECT id FROM users) TO STDOUT (FORMAT binary)",
		copySQL("SELECT id FROM users"))
}

func TestMapColumns(t *testing.T) {
	fields := []pgconn.FieldDescription{
		{Name: "id", DataTypeOID: pgtype.Int8OID},
		{Name: "name", DataTypeOID: pgtype.VarcharOID},
		{Name: "active", DataTypeOID: pgtype.BoolOID},
		{Name: "created", DataTypeOID: pgtype.TimestamptzOID},
	}

	cols, err := mapColumns(fields)
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, pgtypes.Int64, cols[0].Type.ID)
	assert.Equal(t, "name", cols[1].Name)
	assert.Equal(t, pgtypes.Text, cols[1].Type.ID)
	assert.Equal(t, pgtypes.Bool, cols[2].Type.ID)
	assert.Equal(t, pgtypes.Timestamp, cols[3].Type.ID)
}

func TestMapColumnsUnknownOID(t *testing.T) {
	fields := []pgconn.FieldDescription{
		{Name: "id", DataTypeOID: pgtype.Int8OID},
		{Name: "session", DataTypeOID: pgtype.UUIDOID},
	}

	_, err := mapColumns(fields)
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeUnknownType))
	assert.Contains(t, err.Error(), "session")
}

func TestWrapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want qerrors.ErrorType
	}{
		{"deadline", context.DeadlineExceeded, qerrors.ErrorTypeTimeout},
		{"canceled", context.Canceled, qerrors.ErrorTypeTimeout},
		{"server error", &pgconn.PgError{Code: "42601", Severity: "ERROR"}, qerrors.ErrorTypeQuery},
		{"io failure", io.ErrUnexpectedEOF, qerrors.ErrorTypeConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapPgError(tt.err, "boom")
			assert.True(t, qerrors.IsType(wrapped, tt.want),
				"got type %v, want %v", qerrors.Type(wrapped), tt.want)
			assert.True(t, errors.Is(wrapped, tt.err))
		})
	}
}

func TestWrapPgErrorDetails(t *testing.T) {
	wrapped := wrapPgError(&pgconn.PgError{Code: "42P01", Severity: "ERROR"}, "boom")

	var qerr *qerrors.Error
	require.True(t, errors.As(wrapped, &qerr))
	assert.Equal(t, "42P01", qerr.Details["code"])
	assert.Equal(t, "ERROR", qerr.Details["severity"])
}

func TestOptionsDefaults(t *testing.T) {
	var nilOpts *Options
	o := nilOpts.withDefaults()
	assert.NotNil(t, o.Allocator)
	assert.NotNil(t, o.Logger)
	assert.NotNil(t, o.Collector)
	assert.NotNil(t, o.Tracer)

	mem := memory.NewGoAllocator()
	o = (&Options{Allocator: mem}).withDefaults()
	assert.Same(t, mem, o.Allocator)
}

// Integration coverage below needs a live server, e.g.
//
//	QUASAR_POSTGRES_DSN=postgres://localhost/postgres go test ./pkg/query/

func integrationConn(t *testing.T) (*pgx.Conn, *Options) {
	t.Helper()

	dsn := os.Getenv("QUASAR_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("QUASAR_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() {
		conn.Close(context.Background())
		mem.AssertSize(t, 0)
	})

	return conn, &Options{Allocator: mem}
}

func TestToResultIntegration(t *testing.T) {
	conn, opts := integrationConn(t)
	ctx := context.Background()

	res, cols, err := ToResult(ctx, conn, `
		SELECT v::int8 AS id, ('name_' || v)::text AS name, v % 2 = 0 AS even
		FROM generate_series(1, 100) AS v`, opts)
	require.NoError(t, err)
	defer res.Release()

	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)
	assert.Equal(t, "even", cols[2].Name)
	assert.Equal(t, 100, res.NumRows())

	arr, err := res.NewArray(0)
	require.NoError(t, err)
	defer arr.Release()

	ids := arr.(*array.Int64)
	assert.Equal(t, int64(1), ids.Value(0))
	assert.Equal(t, int64(100), ids.Value(99))

	names, err := res.NewArray(1)
	require.NoError(t, err)
	defer names.Release()
	assert.Equal(t, "name_42", names.(*array.String).Value(41))
}

func TestToResultNullsIntegration(t *testing.T) {
	conn, opts := integrationConn(t)
	ctx := context.Background()

	res, _, err := ToResult(ctx, conn, `SELECT NULL::int4 AS a, NULL::text AS b`, opts)
	require.NoError(t, err)
	defer res.Release()

	require.Equal(t, 1, res.NumRows())

	arr, err := res.NewArray(0)
	require.NoError(t, err)
	defer arr.Release()
	assert.True(t, arr.IsNull(0))
}

func TestToRecordIntegration(t *testing.T) {
	conn, opts := integrationConn(t)
	ctx := context.Background()

	rec, err := ToRecord(ctx, conn, `SELECT v::float8 AS x FROM generate_series(1, 10) AS v`, opts)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(10), rec.NumRows())
	assert.Equal(t, "x", rec.ColumnName(0))
}

func TestToResultUnknownTypeIntegration(t *testing.T) {
	conn, opts := integrationConn(t)
	ctx := context.Background()

	_, _, err := ToResult(ctx, conn, `SELECT gen_random_uuid() AS u`, opts)
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeUnknownType))
}

func TestColumnsBadQueryIntegration(t *testing.T) {
	conn, _ := integrationConn(t)
	ctx := context.Background()

	_, err := Columns(ctx, conn, "SELEC nope")
	require.Error(t, err)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeQuery))
}

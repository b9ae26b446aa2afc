// Package query executes COPY queries against PostgreSQL and decodes the
// binary stream into columnar results.
//
// The round trip is the one psql performs for
//
//	COPY (SELECT ...) TO STDOUT (FORMAT binary)
//
// except the stream lands in typed column buffers instead of a file. A
// LIMIT 0 probe first discovers column names and type OIDs, so callers
// supply only the inner SELECT. The caller owns the connection; this
// package never dials, pools, or retries:
//
//	conn, err := pgx.Connect(ctx, dsn)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
//
//	res, cols, err := query.ToResult(ctx, conn, "SELECT id, name FROM users", nil)
//	if err != nil {
//	    return err
//	}
//	defer res.Release()
package query

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	qerrors "github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/logger"
	"github.com/ajitpratap0/quasar/pkg/metrics"
	"github.com/ajitpratap0/quasar/pkg/observability"
	"github.com/ajitpratap0/quasar/pkg/pgcopy"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
	stringpool "github.com/ajitpratap0/quasar/pkg/strings"
)

// Conn is the slice of *pgx.Conn this package uses. Pool users pass the
// acquired connection's underlying Conn().
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	PgConn() *pgconn.PgConn
}

// Options tune one query round trip. The zero value and nil are both
// valid: Go allocator, package logger, shared query metrics.
type Options struct {
	// Allocator backs decoded column buffers.
	Allocator memory.Allocator
	// Logger receives the per-query summary line.
	Logger *zap.Logger
	// Collector receives decode counters and latencies.
	Collector *metrics.Collector
	// Tracer wraps the copy and decode phases in spans.
	Tracer *observability.DecodeTracer
}

var (
	defaultCollector = metrics.NewCollector("query")
	defaultTracer    = observability.NewDecodeTracer("query")
)

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Allocator == nil {
		out.Allocator = memory.DefaultAllocator
	}
	if out.Logger == nil {
		out.Logger = logger.Get().With(zap.String("component", "query"))
	}
	if out.Collector == nil {
		out.Collector = defaultCollector
	}
	if out.Tracer == nil {
		out.Tracer = defaultTracer
	}
	return out
}

// Column describes one column of a query result.
type Column struct {
	Name string
	OID  uint32
	Type *pgtypes.Type
}

// Columns probes the result shape of a query without reading any rows.
// It fails with an unknown type error if any column has an OID the
// decoder cannot handle, naming the offending column.
func Columns(ctx context.Context, conn Conn, query string) ([]Column, error) {
	rows, err := conn.Query(ctx, probeSQL(query))
	if err != nil {
		return nil, wrapPgError(err, "failed to probe query columns")
	}
	defer rows.Close()

	// LIMIT 0 yields no rows, but execution errors surface on iteration.
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err, "failed to probe query columns")
	}

	return mapColumns(rows.FieldDescriptions())
}

// ToResult runs COPY (query) TO STDOUT (FORMAT binary) and decodes the
// stream into column buffers. The caller owns the result and must call
// Release when done with it. The context bounds the network phase; the
// decode itself does not suspend.
func ToResult(ctx context.Context, conn Conn, query string, opts *Options) (*pgcopy.Result, []Column, error) {
	o := opts.withDefaults()

	cols, err := Columns(ctx, conn, query)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]pgtypes.TypeID, len(cols))
	for i, col := range cols {
		ids[i] = col.Type.ID
	}

	buf := stringpool.GetBuilder(stringpool.Large)
	defer stringpool.PutBuilder(buf, stringpool.Large)

	copyCtx, span := o.Tracer.StartSpan(ctx, "copy")
	copyTimer := metrics.NewTimer("copy")
	err = copyOut(copyCtx, conn, buf, query)
	copyDuration := copyTimer.Stop()
	o.Collector.ObserveQuery(copyDuration, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, nil, err
	}
	span.SetAttribute("dump.bytes", buf.Len())
	span.SetStatus(codes.Ok, "")
	span.End()

	// Decode copies every payload into its own buffers, so the pooled
	// wire buffer can go back to the pool right after.
	data := buf.Bytes()

	decodeTimer := metrics.NewTimer("decode")
	var res *pgcopy.Result
	err = o.Tracer.TraceDecode(ctx, len(data), "decode", func() error {
		var derr error
		res, derr = pgcopy.Decode(o.Allocator, data, ids)
		return derr
	})
	decodeDuration := decodeTimer.Stop()

	var rowCount int64
	if res != nil {
		rowCount = int64(res.NumRows())
	}
	o.Collector.ObserveDecode(rowCount, int64(len(data)), decodeDuration, err)

	if err != nil {
		return nil, nil, err
	}

	o.Logger.Info("query decoded",
		zap.Int("columns", len(cols)),
		zap.Int64("rows", rowCount),
		zap.Int("wire_bytes", len(data)),
		zap.Duration("copy_duration", copyDuration),
		zap.Duration("decode_duration", decodeDuration))

	return res, cols, nil
}

// ToRecord runs ToResult and assembles an Arrow record using the query
// column names. The caller must release the record.
func ToRecord(ctx context.Context, conn Conn, query string, opts *Options) (arrow.Record, error) {
	res, cols, err := ToResult(ctx, conn, query, opts)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}

	return res.NewRecord(names)
}

// copyOut streams the COPY output for query into dst.
func copyOut(ctx context.Context, conn Conn, dst io.Writer, query string) error {
	if _, err := conn.PgConn().CopyTo(ctx, dst, copySQL(query)); err != nil {
		return wrapPgError(err, "copy out failed")
	}
	return nil
}

// probeSQL wraps a query so it returns shape but no rows.
func probeSQL(query string) string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		b.WriteString("SELECT * FROM (")
		b.WriteString(query)
		b.WriteString(") AS q LIMIT 0")
	})
}

// copySQL wraps a query in a binary COPY TO STDOUT.
func copySQL(query string) string {
	return stringpool.BuildString(func(b *stringpool.Builder) {
		b.WriteString("COPY (")
		b.WriteString(query)
		b.WriteString(") TO STDOUT (FORMAT binary)")
	})
}

func mapColumns(fields []pgconn.FieldDescription) ([]Column, error) {
	cols := make([]Column, len(fields))
	for i, fd := range fields {
		typ, err := pgtypes.FromOID(fd.DataTypeOID)
		if err != nil {
			return nil, qerrors.Wrap(err, qerrors.ErrorTypeUnknownType,
				stringpool.Sprintf("column %q has no decodable type", fd.Name)).
				WithDetail("column", i)
		}
		cols[i] = Column{Name: fd.Name, OID: fd.DataTypeOID, Type: typ}
	}
	return cols, nil
}

// wrapPgError classifies a pgx failure. Server-reported query errors map
// to Query with the SQLSTATE attached, deadline and cancellation to
// Timeout, everything else to Connection.
func wrapPgError(err error, msg string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return qerrors.Wrap(err, qerrors.ErrorTypeTimeout, msg)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return qerrors.Wrap(err, qerrors.ErrorTypeQuery, msg).
			WithDetail("code", pgErr.Code).
			WithDetail("severity", pgErr.Severity)
	}

	return qerrors.Wrap(err, qerrors.ErrorTypeConnection, msg)
}

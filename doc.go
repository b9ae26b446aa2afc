// Package quasar decodes the PostgreSQL COPY BINARY wire format directly
// into column-oriented, typed, null-aware Apache Arrow buffers.
//
// A COPY (query) TO STDOUT (FORMAT binary) stream is parsed in a single
// bounds-checked pass with no per-row object construction: fixed-width
// values land in contiguous column buffers at their final width, text and
// bytea payloads land in per-column arenas behind offset tables, and NULLs
// set a validity mask while writing a type-appropriate sentinel. The
// decoded columns are handed to Arrow without copying the value buffers.
//
// # Architecture
//
// The decoder is built from small leaf packages:
//
// 1. Overflow-safe arithmetic guards every cursor advance and allocation
// size, so a hostile length prefix cannot wrap a computation.
//
// 2. A fixed registry of ten physical types maps wire fields to Arrow
// layouts and owns the epoch shifts: PostgreSQL timestamps move from the
// 2000-01-01 epoch to the Unix epoch in microseconds, dates are widened
// from 32-bit wire days to 64-bit days since 1970.
//
// 3. Growable column buffers allocate through an arrow/memory.Allocator,
// start at 4096 rows, and double as rows arrive; every error path releases
// everything allocated so far, proven by CheckedAllocator tests.
//
// 4. The frame parser validates the 11-byte signature, the flags word, and
// the header extension, then walks tuples until the -1 terminator,
// rejecting field-count mismatches and truncated payloads with typed,
// row-indexed errors.
//
// # Quick Start
//
// Decode a saved dump:
//
//	import (
//	    "github.com/apache/arrow-go/v18/arrow/memory"
//
//	    "github.com/ajitpratap0/quasar/pkg/pgcopy"
//	    "github.com/ajitpratap0/quasar/pkg/pgtypes"
//	)
//
//	data, _ := os.ReadFile("events.bin")
//	res, err := pgcopy.Decode(memory.DefaultAllocator, data,
//	    []pgtypes.TypeID{pgtypes.Int64, pgtypes.Text, pgtypes.Timestamp})
//	if err != nil {
//	    return err
//	}
//	defer res.Release()
//
//	rec, err := res.NewRecord([]string{"id", "name", "seen"})
//	if err != nil {
//	    return err
//	}
//	defer rec.Release()
//
// Or let a caller-owned connection stream straight into the decoder:
//
//	conn, _ := pgx.Connect(ctx, dsn)
//	defer conn.Close(ctx)
//
//	rec, err := query.ToRecord(ctx, conn, "SELECT id, name, seen FROM events", nil)
//
// # Key Packages
//
//	pkg/pgcopy        - Frame parser, decode driver, and Arrow handoff
//	pkg/pgtypes       - Physical type registry and OID mapping
//	pkg/columnar      - Growable column buffers over an Arrow allocator
//	pkg/overflow      - Overflow-checked unsigned arithmetic
//	pkg/query         - COPY round trip against a live server (pgx)
//	pkg/compression   - Compressed dump handling (gzip/zstd/lz4/snappy/s2)
//	pkg/mmap          - Memory-mapped dump files for the CLI
//	pkg/errors        - Typed decode errors with detail maps
//	pkg/metrics       - Prometheus counters and histograms
//	pkg/observability - OpenTelemetry spans around copy and decode
//
// # CLI
//
// The quasar binary (cmd/quasar) drives both paths:
//
//	quasar convert events.bin.zst -t int8,text,timestamp -o events.arrow
//	quasar export "SELECT id, name, seen FROM events" -o events.jsonl
//
// "convert" replays dump files with transparent decompression, "export"
// runs a query against a live server; both write Arrow IPC, JSON, or
// JSON Lines, compressed when the output extension asks for it.
package quasar

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/ajitpratap0/quasar/pkg/compression"
	qjson "github.com/ajitpratap0/quasar/pkg/json"
	"github.com/ajitpratap0/quasar/pkg/pgcopy"
)

// outputOptions say where and how a decoded result gets written.
type outputOptions struct {
	path   string // empty means stdout
	format string // arrow, json, or jsonl
	pretty bool
	level  compression.Level // used when path carries a compression extension
}

// resolveFormat picks the output format: the --format flag wins, then the
// output file extension, then the configured fallback.
func resolveFormat(flag, output, fallback string) string {
	if flag != "" {
		return flag
	}

	if output != "" {
		trimmed := output
		if compression.DetectAlgorithm(output) != compression.None {
			trimmed = strings.TrimSuffix(output, filepath.Ext(output))
		}
		switch strings.ToLower(filepath.Ext(trimmed)) {
		case ".arrow", ".arrows", ".ipc":
			return "arrow"
		case ".json":
			return "json"
		case ".jsonl", ".ndjson":
			return "jsonl"
		}
	}

	return fallback
}

// writeOutput renders the decoded result and writes it to the output
// path, or stdout when the path is empty. A compression extension on
// the path compresses the rendered payload.
func writeOutput(res *pgcopy.Result, names []string, opts outputOptions) error {
	rec, err := res.NewRecord(names)
	if err != nil {
		return err
	}
	defer rec.Release()

	buf := qjson.GetBuffer()
	defer qjson.PutBuffer(buf)
	switch opts.format {
	case "arrow":
		err = writeArrowIPC(buf, rec)
	case "json":
		err = writeJSONColumns(buf, rec, opts.pretty)
	case "jsonl":
		err = writeJSONRows(buf, rec)
	default:
		return fmt.Errorf("unsupported output format %q (want arrow, json, or jsonl)", opts.format)
	}
	if err != nil {
		return err
	}

	return writePayload(opts.path, buf.Bytes(), opts.level)
}

func writePayload(output string, payload []byte, level compression.Level) error {
	if output == "" {
		_, err := os.Stdout.Write(payload)
		return err
	}

	if algo := compression.DetectAlgorithm(output); algo != compression.None {
		if level == 0 {
			level = compression.Default
		}
		comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo, Level: level})
		if err != nil {
			return err
		}
		if payload, err = comp.Compress(payload); err != nil {
			return fmt.Errorf("failed to compress output: %w", err)
		}
	}

	return os.WriteFile(output, payload, 0o644)
}

func writeArrowIPC(w io.Writer, rec arrow.Record) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("failed to write arrow record: %w", err)
	}
	return fw.Close()
}

type fieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// writeJSONColumns renders the record as one column-oriented document:
// a schema array in stream order, the row count, and per-column value
// arrays with null for NULL fields.
func writeJSONColumns(w io.Writer, rec arrow.Record, pretty bool) error {
	schema := rec.Schema()
	doc := struct {
		Schema  []fieldSchema    `json:"schema"`
		Rows    int64            `json:"rows"`
		Columns map[string][]any `json:"columns"`
	}{
		Schema:  make([]fieldSchema, rec.NumCols()),
		Rows:    rec.NumRows(),
		Columns: make(map[string][]any, rec.NumCols()),
	}

	for i := 0; i < int(rec.NumCols()); i++ {
		field := schema.Field(i)
		doc.Schema[i] = fieldSchema{Name: field.Name, Type: fieldTypeName(field)}

		col := rec.Column(i)
		values := make([]any, rec.NumRows())
		for row := range values {
			values[row] = columnValue(field, col, row)
		}
		doc.Columns[field.Name] = values
	}

	var (
		payload []byte
		err     error
	)
	if pretty {
		payload, err = qjson.MarshalIndent(doc, "", "  ")
	} else {
		payload, err = qjson.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	if _, err := w.Write(payload); err != nil {
		return err
	}
	if !pretty {
		return nil
	}
	_, err = w.Write([]byte{'\n'})
	return err
}

// writeJSONRows renders the record as JSON Lines, one object per row.
func writeJSONRows(w io.Writer, rec arrow.Record) error {
	schema := rec.Schema()
	enc := qjson.NewStreamingEncoder(w, false)

	for row := 0; row < int(rec.NumRows()); row++ {
		obj := make(map[string]any, rec.NumCols())
		for i := 0; i < int(rec.NumCols()); i++ {
			field := schema.Field(i)
			obj[field.Name] = columnValue(field, rec.Column(i), row)
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", row, err)
		}
	}

	return enc.Close()
}

func fieldTypeName(field arrow.Field) string {
	if isDayUnit(field) {
		return "date"
	}
	return field.Type.String()
}

// columnValue extracts row's value from col as a JSON-friendly Go value.
// Timestamps render as RFC 3339 strings, day-count columns as dates, and
// NULL fields as nil.
func columnValue(field arrow.Field, col arrow.Array, row int) any {
	if col.IsNull(row) {
		return nil
	}

	switch arr := col.(type) {
	case *array.Int16:
		return arr.Value(row)
	case *array.Int32:
		return arr.Value(row)
	case *array.Int64:
		if isDayUnit(field) {
			return time.Unix(arr.Value(row)*86400, 0).UTC().Format("2006-01-02")
		}
		return arr.Value(row)
	case *array.Float32:
		return arr.Value(row)
	case *array.Float64:
		return arr.Value(row)
	case *array.Boolean:
		return arr.Value(row)
	case *array.String:
		return arr.Value(row)
	case *array.Binary:
		return arr.Value(row)
	case *array.Timestamp:
		return time.UnixMicro(int64(arr.Value(row))).UTC().Format(time.RFC3339Nano)
	default:
		return col.ValueStr(row)
	}
}

func isDayUnit(field arrow.Field) bool {
	idx := field.Metadata.FindKey("unit")
	return idx >= 0 && field.Metadata.Values()[idx] == "day"
}

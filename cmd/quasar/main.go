package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/quasar/pkg/compression"
	"github.com/ajitpratap0/quasar/pkg/config"
	"github.com/ajitpratap0/quasar/pkg/logger"
	"github.com/ajitpratap0/quasar/pkg/metrics"
	"github.com/ajitpratap0/quasar/pkg/mmap"
	"github.com/ajitpratap0/quasar/pkg/observability"
	"github.com/ajitpratap0/quasar/pkg/pgcopy"
	"github.com/ajitpratap0/quasar/pkg/pgtypes"
	"github.com/ajitpratap0/quasar/pkg/query"
)

var version = "0.1.0"

// cfg is populated once by the root command before any subcommand runs.
var cfg *config.Config

func main() {
	var configFile, logLevel string
	var enableTracing bool

	root := &cobra.Command{
		Use:   "quasar",
		Short: "Quasar - PostgreSQL COPY BINARY decoder",
		Long: `Quasar decodes PostgreSQL COPY BINARY streams into typed columnar
buffers and hands them off as Arrow IPC files or JSON. It replays dump
files offline and runs COPY queries against a live server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime(configFile, logLevel, enableTracing)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file (default quasar.yaml in . or $HOME/.quasar)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&enableTracing, "trace", false, "Emit OpenTelemetry spans to stdout")

	root.AddCommand(versionCmd())
	root.AddCommand(typesCmd())
	root.AddCommand(convertCmd())
	root.AddCommand(exportCmd())

	err := root.Execute()
	flushTraces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// flushTraces drains batched spans before the process exits. Runs on
// error paths too, where cobra skips PersistentPostRunE.
func flushTraces() {
	if cfg == nil || !cfg.Trace {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := observability.Shutdown(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "failed to flush traces:", err)
	}
}

// initRuntime wires config, logging, and tracing before any subcommand
// runs. Precedence: flags, then QUASAR_* environment, then config file.
func initRuntime(configFile, logLevel string, enableTracing bool) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if enableTracing {
		cfg.Trace = true
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    "json",
		OutputPaths: []string{"stderr"},
	}); err != nil {
		return err
	}

	if cfg.Trace {
		tc := observability.DefaultConfig()
		tc.ServiceVersion = version
		if err := observability.Initialize(tc); err != nil {
			return err
		}
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quasar v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List decodable PostgreSQL types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Decodable column types:")
			for _, t := range pgtypes.Types() {
				width := fmt.Sprintf("%d bytes", t.Size)
				if t.Variable() {
					width = "variable"
				}
				fmt.Printf("  %-10s  %-9s -> %s\n", t.Name, width, t.DataType)
			}
			fmt.Println("\nAccepted by OID mapping:", len(pgtypes.SupportedOIDs()), "type OIDs")
		},
	}
}

func convertCmd() *cobra.Command {
	var typeNames, columnNames, output, format string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "convert <dump-file>",
		Short: "Decode a COPY BINARY dump file",
		Long: `Decode a file captured with COPY (query) TO STDOUT (FORMAT binary).
Compressed dumps (.gz, .zst, .lz4, .sz, .s2, or recognized by magic
bytes) are decompressed first. Column types must be given in stream
order; the binary format does not carry them.

Example:
  quasar convert events.bin.zst --types int8,text,timestamp --names id,name,seen -o events.arrow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(args[0], typeNames, columnNames, output, format, pretty)
		},
	}

	cmd.Flags().StringVarP(&typeNames, "types", "t", "", "Comma-separated column types, e.g. int8,text,bool (required)")
	cmd.Flags().StringVarP(&columnNames, "names", "n", "", "Comma-separated column names (default col_0, col_1, ...)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path; compression inferred from extension (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: arrow, json, or jsonl (default from config, then arrow)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	_ = cmd.MarkFlagRequired("types")

	return cmd
}

func runConvert(path, typeNames, columnNames, output, format string, pretty bool) error {
	log := logger.Get().With(zap.String("component", "quasar-cli"))

	ids, err := parseTypes(typeNames)
	if err != nil {
		return err
	}
	names, err := parseNames(columnNames, len(ids))
	if err != nil {
		return err
	}

	dump, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer dump.Close()

	// The decoder copies every payload it keeps, so both the mapping
	// and any decompressed scratch can go away right after Decode.
	data := dump.Bytes()
	algo := compression.Sniff(path, data)
	if algo != compression.None {
		comp, err := compression.NewCompressor(&compression.Config{Algorithm: algo, Level: compression.Default})
		if err != nil {
			return err
		}
		if data, err = comp.Decompress(data); err != nil {
			return fmt.Errorf("failed to decompress %s dump: %w", algo, err)
		}
	}

	collector := metrics.NewCollector("file")
	tracer := observability.NewDecodeTracer("file")
	mem := memory.NewGoAllocator()

	timer := metrics.NewTimer("decode")
	var res *pgcopy.Result
	err = tracer.TraceDecode(context.Background(), len(data), "decode", func() error {
		var derr error
		res, derr = pgcopy.Decode(mem, data, ids)
		return derr
	})
	duration := timer.Stop()

	var rows int
	if res != nil {
		rows = res.NumRows()
	}
	collector.ObserveDecode(int64(rows), int64(len(data)), duration, err)
	if err != nil {
		return err
	}
	defer res.Release()

	opts := outputOptions{
		path:   output,
		format: resolveFormat(format, output, cfg.Format),
		pretty: pretty,
		level:  compression.Level(cfg.Compression.Level),
	}
	if err := writeOutput(res, names, opts); err != nil {
		return err
	}

	log.Info("dump converted",
		zap.String("input", path),
		zap.String("compression", string(algo)),
		zap.Int("rows", rows),
		zap.Int("columns", res.NumCols()),
		zap.Int("wire_bytes", len(data)),
		zap.Duration("decode_duration", duration),
		zap.Float64("rows_per_second", float64(rows)/duration.Seconds()))

	return nil
}

func exportCmd() *cobra.Command {
	var dsn, output, format string
	var pretty bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "export <query>",
		Short: "Run a query against PostgreSQL and decode the COPY stream",
		Long: `Run COPY (query) TO STDOUT (FORMAT binary) against a live server and
decode the stream. Column names and types come from the query itself.

The connection string is taken from --dsn, the QUASAR_DSN environment
variable, or the dsn key in the config file.

Example:
  quasar export "SELECT id, name FROM users" --dsn postgres://localhost/app -o users.arrow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], dsn, output, format, pretty, timeout)
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path; compression inferred from extension (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: arrow, json, or jsonl (default from config, then arrow)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Connect and query timeout")

	return cmd
}

func runExport(sql, dsn, output, format string, pretty bool, timeout time.Duration) error {
	log := logger.Get().With(zap.String("component", "quasar-cli"))

	if dsn == "" {
		dsn = cfg.DSN
	}
	if dsn == "" {
		return fmt.Errorf("no connection string: pass --dsn, set QUASAR_DSN, or put dsn in the config file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(context.Background())

	start := time.Now()
	res, cols, err := query.ToResult(ctx, conn, sql, nil)
	if err != nil {
		return err
	}
	defer res.Release()

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}

	opts := outputOptions{
		path:   output,
		format: resolveFormat(format, output, cfg.Format),
		pretty: pretty,
		level:  compression.Level(cfg.Compression.Level),
	}
	if err := writeOutput(res, names, opts); err != nil {
		return err
	}

	duration := time.Since(start)
	log.Info("query exported",
		zap.Int("rows", res.NumRows()),
		zap.Int("columns", res.NumCols()),
		zap.Duration("duration", duration),
		zap.Float64("rows_per_second", float64(res.NumRows())/duration.Seconds()))

	return nil
}

// parseTypes resolves a comma-separated type list against the registry.
func parseTypes(typeNames string) ([]pgtypes.TypeID, error) {
	parts := strings.Split(typeNames, ",")
	ids := make([]pgtypes.TypeID, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		t, err := pgtypes.ByName(name)
		if err != nil {
			return nil, fmt.Errorf("unknown column type %q (run 'quasar types' for the list)", name)
		}
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one column type is required")
	}
	return ids, nil
}

// parseNames splits column names, or generates col_N placeholders.
func parseNames(columnNames string, count int) ([]string, error) {
	if columnNames == "" {
		names := make([]string, count)
		for i := range names {
			names[i] = fmt.Sprintf("col_%d", i)
		}
		return names, nil
	}

	parts := strings.Split(columnNames, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) != count {
		return nil, fmt.Errorf("%d column names for %d column types", len(names), count)
	}
	return names, nil
}

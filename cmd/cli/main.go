package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/voice-budget/internal/config"
	"github.com/dvloznov/voice-budget/internal/domain"
	"github.com/dvloznov/voice-budget/internal/export"
	"github.com/dvloznov/voice-budget/internal/extraction"
	"github.com/dvloznov/voice-budget/internal/logger"
	"github.com/dvloznov/voice-budget/internal/storage"
	"github.com/dvloznov/voice-budget/internal/transcript"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.NewWithOptions(logger.Options{Out: os.Stderr})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	// Results go to stdout, logs to stderr.
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a := &app{cfg: cfg, log: log, stdin: os.Stdin, stdout: os.Stdout}

	switch os.Args[1] {
	case "expense":
		err = a.runExtract(ctx, extraction.SchemaExpense, os.Args[2:])
	case "budget":
		err = a.runExtract(ctx, extraction.SchemaBudget, os.Args[2:])
	case "listen":
		err = a.runListen(ctx, os.Args[2:])
	case "export":
		err = a.runExport(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Voice Budget CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  expense   Extract an expense record from a transcript")
	fmt.Fprintln(w, "  budget    Extract a budget plan from a transcript")
	fmt.Fprintln(w, "  listen    Read final transcripts from stdin, one per line, and extract each")
	fmt.Fprintln(w, "  export    Convert JSON lines of records into a CSV report")
	fmt.Fprintln(w, "  help      Show this help message")
	fmt.Fprintln(w, "\nRun 'cli <command> -h' for more information on a command.")
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	stdin  io.Reader
	stdout io.Writer

	// newEngine is replaced in tests.
	newEngine func(ctx context.Context) *extraction.Engine
	// newStorage is replaced in tests.
	newStorage func(ctx context.Context, bucket string) (storage.Service, error)
	now        func() time.Time
}

func (a *app) engine(ctx context.Context) *extraction.Engine {
	if a.newEngine != nil {
		return a.newEngine(ctx)
	}

	e := extraction.NewEngine(
		extraction.WithSessionFactory(extraction.NewGeminiSessionFactory(extraction.GeminiOptions{
			Model:             a.cfg.Gemini.Model,
			Temperature:       a.cfg.Gemini.Temperature,
			RequestsPerMinute: a.cfg.Gemini.RequestsPerMinute,
			Burst:             a.cfg.Gemini.Burst,
		})),
		extraction.WithLogger(a.log),
	)
	if !e.Configure(ctx, a.cfg.Gemini.APIKey) {
		a.log.Warn().Msg("Gemini is not configured; set GEMINI_API_KEY or use -offline")
	}
	return e
}

func (a *app) storage(ctx context.Context, bucket string) (storage.Service, error) {
	if a.newStorage != nil {
		return a.newStorage(ctx, bucket)
	}
	var opts []option.ClientOption
	if a.cfg.Storage.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.cfg.Storage.CredentialsFile))
	}
	return storage.NewGCSService(ctx, bucket, opts...)
}

func (a *app) today() civil.Date {
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	return civil.DateOf(now().UTC())
}

// extractor runs one schema, either through the engine or, offline, through
// the rule-based extractor alone.
type extractor func(ctx context.Context, text string) (any, error)

func (a *app) extractor(ctx context.Context, schema extraction.Schema, offline bool) (extractor, error) {
	if offline {
		switch schema {
		case extraction.SchemaExpense:
			return func(_ context.Context, text string) (any, error) {
				return extraction.FallbackExpense(text, a.today()), nil
			}, nil
		case extraction.SchemaBudget:
			return func(_ context.Context, text string) (any, error) {
				return extraction.FallbackBudget(text), nil
			}, nil
		}
		return nil, fmt.Errorf("unknown schema %q", schema)
	}

	e := a.engine(ctx)
	switch schema {
	case extraction.SchemaExpense:
		return func(ctx context.Context, text string) (any, error) { return e.ExtractExpense(ctx, text) }, nil
	case extraction.SchemaBudget:
		return func(ctx context.Context, text string) (any, error) { return e.ExtractBudget(ctx, text) }, nil
	}
	return nil, fmt.Errorf("unknown schema %q", schema)
}

func (a *app) runExtract(ctx context.Context, schema extraction.Schema, args []string) error {
	fs := flag.NewFlagSet(string(schema), flag.ContinueOnError)
	text := fs.String("text", "", "transcript to extract from")
	offline := fs.Bool("offline", false, "use the rule-based extractor without calling Gemini")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*text) == "" {
		return errors.New("-text is required")
	}

	extract, err := a.extractor(ctx, schema, *offline)
	if err != nil {
		return err
	}

	result, err := extract(ctx, *text)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (a *app) runListen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	schema := fs.String("schema", string(extraction.SchemaExpense), "expense or budget")
	offline := fs.Bool("offline", false, "use the rule-based extractor without calling Gemini")
	if err := fs.Parse(args); err != nil {
		return err
	}

	extract, err := a.extractor(ctx, extraction.Schema(*schema), *offline)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)

	src := transcript.NewLineSource(a.stdin)
	return transcript.Each(ctx, src, func(text string) error {
		result, err := extract(ctx, text)
		if extraction.IsRetryable(err) {
			// A transient failure skips this utterance rather than ending the session.
			a.log.Warn().Err(err).Msg("Extraction failed, skipping transcript")
			return nil
		}
		if err != nil {
			return err
		}
		return enc.Encode(result)
	})
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	in := fs.String("in", "", "JSON lines input file or gs:// URI ('-' for stdin)")
	out := fs.String("out", "", "CSV output file (defaults to <kind>-<date>.csv)")
	kind := fs.String("kind", "expenses", "expenses or budget")
	bucket := fs.String("bucket", a.cfg.Storage.Bucket, "upload the CSV to this bucket")
	object := fs.String("object", "", "object name for the upload (defaults to a generated name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	if *out == "" {
		*out = export.FileName(*kind, a.today())
	}

	data, err := a.readInput(ctx, *in, *bucket)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch *kind {
	case "expenses":
		records, err := export.ReadJSONLines[domain.ExpenseRecord](bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("read expenses: %w", err)
		}
		if err := export.WriteExpenses(&buf, records); err != nil {
			return err
		}
	case "budget":
		plans, err := export.ReadJSONLines[domain.BudgetPlan](bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("read budget: %w", err)
		}
		if len(plans) != 1 {
			return fmt.Errorf("budget export needs exactly one plan, got %d", len(plans))
		}
		if err := export.WriteBudget(&buf, plans[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}

	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	a.log.Info().Str("file", *out).Int("bytes", buf.Len()).Msg("Report written")

	if *bucket == "" {
		fmt.Fprintln(a.stdout, *out)
		return nil
	}

	svc, err := a.storage(ctx, *bucket)
	if err != nil {
		return err
	}
	if c, ok := svc.(io.Closer); ok {
		defer c.Close()
	}

	name := *object
	if name == "" {
		name = storage.ObjectName(a.cfg.Storage.Prefix, filepath.Base(*out), time.Now())
	}
	uri, err := svc.UploadFile(ctx, name, *out)
	if err != nil {
		return fmt.Errorf("upload report: %w", err)
	}

	a.log.Info().Str("uri", uri).Msg("Report uploaded")
	fmt.Fprintln(a.stdout, uri)
	return nil
}

// readInput reads a local file, stdin, or a gs:// object.
func (a *app) readInput(ctx context.Context, in, bucket string) ([]byte, error) {
	switch {
	case in == "-":
		return io.ReadAll(a.stdin)
	case strings.HasPrefix(in, "gs://"):
		src, _, err := storage.ParseURI(in)
		if err != nil {
			return nil, err
		}
		if bucket == "" {
			bucket = src
		}
		svc, err := a.storage(ctx, bucket)
		if err != nil {
			return nil, err
		}
		if c, ok := svc.(io.Closer); ok {
			defer c.Close()
		}
		return svc.Fetch(ctx, in)
	default:
		return os.ReadFile(in)
	}
}

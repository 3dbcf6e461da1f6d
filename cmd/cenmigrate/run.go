package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/enerdata/cenmigrate/internal/config"
	"github.com/enerdata/cenmigrate/internal/loader"
	"github.com/enerdata/cenmigrate/internal/logging"
	"github.com/enerdata/cenmigrate/internal/pipeline"
	"github.com/enerdata/cenmigrate/internal/progress"
	"github.com/enerdata/cenmigrate/internal/report"
	"github.com/enerdata/cenmigrate/internal/schema"
	_ "github.com/enerdata/cenmigrate/internal/schema/tables" // register datasets
	"github.com/enerdata/cenmigrate/internal/source"
	"github.com/enerdata/cenmigrate/internal/statusapi"
	"github.com/enerdata/cenmigrate/internal/validate"
)

var runSourceDir string

var runCmd = &cobra.Command{
	Use:   "run [table ...]",
	Short: "Migrate source files into the destination database",
	Long: `Run the migration for the named tables, or for every registered
table when none are given. Source files are discovered under the source
directory, one subdirectory per dataset.`,
	RunE: runMigration,
}

func init() {
	runCmd.Flags().StringVar(&runSourceDir, "source-dir", "", "override the source directory (MIGRATE_SOURCE_DIR)")
	rootCmd.AddCommand(runCmd)
}

// statusBoard collects per-table trackers for the status endpoint.
type statusBoard struct {
	runID   string
	started time.Time

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

func newStatusBoard(runID string) *statusBoard {
	return &statusBoard{
		runID:    runID,
		started:  time.Now(),
		trackers: make(map[string]*progress.Tracker),
	}
}

func (b *statusBoard) add(table string, tr *progress.Tracker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trackers[table] = tr
}

func (b *statusBoard) status() statusapi.RunStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	tables := make(map[string]progress.Snapshot, len(b.trackers))
	for key, tr := range b.trackers {
		tables[key] = tr.Snapshot()
	}
	return statusapi.RunStatus{RunID: b.runID, StartedAt: b.started, Tables: tables}
}

func runMigration(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return configErr(err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if runSourceDir != "" {
		cfg.Source.Dir = runSourceDir
	}

	tables, err := selectTables(args)
	if err != nil {
		return configErr(err)
	}

	runID := uuid.NewString()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, runID)

	logger := logging.FromContext(ctx)
	logger.Info("run starting",
		"tables", len(tables),
		"source_dir", cfg.Source.Dir,
		"batch_size", cfg.Batch.Size,
		"duplicate_policy", cfg.Run.DuplicatePolicy,
	)

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	board := newStatusBoard(runID)
	var statusSrv *statusapi.Server
	if cfg.Status.Addr != "" {
		statusSrv = statusapi.NewServer(board.status)
		go func() {
			if err := statusSrv.Start(cfg.Status.Addr); err != nil && err != http.ErrServerClosed {
				logger.Error("status server", "error", err)
			}
		}()
		logger.Info("status endpoint up", "addr", cfg.Status.Addr)
	}

	summaries := make([]pipeline.Summary, 0, len(tables))
	for _, tbl := range tables {
		if ctx.Err() != nil {
			break
		}
		summaries = append(summaries, runTable(ctx, cfg, pool, board, tbl))
	}

	if statusSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		statusSrv.Shutdown(shutdownCtx)
		cancel()
	}

	failed := summarize(logger, summaries)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tables did not complete cleanly", failed, len(summaries))
	}
	return nil
}

// summarize logs every table's outcome and returns how many failed the run.
// Only a fatal error counts: an aborted run or a broken source. Records lost
// below the abort threshold are reported but the run still completes, so the
// exit status stays clean.
func summarize(logger *slog.Logger, summaries []pipeline.Summary) int {
	failed := 0
	for _, s := range summaries {
		l := logger.With("table", s.Table, "status", s.Status, "counters", s.Counters)
		switch {
		case s.Err != nil:
			failed++
			l.Error("table finished", "error", s.Err)
		case s.Counters.FailedPermanent > 0:
			l.Warn("table finished with lost records", "lost", s.Counters.FailedPermanent)
		default:
			l.Info("table finished")
		}
		if s.Counters.Rejected > 0 {
			logger.Info("rejected rows written", "table", s.Table, "path", s.RejectedPath, "rows", s.Counters.Rejected)
		}
	}
	return failed
}

// runTable executes the whole pipeline for one table. Failures are reported
// through the Summary so one broken table does not stop the others.
func runTable(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, board *statusBoard, tbl schema.Table) pipeline.Summary {
	logger := logging.WithFields(ctx, "table", tbl.Key)
	fail := func(err error) pipeline.Summary {
		return pipeline.Summary{Table: tbl.Key, Status: "failed", Err: err}
	}

	paths, err := source.Discover(cfg.Source.Dir, tbl)
	if err != nil {
		return fail(err)
	}
	if len(paths) == 0 {
		logger.Warn("no source files found", "dir", cfg.Source.Dir, "subdir", tbl.Directory)
		return pipeline.Summary{Table: tbl.Key, Status: "completed"}
	}
	logger.Info("source files discovered", "files", len(paths))

	reader, err := source.Open(paths, source.Options{
		Delimiter: delimiterRune(cfg.Source.Delimiter),
		Encoding:  cfg.Source.Encoding,
		HasHeader: cfg.Source.HasHeader,
	})
	if err != nil {
		return fail(err)
	}
	defer reader.Close()

	validator, err := validate.New(tbl, reader.Header())
	if err != nil {
		return fail(err)
	}

	tracker := progress.NewTracker()
	board.add(tbl.Key, tracker)
	renderer := progress.NewRenderer(tracker, logger, 5*time.Second)

	ldr := loader.New(
		loader.NewPGExecutor(pool, tbl, cfg.Run.DuplicatePolicy),
		loader.Options{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff: loader.Backoff{
				Base:       cfg.Retry.BaseDelay,
				Multiplier: cfg.Retry.Multiplier,
				Max:        cfg.Retry.MaxDelay,
			},
		},
		tracker, logger,
	)

	rejections, err := report.NewRejectionWriter(cfg.Run.RejectedDir, tbl.Name)
	if err != nil {
		return fail(err)
	}
	defer rejections.Close()

	p := pipeline.New(pipeline.Config{
		Table:           tbl.Key,
		BatchSize:       cfg.Batch.Size,
		AbortThreshold:  cfg.Run.AbortThreshold,
		AbortOnEncoding: strings.EqualFold(cfg.Source.EncodingPolicy, config.EncodingAbort),
	}, reader, validator, ldr, tracker, rejections, renderer, logger)

	renderCtx, stopRender := context.WithCancel(ctx)
	go renderer.Run(renderCtx)
	summary := p.Run(ctx)
	stopRender()

	return summary
}

// connect builds the pgx pool the same way for every command that needs
// the database, and verifies the connection before any work starts.
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, configErr(fmt.Errorf("parse database URL: %w", err))
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// selectTables resolves command-line table keys against the registry, or
// returns every registered table when none are named.
func selectTables(args []string) ([]schema.Table, error) {
	if len(args) == 0 {
		return schema.All(), nil
	}
	tables := make([]schema.Table, 0, len(args))
	for _, key := range args {
		t, ok := schema.Get(key)
		if !ok {
			return nil, fmt.Errorf("unknown table %q (known: %s)", key, strings.Join(schema.Keys(), ", "))
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func delimiterRune(s string) rune {
	if strings.EqualFold(s, "auto") || s == "" {
		return 0
	}
	return []rune(s)[0]
}

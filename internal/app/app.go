// Package app wires configuration, adapters and the engine into one batch
// run.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/txnguard/txnguard/internal/config"
	"github.com/txnguard/txnguard/internal/dbconn"
	"github.com/txnguard/txnguard/internal/detector"
	"github.com/txnguard/txnguard/internal/engine"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/internal/ingest"
	"github.com/txnguard/txnguard/internal/logging"
	"github.com/txnguard/txnguard/internal/observability"
	"github.com/txnguard/txnguard/internal/policy"
	"github.com/txnguard/txnguard/internal/reason"
	"github.com/txnguard/txnguard/internal/sink"
	"github.com/txnguard/txnguard/internal/storage"
	"github.com/txnguard/txnguard/pkg/types"
)

// Stage names, used for spans, logs and the stage duration metric.
const (
	StageInput   = "stage_input"
	StageRead    = "read"
	StagePolicy  = "load_policy"
	StageDetect  = "detect"
	StageWrite   = "write"
	StagePublish = "publish"
)

// Report summarises one run.
type Report struct {
	RunID     string
	Rows      int
	Users     int
	Flagged   int
	Detectors []engine.DetectorHit

	// TopReasons lists the most frequent reason texts of the run
	TopReasons []observability.Tally

	// Output describes where flagged rows were written
	Output string

	// ETag of the published output object, if any
	ETag string

	Duration time.Duration
}

// App runs the flagging job described by a config.
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	storage storage.ObjectStorage
	stats   *observability.DetectorStats
}

// New resolves and validates cfg and prepares the run directories. Object
// storage is only initialized when the config stages input or publishes
// output through it.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger.Named("app"),
		stats:  observability.NewDetectorStats(),
	}
	if cfg.UsesStorage() {
		store, err := newStorage(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
		a.storage = store
		a.logger.Info("storage initialized",
			zap.String("type", cfg.Storage.Type),
			zap.String("path", cfg.Storage.Path),
			zap.String("bucket", cfg.Storage.S3.Bucket))
	}
	return a, nil
}

// DetectorStats returns the detector tallies accumulated over every run of
// this app.
func (a *App) DetectorStats() *observability.DetectorStats {
	return a.stats
}

// Run executes one batch: stage input, read and validate, load policy,
// detect, write the flagged rows and publish them. Nothing is written when
// the input or policy is invalid.
func (a *App) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	id, err := uuid.NewV7()
	if err != nil {
		return nil, tgerrors.NewInternalError("failed to create run id", err)
	}
	runID := id.String()
	log := a.logger.With(zap.String("run_id", runID))
	metrics := observability.NewRunMetrics()

	ctx, span := observability.StartSpan(ctx, "txnguard.run", attribute.String("run_id", runID))
	report, err := a.run(ctx, runID, log, metrics)
	observability.EndSpan(span, err)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, err
	}

	report.Duration = time.Since(start)
	metrics.RunDuration.Set(report.Duration.Seconds())
	metrics.MarkSuccess(time.Now())
	if err := a.writeMetrics(metrics); err != nil {
		return nil, err
	}

	log.Info("run complete",
		zap.Int("rows", report.Rows),
		zap.Int("users", report.Users),
		zap.Int("flagged", report.Flagged),
		zap.String("output", report.Output),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (a *App) run(ctx context.Context, runID string, log *logging.Logger, metrics *observability.RunMetrics) (*Report, error) {
	report := &Report{RunID: runID}
	step := func(name string, fn func(ctx context.Context) error) error {
		return a.stage(ctx, log, metrics, name, fn)
	}

	var src ingest.Source
	if err := step(StageInput, func(ctx context.Context) error {
		var err error
		src, err = a.source(ctx, runID)
		return err
	}); err != nil {
		return nil, err
	}
	defer a.cleanupStaged(src, log)

	var txns []types.Transaction
	if err := step(StageRead, func(ctx context.Context) error {
		var err error
		txns, err = ingest.Load(ctx, src)
		return err
	}); err != nil {
		return nil, err
	}
	metrics.RowsIngested.Add(float64(len(txns)))
	log.Info("transactions ingested", zap.String("source", src.Describe()), zap.Int("rows", len(txns)))

	var params detector.Params
	if err := step(StagePolicy, func(context.Context) error {
		var err error
		params, err = a.params()
		return err
	}); err != nil {
		return nil, err
	}
	log.Info("policy loaded",
		zap.Int("blacklist", params.Blacklist.Len()),
		zap.Int("thresholds", params.Thresholds.Len()))

	var result *engine.Result
	if err := step(StageDetect, func(ctx context.Context) error {
		eng, err := engine.New(engine.Config{Params: params, Workers: a.cfg.Engine.Workers})
		if err != nil {
			return err
		}
		result, err = eng.Run(ctx, txns)
		return err
	}); err != nil {
		return nil, err
	}
	a.record(result, metrics, report)
	log.Info("detection finished",
		zap.Int("users", result.Stats.Users),
		zap.String("longest_user", result.Stats.LongestUser),
		zap.Int("longest_stream", result.Stats.LongestStream),
		zap.Time("from", result.Stats.From),
		zap.Time("to", result.Stats.To))
	for _, hit := range result.Stats.Detectors {
		log.Info("detector hits", zap.String("detector", hit.Name), zap.Int("hits", hit.Hits))
	}

	out, err := a.sink()
	if err != nil {
		return nil, err
	}
	if err := step(StageWrite, func(ctx context.Context) error {
		return out.Write(ctx, result.Flagged)
	}); err != nil {
		return nil, err
	}
	report.Output = out.Describe()
	log.Info("flagged transactions written", zap.String("output", report.Output), zap.Int("flagged", report.Flagged))

	if key := a.cfg.Output.ObjectKey; key != "" {
		if err := step(StagePublish, func(ctx context.Context) error {
			etag, err := a.storage.Upload(ctx, a.cfg.Output.Path, key)
			report.ETag = etag
			return err
		}); err != nil {
			return nil, err
		}
		log.Info("output published", zap.String("object_key", key), zap.String("etag", report.ETag))
	}

	return report, nil
}

// stage runs fn inside a span and records its duration.
func (a *App) stage(ctx context.Context, log *logging.Logger, metrics *observability.RunMetrics, name string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "txnguard."+name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	observability.EndSpan(span, err)
	metrics.ObserveStage(name, elapsed)
	log.Debug("stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	return err
}

// source builds the configured input. An input object key is checked for
// existence, then downloaded into the work dir under a run-unique name.
func (a *App) source(ctx context.Context, runID string) (ingest.Source, error) {
	in := a.cfg.Input
	switch in.Type {
	case config.TypeCSV:
		if in.ObjectKey == "" {
			return ingest.NewCSVSource(in.Path), nil
		}
		exists, err := a.storage.Exists(ctx, in.ObjectKey)
		if err != nil {
			return nil, tgerrors.NewStorageError(tgerrors.CodeDownloadFailed, "lookup of "+in.ObjectKey+" failed", err)
		}
		if !exists {
			return nil, storage.NotFound(in.ObjectKey)
		}
		staged := filepath.Join(a.cfg.WorkDir, "input", runID+"-"+filepath.Base(in.ObjectKey))
		if err := a.storage.Download(ctx, in.ObjectKey, staged); err != nil {
			return nil, err
		}
		return &stagedSource{CSVSource: ingest.NewCSVSource(staged)}, nil
	case config.TypeSQLite, config.TypePostgres:
		dialect, err := dbconn.ParseDialect(in.Type)
		if err != nil {
			return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "invalid input type", err)
		}
		return ingest.NewSQLSource(dialect, in.DSN, in.Query), nil
	default:
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "unsupported input type "+in.Type, nil)
	}
}

// stagedSource marks a CSV source read from a downloaded copy.
type stagedSource struct {
	*ingest.CSVSource
}

func (a *App) cleanupStaged(src ingest.Source, log *logging.Logger) {
	staged, ok := src.(*stagedSource)
	if !ok {
		return
	}
	if err := os.Remove(staged.Path); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove staged input", zap.String("path", staged.Path), zap.Error(err))
	}
}

// params builds detector parameters from the configured policy.
func (a *App) params() (detector.Params, error) {
	params := detector.DefaultParams()

	blacklist, err := policy.BuildBlacklist(a.cfg.Blacklist)
	if err != nil {
		return params, err
	}
	params.Blacklist = blacklist

	if a.cfg.ThresholdsPath != "" {
		thresholds, err := policy.LoadThresholds(a.cfg.ThresholdsPath)
		if err != nil {
			return params, err
		}
		params.Thresholds = thresholds
	}
	return params, nil
}

func (a *App) sink() (sink.Sink, error) {
	out := a.cfg.Output
	switch out.Type {
	case config.TypeCSV:
		return sink.NewCSVSink(out.Path, out.Compress), nil
	case config.TypeProtobuf:
		return sink.NewProtoSink(out.Path), nil
	case config.TypeSQLite, config.TypePostgres:
		dialect, err := dbconn.ParseDialect(out.Type)
		if err != nil {
			return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "invalid output type", err)
		}
		return sink.NewSQLSink(dialect, out.DSN, out.Table)
	default:
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "unsupported output type "+out.Type, nil)
	}
}

// record feeds the engine result into the report, the run metrics and the
// app's detector tallies.
func (a *App) record(result *engine.Result, metrics *observability.RunMetrics, report *Report) {
	st := result.Stats
	report.Rows = st.Rows
	report.Users = st.Users
	report.Flagged = st.Flagged
	report.Detectors = st.Detectors

	metrics.RowsFlagged.Add(float64(st.Flagged))
	metrics.Users.Set(float64(st.Users))

	runReasons := observability.NewDetectorStats()
	for _, hit := range st.Detectors {
		metrics.DetectorHits.WithLabelValues(hit.Name).Add(float64(hit.Hits))
		a.stats.RecordHits(hit.Name, hit.Hits)
	}
	for i := range result.Flagged {
		for _, r := range reason.Parse(result.Flagged[i].FraudReason).Reasons() {
			a.stats.RecordReason(r)
			runReasons.RecordReason(r)
		}
	}
	report.TopReasons = runReasons.TopReasons(5)
}

func (a *App) writeMetrics(metrics *observability.RunMetrics) error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return tgerrors.NewOutputError("failed to write metrics", err)
	}
	return nil
}

// newStorage initializes the configured object storage.
func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	var (
		store storage.ObjectStorage
		err   error
	)
	switch cfg.Type {
	case "local":
		store, err = storage.NewLocalStorage(cfg.Path)
	case "s3":
		s3Cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3Cfg.Region = cfg.S3.Region
		}
		if cfg.S3.Endpoint != "" {
			s3Cfg.Endpoint = cfg.S3.Endpoint
		}
		s3Cfg.UsePathStyle = cfg.S3.UsePathStyle
		store, err = storage.NewS3Storage(ctx, cfg.S3.Bucket, s3Cfg)
	default:
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "unsupported storage type "+cfg.Type, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

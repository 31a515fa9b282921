// Package engine runs the detector set over a batch of transactions and
// returns every row annotated plus the flagged subset.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/txnguard/txnguard/internal/detector"
	tgerrors "github.com/txnguard/txnguard/internal/errors"
	"github.com/txnguard/txnguard/internal/partition"
	"github.com/txnguard/txnguard/internal/reason"
	"github.com/txnguard/txnguard/pkg/types"
)

// Config holds engine configuration.
type Config struct {
	// Params configures the detector set
	Params detector.Params

	// Workers is the number of goroutines user streams are sharded over.
	// Output does not depend on it. Defaults to 1.
	Workers int
}

// DefaultConfig returns a single-worker engine with default detectors.
func DefaultConfig() Config {
	return Config{
		Params:  detector.DefaultParams(),
		Workers: 1,
	}
}

// DetectorHit is the number of transactions one detector flagged.
type DetectorHit struct {
	Name string
	Hits int
}

// Stats summarises one run.
type Stats struct {
	Rows    int
	Users   int
	Flagged int

	// LongestUser has the most transactions, LongestStream of them
	LongestUser   string
	LongestStream int

	// From and To bound the input timestamps; zero for an empty batch
	From time.Time
	To   time.Time

	// Detectors lists hit counts in application order
	Detectors []DetectorHit
}

// Result is the output of Run.
type Result struct {
	// Annotated holds every input row, in input order, with FraudReason set
	Annotated []types.Transaction

	// Flagged holds the rows with a non-empty FraudReason, in input order
	Flagged []types.Transaction

	Stats Stats
}

// Engine applies the detector set to transaction batches. It is safe for
// concurrent use; each Run works on its own copy of the input.
type Engine struct {
	config     Config
	router     *partition.Router
	aggregator *reason.Aggregator
}

// New validates config and builds an engine.
func New(config Config) (*Engine, error) {
	if config.Workers == 0 {
		config.Workers = 1
	}
	if config.Workers < 0 {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig,
			fmt.Sprintf("workers must be > 0, got %d", config.Workers), nil)
	}
	if err := config.Params.Validate(); err != nil {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "invalid detector parameters", err)
	}

	router, err := partition.NewRouter(config.Workers)
	if err != nil {
		return nil, tgerrors.NewConfigError(tgerrors.CodeInvalidConfig, "failed to create router", err)
	}

	return &Engine{
		config:     config,
		router:     router,
		aggregator: reason.NewAggregator(detector.Default(config.Params)...),
	}, nil
}

// Detectors returns the detector names in application order.
func (e *Engine) Detectors() []string {
	return detector.Names(e.aggregator.Detectors())
}

// Run annotates a copy of txns. Ordinals are reassigned to input positions.
// Existing FraudReason values are kept and extended without duplication, so
// running on a previous Result.Annotated yields the same strings.
func (e *Engine) Run(ctx context.Context, txns []types.Transaction) (*Result, error) {
	rows := types.Clone(txns)
	for i := range rows {
		rows[i].Ordinal = i
	}

	streams := e.router.RouteRows(rows)
	tracker := partition.NewStatsTracker()
	for _, s := range streams {
		tracker.Update(s)
	}
	shards := e.router.Shard(streams)
	shardHits := make([][]int, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			hits, err := e.runShard(gctx, shard)
			if err != nil {
				return err
			}
			shardHits[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flagged := Filter(rows)
	return &Result{
		Annotated: rows,
		Flagged:   flagged,
		Stats:     e.stats(tracker, len(flagged), shardHits),
	}, nil
}

// runShard annotates one shard's streams. Streams of different shards share
// no rows, so shards need no synchronisation.
func (e *Engine) runShard(ctx context.Context, streams []*partition.UserStream) ([]int, error) {
	total := make([]int, len(e.aggregator.Detectors()))
	for _, s := range streams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			return nil, tgerrors.Wrap(tgerrors.ErrCategoryInternal, tgerrors.CodeUnorderedInput,
				"user stream violates ordering", err)
		}
		for k, n := range e.aggregator.Apply(s) {
			total[k] += n
		}
	}
	return total, nil
}

func (e *Engine) stats(tracker *partition.StatsTracker, flagged int, shardHits [][]int) Stats {
	names := e.Detectors()
	st := Stats{
		Rows:      int(tracker.RowCount()),
		Users:     int(tracker.UserCount()),
		Flagged:   flagged,
		Detectors: make([]DetectorHit, len(names)),
	}
	st.LongestUser, st.LongestStream = tracker.LongestStream()
	if from, to, ok := tracker.Span(); ok {
		st.From, st.To = from, to
	}
	for k, name := range names {
		st.Detectors[k].Name = name
		for _, hits := range shardHits {
			if hits != nil {
				st.Detectors[k].Hits += hits[k]
			}
		}
	}
	return st
}

// Package runner farms independent search targets across a worker
// pool: one search per n value, up to W running at once. Searches
// share nothing but the persistence store (which serialises its own
// writes) and one atomic stop flag.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/subsetsum"
)

// Config parameterises a range run.
type Config struct {
	// StartN is the first target size. 0 resumes from the store's
	// LastN+1 (or 1 without a store).
	StartN int

	// MaxN is the last target size, inclusive. Required.
	MaxN int

	// Workers caps concurrent searches. 0 or less means 1.
	Workers int

	// FindAllOptimal enumerates and persists every optimal set.
	FindAllOptimal bool

	// FirstOnly stops each search at its first solution.
	FirstOnly bool

	// Mode selects the subset-sum strategy per search.
	Mode subsetsum.Mode

	// LogInterval throttles per-search progress reporting.
	LogInterval time.Duration

	// Stop cancels all searches cooperatively. Optional; context
	// cancellation is wired into it either way.
	Stop *atomic.Bool

	// Store persists results and answers skip/bound queries. Optional.
	Store store.Store

	// OnResult observes every completed (or skipped) search. Optional.
	OnResult func(result search.Result)

	// Logger receives run and per-search logs. Nil disables logging.
	Logger *slog.Logger
}

// Run executes searches for every n in [StartN, MaxN], at most
// Workers at a time, and blocks until all finish or the run is
// stopped. It returns the first error encountered (a store failure or
// a search that could not be created or run); interrupted searches
// are not errors.
func Run(ctx context.Context, cfg Config) error {
	if cfg.MaxN < 1 {
		return fmt.Errorf("runner: max n must be >= 1, got %d", cfg.MaxN)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	stop := cfg.Stop
	if stop == nil {
		stop = &atomic.Bool{}
	}

	startN := cfg.StartN
	if startN < 1 {
		startN = 1
		if cfg.Store != nil {
			last, err := cfg.Store.LastN(ctx)
			if err != nil {
				return fmt.Errorf("runner: resume point: %w", err)
			}
			startN = last + 1
		}
	}

	log.Info("range run started",
		"start_n", startN,
		"max_n", cfg.MaxN,
		"workers", workers,
	)

	// Progress lines from concurrent searches are throttled as a
	// group, so W workers do not multiply the log volume by W.
	progressLimit := rate.NewLimiter(rate.Every(time.Second), 1)

	// Caller cancellation flips the shared stop flag so running
	// searches unwind promptly. The errgroup context is deliberately
	// not hooked: Wait cancels it even on clean completion, which
	// would poison a caller-owned flag.
	defer context.AfterFunc(ctx, func() { stop.Store(true) })()

	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	for n := startN; n <= cfg.MaxN; n++ {
		if stop.Load() {
			break
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		n := n
		g.Go(func() error {
			defer sem.Release(1)
			return solveOne(gctx, cfg, n, stop, log, progressLimit)
		})
	}

	err := g.Wait()

	if stop.Load() {
		log.Warn("range run interrupted")
	} else {
		log.Info("range run completed", "max_n", cfg.MaxN)
	}

	return err
}

func solveOne(ctx context.Context, cfg Config, n int, stop *atomic.Bool, log *slog.Logger, progressLimit *rate.Limiter) error {
	if cfg.Store != nil {
		solved, err := cfg.Store.HasOptimal(ctx, n)
		if err != nil {
			return fmt.Errorf("runner: n=%d: %w", n, err)
		}
		if solved {
			log.Info("already solved, skipping", "n", n)
			if cfg.OnResult != nil {
				cfg.OnResult(search.Result{N: n, Status: search.StatusOptimal})
			}
			return nil
		}
	}

	scfg := search.Config{
		N:              n,
		FindAllOptimal: cfg.FindAllOptimal,
		FirstOnly:      cfg.FirstOnly,
		Mode:           cfg.Mode,
		LogInterval:    cfg.LogInterval,
		Stop:           stop,
		Logger:         log,
		OnProgress: func(stats search.Stats) {
			if !progressLimit.Allow() {
				return
			}
			log.Info("worker progress",
				"n", n,
				"nodes", stats.NodesExplored,
				"depth", stats.CurrentDepth,
				"best_max", stats.BestMax,
			)
		},
	}

	if cfg.Store != nil {
		bound, ok, err := cfg.Store.BestBound(ctx, n)
		if err != nil {
			return fmt.Errorf("runner: n=%d: %w", n, err)
		}
		if ok && bound < search.InitialBound(n) {
			log.Info("seeding bound from store", "n", n, "bound", bound)
			scfg.InitialBound = bound
		}
	}

	solver, err := search.New(scfg)
	if err != nil {
		return fmt.Errorf("runner: n=%d: %w", n, err)
	}

	var (
		result search.Result
		sets   [][]uint64
	)
	if cfg.FindAllOptimal {
		result, sets, err = solver.SolveAll()
	} else {
		result, err = solver.Solve()
	}
	if err != nil {
		return fmt.Errorf("runner: n=%d: %w", n, err)
	}

	if cfg.Store != nil && result.Status == search.StatusOptimal {
		if err := cfg.Store.SaveResult(ctx, &result); err != nil {
			return fmt.Errorf("runner: n=%d: save result: %w", n, err)
		}
		if cfg.FindAllOptimal && len(sets) > 0 {
			if err := cfg.Store.SaveOptimalSets(ctx, n, sets); err != nil {
				return fmt.Errorf("runner: n=%d: save optimal sets: %w", n, err)
			}
		}
	}

	if cfg.OnResult != nil {
		cfg.OnResult(result)
	}

	return nil
}

package sidongo

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hupe1980/sidongo/runner"
	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/subsetsum"
)

// Result is the outcome of one search run.
type Result = search.Result

// Stats is a point-in-time snapshot of search progress.
type Stats = search.Stats

// Solver is the high-level entry point: it wires the branch-and-bound
// core to persistence, logging and metrics.
//
// A Solver is safe for concurrent use; every Solve call runs on its
// own search state. Concurrent calls share only the store and the
// optional stop flag.
type Solver struct {
	opts options
}

// New creates a Solver.
//
//	s := sidongo.New(
//	    sidongo.WithStore(st),
//	    sidongo.WithLogLevel(slog.LevelInfo),
//	)
//	result, err := s.Solve(ctx, 8)
func New(optFns ...Option) *Solver {
	return &Solver{
		opts: applyOptions(optFns),
	}
}

// Validate reports whether all nonempty subsets of set have distinct
// sums, i.e. whether set is a valid Sidon/B₁ set in the subset-sum
// sense.
func Validate(set []uint64) bool {
	return subsetsum.IsSidonSet(set)
}

// InitialBound returns the default search bound for n: 2^(n-1)+1 for
// n ≥ 1, 1 for n = 0.
func InitialBound(n int) uint64 {
	return search.InitialBound(n)
}

// Solve searches for a size-n set minimising the maximum element.
//
// With a store attached, already-solved sizes return their stored
// record without searching, stored bounds seed the search, and an
// optimal outcome is written back.
func (s *Solver) Solve(ctx context.Context, n int) (search.Result, error) {
	result, _, err := s.solve(ctx, n, s.opts.findAllOptimal)
	return result, err
}

// SolveAll searches in enumerate-all mode and returns every optimal
// set, each exactly once, in traversal order.
func (s *Solver) SolveAll(ctx context.Context, n int) (search.Result, [][]uint64, error) {
	return s.solve(ctx, n, true)
}

func (s *Solver) solve(ctx context.Context, n int, findAll bool) (search.Result, [][]uint64, error) {
	if n < 1 {
		return search.Result{}, nil, &ErrInvalidN{N: n}
	}

	log := s.opts.logger

	if s.opts.store != nil {
		solved, err := s.opts.store.HasOptimal(ctx, n)
		if err != nil {
			return search.Result{}, nil, translateError(err)
		}
		if solved {
			log.LogSkip(n)
			return s.storedResult(ctx, n, findAll)
		}
	}

	stop := s.opts.stop
	if stop == nil {
		stop = &atomic.Bool{}
	}
	defer context.AfterFunc(ctx, func() { stop.Store(true) })()

	cfg := search.Config{
		N:              n,
		InitialBound:   s.opts.initialBound,
		FindAllOptimal: findAll,
		FirstOnly:      s.opts.firstOnly,
		Mode:           s.opts.mode,
		LogInterval:    s.opts.logInterval,
		Stop:           stop,
		OnProgress:     s.opts.onProgress,
		Logger:         log.Logger,
	}

	mc := s.opts.metricsCollector
	onSolution := s.opts.onSolution
	cfg.OnSolution = func(n int, max uint64, set []uint64) {
		mc.RecordSolution(n, max)
		if onSolution != nil {
			onSolution(n, max, set)
		}
	}

	if s.opts.store != nil {
		bound, ok, err := s.opts.store.BestBound(ctx, n)
		if err != nil {
			return search.Result{}, nil, translateError(err)
		}
		def := cfg.InitialBound
		if def == 0 {
			def = search.InitialBound(n)
		}
		if ok && bound < def {
			log.Info("seeding bound from store", "n", n, "bound", bound)
			cfg.InitialBound = bound
		}
	}

	solver, err := search.New(cfg)
	if err != nil {
		return search.Result{}, nil, err
	}

	var (
		result search.Result
		sets   [][]uint64
	)

	start := time.Now()
	if findAll {
		result, sets, err = solver.SolveAll()
	} else {
		result, err = solver.Solve()
	}
	mc.RecordSearch(n, result.NodesExplored, time.Since(start), err)
	log.LogSolve(&result, err)
	if err != nil {
		return result, nil, err
	}

	if s.opts.store != nil && result.Status == search.StatusOptimal {
		if err := s.persist(ctx, &result, sets, findAll); err != nil {
			return result, sets, err
		}
	}

	return result, sets, nil
}

// storedResult serves a Solve call for an already-solved n from the
// store.
func (s *Solver) storedResult(ctx context.Context, n int, findAll bool) (search.Result, [][]uint64, error) {
	result, err := s.opts.store.Result(ctx, n)
	if errors.Is(err, store.ErrNotFound) {
		// The solved index knows n but the record is gone; report the
		// status without a set rather than re-searching.
		return search.Result{N: n, Status: search.StatusOptimal}, nil, nil
	}
	if err != nil {
		return search.Result{}, nil, translateError(err)
	}

	var sets [][]uint64
	if findAll {
		sets, err = s.opts.store.OptimalSets(ctx, n)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return *result, nil, translateError(err)
		}
	}

	return *result, sets, nil
}

func (s *Solver) persist(ctx context.Context, result *search.Result, sets [][]uint64, findAll bool) error {
	log := s.opts.logger
	mc := s.opts.metricsCollector

	start := time.Now()
	err := s.opts.store.SaveResult(ctx, result)
	if err == nil && findAll && len(sets) > 0 {
		err = s.opts.store.SaveOptimalSets(ctx, result.N, sets)
	}

	elapsed := time.Since(start)
	mc.RecordSave(elapsed, err)
	log.LogSave(result.N, elapsed, err)

	return translateError(err)
}

// SolveRange searches every n in [startN, maxN] with up to workers
// concurrent searches, persisting results as they complete. startN 0
// resumes from the store's last solved size.
func (s *Solver) SolveRange(ctx context.Context, startN, maxN, workers int) error {
	mc := s.opts.metricsCollector

	return runner.Run(ctx, runner.Config{
		StartN:         startN,
		MaxN:           maxN,
		Workers:        workers,
		FindAllOptimal: s.opts.findAllOptimal,
		FirstOnly:      s.opts.firstOnly,
		Mode:           s.opts.mode,
		LogInterval:    s.opts.logInterval,
		Stop:           s.opts.stop,
		Store:          s.opts.store,
		Logger:         s.opts.logger.Logger,
		OnResult: func(result search.Result) {
			mc.RecordSearch(result.N, result.NodesExplored, result.ComputationTime, nil)
		},
	})
}

// Store returns the attached store, or nil.
func (s *Solver) Store() store.Store {
	return s.opts.store
}

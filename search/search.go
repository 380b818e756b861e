// Package search implements depth-first branch and bound for Sidon/B₁
// sets: sets of distinct positive integers whose nonempty subsets all
// have distinct sums. For each target size n it looks for a set
// minimising the maximum element, driving a subsetsum.Manager for
// incremental collision detection with exact rollback.
package search

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hupe1980/sidongo/subsetsum"
)

// DefaultLogInterval is how often progress is reported when the config
// does not say otherwise.
const DefaultLogInterval = 60 * time.Second

// Progress checks are mask-gated so the hot loop stays branch-cheap:
// every 1024 nodes early on, every 65536 once the search is clearly
// long-running.
const (
	progressMaskEarly     = 0x3FF
	progressMaskLate      = 0xFFFF
	progressMaskThreshold = 100_000
)

// InitialBound returns the default upper bound 2^(n-1)+1 for n ≥ 1,
// and 1 for n = 0. The powers of two {1, 2, 4, ..., 2^(n-1)} always
// form a valid set, so a maximum of 2^(n-1) is always achievable.
func InitialBound(n int) uint64 {
	if n == 0 {
		return 1
	}
	return (uint64(1) << uint(n-1)) + 1
}

// Config parameterises one search run.
type Config struct {
	// N is the target set size. Must be ≥ 1 and ≤ 62.
	N int

	// InitialBound caps candidates before the first solution is found.
	// 0 means InitialBound(N). Callers holding a better bound (e.g.
	// from a persisted earlier run) seed it here; the core never talks
	// to a store itself.
	InitialBound uint64

	// FindAllOptimal enumerates every optimal set instead of only the
	// best one.
	FindAllOptimal bool

	// FirstOnly stops after the first complete solution.
	FirstOnly bool

	// Mode selects the subset-sum strategy. ModeAuto resolves to fast
	// below subsetsum.FastModeMaxN, iterative at or above it.
	Mode subsetsum.Mode

	// LogInterval throttles progress reporting. 0 means
	// DefaultLogInterval.
	LogInterval time.Duration

	// Stop is an optional cooperative cancellation flag, observed at
	// every node and inside the candidate loop. The owner writes with
	// Store; the search only reads.
	Stop *atomic.Bool

	// OnSolution is invoked synchronously for every strictly improving
	// completion and, in FindAllOptimal mode, also for every completion
	// that ties the current best. It must return quickly; it runs on
	// the search goroutine. May be nil.
	OnSolution func(n int, max uint64, set []uint64)

	// OnProgress is invoked synchronously with periodic snapshots.
	// May be nil.
	OnProgress func(stats Stats)

	// Logger receives structured progress and solution logs. Nil
	// disables logging.
	Logger *slog.Logger
}

// Solver runs branch-and-bound searches. One Solver owns one manager;
// it is not safe for concurrent use, but independent Solvers are fully
// independent.
type Solver struct {
	cfg Config
	log *slog.Logger
	mgr subsetsum.Manager

	bestMax     uint64
	hasSolution bool
	best        []uint64
	optimal     [][]uint64

	stats Stats
	err   error

	// scratch for base-case snapshots
	current []uint64
}

// New creates a Solver for the given config.
//
// A fast-mode request with N ≥ subsetsum.FastModeMaxN is downgraded to
// iterative with a warning: the 2^N sum storage would not fit. N > 62
// is refused outright, since the iterative check cannot cover it.
func New(cfg Config) (*Solver, error) {
	if cfg.N < 1 {
		return nil, fmt.Errorf("search: n must be >= 1, got %d", cfg.N)
	}
	if cfg.N > 62 {
		return nil, fmt.Errorf("search: n=%d exceeds 62: %w", cfg.N, subsetsum.ErrSequenceTooLong)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	mode := cfg.Mode
	switch mode {
	case subsetsum.ModeAuto:
		if cfg.N < subsetsum.FastModeMaxN {
			mode = subsetsum.ModeFast
		} else {
			mode = subsetsum.ModeIterative
		}
	case subsetsum.ModeFast:
		if cfg.N >= subsetsum.FastModeMaxN {
			log.Warn("n too large for fast mode, falling back to iterative",
				"n", cfg.N,
				"fast_mode_max_n", subsetsum.FastModeMaxN,
			)
			mode = subsetsum.ModeIterative
		}
	}
	cfg.Mode = mode

	if cfg.LogInterval <= 0 {
		cfg.LogInterval = DefaultLogInterval
	}

	return &Solver{
		cfg: cfg,
		log: log,
		mgr: subsetsum.New(mode),
	}, nil
}

// Solve runs the search and returns its result. In FindAllOptimal
// mode the enumerated sets are available via OptimalSets afterwards.
//
// Solve never fails on an interrupted or fruitless search; those are
// reported through Result.Status. The only errors are usage errors
// surfaced by the manager.
func (s *Solver) Solve() (Result, error) {
	s.reset()

	bound := s.cfg.InitialBound
	if bound == 0 {
		bound = InitialBound(s.cfg.N)
	}
	s.bestMax = bound
	s.stats.BestMax = bound

	s.log.Info("search started",
		"n", s.cfg.N,
		"bound", bound,
		"mode", s.cfg.Mode.String(),
		"find_all", s.cfg.FindAllOptimal,
	)

	start := time.Now()
	s.stats.StartTime = start
	s.stats.LastLogTime = start

	if s.cfg.N == 1 {
		// Trivial: {1} is the unique optimum, no recursion needed.
		s.recordBest([]uint64{1}, 1)
		if s.cfg.FindAllOptimal {
			s.appendOptimal([]uint64{1})
		}
	} else {
		s.expand(0, 1, bound)
	}

	elapsed := time.Since(start)

	result := Result{
		N:               s.cfg.N,
		ComputationTime: elapsed,
		NodesExplored:   s.stats.NodesExplored,
		Timestamp:       time.Now(),
	}

	switch {
	case s.err != nil:
		return result, s.err
	case s.stopped():
		result.Status = StatusInterrupted
	case s.hasSolution:
		result.MaxValue = s.bestMax
		result.Set = append([]uint64(nil), s.best...)
		result.Status = StatusOptimal
	default:
		result.Status = StatusNoSolution
	}

	s.log.Info("search completed",
		"n", s.cfg.N,
		"status", result.Status.String(),
		"elapsed", elapsed,
		"nodes", result.NodesExplored,
		"best_max", s.bestMax,
	)

	return result, nil
}

// SolveAll runs the search in enumerate-all mode and returns both the
// result and every optimal set, each exactly once, in the lexicographic
// order of the traversal.
func (s *Solver) SolveAll() (Result, [][]uint64, error) {
	s.cfg.FindAllOptimal = true

	result, err := s.Solve()
	if err != nil {
		return result, nil, err
	}

	s.log.Info("optimal sets enumerated",
		"n", s.cfg.N,
		"count", len(s.optimal),
	)

	return result, s.OptimalSets(), nil
}

// OptimalSets returns the sets enumerated by the last FindAllOptimal
// run. The returned slices are copies.
func (s *Solver) OptimalSets() [][]uint64 {
	out := make([][]uint64, len(s.optimal))
	for i, set := range s.optimal {
		out[i] = append([]uint64(nil), set...)
	}
	return out
}

// Stats returns a snapshot of the current search statistics.
func (s *Solver) Stats() Stats {
	return s.stats
}

func (s *Solver) reset() {
	s.mgr.Reset()
	s.bestMax = 0
	s.hasSolution = false
	s.best = s.best[:0]
	s.optimal = s.optimal[:0]
	s.err = nil
	s.stats = Stats{}
}

func (s *Solver) stopped() bool {
	return s.cfg.Stop != nil && s.cfg.Stop.Load()
}

// exceedsBound reports whether a prospective maximum of v rules a
// branch out against the current best. Elements are strictly
// increasing, so the maximum of a completion is its last candidate:
// first-improvement mode prunes ties (v ≥ best cannot improve), while
// enumerate-all keeps them (only v > best is hopeless), otherwise no
// equal-max set could ever be enumerated after the first solution.
func (s *Solver) exceedsBound(v uint64) bool {
	if s.cfg.FindAllOptimal {
		return v > s.bestMax
	}
	return v >= s.bestMax
}

// expand is one node of the search tree: at depth d the manager holds
// d elements and candidates start at minNext. bound is the static cap
// used until the first solution exists.
func (s *Solver) expand(depth int, minNext, bound uint64) {
	if s.stopped() || s.err != nil {
		return
	}

	s.stats.NodesExplored++
	s.stats.CurrentDepth = uint32(depth)

	mask := uint64(progressMaskEarly)
	if s.stats.NodesExplored > progressMaskThreshold {
		mask = progressMaskLate
	}
	if s.stats.NodesExplored&mask == 0 {
		s.checkProgress()
	}

	// Base case: a complete set.
	if depth == s.cfg.N {
		s.complete()
		return
	}

	// Prune P1: the cheapest completion takes the consecutive values
	// minNext, minNext+1, ..., so its maximum is at least
	// minNext+remaining. If even that cannot beat the best, stop.
	remaining := uint64(s.cfg.N - depth - 1)
	if s.hasSolution && s.exceedsBound(minNext+remaining) {
		return
	}

	for candidate := minNext; ; candidate++ {
		if s.stopped() {
			return
		}

		if s.hasSolution {
			if s.exceedsBound(candidate) {
				break
			}
		} else if candidate >= bound {
			break
		}

		// Prune P2: candidate and everything after it already forces a
		// maximum past the bound.
		if s.hasSolution && s.exceedsBound(candidate+remaining) {
			break
		}

		ok, err := s.mgr.TryPush(candidate)
		if err != nil {
			s.err = err
			return
		}
		if !ok {
			continue
		}

		s.expand(depth+1, candidate+1, bound)
		s.mgr.Pop()

		if s.err != nil {
			return
		}
		if s.cfg.FirstOnly && s.hasSolution {
			return
		}
	}
}

// complete handles a depth-N assignment: compare its maximum against
// the best and record accordingly.
func (s *Solver) complete() {
	s.current = s.mgr.Snapshot(s.current[:0])

	var currentMax uint64
	for _, v := range s.current {
		if v > currentMax {
			currentMax = v
		}
	}

	if !s.cfg.FindAllOptimal {
		// First-improvement: strictly better only, ties are not
		// re-recorded.
		if currentMax < s.bestMax {
			s.recordBest(s.current, currentMax)
		}
		return
	}

	switch {
	case !s.hasSolution || currentMax < s.bestMax:
		s.optimal = s.optimal[:0]
		s.recordBest(s.current, currentMax)
		s.appendOptimal(s.current)
	case currentMax == s.bestMax:
		s.appendOptimal(s.current)
		s.stats.SolutionsFound++
		if s.cfg.OnSolution != nil {
			s.cfg.OnSolution(s.cfg.N, currentMax, append([]uint64(nil), s.current...))
		}
		if len(s.optimal) <= 10 {
			s.log.Info("another optimal set found",
				"n", s.cfg.N,
				"total", len(s.optimal),
			)
		}
	}
}

func (s *Solver) recordBest(set []uint64, max uint64) {
	s.best = append(s.best[:0], set...)
	s.bestMax = max
	s.hasSolution = true
	s.stats.BestMax = max
	s.stats.SolutionsFound++

	if s.cfg.OnSolution != nil {
		s.cfg.OnSolution(s.cfg.N, max, append([]uint64(nil), set...))
	}

	s.log.Info("solution found",
		"n", s.cfg.N,
		"max", max,
		"set", set,
	)
}

func (s *Solver) appendOptimal(set []uint64) {
	s.optimal = append(s.optimal, append([]uint64(nil), set...))
}

func (s *Solver) checkProgress() {
	now := time.Now()
	if now.Sub(s.stats.LastLogTime) < s.cfg.LogInterval {
		return
	}
	s.stats.LastLogTime = now

	s.log.Info("search progress",
		"n", s.cfg.N,
		"nodes", s.stats.NodesExplored,
		"elapsed", now.Sub(s.stats.StartTime),
		"depth", s.stats.CurrentDepth,
		"best_max", s.stats.BestMax,
	)

	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(s.stats)
	}
}

package sidongo

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/subsetsum"
)

type options struct {
	store            store.Store
	mode             subsetsum.Mode
	initialBound     uint64
	findAllOptimal   bool
	firstOnly        bool
	logInterval      time.Duration
	stop             *atomic.Bool
	onSolution       func(n int, max uint64, set []uint64)
	onProgress       func(stats search.Stats)
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Solver behavior.
//
// Options exist to avoid exploding the API surface with constructor
// variants; a zero-option Solver searches in memory with no
// persistence and no logging.
type Option func(*options)

// WithStore attaches a persistence store. Solved sizes are skipped,
// bounds are seeded from stored results, and optimal results are
// written back. Pass nil to disable persistence.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithMode pins the subset-sum strategy. The default, ModeAuto,
// resolves per target size: fast below subsetsum.FastModeMaxN,
// iterative at or above it.
func WithMode(mode subsetsum.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithInitialBound overrides the default upper bound 2^(n-1)+1.
// A store-provided bound still wins when it is smaller.
func WithInitialBound(bound uint64) Option {
	return func(o *options) {
		o.initialBound = bound
	}
}

// WithFindAllOptimal enumerates every optimal set instead of only the
// first one found.
func WithFindAllOptimal(findAll bool) Option {
	return func(o *options) {
		o.findAllOptimal = findAll
	}
}

// WithFirstOnly stops each search at its first complete solution,
// trading optimality for speed.
func WithFirstOnly(firstOnly bool) Option {
	return func(o *options) {
		o.firstOnly = firstOnly
	}
}

// WithLogInterval throttles progress reporting.
func WithLogInterval(interval time.Duration) Option {
	return func(o *options) {
		o.logInterval = interval
	}
}

// WithStopFlag shares a cooperative cancellation flag with the caller.
// Setting it interrupts running searches within one node expansion.
func WithStopFlag(stop *atomic.Bool) Option {
	return func(o *options) {
		o.stop = stop
	}
}

// WithSolutionCallback registers a callback invoked synchronously for
// every improving solution and, when enumerating all optima, for every
// solution that ties the best. It runs on the search goroutine and
// must return quickly.
func WithSolutionCallback(fn func(n int, max uint64, set []uint64)) Option {
	return func(o *options) {
		o.onSolution = fn
	}
}

// WithProgressCallback registers a callback receiving periodic search
// statistics snapshots.
func WithProgressCallback(fn func(stats search.Stats)) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := sidongo.NewJSONLogger(slog.LevelInfo)
//	s := sidongo.New(sidongo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		mode:             subsetsum.ModeAuto,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

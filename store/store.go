// Package store persists solved (n → best set) records.
//
// The core never talks to a store directly: the search consumes a
// bound value and emits a result record, and callers move those in and
// out of a Store. One interface, several backends: in-memory for
// tests, a local directory with journal+snapshot durability, BadgerDB
// for an embedded KV database, and S3/MinIO object storage for shared
// result pools.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/sidongo/search"
)

// ErrNotFound is returned when no record exists for the requested n.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("store: not found")

// Stats summarises a store's contents.
type Stats struct {
	// TotalResults counts stored result records.
	TotalResults int `json:"total_results"`
	// OptimalResults counts records with status OPTIMAL.
	OptimalResults int `json:"optimal_results"`
	// MaxNSolved is the largest n with an optimal record, 0 if none.
	MaxNSolved int `json:"max_n_solved"`
	// TotalComputationTime sums the computation time of all records.
	TotalComputationTime time.Duration `json:"total_computation_time"`
}

// Store is the persistence contract consumed by the solver shell.
//
// Implementations serialise their own writes; concurrent searches
// share one Store without external locking.
type Store interface {
	// HasOptimal reports whether n already has an optimal result.
	// Used to skip already-solved sizes.
	HasOptimal(ctx context.Context, n int) (bool, error)

	// BestBound returns the best known maximum for n, to seed the
	// search's initial bound. ok is false when nothing is known.
	BestBound(ctx context.Context, n int) (bound uint64, ok bool, err error)

	// SaveResult stores a completed search result. Called exactly once
	// per completed search.
	SaveResult(ctx context.Context, result *search.Result) error

	// SaveOptimalSets stores every optimal set for n. Duplicate sets
	// are kept once.
	SaveOptimalSets(ctx context.Context, n int, sets [][]uint64) error

	// Result returns the stored record for n, or ErrNotFound.
	Result(ctx context.Context, n int) (*search.Result, error)

	// OptimalSets returns the stored optimal sets for n, or
	// ErrNotFound when none exist.
	OptimalSets(ctx context.Context, n int) ([][]uint64, error)

	// LastN returns the largest n with an optimal record, 0 if none.
	// Range runs resume from LastN+1.
	LastN(ctx context.Context) (int, error)

	// Results returns all stored records ordered by n.
	Results(ctx context.Context) ([]search.Result, error)

	// Stats summarises the store's contents.
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources.
	Close() error
}

// SetKey renders a set as a canonical string, e.g. "{1, 2, 5, 11, 13}".
// Backends use it both for display and as the uniqueness key of
// optimal sets.
func SetKey(set []uint64) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteByte('}')
	return b.String()
}

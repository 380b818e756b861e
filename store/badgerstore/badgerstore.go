// Package badgerstore implements store.Store on BadgerDB, an embedded
// key/value database. It is the default durable backend for the CLI:
// low-latency local reads for the best-bound query, transactional
// writes for result records.
//
// Key layout:
//
//	r/<n>        result record (codec-encoded)
//	o/<n>/<set>  one optimal set per key; the canonical set string is
//	             the key, which makes duplicates impossible
//	i/solved     roaring bitmap of n values with an optimal record
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/sidongo/codec"
	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
)

const (
	resultPrefix  = "r/"
	optimalPrefix = "o/"
	solvedKey     = "i/solved"
)

func resultKey(n int) []byte {
	return []byte(fmt.Sprintf("%s%08d", resultPrefix, n))
}

func optimalKeyPrefix(n int) []byte {
	return []byte(fmt.Sprintf("%s%08d/", optimalPrefix, n))
}

// Options configures a BadgerStore.
type Options struct {
	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites makes every commit durable before returning.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. Nil silences them.
	Logger *slog.Logger

	// Codec encodes persisted records. Nil means codec.Default.
	Codec codec.Codec
}

// BadgerStore is a store.Store backed by BadgerDB.
type BadgerStore struct {
	db    *badger.DB
	codec codec.Codec
}

var _ store.Store = (*BadgerStore)(nil)

// Open opens (or creates) a BadgerDB-backed store at path. With
// opts.InMemory set, path is ignored.
func Open(path string, opts Options) (*BadgerStore, error) {
	c := opts.Codec
	if c == nil {
		c = codec.Default
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites)

	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	return &BadgerStore{db: db, codec: c}, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (s *BadgerStore) loadSolved(txn *badger.Txn) (*roaring.Bitmap, error) {
	bm := roaring.New()

	item, err := txn.Get([]byte(solvedKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return bm, nil
	}
	if err != nil {
		return nil, err
	}

	err = item.Value(func(val []byte) error {
		return bm.UnmarshalBinary(val)
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// HasOptimal implements store.Store.
func (s *BadgerStore) HasOptimal(_ context.Context, n int) (bool, error) {
	var has bool
	err := s.db.View(func(txn *badger.Txn) error {
		bm, err := s.loadSolved(txn)
		if err != nil {
			return err
		}
		has = bm.Contains(uint32(n))
		return nil
	})
	return has, err
}

// BestBound implements store.Store.
func (s *BadgerStore) BestBound(ctx context.Context, n int) (uint64, bool, error) {
	r, err := s.Result(ctx, n)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if r.MaxValue == 0 {
		return 0, false, nil
	}
	return r.MaxValue, true, nil
}

// SaveResult implements store.Store.
func (s *BadgerStore) SaveResult(_ context.Context, result *search.Result) error {
	data, err := s.codec.Marshal(result)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(resultKey(result.N), data); err != nil {
			return err
		}

		if result.Status != search.StatusOptimal {
			return nil
		}

		bm, err := s.loadSolved(txn)
		if err != nil {
			return err
		}
		if bm.CheckedAdd(uint32(result.N)) {
			raw, err := bm.MarshalBinary()
			if err != nil {
				return err
			}
			return txn.Set([]byte(solvedKey), raw)
		}
		return nil
	})
}

// SaveOptimalSets implements store.Store. The set's canonical string
// is part of the key, so re-saving the same set overwrites rather than
// duplicates.
func (s *BadgerStore) SaveOptimalSets(_ context.Context, n int, sets [][]uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := optimalKeyPrefix(n)
		for _, set := range sets {
			data, err := s.codec.Marshal(set)
			if err != nil {
				return err
			}
			key := append(append([]byte(nil), prefix...), store.SetKey(set)...)
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Result implements store.Store.
func (s *BadgerStore) Result(_ context.Context, n int) (*search.Result, error) {
	var r search.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(n))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return s.codec.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// OptimalSets implements store.Store.
func (s *BadgerStore) OptimalSets(_ context.Context, n int) ([][]uint64, error) {
	var sets [][]uint64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = optimalKeyPrefix(n)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var set []uint64
			err := it.Item().Value(func(val []byte) error {
				return s.codec.Unmarshal(val, &set)
			})
			if err != nil {
				return err
			}
			sets = append(sets, set)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, store.ErrNotFound
	}
	return sets, nil
}

// LastN implements store.Store.
func (s *BadgerStore) LastN(_ context.Context) (int, error) {
	var last int
	err := s.db.View(func(txn *badger.Txn) error {
		bm, err := s.loadSolved(txn)
		if err != nil {
			return err
		}
		if !bm.IsEmpty() {
			last = int(bm.Maximum())
		}
		return nil
	})
	return last, err
}

// Results implements store.Store.
func (s *BadgerStore) Results(_ context.Context) ([]search.Result, error) {
	var results []search.Result

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(resultPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var r search.Result
			err := it.Item().Value(func(val []byte) error {
				return s.codec.Unmarshal(val, &r)
			})
			if err != nil {
				return err
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Stats implements store.Store.
func (s *BadgerStore) Stats(ctx context.Context) (store.Stats, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return store.Stats{}, err
	}

	var st store.Stats
	st.TotalResults = len(results)
	for _, r := range results {
		if r.Status == search.StatusOptimal {
			st.OptimalResults++
			if r.N > st.MaxNSolved {
				st.MaxNSolved = r.N
			}
		}
		st.TotalComputationTime += r.ComputationTime
	}
	return st, nil
}

// Close implements store.Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

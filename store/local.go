package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/sidongo/codec"
	"github.com/hupe1980/sidongo/search"
)

const (
	localSnapshotName = "snapshot.zst"
	localJournalName  = "journal.lz4"

	// localSnapshotEvery compacts the journal into a snapshot after
	// this many appended entries.
	localSnapshotEvery = 64
)

// journalOp tags journal entries.
type journalOp string

const (
	opResult  journalOp = "result"
	opOptimal journalOp = "optimal"
)

// journalEntry is one logical write, encoded as a JSON line inside the
// LZ4-framed journal.
type journalEntry struct {
	Op     journalOp      `json:"op"`
	Result *search.Result `json:"result,omitempty"`
	N      int            `json:"n,omitempty"`
	Sets   [][]uint64     `json:"sets,omitempty"`
}

// localState is the snapshot payload.
type localState struct {
	Codec   string                `json:"codec"`
	Results map[int]search.Result `json:"results"`
	Optimal map[int][][]uint64    `json:"optimal"`
}

// LocalStore is a durable Store backed by a directory.
//
// Writes go to the in-memory state and to an append-only journal, an
// LZ4 frame flushed per entry. The journal is folded
// into a zstd-compressed snapshot every few entries and on Close;
// opening replays snapshot plus journal, so a crash loses at most the
// entry being written.
type LocalStore struct {
	mu    sync.Mutex
	dir   string
	codec codec.Codec
	state *MemoryStore

	journalFile *os.File
	journal     *lz4.Writer
	pending     int

	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

var _ Store = (*LocalStore)(nil)

// OpenLocal opens (or creates) a local store rooted at dir.
func OpenLocal(dir string, c codec.Codec) (*LocalStore, error) {
	if c == nil {
		c = codec.Default
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	s := &LocalStore{
		dir:   dir,
		codec: c,
		state: NewMemoryStore(),
		zenc:  zenc,
		zdec:  zdec,
	}

	if err := s.recover(); err != nil {
		return nil, err
	}

	// Fold the replayed journal into a fresh snapshot, so the journal
	// is always a single LZ4 frame owned by this process.
	if err := s.compactLocked(); err != nil {
		return nil, err
	}

	return s, nil
}

// recover loads the snapshot and replays the journal over it.
func (s *LocalStore) recover() error {
	if err := s.loadSnapshot(); err != nil {
		return err
	}
	return s.replayJournal()
}

func (s *LocalStore) loadSnapshot() error {
	data, err := os.ReadFile(filepath.Join(s.dir, localSnapshotName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read snapshot: %w", err)
	}

	raw, err := s.zdec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("store: decompress snapshot: %w", err)
	}

	var st localState
	if err := s.codec.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("store: decode snapshot: %w", err)
	}

	ctx := context.Background()
	for _, r := range st.Results {
		r := r
		_ = s.state.SaveResult(ctx, &r)
	}
	for n, sets := range st.Optimal {
		_ = s.state.SaveOptimalSets(ctx, n, sets)
	}

	return nil
}

func (s *LocalStore) replayJournal() error {
	f, err := os.Open(filepath.Join(s.dir, localJournalName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: open journal: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(lz4.NewReader(f))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var e journalEntry
		if err := s.codec.Unmarshal(scanner.Bytes(), &e); err != nil {
			// Torn tail entry from a crash mid-write: stop replaying.
			break
		}
		switch e.Op {
		case opResult:
			if e.Result != nil {
				_ = s.state.SaveResult(ctx, e.Result)
			}
		case opOptimal:
			_ = s.state.SaveOptimalSets(ctx, e.N, e.Sets)
		}
	}
	// A torn tail (crash mid-write leaves an unterminated LZ4 frame)
	// surfaces as a read error; everything before it has replayed.
	_ = scanner.Err()

	return nil
}

// appendLocked writes a journal entry and flushes it to disk.
func (s *LocalStore) appendLocked(e *journalEntry) error {
	data, err := s.codec.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if _, err := s.journal.Write(data); err != nil {
		return fmt.Errorf("store: journal write: %w", err)
	}
	if err := s.journal.Flush(); err != nil {
		return fmt.Errorf("store: journal flush: %w", err)
	}

	s.pending++
	if s.pending >= localSnapshotEvery {
		return s.compactLocked()
	}
	return nil
}

// compactLocked writes a full snapshot atomically and starts a fresh
// journal.
func (s *LocalStore) compactLocked() error {
	ctx := context.Background()

	st := localState{
		Codec:   s.codec.Name(),
		Results: make(map[int]search.Result),
		Optimal: make(map[int][][]uint64),
	}

	results, _ := s.state.Results(ctx)
	for _, r := range results {
		st.Results[r.N] = r
		if sets, err := s.state.OptimalSets(ctx, r.N); err == nil {
			st.Optimal[r.N] = sets
		}
	}

	raw, err := s.codec.Marshal(&st)
	if err != nil {
		return err
	}
	compressed := s.zenc.EncodeAll(raw, nil)

	path := filepath.Join(s.dir, localSnapshotName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: commit snapshot: %w", err)
	}

	// Snapshot durable: restart the journal.
	if s.journal != nil {
		_ = s.journal.Close()
	}
	if s.journalFile != nil {
		_ = s.journalFile.Close()
	}

	f, err := os.Create(filepath.Join(s.dir, localJournalName))
	if err != nil {
		return fmt.Errorf("store: create journal: %w", err)
	}
	s.journalFile = f
	s.journal = lz4.NewWriter(f)
	s.pending = 0

	return nil
}

// HasOptimal implements Store.
func (s *LocalStore) HasOptimal(ctx context.Context, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasOptimal(ctx, n)
}

// BestBound implements Store.
func (s *LocalStore) BestBound(ctx context.Context, n int) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BestBound(ctx, n)
}

// SaveResult implements Store.
func (s *LocalStore) SaveResult(ctx context.Context, result *search.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.SaveResult(ctx, result); err != nil {
		return err
	}
	return s.appendLocked(&journalEntry{Op: opResult, Result: result})
}

// SaveOptimalSets implements Store.
func (s *LocalStore) SaveOptimalSets(ctx context.Context, n int, sets [][]uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.SaveOptimalSets(ctx, n, sets); err != nil {
		return err
	}
	return s.appendLocked(&journalEntry{Op: opOptimal, N: n, Sets: sets})
}

// Result implements Store.
func (s *LocalStore) Result(ctx context.Context, n int) (*search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Result(ctx, n)
}

// OptimalSets implements Store.
func (s *LocalStore) OptimalSets(ctx context.Context, n int) ([][]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.OptimalSets(ctx, n)
}

// LastN implements Store.
func (s *LocalStore) LastN(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastN(ctx)
}

// Results implements Store.
func (s *LocalStore) Results(ctx context.Context) ([]search.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Results(ctx)
}

// Stats implements Store.
func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Stats(ctx)
}

// Close folds outstanding journal entries into a final snapshot and
// releases file handles.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.compactLocked()

	if s.journal != nil {
		_ = s.journal.Close()
		s.journal = nil
	}
	if s.journalFile != nil {
		_ = s.journalFile.Close()
		s.journalFile = nil
	}
	s.zenc.Close()
	s.zdec.Close()

	return err
}

// Package minio implements store.Store on MinIO and other
// S3-compatible object storage, for self-hosted result pools.
//
// Object layout matches the s3 package:
//
//	<prefix>/results/<n>.json
//	<prefix>/optimal/<n>.json
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/sidongo/codec"
	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
)

// Store is a store.Store backed by a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	codec  codec.Codec
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix prepends a root prefix to all object keys.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithCodec overrides the record codec.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// New creates a MinIO-backed store.
func New(client *minio.Client, bucket string, optFns ...Option) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		codec:  codec.Default,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func (s *Store) resultKey(n int) string {
	return path.Join(s.prefix, "results", fmt.Sprintf("%d.json", n))
}

func (s *Store) optimalKey(n int) string {
	return path.Join(s.prefix, "optimal", fmt.Sprintf("%d.json", n))
}

func isNotFound(err error) bool {
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return err
	}
	return s.codec.Unmarshal(data, v)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// HasOptimal implements store.Store.
func (s *Store) HasOptimal(ctx context.Context, n int) (bool, error) {
	var r search.Result
	err := s.get(ctx, s.resultKey(n), &r)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.Status == search.StatusOptimal, nil
}

// BestBound implements store.Store.
func (s *Store) BestBound(ctx context.Context, n int) (uint64, bool, error) {
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
func (s *Store) SaveResult(ctx context.Context, result *search.Result) error {
	return s.put(ctx, s.resultKey(result.N), result)
}

// SaveOptimalSets implements store.Store. Read-merge-rewrite with the
// canonical set string as dedup key.
func (s *Store) SaveOptimalSets(ctx context.Context, n int, sets [][]uint64) error {
	var existing [][]uint64
	err := s.get(ctx, s.optimalKey(n), &existing)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, set := range existing {
		seen[store.SetKey(set)] = struct{}{}
	}
	for _, set := range sets {
		key := store.SetKey(set)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		existing = append(existing, set)
	}

	return s.put(ctx, s.optimalKey(n), existing)
}

// Result implements store.Store.
func (s *Store) Result(ctx context.Context, n int) (*search.Result, error) {
	var r search.Result
	if err := s.get(ctx, s.resultKey(n), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// OptimalSets implements store.Store.
func (s *Store) OptimalSets(ctx context.Context, n int) ([][]uint64, error) {
	var sets [][]uint64
	if err := s.get(ctx, s.optimalKey(n), &sets); err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, store.ErrNotFound
	}
	return sets, nil
}

func (s *Store) listResultNs(ctx context.Context) ([]int, error) {
	fullPrefix := path.Join(s.prefix, "results") + "/"

	var ns []int
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    fullPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimSuffix(path.Base(obj.Key), ".json")
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns, nil
}

// LastN implements store.Store.
func (s *Store) LastN(ctx context.Context) (int, error) {
	ns, err := s.listResultNs(ctx)
	if err != nil {
		return 0, err
	}
	for i := len(ns) - 1; i >= 0; i-- {
		r, err := s.Result(ctx, ns[i])
		if err != nil {
			return 0, err
		}
		if r.Status == search.StatusOptimal {
			return ns[i], nil
		}
	}
	return 0, nil
}

// Results implements store.Store.
func (s *Store) Results(ctx context.Context) ([]search.Result, error) {
	ns, err := s.listResultNs(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(ns))
	for _, n := range ns {
		r, err := s.Result(ctx, n)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, nil
}

// Stats implements store.Store.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
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
func (s *Store) Close() error { return nil }

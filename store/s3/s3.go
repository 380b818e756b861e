// Package s3 implements store.Store on Amazon S3, with an optional
// DynamoDB table serving the latency-sensitive solved-index queries.
//
// Result records and optimal sets are stored as codec-encoded objects:
//
//	<prefix>/results/<n>.json
//	<prefix>/optimal/<n>.json
//
// S3 alone answers every query by reading or listing objects. When a
// DynamoDB client is attached, HasOptimal and LastN are served from
// the index table instead, which keeps the skip check and the resume
// point off the object store. BestBound always reads the result
// object from S3.
//
// Create the index table with:
//
//	aws dynamodb create-table \
//	  --table-name sidongo-solved \
//	  --attribute-definitions AttributeName=namespace,AttributeType=S AttributeName=n,AttributeType=N \
//	  --key-schema AttributeName=namespace,KeyType=HASH AttributeName=n,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package s3

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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/sidongo/codec"
	"github.com/hupe1980/sidongo/search"
	"github.com/hupe1980/sidongo/store"
)

// DDBClient is the subset of the DynamoDB API the index uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store is a store.Store backed by S3.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	codec    codec.Codec

	ddb       DDBClient
	tableName string
	namespace string
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

// WithSolvedIndex attaches a DynamoDB table as the solved index.
// namespace partitions the table so several result pools can share it;
// it defaults to the bucket/prefix pair.
func WithSolvedIndex(client DDBClient, tableName, namespace string) Option {
	return func(s *Store) {
		s.ddb = client
		s.tableName = tableName
		s.namespace = namespace
	}
}

// NewFromEnv creates an S3-backed store using the default AWS
// configuration chain (environment, shared config, instance role).
// tableName, when non-empty, attaches a DynamoDB solved index backed
// by the same credentials.
func NewFromEnv(ctx context.Context, bucket, tableName string, optFns ...Option) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 store: load aws config: %w", err)
	}

	if tableName != "" {
		optFns = append(optFns, WithSolvedIndex(dynamodb.NewFromConfig(cfg), tableName, ""))
	}

	return New(s3.NewFromConfig(cfg), bucket, optFns...), nil
}

// New creates an S3-backed store.
func New(client *s3.Client, bucket string, optFns ...Option) *Store {
	s := &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		codec:    codec.Default,
	}
	for _, fn := range optFns {
		fn(s)
	}
	if s.ddb != nil && s.namespace == "" {
		s.namespace = path.Join(s.bucket, s.prefix)
	}
	return s
}

func (s *Store) resultKey(n int) string {
	return path.Join(s.prefix, "results", fmt.Sprintf("%d.json", n))
}

func (s *Store) optimalKey(n int) string {
	return path.Join(s.prefix, "optimal", fmt.Sprintf("%d.json", n))
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return store.ErrNotFound
		}
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return store.ErrNotFound
		}
		return err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return err
	}
	return s.codec.Unmarshal(data, v)
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// HasOptimal implements store.Store.
func (s *Store) HasOptimal(ctx context.Context, n int) (bool, error) {
	if s.ddb != nil {
		out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]ddbtypes.AttributeValue{
				"namespace": &ddbtypes.AttributeValueMemberS{Value: s.namespace},
				"n":         &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(n)},
			},
		})
		if err != nil {
			return false, fmt.Errorf("s3 store: solved index get: %w", err)
		}
		return len(out.Item) > 0, nil
	}

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
	if err := s.put(ctx, s.resultKey(result.N), result); err != nil {
		return err
	}

	if s.ddb == nil || result.Status != search.StatusOptimal {
		return nil
	}

	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]ddbtypes.AttributeValue{
			"namespace": &ddbtypes.AttributeValueMemberS{Value: s.namespace},
			"n":         &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(result.N)},
			"max_value": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatUint(result.MaxValue, 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("s3 store: solved index put: %w", err)
	}
	return nil
}

// SaveOptimalSets implements store.Store. The object for n is read,
// merged and rewritten; the canonical set string is the dedup key.
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

// LastN implements store.Store.
func (s *Store) LastN(ctx context.Context) (int, error) {
	if s.ddb != nil {
		out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("#ns = :ns"),
			ExpressionAttributeNames: map[string]string{
				"#ns": "namespace",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":ns": &ddbtypes.AttributeValueMemberS{Value: s.namespace},
			},
			ScanIndexForward: aws.Bool(false),
			Limit:            aws.Int32(1),
		})
		if err != nil {
			return 0, fmt.Errorf("s3 store: solved index query: %w", err)
		}
		if len(out.Items) == 0 {
			return 0, nil
		}
		attr, ok := out.Items[0]["n"].(*ddbtypes.AttributeValueMemberN)
		if !ok {
			return 0, fmt.Errorf("s3 store: solved index: unexpected attribute type for n")
		}
		return strconv.Atoi(attr.Value)
	}

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

func (s *Store) listResultNs(ctx context.Context) ([]int, error) {
	fullPrefix := path.Join(s.prefix, "results") + "/"

	var ns []int
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimSuffix(path.Base(*obj.Key), ".json")
			n, err := strconv.Atoi(name)
			if err != nil {
				continue
			}
			ns = append(ns, n)
		}
	}
	sort.Ints(ns)
	return ns, nil
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

package netgateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	bolt "go.etcd.io/bbolt"
)

// StateStore persists the opaque state of applied stacks, keyed by stack
// name. Load returns "" for a stack that has no state.
type StateStore interface {
	Load(ctx context.Context, stack string) (string, error)
	Save(ctx context.Context, stack, state string) error
	Delete(ctx context.Context, stack string) error
	Close() error
}

// OpenStateStore opens the store named by uri: "s3://bucket/prefix" for an
// S3 store, or a file path (optionally "bolt://path") for a local one.
func OpenStateStore(ctx context.Context, uri, region string) (StateStore, error) {
	if rest, ok := strings.CutPrefix(uri, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("state store %q: missing bucket", uri)
		}
		return NewS3StateStore(ctx, bucket, prefix, region)
	}
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Scheme != "bolt" && len(u.Scheme) > 1 {
		return nil, fmt.Errorf("state store %q: unsupported scheme %q", uri, u.Scheme)
	}
	return OpenBoltStateStore(strings.TrimPrefix(uri, "bolt://"))
}

// stacksBucket holds one key per stack.
var stacksBucket = []byte("stacks")

// BoltStateStore keeps stack state in a local bbolt file.
type BoltStateStore struct {
	db *bolt.DB
}

// OpenBoltStateStore opens or creates the bbolt file at path.
func OpenBoltStateStore(path string) (*BoltStateStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stacksBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init state file %s: %w", path, err)
	}
	return &BoltStateStore{db: db}, nil
}

// Load returns the state of stack.
func (s *BoltStateStore) Load(_ context.Context, stack string) (string, error) {
	var state string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(stacksBucket).Get([]byte(stack)); v != nil {
			state = string(v)
		}
		return nil
	})
	return state, err
}

// Save replaces the state of stack. An empty state deletes it.
func (s *BoltStateStore) Save(ctx context.Context, stack, state string) error {
	if state == "" {
		return s.Delete(ctx, stack)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stacksBucket).Put([]byte(stack), []byte(state))
	})
}

// Delete removes the state of stack.
func (s *BoltStateStore) Delete(_ context.Context, stack string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stacksBucket).Delete([]byte(stack))
	})
}

// Close releases the file lock.
func (s *BoltStateStore) Close() error {
	return s.db.Close()
}

// s3API is the subset of the S3 client used by S3StateStore.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3StateStore keeps stack state as JSON objects under a bucket prefix.
type S3StateStore struct {
	client s3API
	bucket string
	prefix string
}

// NewS3StateStore creates an S3 store using the default AWS credential
// chain.
func NewS3StateStore(ctx context.Context, bucket, prefix, region string) (*S3StateStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3StateStore{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3StateStore) key(stack string) string {
	return path.Join(s.prefix, stack+".json")
}

// Load returns the state of stack.
func (s *S3StateStore) Load(ctx context.Context, stack string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(stack)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", nil
		}
		return "", fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key(stack), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key(stack), err)
	}
	return string(data), nil
}

// Save replaces the state of stack. An empty state deletes it.
func (s *S3StateStore) Save(ctx context.Context, stack, state string) error {
	if state == "" {
		return s.Delete(ctx, stack)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(stack)),
		Body:        bytes.NewReader([]byte(state)),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key(stack), err)
	}
	return nil
}

// Delete removes the state of stack.
func (s *S3StateStore) Delete(ctx context.Context, stack string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(stack)),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.bucket, s.key(stack), err)
	}
	return nil
}

// Close is a no-op.
func (s *S3StateStore) Close() error {
	return nil
}

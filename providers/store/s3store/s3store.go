// Package s3store keeps content blobs in an S3 bucket under their CID.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hengadev/medlock/internal/content"
	"github.com/hengadev/medlock/internal/types"
)

const contentType = "application/json"

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Store struct {
	client ObjectAPI
	bucket string
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix stores objects under prefix + cid.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store over an existing client.
func New(client ObjectAPI, bucket string, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: s3 client is required", types.ErrInvalidConfiguration)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", types.ErrInvalidConfiguration)
	}
	s := &Store{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromEnvironment loads the default AWS configuration (environment, shared
// config, instance role) and builds a store for bucket.
func NewFromEnvironment(ctx context.Context, bucket, region string, opts ...Option) (*Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config: %w", types.ErrStoreUnavailable, err)
	}
	return New(s3.NewFromConfig(cfg), bucket, opts...)
}

func (s *Store) key(id types.ContentID) string {
	return s.prefix + string(id)
}

func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func (s *Store) Put(ctx context.Context, data []byte) (types.ContentID, error) {
	id, err := content.Sum(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err == nil {
		return id, nil
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("%w: head %s: %w", types.ErrStoreUnavailable, id, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %w", types.ErrStoreUnavailable, id, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id types.ContentID) ([]byte, error) {
	if _, err := content.Parse(id); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: content %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", types.ErrStoreUnavailable, id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrStoreUnavailable, id, err)
	}
	if err := content.Verify(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

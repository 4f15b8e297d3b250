// Package s3origin implements an origin backed by an AWS S3 bucket.
package s3origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/boundcache/boundcache/internal/origin"
)

// Compile-time checks that Origin implements origin.Origin and origin.Lister.
var (
	_ origin.Origin = (*Origin)(nil)
	_ origin.Lister = (*Origin)(nil)
)

// API is the subset of the S3 client the origin uses.
type API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Compile-time check that the SDK client satisfies API.
var _ API = (*s3.Client)(nil)

// Origin serves objects from an S3 bucket.
type Origin struct {
	client   API
	bucket   string
	prefix   string
	region   string
	endpoint string
}

// Option configures an Origin.
type Option func(*Origin) error

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(o *Origin) error {
		o.prefix = strings.TrimSuffix(prefix, "/")
		if o.prefix != "" {
			o.prefix += "/"
		}
		return nil
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *Origin) error {
		if region == "" {
			return errors.New("s3origin: empty region")
		}
		o.region = region
		return nil
	}
}

// WithEndpoint sets a custom endpoint (for S3-compatible services like MinIO).
func WithEndpoint(endpoint string) Option {
	return func(o *Origin) error {
		o.endpoint = endpoint
		return nil
	}
}

// New creates a new S3 origin using the default AWS credential chain.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Origin, error) {
	o := &Origin{bucket: bucketName}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	o.client = s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
			so.UsePathStyle = true
		}
	})
	return o, nil
}

// NewWithClient creates an S3 origin around an existing client.
func NewWithClient(client API, bucketName string, opts ...Option) (*Origin, error) {
	o := &Origin{client: client, bucket: bucketName}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Stat returns metadata for name from a HEAD request.
func (o *Origin) Stat(ctx context.Context, name string) (origin.Info, error) {
	key, clean, err := o.objectKey(name)
	if err != nil {
		return origin.Info{}, err
	}

	out, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return origin.Info{}, origin.ErrNotFound
		}
		return origin.Info{}, fmt.Errorf("head %s: %w", key, err)
	}

	return origin.Info{
		Name:    clean,
		Size:    aws.ToInt64(out.ContentLength),
		ModTime: aws.ToTime(out.LastModified),
	}, nil
}

// Read returns the content of name.
func (o *Origin) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, _, err := o.objectKey(name)
	if err != nil {
		return nil, err
	}

	result, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, origin.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s body: %w", key, err)
	}
	return data, nil
}

// List returns the names of objects under prefix, relative to the origin
// prefix, following continuation tokens until the listing is complete.
func (o *Origin) List(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(o.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(o.prefix + strings.TrimPrefix(prefix, "/")),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", o.bucket, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), o.prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Close releases resources.
func (o *Origin) Close() error {
	// S3 client doesn't need explicit closing.
	return nil
}

// objectKey returns the full object key for name.
func (o *Origin) objectKey(name string) (key, clean string, err error) {
	clean, err = origin.Clean(name)
	if err != nil {
		return "", "", err
	}
	return o.prefix + clean, clean, nil
}

// isNotFound reports whether err is S3's answer for a missing key. HEAD
// requests carry no body, so they surface as NotFound rather than NoSuchKey.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

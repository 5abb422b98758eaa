package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Make sure *S3Lister satisfies BucketLister interface.
var _ BucketLister = (*S3Lister)(nil)

// Options configures the S3 client.
type Options struct {
	// Region is required; there is no default.
	Region string

	// Endpoint overrides the resolved S3 endpoint, e.g. for MinIO or LocalStack.
	Endpoint string

	// UsePathStyle addresses buckets as path segments instead of subdomains.
	UsePathStyle bool

	// Credentials overrides the default credential chain when non-nil.
	Credentials aws.CredentialsProvider

	// RetryMaxAttempts overrides the SDK default when positive.
	RetryMaxAttempts int
}

// NewS3Client builds an S3 client from the default AWS configuration chain
// (environment, shared config files, instance role) pinned to opts.Region.
func NewS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	if opts.Region == "" {
		return nil, errors.New("storage: region is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(opts.Credentials))
	}
	if opts.RetryMaxAttempts > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(opts.RetryMaxAttempts))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// S3API is the subset of *s3.Client used by S3Lister.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// S3Lister lists buckets with a single ListBuckets call.
type S3Lister struct {
	client S3API
}

// NewS3Lister wraps client. The client is shared by all requests.
func NewS3Lister(client S3API) *S3Lister {
	return &S3Lister{client: client}
}

// ListBucketNames implements BucketLister.
func (l *S3Lister) ListBucketNames(ctx context.Context) ([]string, error) {
	out, err := l.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

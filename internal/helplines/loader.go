package helplines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"
)

// Loader fetches a remote directory.
type Loader interface {
	Load(ctx context.Context) (Directory, error)
}

// FileLoader reads a JSON directory from disk.
type FileLoader struct {
	Path string
}

// Load implements Loader.
func (l FileLoader) Load(_ context.Context) (Directory, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("helplines: read %s: %w", l.Path, err)
	}
	return Parse(data)
}

// S3API is the subset of the S3 client used by S3Loader.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader reads a JSON directory object from S3, retrying transient failures
// with Fibonacci backoff.
type S3Loader struct {
	client     S3API
	bucket     string
	key        string
	maxRetries uint64
	baseDelay  time.Duration
}

// NewS3Loader creates a loader for s3://bucket/key.
func NewS3Loader(client S3API, bucket, key string) *S3Loader {
	if client == nil {
		panic("helplines: s3 client cannot be nil")
	}
	return &S3Loader{
		client:     client,
		bucket:     bucket,
		key:        key,
		maxRetries: 4,
		baseDelay:  500 * time.Millisecond,
	}
}

// WithBackoff overrides the retry policy.
func (l *S3Loader) WithBackoff(maxRetries uint64, baseDelay time.Duration) *S3Loader {
	l.maxRetries = maxRetries
	l.baseDelay = baseDelay
	return l
}

// Load implements Loader. Validation failures are not retried.
func (l *S3Loader) Load(ctx context.Context) (Directory, error) {
	var data []byte
	backoff := retry.WithMaxRetries(l.maxRetries, retry.NewFibonacci(l.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(l.key),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(fmt.Errorf("helplines: s3 get %s/%s: %w", l.bucket, l.key, err))
		}
		defer out.Body.Close()
		body, err := io.ReadAll(out.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("helplines: read s3 body: %w", err))
		}
		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

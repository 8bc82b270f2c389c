package template

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileSource reads a template-page file by its request path. Implementations
// decide what "path" means: a local document root, an S3 bucket prefix, or
// anything else a deployment wants to serve template pages from.
type FileSource interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// LocalFileSource serves template pages from a directory on disk.
type LocalFileSource struct {
	Root string
}

// ReadFile reads path relative to Root. path is cleaned and confined to
// Root; attempts to escape it (e.g. via "..") resolve to a path still
// inside Root rather than traversing out of it.
func (s LocalFileSource) ReadFile(_ context.Context, path string) ([]byte, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.Root, clean)
	return os.ReadFile(full)
}

// s3GetObjectAPI is the single S3 operation the template interpreter
// needs, narrowed from the full client so tests can supply a stub.
type s3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileSource serves template pages out of an S3 bucket, for deployments
// that keep their document root in object storage rather than on the
// container's local disk.
type S3FileSource struct {
	Client s3GetObjectAPI
	Bucket string
	Prefix string
}

// NewS3FileSource builds an S3FileSource from a concrete *s3.Client.
func NewS3FileSource(client *s3.Client, bucket, prefix string) *S3FileSource {
	return &S3FileSource{Client: client, Bucket: bucket, Prefix: prefix}
}

// NewS3Client resolves an S3 client from the default AWS credential chain.
// A non-empty region pins the client to it; a non-empty accessKey/secretKey
// pair replaces the chain with static credentials, for deployments that
// configure the container entirely through its own environment variables.
func NewS3Client(ctx context.Context, region, accessKey, secretKey string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("template: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// ReadFile fetches Prefix+path from Bucket.
func (s *S3FileSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	key := strings.TrimPrefix(s.Prefix+path, "/")

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("template: get object %s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

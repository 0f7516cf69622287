package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pipeops/healthoor/pkg/config"
)

// Compile-time interface check.
var _ Reader = (*s3Reader)(nil)

type s3Reader struct {
	client   *s3.Client
	bucket   string
	prefix   string
	manifest string
}

// NewS3Reader creates a Reader backed by S3-compatible storage.
func NewS3Reader(cfg *config.S3StorageConfig, manifest string) Reader {
	return &s3Reader{
		client:   newS3Client(cfg),
		bucket:   cfg.Bucket,
		prefix:   strings.TrimRight(cfg.Prefix, "/"),
		manifest: manifest,
	}
}

// GetManifest reads {prefix}/{manifest} from S3. Returns (nil, nil)
// when the key does not exist.
func (r *s3Reader) GetManifest(ctx context.Context) ([]byte, error) {
	return r.getObject(ctx, r.key(r.manifest))
}

// GetRunFile reads {prefix}/{filename} from S3. Returns (nil, nil)
// when the key does not exist.
func (r *s3Reader) GetRunFile(
	ctx context.Context, filename string,
) ([]byte, error) {
	return r.getObject(ctx, r.key(filename))
}

func (r *s3Reader) key(name string) string {
	if r.prefix == "" {
		return name
	}

	return r.prefix + "/" + name
}

func (r *s3Reader) getObject(
	ctx context.Context, key string,
) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting object %q: %w", key, err)
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}

	return data, nil
}

func isS3NotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	return strings.Contains(err.Error(), "NoSuchKey")
}

func newS3Client(cfg *config.S3StorageConfig) *s3.Client {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	return s3.New(s3.Options{}, opts...)
}

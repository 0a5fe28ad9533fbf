package blobstore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store is the blob store consumed by the pipeline: a flat key/value
// namespace with list and get operations.
type Store interface {
	// List returns all object keys under the given prefix.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Get returns the raw bytes of one object.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Store implements Store on top of an S3 bucket.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3-backed store using the default AWS credential
// chain (environment variables, shared config, instance role).
func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{client: s3.NewFromConfig(cfg)}, nil
}

// List returns all object keys under prefix, following pagination.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// Get downloads one object and returns its bytes.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return data, nil
}

// FilterMessageKeys keeps only keys with the .eml extension,
// case-insensitively.
func FilterMessageKeys(keys []string) []string {
	var out []string
	for _, key := range keys {
		if strings.ToLower(filepath.Ext(key)) == ".eml" {
			out = append(out, key)
		}
	}
	return out
}

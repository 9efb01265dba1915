// Package objectstore provides access to object storage. The Store
// interface is the only surface the conversion jobs see; the S3
// implementation is constructed once per invocation and injected, never
// reached through ambient globals.
package objectstore

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quarry-data/quarry/pkg/errors"
)

// Store abstracts bucket-scoped object access
type Store interface {
	// Get downloads an entire object into memory
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put uploads an object, overwriting any prior version
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	// List returns up to max object keys under prefix, in listing order
	List(ctx context.Context, bucket, prefix string, max int) ([]string, error)
}

// S3Store implements Store against AWS S3
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Store loads the default AWS configuration for the given region and
// builds an S3-backed store.
func NewS3Store(ctx context.Context, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	return NewS3StoreFromClient(s3.NewFromConfig(cfg)), nil
}

// NewS3StoreFromClient wraps an existing S3 client. Useful for custom
// endpoints and tests.
func NewS3StoreFromClient(client *s3.Client) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// Get downloads an entire object into memory
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to get object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to read object body").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}

	return data, nil
}

// Put uploads an object through the transfer manager
func (s *S3Store) Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return errors.Wrap(err, errors.ErrorTypeWrite, "failed to upload object").
			WithDetail("bucket", bucket).
			WithDetail("key", key)
	}
	return nil
}

// List returns up to max object keys under prefix
func (s *S3Store) List(ctx context.Context, bucket, prefix string, max int) ([]string, error) {
	keys := make([]string, 0, max)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() && len(keys) < max {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeRead, "failed to list objects").
				WithDetail("bucket", bucket).
				WithDetail("prefix", prefix)
		}
		for _, obj := range page.Contents {
			if len(keys) == max {
				break
			}
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Store persists blobs in an S3 bucket. Used in production.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
	logger zerolog.Logger
}

type S3StoreParams struct {
	Bucket string
	Region string
	Logger zerolog.Logger
}

// NewS3Store creates an S3-backed blob store using the default AWS
// credential chain
func NewS3Store(ctx context.Context, params S3StoreParams) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(params.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: params.Bucket,
		region: params.Region,
		logger: params.Logger.With().Str("component", "s3_store").Logger(),
	}, nil
}

// Put uploads the blob and returns its public URL
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Uploaded blob to S3")
	return s.URLFor(key), nil
}

// Delete removes the blob from the bucket
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

// URLFor returns the public URL for a stored key
func (s *S3Store) URLFor(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

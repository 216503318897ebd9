package repositories

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Repository stores rendered page snapshots.
type S3Repository struct {
	client *s3.Client
}

func NewS3Repository(cfg aws.Config, optFns ...func(*s3.Options)) *S3Repository {
	return &S3Repository{
		client: s3.NewFromConfig(cfg, optFns...),
	}
}

func (r *S3Repository) UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

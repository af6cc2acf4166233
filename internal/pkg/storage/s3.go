package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/tubtip/tubtip/internal/pkg/config"
	"github.com/tubtip/tubtip/internal/pkg/logger"
)

const immutableCacheControl = "public, max-age=31536000, immutable"

// S3Store keeps assets in an S3 bucket or an S3-compatible endpoint.
type S3Store struct {
	client *s3.Client
	cfg    config.S3Config
	log    zerolog.Logger
}

// NewS3Store builds the client from static credentials when they are set and
// the default AWS credential chain otherwise.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		cfg:    cfg,
		log:    logger.WithComponent("storage"),
	}, nil
}

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		CacheControl:  aws.String(immutableCacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	s.log.Debug().Str("key", key).Int("size", len(body)).Msg("object uploaded")
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", s.cfg.Bucket, key, err)
	}
	s.log.Debug().Str("key", key).Msg("object deleted")
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	return PublicURL(s.cfg, key)
}

// PublicURL derives the public URL of key from the bucket settings.
func PublicURL(cfg config.S3Config, key string) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, key)
}

// Package storage wraps S3-compatible object storage for pitch assets.
// Clients upload directly against presigned URLs; the API never proxies
// video bytes.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config contains credentials and bucket settings for the object store.
type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS default for S3-compatible stores (R2, MinIO).
	Endpoint      string
	PresignExpiry time.Duration
}

// Service issues presigned upload slots and resolves public URLs.
type Service struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	baseURL string
	expiry  time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs an S3-backed storage service.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket must be provided")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := strings.TrimSuffix(cfg.Endpoint, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	} else {
		baseURL = fmt.Sprintf("%s/%s", baseURL, cfg.Bucket)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Service{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		expiry:  expiry,
		logger:  logger.With().Str("component", "storage").Logger(),
		now:     time.Now,
	}, nil
}

// PresignUpload returns a presigned PUT URL for the given object key plus the
// moment the URL stops working.
func (s *Service) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign upload: %w", err)
	}
	return request.URL, s.now().Add(s.expiry), nil
}

// PresignDownload returns a presigned GET URL for a stored object.
func (s *Service) PresignDownload(ctx context.Context, key string) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return request.URL, nil
}

// PublicURL resolves the canonical URL of a stored object.
func (s *Service) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, strings.TrimPrefix(key, "/"))
}

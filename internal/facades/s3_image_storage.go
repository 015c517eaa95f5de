package facades

//go:generate mockgen -source=s3_image_storage.go -destination=mock_s3_image_storage.go -package=facades

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
)

// S3Client is the subset of the S3 API used for images.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config describes how to reach the bucket.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	CustomDomain string // public host serving the bucket, e.g. a CDN
	Endpoint     string // S3-compatible server such as MinIO
}

// NewS3Client builds an S3 client from cfg. Static credentials are used when
// an access key is set, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3ImageStorage keeps recipe images in an S3 bucket and references them by absolute URL.
type S3ImageStorage struct {
	client  S3Client
	bucket  string
	baseURL string
}

// NewS3ImageStorage creates an image storage for the bucket described by cfg.
func NewS3ImageStorage(client S3Client, cfg S3Config) *S3ImageStorage {
	var baseURL string
	switch {
	case cfg.CustomDomain != "":
		baseURL = "https://" + strings.TrimSuffix(cfg.CustomDomain, "/")
	case cfg.Endpoint != "":
		baseURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3ImageStorage{client: client, bucket: cfg.Bucket, baseURL: baseURL}
}

// Save uploads data and returns the object's public URL.
func (s *S3ImageStorage) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := ObjectName(name, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("inline"),
	})
	if err != nil {
		logger.Log.Errorw("failed to upload image to S3", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	logger.Log.Infow("image uploaded to S3", "bucket", s.bucket, "key", key, "size", len(data))

	return s.URL(key), nil
}

// Delete removes the object behind ref, which may be a URL or a bare key.
func (s *S3ImageStorage) Delete(ctx context.Context, ref string) error {
	key := s.key(ref)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Log.Errorw("failed to delete image from S3", "bucket", s.bucket, "key", key, "error", err)
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	logger.Log.Infow("image deleted from S3", "bucket", s.bucket, "key", key)
	return nil
}

// URL returns ref unchanged when it is already absolute, otherwise the URL of key ref.
func (s *S3ImageStorage) URL(ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	return s.baseURL + "/" + strings.TrimPrefix(ref, "/")
}

func (s *S3ImageStorage) key(ref string) string {
	if strings.HasPrefix(ref, s.baseURL+"/") {
		return strings.TrimPrefix(ref, s.baseURL+"/")
	}
	if i := strings.Index(ref, "://"); i >= 0 {
		rest := ref[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			return rest[j+1:]
		}
	}
	return strings.TrimPrefix(ref, "/")
}

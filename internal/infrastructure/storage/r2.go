package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"storyforge-api/internal/config"
)

// R2Store Cloudflare R2（S3 兼容）存储
type R2Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewR2Store 创建 R2 存储
func NewR2Store(ctx context.Context, cfg *config.R2Config) (*R2Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("r2 bucket is required")
	}
	if cfg.PublicURL == "" {
		return nil, errors.New("r2 public_url is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("r2 account_id or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{client: client, bucket: cfg.Bucket, publicURL: cfg.PublicURL}, nil
}

// Name 后端名称
func (s *R2Store) Name() string {
	return "r2"
}

// Put 上传对象
func (s *R2Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "storage.R2Store.Put")
	defer span.End()

	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return joinURL(s.publicURL, key), nil
}

// Get 下载对象
func (s *R2Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage.R2Store.Get")
	defer span.End()

	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// KeyFromURL 将 URL 还原为对象键
func (s *R2Store) KeyFromURL(url string) (string, bool) {
	return trimURL(s.publicURL, url)
}

package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Backend.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config selects a bucket on AWS or an S3-compatible endpoint.
type S3Config struct {
	Bucket    string `json:"bucket" toml:"bucket"`
	Region    string `json:"region" toml:"region"`
	Prefix    string `json:"prefix" toml:"prefix"`
	Endpoint  string `json:"endpoint" toml:"endpoint"`
	AccessKey string `json:"access_key" toml:"access_key"`
	SecretKey string `json:"secret_key" toml:"secret_key"`
}

// S3Backend shares cached responses between agents through object storage.
// Each entry is one JSON object under <prefix><region>/<sha256(key)>.
type S3Backend struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Client builds an s3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Backend(client S3API, bucket, prefix string) (*S3Backend, error) {
	if bucket == "" {
		return nil, errors.New("s3 cache bucket name is required")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

func (b *S3Backend) objectKey(region, key string) string {
	sum := sha256.Sum256([]byte(key))
	return b.prefix + region + "/" + hex.EncodeToString(sum[:])
}

func (b *S3Backend) Get(ctx context.Context, region, key string) (*Entry, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(region, key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to load cache entry from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 response: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &e, nil
}

func (b *S3Backend) Put(ctx context.Context, region, key string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(region, key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry in S3: %w", err)
	}
	return nil
}

func (b *S3Backend) Delete(ctx context.Context, region, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(region, key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete cache entry from S3: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

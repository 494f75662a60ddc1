// internal/publish/publisher.go
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Publisher uploads finished report artifacts.
type Publisher interface {
	// Publish uploads every file in paths, keyed by its location relative to
	// baseDir, and returns the object keys in order.
	Publish(ctx context.Context, baseDir string, paths []string) ([]string, error)
}

// NopPublisher keeps artifacts local.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []string) ([]string, error) {
	return nil, nil
}

// Config describes an S3-compatible destination.
type Config struct {
	Bucket       string  `yaml:"bucket"`
	Prefix       string  `yaml:"prefix"`
	Endpoint     string  `yaml:"endpoint"`
	Region       string  `yaml:"region"`
	AccessKey    string  `yaml:"access_key"`
	SecretKey    string  `yaml:"secret_key"`
	UsePathStyle bool    `yaml:"use_path_style"`
	RatePerSec   float64 `yaml:"rate_per_sec"` // uploads per second, 0 for unlimited
}

// Enabled reports whether a destination bucket is set.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// Validate checks the destination settings.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("publish: access key and secret key must be set together")
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("publish: rate_per_sec must not be negative")
	}
	return nil
}

// putObjectAPI is the part of the S3 client the publisher needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads artifacts to an S3-compatible bucket.
type S3Publisher struct {
	bucket  string
	prefix  string
	client  putObjectAPI
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New returns a NopPublisher when no bucket is configured.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return NopPublisher{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("publish: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("s3 publisher initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", region),
	)

	return newS3Publisher(cfg, client, logger), nil
}

func newS3Publisher(cfg Config, client putObjectAPI, logger *zap.Logger) *S3Publisher {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &S3Publisher{
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Publish uploads files one at a time and stops at the first failure.
func (p *S3Publisher) Publish(ctx context.Context, baseDir string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, file := range paths {
		key, err := p.objectKey(baseDir, file)
		if err != nil {
			return keys, err
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return keys, fmt.Errorf("publish: %s: %w", key, err)
		}
		if err := p.put(ctx, key, file); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *S3Publisher) put(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("publish: open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return fmt.Errorf("publish put %s/%s: %w", p.bucket, key, err)
	}

	p.logger.Debug("artifact published",
		zap.String("bucket", p.bucket),
		zap.String("key", key),
	)
	return nil
}

func (p *S3Publisher) objectKey(baseDir, file string) (string, error) {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	rel = filepath.ToSlash(rel)
	if p.prefix == "" {
		return rel, nil
	}
	return path.Join(p.prefix, rel), nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	case ".prom":
		return "text/plain; version=0.0.4"
	default:
		return "text/plain; charset=utf-8"
	}
}

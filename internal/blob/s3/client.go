// Package s3blob archives finished game snapshots to an S3-compatible
// object store (AWS S3, MinIO, Cloudflare R2).
package s3blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig holds the object-store connection settings. Endpoint stays
// empty for standard AWS S3; compatible providers need it plus, usually,
// ForcePathStyle.
type ClientConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

// Client wraps the AWS SDK client together with the archive bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds an S3 client with static credentials.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	switch {
	case cfg.Bucket == "":
		return nil, errors.New("s3blob: bucket name is required")
	case cfg.Region == "":
		return nil, errors.New("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Client{s3: client, bucket: cfg.Bucket}, nil
}

// Health verifies connectivity and bucket permissions via HeadBucket.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil {
		return fmt.Errorf("s3blob: head bucket %s: %w", c.bucket, err)
	}
	return nil
}

// Close exists for wiring symmetry; the SDK's HTTP client needs no
// teardown.
func (c *Client) Close() error { return nil }

// S3 returns the underlying AWS SDK client.
func (c *Client) S3() *s3.Client { return c.s3 }

// Bucket returns the configured archive bucket.
func (c *Client) Bucket() string { return c.bucket }

// withScheme prepends http(s):// to a bare host endpoint.
func withScheme(endpoint string, useSSL bool) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

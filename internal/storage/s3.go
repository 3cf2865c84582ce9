// Package storage archives JSON documents in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"annotation-judge/internal/config"
)

// Key prefixes.
const (
	ImportsPrefix = "imports"
	ReportsPrefix = "reports"
)

type Client struct {
	s3     *s3.Client
	bucket string
}

// New connects to the configured endpoint with static credentials.
func New(ctx context.Context, cfg config.Storage) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Client{s3: client, bucket: cfg.Bucket}, nil
}

// ArchiveImport stores a raw import payload under a fresh key.
func (c *Client) ArchiveImport(ctx context.Context, v any) (string, error) {
	return c.PutJSON(ctx, fmt.Sprintf("%s/%s.json", ImportsPrefix, uuid.NewString()), v)
}

// ArchiveReport stores a run summary keyed by its run id.
func (c *Client) ArchiveReport(ctx context.Context, runID string, v any) (string, error) {
	return c.PutJSON(ctx, fmt.Sprintf("%s/%s.json", ReportsPrefix, runID), v)
}

// PutJSON writes v at key and returns its s3:// reference.
func (c *Client) PutJSON(ctx context.Context, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	ref := fmt.Sprintf("s3://%s/%s", c.bucket, key)
	clog.FromContext(ctx).With("ref", ref).Infof("archived %d bytes", len(b))
	return ref, nil
}

func parseS3Ref(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}

// GetJSON decodes the object at ref into v.
func (c *Client) GetJSON(ctx context.Context, ref string, v any) error {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", ref, err)
	}
	defer out.Body.Close()
	if err := json.NewDecoder(out.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", ref, err)
	}
	return nil
}

// Package storage resolves item image references. Absolute URLs are served
// as-is; anything else is an object key in an S3-compatible bucket and is
// exchanged for a short-lived presigned GET URL.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/cartkeeper/internal/server/config"
)

// PresignTTL is the lifetime of a presigned image URL.
const PresignTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// IsAbsoluteURL reports whether ref already points at an http(s) resource.
func IsAbsoluteURL(ref string) bool {
	l := strings.ToLower(ref)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Passthrough returns every reference unchanged.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}

// S3Resolver presigns object keys against one bucket.
type S3Resolver struct {
	bucket  string
	presign *s3.PresignClient
}

// NewS3Resolver builds the S3 client once from cfg.
func NewS3Resolver(ctx context.Context, cfg *config.Config) (*S3Resolver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			// MinIO and friends
			o.UsePathStyle = true
		}
	})

	return &S3Resolver{bucket: cfg.S3Bucket, presign: newS3PresignClient(client)}, nil
}

func (r *S3Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	if ref == "" || IsAbsoluteURL(ref) {
		return ref, nil
	}

	key := strings.TrimPrefix(ref, "/")
	req, err := presignGetObject(r.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// Resolver is implemented by Passthrough and S3Resolver.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// NewResolver picks the S3 resolver when a bucket is configured.
func NewResolver(ctx context.Context, cfg *config.Config) (Resolver, error) {
	if cfg.S3Bucket == "" {
		return Passthrough{}, nil
	}
	return NewS3Resolver(ctx, cfg)
}

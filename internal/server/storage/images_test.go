package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/cartkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s3Config() *config.Config {
	return &config.Config{
		S3Region:       "us-east-1",
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3Bucket:       "cartkeeper",
		S3BaseEndpoint: "http://127.0.0.1:9000",
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	assert.True(t, IsAbsoluteURL("https://cdn.example.com/a.png"))
	assert.True(t, IsAbsoluteURL("HTTP://cdn.example.com/a.png"))
	assert.False(t, IsAbsoluteURL("products/a.png"))
	assert.False(t, IsAbsoluteURL("ftp://x/a.png"))
}

func TestPassthrough(t *testing.T) {
	got, err := Passthrough{}.Resolve(context.Background(), "products/a.png")
	require.NoError(t, err)
	assert.Equal(t, "products/a.png", got)
}

func TestNewResolver_NoBucket(t *testing.T) {
	r, err := NewResolver(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.IsType(t, Passthrough{}, r)
}

func TestNewS3Resolver_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatalf("static credentials not applied")
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatalf("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}

	r, err := NewS3Resolver(context.Background(), s3Config())
	require.NoError(t, err)
	assert.Equal(t, "cartkeeper", r.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Resolver_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Resolver(context.Background(), s3Config())
	assert.EqualError(t, err, "no creds")
}

func TestS3Resolver_Resolve(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	var gotBucket, gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = *in.Bucket, *in.Key
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != 15*time.Minute {
			t.Fatalf("unexpected expiry: %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/cartkeeper/" + *in.Key + "?X-Amz-Signature=sig", Method: http.MethodGet}, nil
	}

	r := &S3Resolver{bucket: "cartkeeper", presign: &s3.PresignClient{}}

	got, err := r.Resolve(context.Background(), "/products/mug.png")
	require.NoError(t, err)
	assert.Equal(t, "cartkeeper", gotBucket)
	assert.Equal(t, "products/mug.png", gotKey)
	assert.True(t, strings.Contains(got, "X-Amz-Signature"))

	got, err = r.Resolve(context.Background(), "https://cdn.example.com/pen.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pen.png", got)
}

func TestS3Resolver_ResolveError(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign failed")
	}

	r := &S3Resolver{bucket: "cartkeeper", presign: &s3.PresignClient{}}
	_, err := r.Resolve(context.Background(), "products/mug.png")
	assert.EqualError(t, err, "presign failed")
}

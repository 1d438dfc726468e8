package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"soulspark/internal/observability"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store persists background images and returns a reference usable as a post background.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Backend() string
}

// DataURLStore inlines images as data URLs. It keeps nothing server-side.
type DataURLStore struct{}

func (DataURLStore) Backend() string { return "inline" }

func (DataURLStore) Put(_ context.Context, _ string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	observability.MediaUploads.WithLabelValues("inline").Inc()
	return DataURL(contentType, data), nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// MinioOptions configures an S3-compatible object store.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	PublicURL string
	UseSSL    bool
}

// MinioStore writes images to an S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the bucket, creating it when missing.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	endpoint := stripScheme(opts.Endpoint)

	var creds *credentials.Credentials
	if opts.AccessKey == "" || opts.SecretKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &MinioStore{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: PublicBaseURL(endpoint, opts.Bucket, opts.PublicURL, opts.UseSSL),
	}, nil
}

func (s *MinioStore) Backend() string { return "s3" }

func (s *MinioStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	observability.MediaUploads.WithLabelValues("s3").Inc()
	return s.publicURL + "/" + name, nil
}

// PublicBaseURL is the URL prefix objects are served from. An explicit
// publicURL wins; otherwise a virtual-hosted bucket URL is derived.
func PublicBaseURL(endpoint, bucket, publicURL string, useSSL bool) string {
	if publicURL != "" {
		return strings.TrimSuffix(publicURL, "/")
	}
	protocol := "http"
	if useSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s.%s", protocol, bucket, stripScheme(endpoint))
}

func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}

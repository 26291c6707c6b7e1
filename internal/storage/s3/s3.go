// Package s3 implements storage.AssetStore against an S3-compatible
// endpoint (AWS S3 or MinIO).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sakif/account-service/internal/storage"
)

// keyPrefix groups avatar objects under one folder in the bucket.
const keyPrefix = "user-profiles/"

// Config holds the connection settings for the asset store.
// For MinIO, Endpoint is the server address and PublicBaseURL is whatever
// host serves GETs for the bucket (often the same address).
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// Store is the S3-backed asset store.
type Store struct {
	client *s3.Client
	bucket string
	// base URL objects are publicly served from, without trailing slash
	publicBase string
}

var _ storage.AssetStore = (*Store)(nil)

// New builds an S3 client with static credentials and a custom endpoint.
// Path-style addressing is required for MinIO, which does not resolve
// bucket subdomains.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: loading config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the image bytes under a random key and returns its public
// URL together with the key, which doubles as the asset ID for Delete.
func (s *Store) Upload(ctx context.Context, data []byte, contentType string) (*storage.UploadResult, error) {
	key := keyPrefix + uuid.New().String() + extensionFor(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: uploading object %s: %w", key, err)
	}

	return &storage.UploadResult{
		URL:     fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, key),
		AssetID: key,
	}, nil
}

// Delete removes the object identified by assetID. Deleting a key that no
// longer exists is not an error in S3, which suits best-effort cleanup.
func (s *Store) Delete(ctx context.Context, assetID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	})
	if err != nil {
		return fmt.Errorf("s3: deleting object %s: %w", assetID, err)
	}
	return nil
}

// extensionFor maps the upload's content type to an object-key extension.
// The handler layer has already restricted uploads to known image types.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

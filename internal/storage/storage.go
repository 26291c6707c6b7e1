// Package storage defines the asset-store contract for avatar images.
// The S3 implementation lives in the s3 subpackage.
package storage

import "context"

// UploadResult identifies a stored asset: the public URL clients load it
// from, and the opaque asset ID used to delete it later.
type UploadResult struct {
	URL     string
	AssetID string
}

// AssetStore is the external object-storage collaborator.
//
// Upload and Delete are independent operations with no transactional
// relationship to each other or to the account repository. Callers own the
// ordering (upload new → commit record → best-effort delete old).
type AssetStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, assetID string) error
}

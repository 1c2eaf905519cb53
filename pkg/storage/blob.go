package storage

import "context"

// BlobRef identifies an object uploaded to a durable blob store.
type BlobRef struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// BlobStore is the contract around an external object storage provider.
type BlobStore interface {
	Put(ctx context.Context, data []byte, folder string) (*BlobRef, error)
	Delete(ctx context.Context, publicID string) error
}

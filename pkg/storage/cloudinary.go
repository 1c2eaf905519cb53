package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore implements BlobStore on top of the Cloudinary upload API.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryStore builds a store from a CLOUDINARY_URL style connection string.
func NewCloudinaryStore(rawURL string) (*CloudinaryStore, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("cloudinary url is required")
	}
	client, err := cloudinary.NewFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary client: %w", err)
	}
	return &CloudinaryStore{client: client}, nil
}

// Put uploads the payload into the named folder and returns its public reference.
func (s *CloudinaryStore) Put(ctx context.Context, data []byte, folder string) (*BlobRef, error) {
	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return &BlobRef{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

// PublicIDFromURL recovers the public identifier from a delivery URL so an
// object can be destroyed when only its URL was persisted. Delivery URLs look
// like https://res.cloudinary.com/<cloud>/<type>/upload/v123/<folder>/<id>.<ext>.
// Returns an empty string when the URL does not look like a delivery URL.
func PublicIDFromURL(rawURL string) string {
	_, rest, found := strings.Cut(rawURL, "/upload/")
	if !found {
		return ""
	}
	// Drop the version segment if present.
	if strings.HasPrefix(rest, "v") {
		if first, remainder, ok := strings.Cut(rest, "/"); ok {
			if len(first) > 1 && isDigits(first[1:]) {
				rest = remainder
			}
		}
	}
	if dot := strings.LastIndex(rest, "."); dot > 0 {
		rest = rest[:dot]
	}
	return rest
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Delete removes an uploaded object by its public identifier.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, result.Result)
	}
	return nil
}

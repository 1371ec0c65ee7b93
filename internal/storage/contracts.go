package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/constants"
)

// ObjectInfo describes an uploaded blob.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// BlobStore is the object-storage surface the service needs: clients upload
// policy documents through presigned URLs, the job processor downloads and
// deletes them.
type BlobStore interface {
	// EnsureBucket creates the backing bucket if it does not exist yet.
	EnsureBucket(ctx context.Context) error

	// PresignedPut returns a URL the client can PUT the document to directly.
	PresignedPut(ctx context.Context, key string) (string, error)

	// Stat confirms an object exists and reports its size and content type.
	// Returns common.ErrNotFound for missing keys.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Download reads the whole object into memory. Policy documents are
	// capped by the upload size limit, so buffering is fine.
	Download(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewUploadKey builds the storage key for a fresh upload, namespaced by the
// owning user: uploads/<user_id>/<uuid>.<ext>.
func NewUploadKey(userID, filename string) string {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" {
		ext = "pdf"
	}
	return fmt.Sprintf("uploads/%s/%s.%s", userID, uuid.New().String(), ext)
}

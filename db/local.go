package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalBlobStore saves report images under a local directory and returns
// /uploads URLs. Used in memory mode, where no Cloud Storage bucket exists.
type LocalBlobStore struct {
	dir string
}

// NewLocalBlobStore creates the upload directory if needed.
func NewLocalBlobStore(dir string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalBlobStore{dir: dir}, nil
}

// Upload writes the image to disk and returns its serving path.
func (b *LocalBlobStore) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 8 {
		ext = ext[:8]
	}
	name := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(b.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return "/uploads/" + name, nil
}

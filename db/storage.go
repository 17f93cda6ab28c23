package db

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// BlobStore uploads report images to Cloud Storage and returns durable public
// URLs. Reports hold the URL only, never the bytes.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// NewBlobStore initializes a Cloud Storage client for the given bucket.
func NewBlobStore(ctx context.Context, bucket, credentialsPath string) (*BlobStore, error) {
	client, err := storage.NewClient(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing storage client: %w", err)
	}

	log.Printf("✅ Connected to storage bucket: %s", bucket)

	return &BlobStore{client: client, bucket: bucket}, nil
}

// Close closes the storage client.
func (b *BlobStore) Close() error {
	return b.client.Close()
}

// Upload stores the image bytes under a random object name derived from the
// original filename's extension and returns the public URL.
func (b *BlobStore) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	objectName := fmt.Sprintf("report-images/%s%s", uuid.NewString(), ext)

	obj := b.client.Bucket(b.bucket).Object(objectName)
	w := obj.NewWriter(ctx)
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize image upload: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to publish image: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, objectName), nil
}

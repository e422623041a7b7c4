package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBlobs stores binary payloads as files under a directory, one sidecar
// JSON per blob recording its content type. It backs the non-hosted variant.
type LocalBlobs struct {
	dir string
}

type blobMeta struct {
	ContentType string `json:"contentType"`
}

func NewLocalBlobs(dir string) (*LocalBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalBlobs{dir: dir}, nil
}

func (b *LocalBlobs) path(key string) string { return filepath.Join(b.dir, key) }

// Upload writes the payload and returns the key itself as locator.
func (b *LocalBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := os.WriteFile(b.path(key), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	meta, _ := json.Marshal(blobMeta{ContentType: contentType})
	if err := os.WriteFile(b.path(key)+".meta", meta, 0o644); err != nil {
		return "", fmt.Errorf("write blob meta %s: %w", key, err)
	}
	return key, nil
}

func (b *LocalBlobs) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// ContentType returns the stored MIME type, empty when unknown.
func (b *LocalBlobs) ContentType(ctx context.Context, key string) string {
	raw, err := os.ReadFile(b.path(key) + ".meta")
	if err != nil {
		return ""
	}
	var meta blobMeta
	if json.Unmarshal(raw, &meta) != nil {
		return ""
	}
	return meta.ContentType
}

// Delete removes the payload; a missing blob is already deleted.
func (b *LocalBlobs) Delete(ctx context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	if err := os.Remove(b.path(key) + ".meta"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob meta %s: %w", key, err)
	}
	return nil
}

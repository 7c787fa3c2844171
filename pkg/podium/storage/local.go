package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader writes objects below Dir. The server serves Dir at
// /uploads, so BaseURL should be the server's public URL.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

// NewLocalUploader creates an uploader rooted at dir
func NewLocalUploader(dir, baseURL string) *LocalUploader {
	return &LocalUploader{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Upload writes data to Dir/name and returns its URL
func (u *LocalUploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(u.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return u.BaseURL + "/uploads/" + name, nil
}

// Package storage uploads user media (avatars, nominee photos) to object
// storage and returns the public URL.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes caps decoded uploads
const MaxUploadBytes = 5 << 20

var (
	ErrEmptyUpload    = errors.New("empty upload")
	ErrInvalidBase64  = errors.New("upload is not valid base64")
	ErrUploadTooLarge = errors.New("upload exceeds 5MB")
	ErrNotAnImage     = errors.New("upload is not an image")
)

// Uploader stores an object and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DecodeBase64Image decodes a base64 payload, with or without a
// "data:image/...;base64," prefix, and sniffs its content type.
func DecodeBase64Image(src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if i := strings.Index(src, ","); i != -1 && strings.HasPrefix(src, "data:") {
		src = src[i+1:]
	}
	if src == "" {
		return nil, "", ErrEmptyUpload
	}

	data, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, "", ErrInvalidBase64
	}
	if len(data) > MaxUploadBytes {
		return nil, "", ErrUploadTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", ErrNotAnImage
	}
	return data, contentType, nil
}

// ObjectName returns a unique object name under prefix, e.g. "avatars/<uuid>.png"
func ObjectName(prefix, contentType string) string {
	return prefix + "/" + uuid.NewString() + extension(contentType)
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// Package filestore stores uploaded import binaries. Objects are addressed by
// an opaque key; callers never store files under the user-supplied filename.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
}

// NewObjectKey returns a collision-resistant storage key keeping only the
// extension of the original filename.
func NewObjectKey(originalFilename string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate object key: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return hex.EncodeToString(buf) + ext, nil
}

// SanitizeFilename strips path components and control characters from a
// user-supplied filename before it is persisted as job metadata.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, base)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "upload"
	}
	return cleaned
}

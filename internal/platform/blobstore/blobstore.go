// Package blobstore stores document content on the device. A document's
// ContentRef is either an inline "data:" URL carried inside the record
// itself, or a "blob:<id>" reference into the device store; this package
// resolves both and owns the blob lifecycle for the latter.
package blobstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fhk/fhk/internal/platform/storage"
)

var (
	ErrBlobNotFound   = errors.New("blob not found")
	ErrBlobTooLarge   = errors.New("blob exceeds maximum allowed size")
	ErrInvalidRef     = errors.New("invalid content reference")
	ErrInvalidDataURL = errors.New("malformed data URL")
)

// MaxBlobSize is the maximum stored blob size in bytes (10 MB).
const MaxBlobSize = 10 * 1024 * 1024

const (
	blobRefPrefix = "blob:"
	dataURLPrefix = "data:"
	blobKeyPrefix = "fhk_blob_"
)

// Store reads and writes document blobs through the device store.
type Store struct {
	dev storage.Store
}

// New wires a blob store over the device store.
func New(dev storage.Store) *Store {
	return &Store{dev: dev}
}

// Put stores content and returns a "blob:<id>" reference for it.
func (s *Store) Put(ctx context.Context, content []byte) (string, error) {
	if len(content) > MaxBlobSize {
		return "", ErrBlobTooLarge
	}
	id := uuid.New().String()
	if err := s.dev.Put(ctx, blobKeyPrefix+id, content); err != nil {
		return "", fmt.Errorf("store blob %s: %w", id, err)
	}
	return blobRefPrefix + id, nil
}

// Resolve returns the content behind a reference: stored bytes for a
// "blob:" ref, decoded bytes for an inline "data:" URL.
func (s *Store) Resolve(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, blobRefPrefix):
		id := strings.TrimPrefix(ref, blobRefPrefix)
		content, err := s.dev.Get(ctx, blobKeyPrefix+id)
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrBlobNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load blob %s: %w", id, err)
		}
		return content, nil
	case strings.HasPrefix(ref, dataURLPrefix):
		return decodeDataURL(ref)
	default:
		return nil, ErrInvalidRef
	}
}

// Delete releases a stored blob. Inline "data:" refs have nothing to
// release and are a no-op.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if strings.HasPrefix(ref, dataURLPrefix) {
		return nil
	}
	if !strings.HasPrefix(ref, blobRefPrefix) {
		return ErrInvalidRef
	}
	id := strings.TrimPrefix(ref, blobRefPrefix)
	if err := s.dev.Delete(ctx, blobKeyPrefix+id); err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

// decodeDataURL handles the "data:<mime>;base64,<payload>" form the UI
// produces for small uploads.
func decodeDataURL(ref string) ([]byte, error) {
	idx := strings.Index(ref, ",")
	if idx < 0 {
		return nil, ErrInvalidDataURL
	}
	header, payload := ref[:idx], ref[idx+1:]
	if !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidDataURL
	}
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(content) > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}
	return content, nil
}

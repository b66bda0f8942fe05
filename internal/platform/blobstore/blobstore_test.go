package blobstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/fhk/fhk/internal/platform/storage"
)

func TestPutResolveDelete(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	content := []byte("fake image bytes")
	ref, err := s.Put(ctx, content)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(ref, "blob:") {
		t.Fatalf("ref = %q, want blob: prefix", ref)
	}

	got, err := s.Resolve(ctx, ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("resolved %q, want %q", got, content)
	}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Resolve(ctx, ref); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
	}
}

func TestResolveDataURL(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())
	content := []byte("%PDF-1.4 tiny")
	ref := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(content)

	got, err := s.Resolve(ctx, ref)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("resolved %q, want %q", got, content)
	}

	t.Run("deleting a data url is a no-op", func(t *testing.T) {
		if err := s.Delete(ctx, ref); err != nil {
			t.Errorf("delete: %v", err)
		}
	})
}

func TestResolveRejectsBadRefs(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())

	cases := []struct {
		name string
		ref  string
		want error
	}{
		{"unknown scheme", "file:///etc/passwd", ErrInvalidRef},
		{"data url without comma", "data:application/pdf;base64", ErrInvalidDataURL},
		{"data url not base64 encoded", "data:text/plain,hello", ErrInvalidDataURL},
		{"data url with bad payload", "data:text/plain;base64,@@@", ErrInvalidDataURL},
		{"missing blob", "blob:does-not-exist", ErrBlobNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Resolve(ctx, tc.ref); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPutEnforcesSizeLimit(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemory())
	if _, err := s.Put(ctx, make([]byte, MaxBlobSize+1)); !errors.Is(err, ErrBlobTooLarge) {
		t.Fatalf("expected ErrBlobTooLarge, got %v", err)
	}
}

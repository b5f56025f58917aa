package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryBlobStore(t *testing.T) {
	store := NewMemoryBlobStore()
	ctx := context.Background()

	if err := store.Put(ctx, "a/b.jpg", strings.NewReader("data"), 4, "image/jpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rc, err := store.Get(ctx, "a/b.jpg")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "data" {
		t.Errorf("Expected 'data', got %q", data)
	}

	if err := store.Delete(ctx, "a/b.jpg"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "a/b.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

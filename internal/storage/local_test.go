package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalPutDeleteAndURL(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost:8080/")
	ctx := context.Background()

	key := NewKey(ProductTypeImagePrefix, ".jpg")
	if !strings.HasPrefix(key, "images/product-types/") || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q", key)
	}

	if err := store.Put(ctx, key, []byte("data"), "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("expected stored data 'data', got %q", got)
	}

	if url := store.URL(key); url != "http://localhost:8080/"+key {
		t.Errorf("unexpected URL %q", url)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}

	// Deleting again is not an error.
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store := NewLocal(t.TempDir(), "http://localhost")
	ctx := context.Background()

	for _, key := range []string{"../outside.jpg", "/etc/passwd", ""} {
		if err := store.Put(ctx, key, []byte("x"), "image/jpeg"); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestLocalHandlerServesFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(dir, "http://localhost")
	store.Put(context.Background(), "images/product-types/a.jpg", []byte("jpeg"), "image/jpeg")

	mux := http.NewServeMux()
	mux.Handle("GET /images/", store.Handler())
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/images/product-types/a.jpg")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "jpeg" {
		t.Errorf("expected 200 'jpeg', got %d %q", resp.StatusCode, body)
	}

	resp, _ = http.Get(server.URL + "/images/product-types/")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for directory listing, got %d", resp.StatusCode)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Local stores files in a directory served by the application itself.
type Local struct {
	Dir     string
	BaseURL string
}

// NewLocal creates a Local store rooted at dir. Public URLs are baseURL + "/" + key.
func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: baseURL}
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.Dir, clean), nil
}

// Put writes data to the file for key, creating parent directories.
func (l *Local) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key. A missing file is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// URL returns the absolute public URL for key.
func (l *Local) URL(key string) string {
	return joinURL(l.BaseURL, key)
}

// Handler serves the stored files. Mount it at "/" + the first key segment,
// e.g. "GET /images/"; URL paths map directly onto keys.
func (l *Local) Handler() http.Handler {
	return http.FileServer(noDirFS{http.Dir(l.Dir)})
}

// noDirFS hides directory listings.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

package filestore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "uploads", "courses"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "uploads", "courses", "go.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	ls, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return ls
}

func TestResolve(t *testing.T) {
	ls := newTestStorage(t)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "relative", in: "uploads/courses/go.pdf", want: "uploads/courses/go.pdf"},
		{name: "leading slash", in: "/uploads/courses/go.pdf", want: "uploads/courses/go.pdf"},
		{name: "parent escape", in: "../etc/passwd", wantErr: true},
		{name: "nested escape", in: "/uploads/../../secret", wantErr: true},
		{name: "empty", in: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ls.Resolve(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Resolve(%q) error = %v, want ErrInvalidPath", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.in, err)
			}
			if want := filepath.Join(ls.basePath, filepath.FromSlash(tt.want)); got != want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, want)
			}
		})
	}
}

func TestExistsAndOpen(t *testing.T) {
	ls := newTestStorage(t)

	ok, err := ls.Exists("/uploads/courses/go.pdf")
	if err != nil || !ok {
		t.Errorf("Exists(existing) = %v, %v", ok, err)
	}
	ok, err = ls.Exists("uploads/courses/missing.pdf")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
	ok, err = ls.Exists("uploads/courses")
	if err != nil || ok {
		t.Errorf("Exists(directory) = %v, %v, want false", ok, err)
	}

	f, err := ls.Open("uploads/courses/go.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "%PDF" {
		t.Errorf("content = %q", data)
	}

	if _, err := ls.Open("uploads/none.pdf"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrFileNotFound", err)
	}
}

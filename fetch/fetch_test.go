package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestResolveLocalFile(t *testing.T) {
	f := New(Config{})
	path, cleanup, err := f.Resolve(context.Background(), "/data/spy.pdf", "spy.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if path != "/data/spy.pdf" {
		t.Fatalf("expected local file path, got %q", path)
	}
}

func TestResolveDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	f := New(Config{})
	path, cleanup, err := f.Resolve(context.Background(), "", srv.URL+"/spy.pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	if !strings.HasSuffix(path, ".pdf") {
		t.Fatalf("expected .pdf suffix, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Fatalf("unexpected body: %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("cleanup did not remove the temp file")
	}
}

func TestResolveHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{})
	if _, _, err := f.Resolve(context.Background(), "", srv.URL+"/missing.pdf"); err == nil {
		t.Fatal("expected error on HTTP 404")
	}
}

func TestResolveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := New(Config{Timeout: 50 * time.Millisecond})
	_, _, err := f.Resolve(context.Background(), "", srv.URL+"/slow.pdf")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestSuffixFor(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://x.test/spy.pdf", ".pdf"},
		{"https://x.test/sheet.html?v=2", ".html"},
		{"https://x.test/notes.txt", ".txt"},
		{"https://x.test/factsheet", ".pdf"},
	}
	for _, tt := range tests {
		if got := suffixFor(tt.url); got != tt.want {
			t.Errorf("suffixFor(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

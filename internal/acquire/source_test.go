package acquire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.html")
	doc := `<html><body><table><tr><td>חלב</td></tr></table></body></html>`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(got, "חלב") {
		t.Errorf("Fetch() = %q, want Hebrew text preserved", got)
	}
}

func TestFileSource_DecodesLegacyCharset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.html")
	// "חלב" in windows-1255.
	doc := append([]byte(`<html><head><meta charset="windows-1255"></head><body><table><tr><td>`),
		0xE7, 0xEC, 0xE1)
	doc = append(doc, []byte(`</td></tr></table></body></html>`)...)
	if err := os.WriteFile(path, doc, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(got, "חלב") {
		t.Errorf("Fetch() = %q, want windows-1255 decoded to UTF-8", got)
	}
}

func TestFileSource_NotFound(t *testing.T) {
	_, err := FileSource{Path: "/nonexistent/receipt.html"}.Fetch(context.Background())
	if err == nil {
		t.Error("Fetch() expected error for nonexistent file")
	}
}

func TestHTTPSource_PollsUntilTable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if calls.Add(1) < 3 {
			w.Write([]byte(`<html><body><div id="loading"></div></body></html>`))
			return
		}
		w.Write([]byte(`<html><body><table><tr><td>Milk</td></tr></table></body></html>`))
	}))
	defer srv.Close()

	src := HTTPSource{URL: srv.URL, Timeout: 5 * time.Second, PollInterval: 10 * time.Millisecond}
	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(got, "<table>") {
		t.Errorf("Fetch() = %q, want page with table", got)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server calls = %d, want 3", n)
	}
}

func TestHTTPSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>still loading</p></body></html>`))
	}))
	defer srv.Close()

	src := HTTPSource{URL: srv.URL, Timeout: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond}
	_, err := src.Fetch(context.Background())
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("Fetch() error = %v, want ErrNoTable", err)
	}
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := HTTPSource{URL: srv.URL, Timeout: time.Second}.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch() error = %v, want 404 status error", err)
	}
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<table><tr><td>Milk</td></tr></table>`))
	}))
	defer srv.Close()

	src := HTTPSource{URL: srv.URL, Timeout: 5 * time.Second, PollInterval: 10 * time.Millisecond}
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server calls = %d, want 3", n)
	}
}

func TestHTTPSource_RetriesConnectionErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	start := time.Now()
	src := HTTPSource{URL: url, Timeout: 100 * time.Millisecond, PollInterval: 10 * time.Millisecond}
	_, err := src.Fetch(context.Background())
	if !errors.Is(err, ErrNoTable) {
		t.Fatalf("Fetch() error = %v, want ErrNoTable after polling", err)
	}
	if !strings.Contains(err.Error(), "last error") {
		t.Errorf("Fetch() error = %v, want the last transport error reported", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Fetch() gave up after %v, want polling until the timeout", elapsed)
	}
}

func TestHTTPSource_BadURL(t *testing.T) {
	_, err := HTTPSource{URL: "http://[::1", Timeout: time.Second}.Fetch(context.Background())
	if err == nil || errors.Is(err, ErrNoTable) {
		t.Errorf("Fetch() error = %v, want immediate request error", err)
	}
}

func TestHasTable(t *testing.T) {
	tests := []struct {
		doc  string
		want bool
	}{
		{`<TABLE></TABLE>`, true},
		{`<div>table</div>`, false},
		{`<!-- <table> -->`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := hasTable(tt.doc); got != tt.want {
			t.Errorf("hasTable(%q) = %v, want %v", tt.doc, got, tt.want)
		}
	}
}

// =============================================================================
// Receipt Reconciler - Markup Acquisition
// =============================================================================
//
// A Source returns the complete HTML of one receipt, decoded to UTF-8. The
// reconciler only ever sees the returned string.
//
// SOURCES:
//   - FileSource : a saved receipt page on disk
//   - HTTPSource : a receipt URL, polled until the page contains a <table>
//
// =============================================================================

package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNoTable indicates the page never contained a table element.
var ErrNoTable = errors.New("receipt page has no table")

// Source fetches receipt markup.
type Source interface {
	// Fetch returns the receipt HTML as UTF-8 text.
	Fetch(ctx context.Context) (string, error)

	// Name identifies the source in logs and reports.
	Name() string
}

// =============================================================================
// FILE SOURCE
// =============================================================================

// FileSource reads a receipt page saved to disk.
type FileSource struct {
	Path string
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// Fetch reads and decodes the file.
func (s FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open receipt: %w", err)
	}
	defer f.Close()

	doc, err := decode(f, "text/html")
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return doc, nil
}

// =============================================================================
// HTTP SOURCE
// =============================================================================

// HTTPSource fetches a receipt URL. Receipt pages fill their table in after
// the first response, so the page is re-requested every PollInterval until a
// table is present or Timeout passes.
type HTTPSource struct {
	URL          string
	Client       *http.Client
	Timeout      time.Duration
	PollInterval time.Duration
}

// Name returns the URL.
func (s HTTPSource) Name() string {
	return s.URL
}

// Fetch polls the URL until the page contains a table element. Transport
// errors and 5xx responses are retried until Timeout; other statuses fail
// at once.
func (s HTTPSource) Fetch(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	if _, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil); err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		doc, err := s.get(ctx, client)
		switch {
		case err == nil && hasTable(doc):
			return doc, nil
		case err != nil && ctx.Err() == nil && !isTransient(err):
			return "", err
		case err != nil:
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return "", fmt.Errorf("%w: %s: %v (last error: %v)", ErrNoTable, s.URL, ctx.Err(), lastErr)
			}
			return "", fmt.Errorf("%w: %s: %v", ErrNoTable, s.URL, ctx.Err())
		case <-ticker.C:
		}
	}
}

// statusError is a non-200 response.
type statusError struct {
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("failed to fetch %s: unexpected status %s", e.url, e.status)
}

// isTransient reports whether a failed request is worth repeating: transport
// failures (connection refused, resets) and 5xx responses are, client errors
// are not.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

func (s HTTPSource) get(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{url: s.URL, code: resp.StatusCode, status: resp.Status}
	}

	doc, err := decode(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", s.URL, err)
	}
	return doc, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// decode converts r to UTF-8 using the content type and any <meta charset>
// declaration.
func decode(r io.Reader, contentType string) (string, error) {
	utf8, err := charset.NewReader(r, contentType)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(utf8)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// hasTable reports whether doc contains a <table> start tag.
func hasTable(doc string) bool {
	z := html.NewTokenizer(bytes.NewReader([]byte(doc)))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "table" {
				return true
			}
		}
	}
}

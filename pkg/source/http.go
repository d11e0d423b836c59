package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vormap/vormap/pkg/httputil"
	"github.com/vormap/vormap/pkg/observability"
	"github.com/vormap/vormap/pkg/snapshot"
)

const httpTimeout = 30 * time.Second

// HTTPSource talks to the vormap backend API.
//
// All methods are safe for concurrent use by multiple goroutines.
type HTTPSource struct {
	http    *http.Client
	baseURL string
	headers map[string]string
}

// NewHTTPSource creates a client for the backend at baseURL. Pass nil for
// headers if no default headers are needed.
func NewHTTPSource(baseURL string, headers map[string]string) *HTTPSource {
	return &HTTPSource{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
	}
}

// Snapshots lists available snapshots, newest first.
func (s *HTTPSource) Snapshots(ctx context.Context) ([]snapshot.Descriptor, error) {
	var resp struct {
		Snapshots []snapshot.Descriptor `json:"snapshots"`
	}
	if err := s.get(ctx, s.baseURL+"/api/snapshots", &resp); err != nil {
		return nil, err
	}
	return resp.Snapshots, nil
}

// Hierarchy fetches the precomputed hierarchy artifact for a snapshot.
func (s *HTTPSource) Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	var h snapshot.Hierarchy
	u := fmt.Sprintf("%s/api/hierarchy/%s", s.baseURL, url.PathEscape(snapshotID))
	if err := s.get(ctx, u, &h); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, snapshotID)
		}
		return nil, err
	}
	if h.Root() == nil {
		return nil, fmt.Errorf("hierarchy for snapshot %s: root id %q unresolved", snapshotID, h.RootID)
	}
	return &h, nil
}

// List returns the immediate entries of one directory in a snapshot.
func (s *HTTPSource) List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error) {
	var resp struct {
		Entries []snapshot.Entry `json:"entries"`
	}
	q := url.Values{}
	q.Set("snapshot", snapshotID)
	q.Set("path", path)
	u := s.baseURL + "/api/folders/list?" + q.Encode()
	if err := s.get(ctx, u, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s in snapshot %s", ErrNotFound, path, snapshotID)
		}
		return nil, err
	}
	return resp.Entries, nil
}

// get performs a GET request with retry and JSON-decodes the response
// into v.
func (s *HTTPSource) get(ctx context.Context, url string, v any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		body, err := s.doRequest(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()
		return json.NewDecoder(body).Decode(v)
	})
}

func (s *HTTPSource) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	observability.HTTP().OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	observability.HTTP().OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// Ensure HTTPSource implements Source.
var _ Source = (*HTTPSource)(nil)

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// HTTPStore talks to a remote blob service over HTTP. The service exposes
// the same three operations: a listing endpoint, direct object URLs
// (possibly fronted by a CDN) and an overwrite-in-place upload endpoint.
type HTTPStore struct {
	endpoint   string
	token      string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewHTTPStore creates a client for the blob service at endpoint. The token
// is sent as a bearer credential on every request.
func NewHTTPStore(endpoint, token string, logger *zap.SugaredLogger) *HTTPStore {
	return &HTTPStore{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type listResponse struct {
	Blobs []BlobInfo `json:"blobs"`
}

// List enumerates all stored objects from the listing endpoint.
func (s *HTTPStore) List(ctx context.Context) ([]BlobInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/blobs", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	s.setAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob list returned status %d", resp.StatusCode)
	}

	var listed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		return nil, fmt.Errorf("failed to decode blob list: %w", err)
	}
	return listed.Blobs, nil
}

// Fetch reads the object at url. Objects may sit behind a CDN, so the
// request carries a cache-busting timestamp parameter and a no-store header;
// without that, a read right after a save can return the previous version.
func (s *HTTPStore) Fetch(ctx context.Context, blobURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cacheBustedURL(blobURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store, max-age=0")
	s.setAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Put uploads data to the fixed pathname, replacing any previous object.
func (s *HTTPStore) Put(ctx context.Context, pathname string, data []byte, opts PutOptions) error {
	uploadURL := fmt.Sprintf("%s/blobs/%s", s.endpoint, url.PathEscape(pathname))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if opts.Public {
		req.Header.Set("X-Blob-Access", "public")
	}
	s.setAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("blob upload returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (s *HTTPStore) Close() error {
	return nil
}

func (s *HTTPStore) setAuth(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func cacheBustedURL(blobURL string) string {
	separator := "?"
	for _, r := range blobURL {
		if r == '?' {
			separator = "&"
			break
		}
	}
	return blobURL + separator + "timestamp=" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

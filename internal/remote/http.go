package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
)

const userAgent = "vaultcap/1.0"

// HTTPSource reads the manifest from a URL and files from a raw base URL.
// Every request carries a t=<unix-ms> query parameter to defeat CDN caches.
type HTTPSource struct {
	manifestURL string
	baseURL     string
	client      *http.Client
	now         func() time.Time
}

// NewHTTPSource returns a source for the given URLs. A zero timeout leaves
// requests bounded only by the context.
func NewHTTPSource(manifestURL, baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		manifestURL: manifestURL,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		now:         time.Now,
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return "http"
}

// FetchManifest implements Source.
func (s *HTTPSource) FetchManifest(ctx context.Context) (*capsule.Manifest, error) {
	data, err := s.get(ctx, s.manifestURL, MaxManifestBytes)
	if err != nil {
		return nil, err
	}
	return capsule.ParseManifest(data)
}

// FetchFile implements Source.
func (s *HTTPSource) FetchFile(ctx context.Context, src string) (string, error) {
	data, err := s.get(ctx, s.baseURL+"/"+strings.TrimLeft(src, "/"), MaxFileBytes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *HTTPSource) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid URL %q: %v", rawURL, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported scheme: %s", u.Scheme))
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("fetch")
		}
		return nil, errors.NewNetwork(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewNetwork(rawURL, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.NewNetwork(rawURL, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > limit {
		return nil, errors.NewNetwork(rawURL, fmt.Errorf("response exceeds %d bytes", limit))
	}
	return body, nil
}

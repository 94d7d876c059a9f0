package remote

import (
	"context"
	"sync"
	"time"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/errors"
)

// Catalog holds the last manifest fetched from a source. A failed refresh
// records the error but keeps serving the previous manifest.
type Catalog struct {
	source Source
	now    func() time.Time

	mu        sync.RWMutex
	manifest  *capsule.Manifest
	fetchedAt time.Time
	lastErr   error
}

// NewCatalog returns an empty catalog over source.
func NewCatalog(source Source) *Catalog {
	return &Catalog{source: source, now: time.Now}
}

// NewSource builds the source selected by cfg.
func NewSource(cfg *config.Config) (Source, error) {
	switch cfg.Source {
	case "", config.SourceHTTP:
		return NewHTTPSource(cfg.ManifestURL, cfg.RawBaseURL, cfg.HTTPTimeout()), nil
	case config.SourceS3:
		src, err := NewS3Source(S3Config{
			Bucket:      cfg.S3Bucket,
			Prefix:      cfg.S3Prefix,
			Region:      cfg.S3Region,
			Endpoint:    cfg.S3Endpoint,
			ManifestKey: cfg.S3ManifestKey,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, errors.NewInvalidRequest("unknown source " + cfg.Source + " (want http or s3)")
	}
}

// SourceName returns the underlying source's name.
func (c *Catalog) SourceName() string {
	return c.source.Name()
}

// Refresh fetches the manifest again. On failure the previous manifest
// stays current and the error is returned and remembered.
func (c *Catalog) Refresh(ctx context.Context) (*capsule.Manifest, error) {
	m, err := c.source.FetchManifest(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		return nil, err
	}
	c.manifest = m
	c.fetchedAt = c.now()
	c.lastErr = nil
	return m, nil
}

// Manifest returns the current manifest, fetching it on first use.
func (c *Catalog) Manifest(ctx context.Context) (*capsule.Manifest, error) {
	if m := c.Current(); m != nil {
		return m, nil
	}
	return c.Refresh(ctx)
}

// Current returns the last good manifest, or nil if none was fetched.
func (c *Catalog) Current() *capsule.Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manifest
}

// LastError returns the error from the most recent refresh, nil after a success.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// FetchedAt returns when the current manifest was fetched.
func (c *Catalog) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// FetchFile fetches a capsule file from the source.
func (c *Catalog) FetchFile(ctx context.Context, src string) (string, error) {
	return c.source.FetchFile(ctx, src)
}

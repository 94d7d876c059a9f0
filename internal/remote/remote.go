// Package remote fetches the capsule catalog and capsule file contents.
package remote

import (
	"context"

	"github.com/dailyaf/vaultcap/internal/capsule"
)

// Size limits for remote bodies.
const (
	MaxManifestBytes = 5 * 1024 * 1024
	MaxFileBytes     = 20 * 1024 * 1024
)

// Source is where capsule manifests and files come from.
// Failures are returned as retryable NETWORK errors; a manifest that
// arrives but does not validate is MANIFEST_INVALID.
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string
	FetchManifest(ctx context.Context) (*capsule.Manifest, error)
	// FetchFile returns the text content of a manifest file's src.
	FetchFile(ctx context.Context, src string) (string, error)
}

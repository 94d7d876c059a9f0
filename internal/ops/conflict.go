package ops

import "github.com/dailyaf/vaultcap/internal/vault"

// Conflict reasons.
const (
	ReasonNew       = "new"
	ReasonIdentical = "identical"
	ReasonModified  = "modified"
	ReasonError     = "error"
)

// Conflict is the advisory result of comparing a local file with incoming content.
type Conflict struct {
	HasConflict    bool   `json:"has_conflict"`
	Reason         string `json:"reason"`
	LocalLength    int    `json:"local_length,omitempty"`
	IncomingLength int    `json:"incoming_length,omitempty"`
}

// DetectConflict compares the file at path with incoming byte for byte.
// A missing file or a read error is never a conflict.
func DetectConflict(host vault.Host, path, incoming string) Conflict {
	if !host.Exists(path) {
		return Conflict{Reason: ReasonNew}
	}
	local, err := host.ReadFile(path)
	if err != nil {
		return Conflict{Reason: ReasonError}
	}
	if local == incoming {
		return Conflict{Reason: ReasonIdentical}
	}
	return Conflict{
		HasConflict:    true,
		Reason:         ReasonModified,
		LocalLength:    len(local),
		IncomingLength: len(incoming),
	}
}

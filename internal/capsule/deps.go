package capsule

import "slices"

// DependencyCheck is the result of CheckDependencies.
type DependencyCheck struct {
	Satisfied bool     `json:"satisfied"`
	Missing   []string `json:"missing,omitempty"`
}

// CheckDependencies reports which of c's required capsule ids are absent from installedIDs.
func CheckDependencies(c *Capsule, installedIDs []string) DependencyCheck {
	var missing []string
	for _, req := range c.Requires {
		if !slices.Contains(installedIDs, req) {
			missing = append(missing, req)
		}
	}
	return DependencyCheck{
		Satisfied: len(missing) == 0,
		Missing:   missing,
	}
}

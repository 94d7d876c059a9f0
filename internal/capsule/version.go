package capsule

import (
	"strings"
)

// Version is a parsed MAJOR.MINOR.PATCH[-PRERELEASE] string.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// ParseVersion parses v leniently. Missing or non-numeric components become 0
// and an empty string is 0.0.0; it never fails.
func ParseVersion(v string) Version {
	v = strings.TrimSpace(v)
	if v == "" {
		v = "0.0.0"
	}

	main, pre, _ := strings.Cut(v, "-")
	parts := strings.Split(main, ".")

	var out Version
	out.Prerelease = pre
	for i, p := range parts {
		n := leadingInt(p)
		switch i {
		case 0:
			out.Major = n
		case 1:
			out.Minor = n
		case 2:
			out.Patch = n
		}
	}
	return out
}

// leadingInt reads the decimal digits at the start of s; no digits yields 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 1 << 30
		}
	}
	return n
}

// Compare returns -1, 0 or 1 as a sorts before, equal to, or after b.
// A release sorts after any prerelease of the same MAJOR.MINOR.PATCH;
// prerelease tags compare lexicographically.
func Compare(a, b string) int {
	va, vb := ParseVersion(a), ParseVersion(b)

	if c := cmpInt(va.Major, vb.Major); c != 0 {
		return c
	}
	if c := cmpInt(va.Minor, vb.Minor); c != 0 {
		return c
	}
	if c := cmpInt(va.Patch, vb.Patch); c != 0 {
		return c
	}

	switch {
	case va.Prerelease != "" && vb.Prerelease == "":
		return -1
	case va.Prerelease == "" && vb.Prerelease != "":
		return 1
	}
	return strings.Compare(va.Prerelease, vb.Prerelease)
}

// IsNewer reports whether available is newer than installed.
func IsNewer(installed, available string) bool {
	return Compare(installed, available) < 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

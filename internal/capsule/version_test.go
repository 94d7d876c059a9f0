package capsule

import (
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Version
	}{
		{name: "full", input: "1.2.3", want: Version{1, 2, 3, ""}},
		{name: "prerelease", input: "2.0.0-beta.1", want: Version{2, 0, 0, "beta.1"}},
		{name: "hyphenated prerelease kept whole", input: "2.0.0-rc-2", want: Version{2, 0, 0, "rc-2"}},
		{name: "empty", input: "", want: Version{0, 0, 0, ""}},
		{name: "whitespace", input: "  1.4.0 ", want: Version{1, 4, 0, ""}},
		{name: "missing patch", input: "1.2", want: Version{1, 2, 0, ""}},
		{name: "major only", input: "3", want: Version{3, 0, 0, ""}},
		{name: "non-numeric", input: "x.y.z", want: Version{0, 0, 0, ""}},
		{name: "leading digits", input: "1a.2b.3c", want: Version{1, 2, 3, ""}},
		{name: "garbage", input: "latest", want: Version{0, 0, 0, ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVersion(tt.input)
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.1.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0-beta", "1.0.0", -1},
		{"1.0.0", "1.0.0-beta", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0-beta", "1.0.0-beta", 0},
		{"", "0.0.0", 0},
		{"garbage", "0.0.1", -1},
		{"1.2", "1.2.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNewer_MatchesCompare(t *testing.T) {
	versions := []string{"0.0.0", "0.1.0", "1.0.0-alpha", "1.0.0-beta", "1.0.0", "1.0.1", "1.1.0", "2.0.0-rc1", "2.0.0"}

	for _, a := range versions {
		for _, b := range versions {
			if IsNewer(a, b) != (Compare(a, b) < 0) {
				t.Errorf("IsNewer(%q, %q) disagrees with Compare", a, b)
			}
		}
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	// Listed in ascending order.
	versions := []string{"0.0.0", "0.1.0", "1.0.0-alpha", "1.0.0-beta", "1.0.0", "1.0.1", "1.1.0", "2.0.0-rc1", "2.0.0"}

	for i, a := range versions {
		for j, b := range versions {
			got := Compare(a, b)
			var want int
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			if got != want {
				t.Errorf("Compare(%q, %q) = %d, want %d", a, b, got, want)
			}
			// Antisymmetry
			if Compare(b, a) != -got {
				t.Errorf("Compare(%q, %q) not antisymmetric", a, b)
			}
		}
	}
}

func TestIsNewer(t *testing.T) {
	if !IsNewer("1.0.0", "1.1.0") {
		t.Error("IsNewer(1.0.0, 1.1.0) = false, want true")
	}
	if IsNewer("1.1.0", "1.1.0") {
		t.Error("IsNewer(1.1.0, 1.1.0) = true, want false")
	}
	if IsNewer("1.1.0", "1.0.0") {
		t.Error("IsNewer(1.1.0, 1.0.0) = true, want false")
	}
}

package capsule

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple lowercase",
			input: "Hello World",
			want:  "hello world",
		},
		{
			name:  "trim whitespace",
			input: "  hello  ",
			want:  "hello",
		},
		{
			name:  "collapse internal whitespace",
			input: "hello    world",
			want:  "hello world",
		},
		{
			name:  "mixed case with extra spaces",
			input: "  Hello   WORLD  ",
			want:  "hello world",
		},
		{
			name:  "tabs and newlines",
			input: "hello\t\n  world",
			want:  "hello world",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n   ",
			want:  "",
		},
		{
			name:  "unicode characters",
			input: "  HÉLLO   WÖRLD  ",
			want:  "héllo wörld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchSource(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		source string
		want   bool
	}{
		{name: "empty filter", filter: "", source: "core", want: true},
		{name: "all", filter: "all", source: "community", want: true},
		{name: "all mixed case", filter: " ALL ", source: "", want: true},
		{name: "exact", filter: "core", source: "core", want: true},
		{name: "case insensitive", filter: "Core", source: "core", want: true},
		{name: "mismatch", filter: "core", source: "community", want: false},
		{name: "capsule without source", filter: "core", source: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchSource(tt.filter, tt.source); got != tt.want {
				t.Errorf("MatchSource(%q, %q) = %v, want %v", tt.filter, tt.source, got, tt.want)
			}
		})
	}
}

func TestSources(t *testing.T) {
	capsules := []Capsule{
		{ID: "core-af", Source: "core"},
		{ID: "kitchen-af", Source: "community"},
		{ID: "no-source"},
		{ID: "active-af", Source: "core"},
	}

	got := Sources(capsules)
	want := []string{"all", "core", "community"}
	if len(got) != len(want) {
		t.Fatalf("Sources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSources_Empty(t *testing.T) {
	got := Sources(nil)
	if len(got) != 1 || got[0] != AllSources {
		t.Errorf("Sources(nil) = %v, want [all]", got)
	}
}

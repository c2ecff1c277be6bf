package naming

import (
	"errors"
	"testing"
)

func TestPascalCase(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"user", "User"},
		{"user_id", "UserId"},
		{"user-profile.name", "UserProfileName"},
		{"  spaced out  ", "SpacedOut"},
		{"alreadyPascal", "AlreadyPascal"},
		{"__lead__trail__", "LeadTrail"},
		{"v1.0", "V10"},
		{"élan_vital", "ÉlanVital"},
	}
	for _, tc := range cases {
		got, err := PascalCase(tc.in)
		if err != nil {
			t.Fatalf("PascalCase(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("PascalCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCamelCaseKeepsFirstSegment(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"user_id", "userId"},
		{"X-Request-Id", "XRequestId"},
		{"page", "page"},
		{"sort[by]", "sortBy"},
	}
	for _, tc := range cases {
		got, err := CamelCase(tc.in)
		if err != nil {
			t.Fatalf("CamelCase(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("CamelCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmptyIdentifier(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "___", "-.-", "   "} {
		if _, err := PascalCase(in); !errors.Is(err, ErrEmptyIdentifier) {
			t.Errorf("PascalCase(%q) err = %v, want ErrEmptyIdentifier", in, err)
		}
		if _, err := CamelCase(in); !errors.Is(err, ErrEmptyIdentifier) {
			t.Errorf("CamelCase(%q) err = %v, want ErrEmptyIdentifier", in, err)
		}
	}
}

func TestPascalCaseIdempotent(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"user", "userName", "A", "x1y2", "ÜberType"} {
		once, err := PascalCase(in)
		if err != nil {
			t.Fatalf("PascalCase(%q): %v", in, err)
		}
		twice, err := PascalCase(once)
		if err != nil {
			t.Fatalf("PascalCase(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestCustomSeparators(t *testing.T) {
	t.Parallel()
	n := Normalizer{IsSeparator: func(r rune) bool { return r == '.' }}
	got, err := n.PascalCase("pet.store_item")
	if err != nil {
		t.Fatalf("PascalCase: %v", err)
	}
	if got != "PetStore_item" {
		t.Fatalf("got %q", got)
	}
}

func TestCapitalize(t *testing.T) {
	t.Parallel()
	if got := Capitalize("abc"); got != "Abc" {
		t.Fatalf("got %q", got)
	}
	if got := Capitalize("aBC"); got != "ABC" {
		t.Fatalf("rest must be untouched, got %q", got)
	}
	if got := Capitalize("1st"); got != "1st" {
		t.Fatalf("got %q", got)
	}
}

func TestStartsWithLetter(t *testing.T) {
	t.Parallel()
	if !StartsWithLetter("Name") || StartsWithLetter("2fa") || StartsWithLetter("") || StartsWithLetter("_x") {
		t.Fatalf("unexpected legality results")
	}
}

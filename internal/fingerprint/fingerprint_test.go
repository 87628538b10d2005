package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, width int) *Fingerprinter {
	t.Helper()
	fp, err := New(width, nil)
	if err != nil {
		t.Fatalf("New(%d): %v", width, err)
	}
	return fp
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"snake_case and 42 items", []string{"snake_case", "and", "42", "items"}},
		{"Café crème brûlée", []string{"café", "crème", "brûlée"}},
		{"Œuvre naïve", []string{"œuvre", "naïve"}},
		{"dash-separated/words", []string{"dash", "separated", "words"}},
		{"   ", nil},
		{"!!!???", nil},
		{"中文 text", []string{"text"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	fp := mustNew(t, 64)
	a := fp.Compute("the quick brown fox jumps over the lazy dog")
	b := fp.Compute("the quick brown fox jumps over the lazy dog")
	d, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected identical fingerprints, distance %d", d)
	}
	if a.String() != b.String() {
		t.Fatalf("expected identical hex, got %s vs %s", a, b)
	}
	if !a.HasSignal() {
		t.Fatal("expected signal")
	}
}

func TestComputeIgnoresCaseAndPunctuation(t *testing.T) {
	fp := mustNew(t, 64)
	a := fp.Compute("Hello, world.")
	b := fp.Compute("hello world")
	if d, _ := Distance(a, b); d != 0 {
		t.Fatalf("expected distance 0, got %d", d)
	}
}

func TestComputeEmptyHasNoSignal(t *testing.T) {
	fp := mustNew(t, 64)
	for _, in := range []string{"", "   ", "...!?"} {
		got := fp.Compute(in)
		if got.HasSignal() {
			t.Errorf("Compute(%q): expected no signal", in)
		}
		if d, _ := Distance(got, Zero(64)); d != 0 {
			t.Errorf("Compute(%q): expected all-zero fingerprint", in)
		}
	}
}

func TestSingleTokenMatchesDigest(t *testing.T) {
	// One token with unit weight reproduces the digest bits exactly.
	sum := sha256.Sum256([]byte("osint"))
	want := hex.EncodeToString(sum[:])

	if got := mustNew(t, 256).Compute("osint").String(); got != want {
		t.Fatalf("256-bit: got %s, want %s", got, want)
	}
	if got := mustNew(t, 64).Compute("osint").String(); got != want[:16] {
		t.Fatalf("64-bit: got %s, want %s", got, want[:16])
	}
}

func TestDistanceProperties(t *testing.T) {
	fp := mustNew(t, 64)
	corpus := []string{
		"alpha beta gamma",
		"alpha beta delta",
		"completely different words here",
		"",
		"the suspect posted threats at 10:42",
	}
	for _, x := range corpus {
		a := fp.Compute(x)
		self, err := Distance(a, a)
		if err != nil || self != 0 {
			t.Fatalf("self distance for %q: %d, %v", x, self, err)
		}
		for _, y := range corpus {
			b := fp.Compute(y)
			ab, _ := Distance(a, b)
			ba, _ := Distance(b, a)
			if ab != ba {
				t.Fatalf("asymmetric distance %q/%q: %d vs %d", x, y, ab, ba)
			}
			if ab < 0 || ab > 64 {
				t.Fatalf("distance out of range: %d", ab)
			}
		}
	}
}

func TestDistanceWidthMismatch(t *testing.T) {
	a := mustNew(t, 64).Compute("text")
	b := mustNew(t, 128).Compute("text")
	if _, err := Distance(a, b); !errors.Is(err, ErrWidthMismatch) {
		t.Fatalf("expected ErrWidthMismatch, got %v", err)
	}
}

func TestNewRejectsBadWidth(t *testing.T) {
	for _, w := range []int{0, 4, 12, 264, -8} {
		if _, err := New(w, nil); !errors.Is(err, ErrInvalidWidth) {
			t.Errorf("New(%d): expected ErrInvalidWidth, got %v", w, err)
		}
	}
	for _, w := range []int{8, 64, 72, 256} {
		if _, err := New(w, nil); err != nil {
			t.Errorf("New(%d): unexpected error %v", w, err)
		}
	}
}

func TestWeightFunc(t *testing.T) {
	heavy := func(tok string) int {
		if tok == "important" {
			return 10
		}
		return 1
	}
	fp, err := New(64, heavy)
	if err != nil {
		t.Fatal(err)
	}
	solo := fp.Compute("important")
	mixed := fp.Compute("important a b c")
	// Three unit-weight tokens cannot outvote a weight of 10 on any bit.
	if d, _ := Distance(solo, mixed); d != 0 {
		t.Fatalf("expected heavy token to dominate, distance %d", d)
	}
}

func TestStringWidth(t *testing.T) {
	for _, w := range []int{8, 24, 64, 72, 256} {
		got := mustNew(t, w).Compute("abc").String()
		if len(got) != w/4 {
			t.Errorf("width %d: expected %d hex digits, got %d (%s)", w, w/4, len(got), got)
		}
	}
}

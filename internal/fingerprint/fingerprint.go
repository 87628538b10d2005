// Package fingerprint computes fixed-width SimHash-style fingerprints of
// normalized text for approximate duplicate detection.
package fingerprint

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// #region errors
var (
	// ErrWidthMismatch is returned when comparing fingerprints of different widths.
	ErrWidthMismatch = errors.New("fingerprint width mismatch")
	// ErrInvalidWidth is returned for widths outside 8..256 or not a multiple of 8.
	ErrInvalidWidth = errors.New("invalid fingerprint width")
)

// #endregion errors

const (
	DefaultBits = 64
	MinBits     = 8
	MaxBits     = sha256.Size * 8
)

// #region fingerprint
// Fingerprint is a fixed-width bit vector. Bit 0 is the most significant bit
// of words[0].
type Fingerprint struct {
	words  []uint64
	width  int
	signal bool
}

// Zero returns the all-zero, no-signal fingerprint of the given width.
func Zero(width int) Fingerprint {
	return Fingerprint{words: make([]uint64, (width+63)/64), width: width}
}

// Width returns the number of bits.
func (f Fingerprint) Width() int { return f.width }

// HasSignal reports whether at least one token contributed to the fingerprint.
// A fingerprint without signal says nothing about content.
func (f Fingerprint) HasSignal() bool { return f.signal }

// Bit reports whether bit i is set.
func (f Fingerprint) Bit(i int) bool {
	if i < 0 || i >= f.width {
		return false
	}
	return f.words[i/64]&(1<<(63-uint(i%64))) != 0
}

func (f *Fingerprint) set(i int) {
	f.words[i/64] |= 1 << (63 - uint(i%64))
}

// String renders the fingerprint as a hex string, most significant bit first.
func (f Fingerprint) String() string {
	var b strings.Builder
	remaining := f.width
	for _, w := range f.words {
		n := 64
		if remaining < 64 {
			n = remaining
		}
		digits := strconv.FormatUint(w>>(64-uint(n)), 16)
		for pad := (n+3)/4 - len(digits); pad > 0; pad-- {
			b.WriteByte('0')
		}
		b.WriteString(digits)
		remaining -= n
	}
	return b.String()
}

// #endregion fingerprint

// #region distance
// Distance returns the Hamming distance between a and b.
func Distance(a, b Fingerprint) (int, error) {
	if a.width != b.width {
		return 0, fmt.Errorf("%w: %d vs %d", ErrWidthMismatch, a.width, b.width)
	}
	d := 0
	for i := range a.words {
		d += bits.OnesCount64(a.words[i] ^ b.words[i])
	}
	return d, nil
}

// #endregion distance

// #region fingerprinter
// WeightFunc assigns a vote weight to a token.
type WeightFunc func(token string) int

// UnitWeight gives every token a weight of 1.
func UnitWeight(string) int { return 1 }

// Fingerprinter computes fingerprints of a fixed width.
type Fingerprinter struct {
	bits   int
	weight WeightFunc
}

// New returns a Fingerprinter producing fingerprints of the given width.
// A nil weight function means UnitWeight.
func New(width int, weight WeightFunc) (*Fingerprinter, error) {
	if width < MinBits || width > MaxBits || width%8 != 0 {
		return nil, fmt.Errorf("%w: %d (want %d..%d in steps of 8)", ErrInvalidWidth, width, MinBits, MaxBits)
	}
	if weight == nil {
		weight = UnitWeight
	}
	return &Fingerprinter{bits: width, weight: weight}, nil
}

// Bits returns the configured width.
func (fp *Fingerprinter) Bits() int { return fp.bits }

// Compute fingerprints text. Each token's SHA-256 digest votes on every bit
// position: +weight where the digest bit is 1, -weight where it is 0.
func (fp *Fingerprinter) Compute(text string) Fingerprint {
	out := Zero(fp.bits)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return out
	}

	acc := make([]int, fp.bits)
	for _, tok := range tokens {
		w := fp.weight(tok)
		sum := sha256.Sum256([]byte(tok))
		for i := 0; i < fp.bits; i++ {
			if sum[i/8]&(0x80>>uint(i%8)) != 0 {
				acc[i] += w
			} else {
				acc[i] -= w
			}
		}
	}

	out.signal = true
	for i, v := range acc {
		if v > 0 {
			out.set(i)
		}
	}
	return out
}

// #endregion fingerprinter

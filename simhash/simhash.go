// Package simhash fingerprints text so near-duplicate passages can be
// detected without keeping the passages around.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint computes a 64-bit SimHash of text.
// Tokens are words, lower-cased with surrounding punctuation trimmed, so
// case and punctuation differences do not change the fingerprint.
func Fingerprint(text string) uint64 {
	words := tokens(text)
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

func tokens(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(strings.ToLower(f), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Index remembers fingerprints and answers "have I seen something like
// this already". The zero value is not usable; call NewIndex.
type Index struct {
	threshold int
	seen      []uint64
}

// NewIndex returns an empty Index matching within threshold bits.
func NewIndex(threshold int) *Index {
	return &Index{threshold: threshold}
}

// Seen reports whether text is near an earlier text. If not, text is added.
// Texts without any words are never considered duplicates.
func (ix *Index) Seen(text string) bool {
	fp := Fingerprint(text)
	if fp == 0 {
		return false
	}
	for _, s := range ix.seen {
		if Similar(fp, s, ix.threshold) {
			return true
		}
	}
	ix.seen = append(ix.seen, fp)
	return false
}

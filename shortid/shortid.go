// Package shortid derives 6-character human-typable match codes.
//
// Codes are deterministic hashes of (creator, counter, timestamp), not
// random draws: the contract is uniqueness (enforced by the registry at
// insertion), not unguessability. An observer who can estimate the counter
// and block timestamp can precompute candidate codes; private matches must
// not rely on code secrecy.
package shortid

import (
	"encoding/binary"
	"strings"

	"github.com/jankenlabs/jankenchain/crypto"
)

// Alphabet is the 32-symbol code alphabet: A–Z without the easily confused
// I and O, plus digits 2–9. 256 is a multiple of 32, so modulo reduction of
// hash bytes is unbiased.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed code length.
const Length = 6

// hashChars is how many leading characters come from the hash; the rest is
// the decimal counter suffix that separates same-instant allocations.
const hashChars = 4

// Generate derives the code for one allocation. Callers must pass a fresh
// counter value on every call; identical inputs produce identical codes.
func Generate(creator string, counter uint64, timestamp int64) string {
	seed := make([]byte, 0, len(creator)+16)
	seed = append(seed, creator...)
	seed = binary.BigEndian.AppendUint64(seed, counter)
	seed = binary.BigEndian.AppendUint64(seed, uint64(timestamp))
	digest := crypto.HashBytes(seed)

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < hashChars; i++ {
		b.WriteByte(Alphabet[int(digest[i])%len(Alphabet)])
	}
	// Two low-order counter digits reduce collisions between allocations
	// that share a creator and timestamp.
	suffix := counter % 100
	b.WriteByte('0' + byte(suffix/10))
	b.WriteByte('0' + byte(suffix%10))
	return b.String()
}

// Valid reports whether s has the shape of a generated code. It does not
// check registry membership.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < hashChars; i++ {
		if !strings.ContainsRune(Alphabet, rune(s[i])) {
			return false
		}
	}
	for i := hashChars; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package crypto

import "crypto/subtle"

// MoveCommitment returns the hiding commitment for a move choice:
// hex(SHA-256(discriminant byte ++ nonce)). The committing client and the
// revealing verifier must build the exact same byte sequence, so this is
// the only place the layout is defined.
func MoveCommitment(discriminant byte, nonce []byte) string {
	buf := make([]byte, 0, 1+len(nonce))
	buf = append(buf, discriminant)
	buf = append(buf, nonce...)
	return Hash(buf)
}

// VerifyMoveCommitment reports whether (discriminant, nonce) opens the given
// hex commitment. Comparison is constant-time; callers surface a single
// mismatch error kind regardless of which byte differed.
func VerifyMoveCommitment(commitment string, discriminant byte, nonce []byte) bool {
	expected := MoveCommitment(discriminant, nonce)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(commitment)) == 1
}

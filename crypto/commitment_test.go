package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestMoveCommitmentLayout(t *testing.T) {
	nonce := []byte{0xde, 0xad, 0xbe, 0xef}
	got := MoveCommitment(1, nonce)

	// The commitment must hash exactly discriminant++nonce, nothing else.
	want := sha256.Sum256([]byte{1, 0xde, 0xad, 0xbe, 0xef})
	if got != hex.EncodeToString(want[:]) {
		t.Errorf("commitment layout changed: got %s", got)
	}
}

func TestVerifyMoveCommitment(t *testing.T) {
	nonce := []byte("thirty-two-bytes-of-nonce-data!!")
	c := MoveCommitment(2, nonce)

	if !VerifyMoveCommitment(c, 2, nonce) {
		t.Error("correct opening must verify")
	}
	if VerifyMoveCommitment(c, 3, nonce) {
		t.Error("different discriminant must fail")
	}
	other := append([]byte(nil), nonce...)
	other[0] ^= 1
	if VerifyMoveCommitment(c, 2, other) {
		t.Error("different nonce must fail")
	}
	if VerifyMoveCommitment("not-a-hash", 2, nonce) {
		t.Error("garbage commitment must fail")
	}
}

func TestMoveCommitmentDistinctPerMove(t *testing.T) {
	nonce := []byte{1, 2, 3}
	seen := map[string]bool{}
	for d := byte(1); d <= 3; d++ {
		c := MoveCommitment(d, nonce)
		if seen[c] {
			t.Fatalf("commitment for discriminant %d collides", d)
		}
		seen[c] = true
	}
}

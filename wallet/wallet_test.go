package wallet

import (
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/crypto"
)

func TestCommitMoveRoundTrip(t *testing.T) {
	w, err := Generate()
	if err != nil {
		t.Fatal(err)
	}

	tx, nonceHex, err := w.CommitMove("test-chain", "ABCD01", core.MoveRock, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Verify(); err != nil {
		t.Fatalf("commit tx signature: %v", err)
	}

	var p core.CommitMovePayload
	if err := json.Unmarshal(tx.Payload, &p); err != nil {
		t.Fatal(err)
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		t.Fatalf("returned nonce is not hex: %v", err)
	}
	if !crypto.VerifyMoveCommitment(p.Commitment, byte(core.MoveRock), nonce) {
		t.Error("returned nonce must open the committed value")
	}
	if crypto.VerifyMoveCommitment(p.Commitment, byte(core.MovePaper), nonce) {
		t.Error("commitment must bind the move")
	}
}

func TestCommitMoveRejectsInvalidMove(t *testing.T) {
	w, _ := Generate()
	if _, _, err := w.CommitMove("test-chain", "ABCD01", core.Move(7), 0, 1); err == nil {
		t.Error("invalid move must be rejected client-side")
	}
}

func TestMatchTxBuilders(t *testing.T) {
	w, _ := Generate()

	cases := []struct {
		name string
		typ  core.TxType
		make func() (*core.Transaction, error)
	}{
		{"create", core.TxCreateMatch, func() (*core.Transaction, error) {
			return w.CreateMatch("c", core.VisibilityPrivate, 10, 0, 1)
		}},
		{"join", core.TxJoinMatch, func() (*core.Transaction, error) {
			return w.JoinMatch("c", "ABCD01", 0, 1)
		}},
		{"cancel", core.TxCancelMatch, func() (*core.Transaction, error) {
			return w.CancelMatch("c", "ABCD01", 0, 1)
		}},
		{"reveal", core.TxRevealMove, func() (*core.Transaction, error) {
			return w.RevealMove("c", "ABCD01", core.MoveRock, "aa", 0, 1)
		}},
		{"withdraw", core.TxWithdrawPrize, func() (*core.Transaction, error) {
			return w.WithdrawPrize("c", "ABCD01", 0, 1)
		}},
	}
	for _, tc := range cases {
		tx, err := tc.make()
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if tx.Type != tc.typ {
			t.Errorf("%s: type %s, want %s", tc.name, tx.Type, tc.typ)
		}
		if tx.ChainID != "c" {
			t.Errorf("%s: chain id %q", tc.name, tx.ChainID)
		}
		if err := tx.Verify(); err != nil {
			t.Errorf("%s: signature: %v", tc.name, err)
		}
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	w, _ := Generate()
	path := filepath.Join(t.TempDir(), "test.key")

	if err := SaveKey(path, "hunter2", w.PrivKey()); err != nil {
		t.Fatal(err)
	}
	priv, err := LoadKey(path, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if priv.Public().Hex() != w.PubKey() {
		t.Error("loaded key does not match saved key")
	}

	if _, err := LoadKey(path, "wrong-password"); err == nil {
		t.Error("wrong password must fail")
	}
}

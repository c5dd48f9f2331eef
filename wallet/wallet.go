package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key (used as "from" address).
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address (first 20 bytes of SHA-256(pubkey)).
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// NewTx creates a signed transaction. chainID must match the target network.
// nonce should match the account's current nonce.
func (w *Wallet) NewTx(chainID string, typ core.TxType, nonce, fee uint64, payload any) (*core.Transaction, error) {
	tx, err := core.NewTransaction(chainID, typ, w.pub.Hex(), nonce, fee, payload)
	if err != nil {
		return nil, err
	}
	tx.Sign(w.priv)
	return tx, nil
}

// Transfer creates a signed transfer transaction.
func (w *Wallet) Transfer(chainID, to string, amount, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxTransfer, nonce, fee, core.TransferPayload{
		To:     to,
		Amount: amount,
	})
}

// CreateMatch creates a signed create_match transaction.
func (w *Wallet) CreateMatch(chainID string, visibility core.MatchVisibility, stake, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxCreateMatch, nonce, fee, core.CreateMatchPayload{
		Visibility: visibility,
		Stake:      stake,
	})
}

// JoinMatch creates a signed join_match transaction.
func (w *Wallet) JoinMatch(chainID, shortID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxJoinMatch, nonce, fee, core.JoinMatchPayload{ShortID: shortID})
}

// CancelMatch creates a signed cancel_match transaction.
func (w *Wallet) CancelMatch(chainID, shortID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxCancelMatch, nonce, fee, core.CancelMatchPayload{ShortID: shortID})
}

// CommitMove creates a signed commit_move transaction for the given move.
// It generates a fresh 32-byte blinding nonce and returns its hex encoding;
// the caller MUST keep the nonce (and the move) to reveal later.
func (w *Wallet) CommitMove(chainID, shortID string, move core.Move, nonce, fee uint64) (*core.Transaction, string, error) {
	if !move.Valid() {
		return nil, "", fmt.Errorf("invalid move %d", move)
	}
	blind := make([]byte, 32)
	if _, err := rand.Read(blind); err != nil {
		return nil, "", fmt.Errorf("generate commitment nonce: %w", err)
	}
	commitment := crypto.MoveCommitment(byte(move), blind)
	tx, err := w.NewTx(chainID, core.TxCommitMove, nonce, fee, core.CommitMovePayload{
		ShortID:    shortID,
		Commitment: commitment,
	})
	if err != nil {
		return nil, "", err
	}
	return tx, hex.EncodeToString(blind), nil
}

// RevealMove creates a signed reveal_move transaction opening a prior
// commitment. blindNonceHex is the value returned by CommitMove.
func (w *Wallet) RevealMove(chainID, shortID string, move core.Move, blindNonceHex string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxRevealMove, nonce, fee, core.RevealMovePayload{
		ShortID: shortID,
		Move:    move,
		Nonce:   blindNonceHex,
	})
}

// WithdrawPrize creates a signed withdraw_prize transaction.
func (w *Wallet) WithdrawPrize(chainID, shortID string, nonce, fee uint64) (*core.Transaction, error) {
	return w.NewTx(chainID, core.TxWithdrawPrize, nonce, fee, core.WithdrawPrizePayload{ShortID: shortID})
}

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jankenlabs/jankenchain/crypto"
)

// TxType identifies the kind of operation a transaction performs.
type TxType string

const (
	TxTransfer      TxType = "transfer"
	TxCreateMatch   TxType = "create_match"
	TxJoinMatch     TxType = "join_match"
	TxCancelMatch   TxType = "cancel_match"
	TxCommitMove    TxType = "commit_move"
	TxRevealMove    TxType = "reveal_move"
	TxWithdrawPrize TxType = "withdraw_prize"
)

// Transaction is the atomic unit of work on the chain.
// From holds the sender's full hex-encoded ed25519 public key (64 chars).
// Signature covers all fields except Signature itself.
type Transaction struct {
	ID        string          `json:"id"`
	ChainID   string          `json:"chain_id"` // rejects cross-chain replay
	Type      TxType          `json:"type"`
	From      string          `json:"from"` // hex-encoded ed25519 public key
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// signingBody holds the fields that are covered by the signature.
type signingBody struct {
	ChainID   string          `json:"chain_id"`
	Type      TxType          `json:"type"`
	From      string          `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Fee       uint64          `json:"fee"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
// Returns an empty string if marshalling fails (which cannot happen in practice).
func (tx *Transaction) Hash() string {
	body := signingBody{
		ChainID:   tx.ChainID,
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Fee:       tx.Fee,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	hash := tx.Hash()
	tx.Signature = crypto.Sign(priv, []byte(hash))
	tx.ID = hash
}

// Verify checks the signature and that From is a valid public key.
func (tx *Transaction) Verify() error {
	if tx.From == "" {
		return errors.New("missing from field")
	}
	pub, err := crypto.PubKeyFromHex(tx.From)
	if err != nil {
		return fmt.Errorf("invalid from (must be ed25519 pubkey hex): %w", err)
	}
	return crypto.Verify(pub, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(chainID string, typ TxType, from string, nonce, fee uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		ChainID:   chainID,
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Fee:       fee,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// TransferPayload transfers native tokens.
type TransferPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// CreateMatchPayload opens a new match; the sender becomes player one and
// their stake is escrowed immediately.
type CreateMatchPayload struct {
	Visibility MatchVisibility `json:"visibility"`
	Stake      uint64          `json:"stake"`
}

// JoinMatchPayload takes the open second slot of a waiting match and
// escrows the same stake.
type JoinMatchPayload struct {
	ShortID string `json:"short_id"`
}

// CancelMatchPayload cancels a waiting match before anyone joins,
// refunding the creator's deposit.
type CancelMatchPayload struct {
	ShortID string `json:"short_id"`
}

// CommitMovePayload stores the sender's hiding commitment,
// hex(SHA-256(move byte ++ nonce)), computed client-side.
type CommitMovePayload struct {
	ShortID    string `json:"short_id"`
	Commitment string `json:"commitment"` // hex SHA-256
}

// RevealMovePayload opens the sender's commitment. Nonce is the hex of the
// random bytes mixed into the commitment.
type RevealMovePayload struct {
	ShortID string `json:"short_id"`
	Move    Move   `json:"move"`
	Nonce   string `json:"nonce"` // hex
}

// WithdrawPrizePayload claims the sender's payout from a finished match.
type WithdrawPrizePayload struct {
	ShortID string `json:"short_id"`
}

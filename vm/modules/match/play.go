package match

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/crypto"
	"github.com/jankenlabs/jankenchain/events"
	"github.com/jankenlabs/jankenchain/vm"
)

func init() {
	vm.Register(core.TxCommitMove, handleCommitMove)
	vm.Register(core.TxRevealMove, handleRevealMove)
	vm.Register(core.TxWithdrawPrize, handleWithdrawPrize)
}

const commitmentHexLen = 64 // hex-encoded SHA-256

func validCommitment(s string) bool {
	if len(s) != commitmentHexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func handleCommitMove(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CommitMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode commit_move payload: %w", err)
	}
	if !validCommitment(p.Commitment) {
		return fmt.Errorf("commitment must be %d hex chars", commitmentHexLen)
	}

	m, err := lookupMatch(ctx.State, p.ShortID)
	if err != nil {
		return err
	}
	if m.Phase != core.PhaseCommitPending {
		return fmt.Errorf("match %q is %s: %w", p.ShortID, m.Phase, ErrWrongPhase)
	}
	isOne, ok := m.Participant(ctx.Tx.From)
	if !ok {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrNotAParticipant)
	}

	// Commitments are write-once per player.
	slot := &m.CommitmentTwo
	if isOne {
		slot = &m.CommitmentOne
	}
	if *slot != nil {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyCommitted)
	}
	commitment := p.Commitment
	*slot = &commitment

	if m.CommitmentOne != nil && m.CommitmentTwo != nil {
		m.Phase = core.PhaseRevealPending
	}
	if err := ctx.State.SetMatch(m); err != nil {
		return err
	}

	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMoveCommitted,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id": p.ShortID,
				"player":   ctx.Tx.From,
				"phase":    string(m.Phase),
			},
		})
	}
	return nil
}

func handleRevealMove(ctx *vm.Context, payload json.RawMessage) error {
	var p core.RevealMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode reveal_move payload: %w", err)
	}

	m, err := lookupMatch(ctx.State, p.ShortID)
	if err != nil {
		return err
	}
	if m.Phase != core.PhaseRevealPending {
		return fmt.Errorf("match %q is %s: %w", p.ShortID, m.Phase, ErrWrongPhase)
	}
	isOne, ok := m.Participant(ctx.Tx.From)
	if !ok {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrNotAParticipant)
	}
	if !p.Move.Valid() {
		return fmt.Errorf("move %d: %w", p.Move, ErrInvalidMove)
	}

	revealSlot, commitment := &m.RevealedTwo, m.CommitmentTwo
	if isOne {
		revealSlot, commitment = &m.RevealedOne, m.CommitmentOne
	}
	if *revealSlot != nil {
		return fmt.Errorf("match %q already revealed: %w", p.ShortID, ErrAlreadyCommitted)
	}

	// The reveal must reproduce the committed byte sequence exactly. Any
	// failure (bad nonce encoding included) surfaces as the same single
	// error kind so nothing about the mismatch leaks.
	nonce, err := hex.DecodeString(p.Nonce)
	if err != nil {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrCommitmentMismatch)
	}
	if commitment == nil || !crypto.VerifyMoveCommitment(*commitment, byte(p.Move), nonce) {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrCommitmentMismatch)
	}

	move := p.Move
	*revealSlot = &move

	finished := m.RevealedOne != nil && m.RevealedTwo != nil
	if finished {
		m.Outcome = determineOutcome(*m.RevealedOne, *m.RevealedTwo)
		switch m.Outcome {
		case core.OutcomePlayerOne:
			winner := m.PlayerOne
			m.Winner = &winner
		case core.OutcomePlayerTwo:
			winner := *m.PlayerTwo
			m.Winner = &winner
		}
		m.Phase = core.PhaseFinished
	}
	if err := ctx.State.SetMatch(m); err != nil {
		return err
	}

	if ctx.Emitter == nil {
		return nil
	}
	if finished {
		data := map[string]any{
			"short_id": p.ShortID,
			"outcome":  string(m.Outcome),
			"move_one": m.RevealedOne.String(),
			"move_two": m.RevealedTwo.String(),
		}
		if m.Winner != nil {
			data["winner"] = *m.Winner
		}
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMatchFinished,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data:        data,
		})
	} else {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMoveRevealed,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id": p.ShortID,
				"player":   ctx.Tx.From,
			},
		})
	}
	return nil
}

func handleWithdrawPrize(ctx *vm.Context, payload json.RawMessage) error {
	var p core.WithdrawPrizePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw_prize payload: %w", err)
	}

	m, err := lookupMatch(ctx.State, p.ShortID)
	if err != nil {
		return err
	}
	if m.Phase != core.PhaseFinished {
		return fmt.Errorf("match %q is %s: %w", p.ShortID, m.Phase, ErrGameNotFinished)
	}
	isOne, ok := m.Participant(ctx.Tx.From)
	if !ok {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrNotAParticipant)
	}

	var payee string
	var amount uint64

	if m.Outcome == core.OutcomeDraw {
		// Each participant reclaims their own deposit exactly once; the two
		// claims are independently flagged so neither can be paid twice.
		if isOne {
			if m.RefundedOne {
				return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyWithdrawn)
			}
			payee, amount = m.PlayerOne, m.DepositOne
			m.DepositOne = 0
			m.RefundedOne = true
		} else {
			if m.RefundedTwo {
				return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyWithdrawn)
			}
			payee, amount = *m.PlayerTwo, m.DepositTwo
			m.DepositTwo = 0
			m.RefundedTwo = true
		}
	} else {
		// Win path: the merged pot goes to the winner only, regardless of
		// which participant triggers settlement.
		if m.PrizeClaimed {
			return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyWithdrawn)
		}
		payee = *m.Winner
		amount = m.DepositOne + m.DepositTwo
		m.DepositOne = 0
		m.DepositTwo = 0
		m.PrizeClaimed = true
	}

	if err := escrowRelease(ctx.State, payee, amount); err != nil {
		return err
	}
	if err := ctx.State.SetMatch(m); err != nil {
		return err
	}

	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventPrizeWithdrawn,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id": p.ShortID,
				"to":       payee,
				"amount":   amount,
			},
		})
	}
	return nil
}

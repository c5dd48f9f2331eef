package match

import (
	"encoding/json"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/events"
	"github.com/jankenlabs/jankenchain/vm"
)

func init() {
	vm.Register(core.TxCreateMatch, handleCreateMatch)
	vm.Register(core.TxJoinMatch, handleJoinMatch)
	vm.Register(core.TxCancelMatch, handleCancelMatch)
}

func handleCreateMatch(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CreateMatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode create_match payload: %w", err)
	}
	if p.Stake == 0 {
		return fmt.Errorf("stake must be > 0: %w", ErrInvalidStake)
	}
	if p.Visibility != core.VisibilityPublic && p.Visibility != core.VisibilityPrivate {
		return fmt.Errorf("visibility must be %q or %q", core.VisibilityPublic, core.VisibilityPrivate)
	}

	idx, err := loadIndex(ctx.State)
	if err != nil {
		return err
	}
	shortID := allocateID(ctx.State, idx, ctx.Tx.From, ctx.Block.Header.Timestamp)

	// Creator's stake goes into escrow before the match becomes visible.
	if err := escrowDeposit(ctx.State, ctx.Tx.From, p.Stake); err != nil {
		return err
	}

	m := &core.Match{
		ShortID:    shortID,
		Creator:    ctx.Tx.From,
		PlayerOne:  ctx.Tx.From,
		Phase:      core.PhaseWaiting,
		Outcome:    core.OutcomePending,
		Visibility: p.Visibility,
		Stake:      p.Stake,
		DepositOne: p.Stake,
		CreatedAt:  ctx.Block.Header.Timestamp,
	}
	if err := insertMatch(ctx.State, idx, m); err != nil {
		return err
	}

	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMatchCreated,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id":   shortID,
				"creator":    ctx.Tx.From,
				"visibility": string(p.Visibility),
				"stake":      p.Stake,
			},
		})
	}
	return nil
}

func handleJoinMatch(ctx *vm.Context, payload json.RawMessage) error {
	var p core.JoinMatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode join_match payload: %w", err)
	}

	m, err := lookupMatch(ctx.State, p.ShortID)
	if err != nil {
		return err
	}
	if m.PlayerTwo != nil {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyFull)
	}
	if m.Phase != core.PhaseWaiting {
		return fmt.Errorf("match %q is %s: %w", p.ShortID, m.Phase, ErrWrongPhase)
	}
	if ctx.Tx.From == m.PlayerOne {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrSelfJoin)
	}

	if err := escrowDeposit(ctx.State, ctx.Tx.From, m.Stake); err != nil {
		return err
	}

	joiner := ctx.Tx.From
	m.PlayerTwo = &joiner
	m.DepositTwo = m.Stake
	m.Phase = core.PhaseCommitPending
	if err := ctx.State.SetMatch(m); err != nil {
		return err
	}

	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMatchJoined,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id":   p.ShortID,
				"player_two": joiner,
				"phase":      string(m.Phase),
			},
		})
	}
	return nil
}

func handleCancelMatch(ctx *vm.Context, payload json.RawMessage) error {
	var p core.CancelMatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode cancel_match payload: %w", err)
	}

	m, err := lookupMatch(ctx.State, p.ShortID)
	if err != nil {
		return err
	}
	if ctx.Tx.From != m.Creator {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrNotCreator)
	}
	if m.Phase != core.PhaseWaiting || m.PlayerTwo != nil {
		return fmt.Errorf("match %q: %w", p.ShortID, ErrAlreadyStarted)
	}

	if err := escrowRelease(ctx.State, m.Creator, m.DepositOne); err != nil {
		return err
	}
	m.DepositOne = 0

	idx, err := loadIndex(ctx.State)
	if err != nil {
		return err
	}
	if err := removeMatch(ctx.State, idx, p.ShortID); err != nil {
		return err
	}

	if ctx.Emitter != nil {
		ctx.Emitter.Emit(events.Event{
			Type:        events.EventMatchCancelled,
			TxID:        ctx.Tx.ID,
			BlockHeight: ctx.Block.Header.Height,
			Data: map[string]any{
				"short_id": p.ShortID,
				"creator":  m.Creator,
				"refund":   m.Stake,
			},
		})
	}
	return nil
}

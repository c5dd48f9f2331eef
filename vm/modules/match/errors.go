// Package match implements the wagered rock-paper-scissors protocol as VM
// transaction handlers: match lifecycle, commit-reveal verification, escrow
// settlement, and the short-identifier registry.
package match

import "errors"

// Protocol error kinds. Handlers wrap these with context via %w; the
// executor's snapshot rollback guarantees no partial mutation survives any
// of them. A missing match is reported as core.ErrNotFound.
var (
	ErrWrongPhase          = errors.New("wrong phase")
	ErrNotAParticipant     = errors.New("not a participant")
	ErrNotCreator          = errors.New("not the creator")
	ErrAlreadyFull         = errors.New("match already full")
	ErrSelfJoin            = errors.New("cannot join own match")
	ErrAlreadyCommitted    = errors.New("already committed")
	ErrAlreadyWithdrawn    = errors.New("already withdrawn")
	ErrAlreadyStarted      = errors.New("match already started")
	ErrInvalidMove         = errors.New("invalid move")
	ErrInvalidStake        = errors.New("invalid stake")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCommitmentMismatch  = errors.New("commitment mismatch")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrGameNotFinished     = errors.New("game not finished")
)

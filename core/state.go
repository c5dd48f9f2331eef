package core

// Account holds a participant's token balance and replay-protection nonce.
// Address is the hex-encoded ed25519 public key.
type Account struct {
	Address string `json:"address"` // pubkey hex
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// MatchPhase is the lifecycle stage of a match. Phases only advance forward:
// waiting → commit_pending → reveal_pending → finished. Cancellation is not
// a phase; a cancelled match is deleted from state.
type MatchPhase string

const (
	PhaseWaiting       MatchPhase = "waiting"        // created, second player not joined
	PhaseCommitPending MatchPhase = "commit_pending" // both joined, commitments incomplete
	PhaseRevealPending MatchPhase = "reveal_pending" // both committed, reveals incomplete
	PhaseFinished      MatchPhase = "finished"       // both revealed, outcome fixed
)

// Move is one of the three discrete choices. The numeric value is the
// discriminant byte hashed into a commitment, so it must never change.
type Move uint8

const (
	MoveRock     Move = 1
	MovePaper    Move = 2
	MoveScissors Move = 3
)

// Valid reports whether m is inside the three-element move domain.
func (m Move) Valid() bool {
	return m == MoveRock || m == MovePaper || m == MoveScissors
}

func (m Move) String() string {
	switch m {
	case MoveRock:
		return "rock"
	case MovePaper:
		return "paper"
	case MoveScissors:
		return "scissors"
	default:
		return "invalid"
	}
}

// MatchOutcome is the settled result of a match.
type MatchOutcome string

const (
	OutcomePending   MatchOutcome = "pending"
	OutcomePlayerOne MatchOutcome = "player1_wins"
	OutcomePlayerTwo MatchOutcome = "player2_wins"
	OutcomeDraw      MatchOutcome = "draw"
)

// MatchVisibility controls whether a match appears in the public listing.
type MatchVisibility string

const (
	VisibilityPublic  MatchVisibility = "public"
	VisibilityPrivate MatchVisibility = "private"
)

// Match is one wagered rock-paper-scissors game instance. Optional slots
// (second player, commitments, reveals, winner) are pointers and stay nil
// until the protocol sets them; call sites must branch on presence.
//
// Escrow invariant: DepositOne+DepositTwo equals Stake times the number of
// joined players until settlement, and 0 once every settlement claim has
// been paid out.
type Match struct {
	ShortID       string          `json:"short_id"`
	Creator       string          `json:"creator"` // pubkey hex, owns pre-join cancellation
	PlayerOne     string          `json:"player_one"`
	PlayerTwo     *string         `json:"player_two,omitempty"`
	Phase         MatchPhase      `json:"phase"`
	CommitmentOne *string         `json:"commitment_one,omitempty"` // hex SHA-256, write-once
	CommitmentTwo *string         `json:"commitment_two,omitempty"`
	RevealedOne   *Move           `json:"revealed_one,omitempty"` // set only after commitment verifies
	RevealedTwo   *Move           `json:"revealed_two,omitempty"`
	Outcome       MatchOutcome    `json:"outcome"`
	Winner        *string         `json:"winner,omitempty"` // set iff Outcome is a win state
	Visibility    MatchVisibility `json:"visibility"`
	Stake         uint64          `json:"stake"` // fixed at creation, identical for both players
	DepositOne    uint64          `json:"deposit_one"`
	DepositTwo    uint64          `json:"deposit_two"`
	PrizeClaimed  bool            `json:"prize_claimed"` // win path, monotonic false→true
	RefundedOne   bool            `json:"refunded_one"`  // draw path, per-participant one-shot
	RefundedTwo   bool            `json:"refunded_two"`
	CreatedAt     int64           `json:"created_at"` // block timestamp, informational
}

// Participant reports whether address plays in this match and, if so,
// whether it occupies the first slot.
func (m *Match) Participant(address string) (isPlayerOne, ok bool) {
	if address == m.PlayerOne {
		return true, true
	}
	if m.PlayerTwo != nil && address == *m.PlayerTwo {
		return false, true
	}
	return false, false
}

// MatchIndex is the single ledger-wide registry record: the allocation
// counter (generator input only, never exposed via RPC) and the
// insertion-ordered listing of public match IDs.
type MatchIndex struct {
	NextCounter uint64   `json:"next_counter"`
	Public      []string `json:"public"`
}

// State is the full blockchain state interface. Implementations must be
// snapshot-able so the executor can roll back failed transactions.
type State interface {
	// Accounts
	GetAccount(address string) (*Account, error)
	SetAccount(account *Account) error

	// Matches (keyed by short ID)
	GetMatch(shortID string) (*Match, error)
	SetMatch(m *Match) error
	DeleteMatch(shortID string) error

	// Registry index (one record per deployment)
	GetMatchIndex() (*MatchIndex, error)
	SetMatchIndex(idx *MatchIndex) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing. Call this before signing a block.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	// Always call ComputeRoot() first to obtain the root for the block header.
	Commit() error
}

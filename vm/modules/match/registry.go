package match

import (
	"errors"
	"fmt"

	"github.com/jankenlabs/jankenchain/core"
	"github.com/jankenlabs/jankenchain/shortid"
)

// The registry is the ledger-wide short-ID index: matches live under their
// own state keys (the by-ID map) and a single MatchIndex record carries the
// allocation counter and the insertion-ordered public listing. All mutations
// here run inside a transaction, so the executor's snapshot gives them
// all-or-nothing semantics; a failed create also rolls the counter back,
// keeping "advances exactly once per successful allocation" true.

// loadIndex returns the registry record, or a fresh zero record on first use.
func loadIndex(state core.State) (*core.MatchIndex, error) {
	idx, err := state.GetMatchIndex()
	if errors.Is(err, core.ErrNotFound) {
		return &core.MatchIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load match index: %w", err)
	}
	return idx, nil
}

// allocateID bumps the counter and derives a code for it. The code is NOT
// checked for uniqueness here; insertMatch rejects collisions and the whole
// create aborts rather than retrying in-transaction.
func allocateID(state core.State, idx *core.MatchIndex, creator string, timestamp int64) string {
	counter := idx.NextCounter
	idx.NextCounter++
	return shortid.Generate(creator, counter, timestamp)
}

// insertMatch stores m under its short ID, failing on collision, and
// appends public matches to the listing.
func insertMatch(state core.State, idx *core.MatchIndex, m *core.Match) error {
	if _, err := state.GetMatch(m.ShortID); err == nil {
		return fmt.Errorf("short id %q: %w", m.ShortID, ErrDuplicateIdentifier)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("check short id %q: %w", m.ShortID, err)
	}
	if err := state.SetMatch(m); err != nil {
		return err
	}
	if m.Visibility == core.VisibilityPublic {
		idx.Public = append(idx.Public, m.ShortID)
	}
	return state.SetMatchIndex(idx)
}

// removeMatch deletes the match and filters it out of the public listing,
// preserving the order of the remaining entries.
func removeMatch(state core.State, idx *core.MatchIndex, shortID string) error {
	if err := state.DeleteMatch(shortID); err != nil {
		return err
	}
	filtered := idx.Public[:0]
	for _, id := range idx.Public {
		if id != shortID {
			filtered = append(filtered, id)
		}
	}
	idx.Public = filtered
	return state.SetMatchIndex(idx)
}

// lookupMatch fetches a match by short ID; absence surfaces core.ErrNotFound.
func lookupMatch(state core.State, shortID string) (*core.Match, error) {
	m, err := state.GetMatch(shortID)
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", shortID, err)
	}
	return m, nil
}

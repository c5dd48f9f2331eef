package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jankenlabs/jankenchain/core"
)

func TestDetermineOutcome(t *testing.T) {
	cases := []struct {
		one, two core.Move
		want     core.MatchOutcome
	}{
		{core.MoveRock, core.MoveRock, core.OutcomeDraw},
		{core.MoveRock, core.MovePaper, core.OutcomePlayerTwo},
		{core.MoveRock, core.MoveScissors, core.OutcomePlayerOne},
		{core.MovePaper, core.MoveRock, core.OutcomePlayerOne},
		{core.MovePaper, core.MovePaper, core.OutcomeDraw},
		{core.MovePaper, core.MoveScissors, core.OutcomePlayerTwo},
		{core.MoveScissors, core.MoveRock, core.OutcomePlayerTwo},
		{core.MoveScissors, core.MovePaper, core.OutcomePlayerOne},
		{core.MoveScissors, core.MoveScissors, core.OutcomeDraw},
	}
	for _, tc := range cases {
		got := determineOutcome(tc.one, tc.two)
		assert.Equal(t, tc.want, got, "%s vs %s", tc.one, tc.two)
	}
}

// TestBeatsAntiSymmetric checks that for every distinct pair exactly one side
// wins, and that nothing beats itself.
func TestBeatsAntiSymmetric(t *testing.T) {
	moves := []core.Move{core.MoveRock, core.MovePaper, core.MoveScissors}
	for _, a := range moves {
		assert.False(t, beats(a, a), "%s must not beat itself", a)
		for _, b := range moves {
			if a == b {
				continue
			}
			assert.NotEqual(t, beats(a, b), beats(b, a),
				"exactly one of (%s beats %s) and (%s beats %s)", a, b, b, a)
		}
	}
}

package match

import "github.com/jankenlabs/jankenchain/core"

// beats is the explicit winning relation over the three moves. Kept as a
// relation check rather than numeric comparison so the table stays visibly
// symmetric with the rules: rock beats scissors, scissors beats paper,
// paper beats rock.
func beats(a, b core.Move) bool {
	switch {
	case a == core.MoveRock && b == core.MoveScissors:
		return true
	case a == core.MoveScissors && b == core.MovePaper:
		return true
	case a == core.MovePaper && b == core.MoveRock:
		return true
	default:
		return false
	}
}

// determineOutcome resolves the revealed pair. Equal moves draw; otherwise
// exactly one side satisfies the beats relation.
func determineOutcome(one, two core.Move) core.MatchOutcome {
	if one == two {
		return core.OutcomeDraw
	}
	if beats(one, two) {
		return core.OutcomePlayerOne
	}
	return core.OutcomePlayerTwo
}

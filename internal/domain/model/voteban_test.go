package model

import (
	"testing"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
)

func ballots(sides ...enums.VoteSide) []Ballot {
	out := make([]Ballot, 0, len(sides))
	for i, side := range sides {
		out = append(out, Ballot{VoterID: int64(i + 1), Side: side})
	}
	return out
}

func TestTallyDecisionAndQuorum(t *testing.T) {
	ban, noban := enums.VoteSideBan, enums.VoteSideNoBan

	tests := []struct {
		name     string
		ballots  []Ballot
		quorum   int
		reached  bool
		decision enums.VoteSide
	}{
		{name: "empty", quorum: 2, reached: false, decision: noban},
		{name: "ban majority below quorum", ballots: ballots(ban), quorum: 2, reached: false, decision: ban},
		{name: "ban reaches quorum", ballots: ballots(ban, ban, noban), quorum: 2, reached: true, decision: ban},
		{name: "noban reaches quorum", ballots: ballots(noban, ban, noban), quorum: 2, reached: true, decision: noban},
		{name: "tie reads as noban", ballots: ballots(ban, ban, noban, noban), quorum: 2, reached: true, decision: noban},
		{name: "disabled quorum never reached", ballots: ballots(ban, ban, ban), quorum: 0, reached: false, decision: ban},
		{name: "quorum of one never reached", ballots: ballots(ban), quorum: 1, reached: false, decision: ban},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tally := NewTally(tc.ballots)
			if got := tally.Reached(tc.quorum); got != tc.reached {
				t.Fatalf("Reached(%d) = %v, want %v", tc.quorum, got, tc.reached)
			}
			if got := tally.Decision(); got != tc.decision {
				t.Fatalf("Decision() = %q, want %q", got, tc.decision)
			}
			if got := tally.Count(ban) + tally.Count(noban); got != len(tc.ballots) {
				t.Fatalf("counted %d ballots, want %d", got, len(tc.ballots))
			}
		})
	}
}

func TestNewTallySkipsUnknownSides(t *testing.T) {
	tally := NewTally([]Ballot{{VoterID: 1, Side: "maybe"}, {VoterID: 2, Side: enums.VoteSideBan}})
	if len(tally.Voters(enums.VoteSideBan)) != 1 || len(tally.Voters(enums.VoteSideNoBan)) != 0 {
		t.Fatalf("unexpected tally %+v", tally)
	}
}

package botapp

import (
	"math"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantArgs int
		ok       bool
	}{
		{text: "/voteban", wantName: commandVoteban, ok: true},
		{text: "voteban", wantName: commandVoteban, ok: true},
		{text: "VoteBan", wantName: commandVoteban, ok: true},
		{text: "  /VOTEBAN  ", wantName: commandVoteban, ok: true},
		{text: "/voteban@ChatWardenBot", wantName: commandVoteban, ok: true},
		{text: "/voteban@chatwardenbot spam", wantName: commandVoteban, wantArgs: 1, ok: true},
		{text: "/voteban@OtherBot", ok: false},
		{text: "voteban please", ok: false},
		{text: "/votebans", ok: false},
		{text: "let's voteban", ok: false},
		{text: "/votebanquorum 5", wantName: commandVotebanQuorum, wantArgs: 1, ok: true},
		{text: "/VotebanQuorum@ChatWardenBot", wantName: commandVotebanQuorum, ok: true},
		{text: "votebanquorum 5", ok: false},
		{text: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := ParseCommand(tt.text, "ChatWardenBot")
			if ok != tt.ok {
				t.Fatalf("unexpected match for %q: got %v want %v", tt.text, ok, tt.ok)
			}
			if !ok {
				return
			}
			if cmd.Name != tt.wantName || len(cmd.Args) != tt.wantArgs {
				t.Fatalf("unexpected command for %q: %+v", tt.text, cmd)
			}
		})
	}
}

func TestParseQuorumArg(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{raw: "5", want: 5, ok: true},
		{raw: "-3", want: -3, ok: true},
		{raw: "99999999999999999999", want: math.MaxInt64, ok: true},
		{raw: "-99999999999999999999", want: math.MinInt64, ok: true},
		{raw: "five", ok: false},
		{raw: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := parseQuorumArg(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parse %q: got (%d, %v) want (%d, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

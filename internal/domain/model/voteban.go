package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
)

// SenderRef identifies who spoke: a regular user, or a channel/group posting
// as itself (SenderChatID set).
type SenderRef struct {
	UserID       int64
	SenderChatID int64
	Name         string
}

func (r SenderRef) IsSenderChat() bool {
	return r.SenderChatID != 0
}

func (r SenderRef) IsZero() bool {
	return r.UserID == 0 && r.SenderChatID == 0
}

type VoteSession struct {
	ID              uuid.UUID
	ChatID          int64
	MessageID       int
	Author          SenderRef
	Candidate       SenderRef
	TargetMessageID int
	MediaGroupID    string
	CreatedAt       time.Time
}

type Ballot struct {
	SessionID uuid.UUID
	VoterID   int64
	VoterName string
	Side      enums.VoteSide
	CreatedAt time.Time
}

type Tally struct {
	Ban   []Ballot
	NoBan []Ballot
}

func NewTally(ballots []Ballot) Tally {
	var t Tally
	for _, b := range ballots {
		switch b.Side {
		case enums.VoteSideBan:
			t.Ban = append(t.Ban, b)
		case enums.VoteSideNoBan:
			t.NoBan = append(t.NoBan, b)
		}
	}
	return t
}

func (t Tally) Count(side enums.VoteSide) int {
	if side == enums.VoteSideBan {
		return len(t.Ban)
	}
	return len(t.NoBan)
}

// Decision is the side holding a strict majority; a tie reads as no-ban.
func (t Tally) Decision() enums.VoteSide {
	if len(t.Ban) > len(t.NoBan) {
		return enums.VoteSideBan
	}
	return enums.VoteSideNoBan
}

func (t Tally) Voters(side enums.VoteSide) []Ballot {
	if side == enums.VoteSideBan {
		return t.Ban
	}
	return t.NoBan
}

func (t Tally) Reached(quorum int) bool {
	if quorum < 2 {
		return false
	}
	return len(t.Ban) >= quorum || len(t.NoBan) >= quorum
}

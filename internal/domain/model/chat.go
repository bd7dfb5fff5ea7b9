package model

import "time"

type ChatModerationConfig struct {
	ChatID    int64
	Quorum    int
	BotCanBan bool
}

// Enabled reports whether crowd ban voting is switched on. A quorum of one
// is stored as zero, so anything below two means disabled.
func (c ChatModerationConfig) Enabled() bool {
	return c.Quorum >= 2
}

type ChatSettings struct {
	ChatID        int64
	VotebanQuorum int
	UpdatedAt     time.Time
}

type ChatMessage struct {
	ChatID       int64
	MessageID    int
	MediaGroupID string
	CreatedAt    time.Time
}

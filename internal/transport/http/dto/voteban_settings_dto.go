package dto

type VotebanSettingsResponse struct {
	ChatID    int64 `json:"chat_id"`
	Quorum    int   `json:"quorum"`
	Enabled   bool  `json:"enabled"`
	BotCanBan bool  `json:"bot_can_ban"`
}

// UpdateVotebanSettingsRequest carries the raw quorum; 0 or 1 disables
// voting and values above the storage limit are clamped.
type UpdateVotebanSettingsRequest struct {
	Quorum *int64 `json:"quorum"`
}

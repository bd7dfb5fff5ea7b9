package enums

type VoteSide string

const (
	VoteSideBan   VoteSide = "ban"
	VoteSideNoBan VoteSide = "noban"
)

func (s VoteSide) Valid() bool {
	return s == VoteSideBan || s == VoteSideNoBan
}

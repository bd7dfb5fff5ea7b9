package ui

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

const voterSeparator = ", "

// Mention renders a clickable reference to a user, or a bold title for a
// sender chat which has no user link.
func Mention(ref model.SenderRef) string {
	name := strings.TrimSpace(ref.Name)
	if ref.IsSenderChat() {
		if name == "" {
			name = "chat " + strconv.FormatInt(ref.SenderChatID, 10)
		}
		return "<b>" + html.EscapeString(name) + "</b>"
	}
	if name == "" {
		name = "id" + strconv.FormatInt(ref.UserID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, ref.UserID, html.EscapeString(name))
}

func VoteQuestion(author, candidate model.SenderRef) string {
	return fmt.Sprintf("%s proposes to ban %s. Should they be banned?", Mention(author), Mention(candidate))
}

func VoteButtonText(side enums.VoteSide, count, quorum int) string {
	label := "No ban"
	if side == enums.VoteSideBan {
		label = "Ban"
	}
	return fmt.Sprintf("%s (%d/%d)", label, count, quorum)
}

func VoteCancelled(candidate model.SenderRef, reason string) string {
	return fmt.Sprintf("Vote on %s\n\n%s", Mention(candidate), html.EscapeString(reason))
}

// VoteResult renders the decided outcome with the voters of the winning side.
// The text never exceeds maxRunes: once another voter would not fit, the
// remainder is elided as "and N others".
func VoteResult(candidate model.SenderRef, decision enums.VoteSide, voters []model.Ballot, maxRunes int) string {
	var header string
	if decision == enums.VoteSideBan {
		header = fmt.Sprintf("Voting completed: %s is banned.\nVoted to ban: ", Mention(candidate))
	} else {
		header = fmt.Sprintf("Voting completed: %s stays.\nVoted against the ban: ", Mention(candidate))
	}

	links := make([]string, 0, len(voters))
	for _, voter := range voters {
		links = append(links, Mention(model.SenderRef{UserID: voter.VoterID, Name: voter.VoterName}))
	}

	return joinWithElision(header, links, maxRunes)
}

func joinWithElision(prefix string, items []string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 4096
	}

	var b strings.Builder
	b.WriteString(prefix)
	used := utf8.RuneCountInString(prefix)

	for i, item := range items {
		piece := item
		if i > 0 {
			piece = voterSeparator + item
		}

		reserve := 0
		if left := len(items) - i - 1; left > 0 {
			reserve = utf8.RuneCountInString(othersSuffix(left))
		}

		if used+utf8.RuneCountInString(piece)+reserve > maxRunes {
			b.WriteString(othersSuffix(len(items) - i))
			return b.String()
		}

		b.WriteString(piece)
		used += utf8.RuneCountInString(piece)
	}

	return b.String()
}

func othersSuffix(n int) string {
	if n == 1 {
		return " and 1 other"
	}
	return fmt.Sprintf(" and %d others", n)
}

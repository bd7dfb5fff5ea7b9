package botapp

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	commandVoteban       = "voteban"
	commandVotebanQuorum = "votebanquorum"
)

type Command struct {
	Name string
	Args []string
}

// ParseCommand recognises the bot commands in a message text. Names match
// case-insensitively and may carry an @mention of this bot. The voteban
// command also works without the leading slash, but then it has to be the
// whole message.
func ParseCommand(text, botUsername string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, false
	}

	head := fields[0]
	slashed := strings.HasPrefix(head, "/")
	head = strings.TrimPrefix(head, "/")

	if name, mention, ok := strings.Cut(head, "@"); ok {
		if botUsername == "" || !strings.EqualFold(mention, botUsername) {
			return Command{}, false
		}
		head = name
	}

	name := strings.ToLower(head)
	switch name {
	case commandVoteban:
		if !slashed && len(fields) > 1 {
			return Command{}, false
		}
	case commandVotebanQuorum:
		if !slashed {
			return Command{}, false
		}
	default:
		return Command{}, false
	}

	return Command{Name: name, Args: fields[1:]}, true
}

// parseQuorumArg reads the quorum argument. Out of range numbers saturate so
// the settings service can clamp them.
func parseQuorumArg(raw string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err == nil {
		return n, true
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		if strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return math.MinInt64, true
		}
		return math.MaxInt64, true
	}
	return 0, false
}

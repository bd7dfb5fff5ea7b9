package voteban

import (
	"fmt"
	"strings"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
)

const callbackPrefix = "vb:"

func EncodeCallback(side enums.VoteSide) string {
	return callbackPrefix + string(side)
}

// IsCallback reports whether the payload belongs to the voteban buttons,
// valid or not.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

func ParseCallback(data string) (enums.VoteSide, error) {
	raw, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCallback, data)
	}
	side := enums.VoteSide(raw)
	if !side.Valid() {
		return "", fmt.Errorf("%w: unknown side %q", ErrInvalidCallback, raw)
	}
	return side, nil
}

package auth

import (
	"errors"
	"time"
)

const RoleAdmin = "admin"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// AccessClaims describe an operator token. An empty Chats list grants access
// to every chat.
type AccessClaims struct {
	Operator  string
	SID       string
	Role      string
	Chats     []int64
	ExpiresAt time.Time
}

func (c AccessClaims) AllowsChat(chatID int64) bool {
	if c.Role != RoleAdmin {
		return false
	}
	if len(c.Chats) == 0 {
		return true
	}
	for _, id := range c.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}

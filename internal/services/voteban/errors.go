package voteban

import "errors"

var (
	ErrSessionNotFound = errors.New("voteban session not found")
	ErrSessionConflict = errors.New("voteban session already started for this target")
	ErrAlreadyVoted    = errors.New("ballot already cast on this side")
	ErrInvalidCallback = errors.New("invalid voteban callback payload")
)

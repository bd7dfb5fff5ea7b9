package settings

import (
	"context"
	"fmt"
	"math"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

// MaxQuorum matches the width of the storage column.
const MaxQuorum = math.MaxInt32

type Store interface {
	Get(ctx context.Context, chatID int64) (model.ChatSettings, error)
	SetVotebanQuorum(ctx context.Context, chatID int64, quorum int) error
}

type CapabilityChecker interface {
	BotCanBan(ctx context.Context, chatID int64) (bool, error)
}

type Service struct {
	store      Store
	capability CapabilityChecker
}

func NewService(store Store, capability CapabilityChecker) *Service {
	return &Service{
		store:      store,
		capability: capability,
	}
}

// NormalizeQuorum clamps the raw value into [0, MaxQuorum]. A quorum of one
// would let a single voter decide, so it is stored as disabled.
func NormalizeQuorum(raw int64) int {
	switch {
	case raw <= 1:
		return 0
	case raw > MaxQuorum:
		return MaxQuorum
	default:
		return int(raw)
	}
}

func (s *Service) Resolve(ctx context.Context, chatID int64) (model.ChatModerationConfig, error) {
	quorum, err := s.Quorum(ctx, chatID)
	if err != nil {
		return model.ChatModerationConfig{}, err
	}

	cfg := model.ChatModerationConfig{ChatID: chatID, Quorum: quorum}
	if s.capability == nil {
		return cfg, nil
	}

	canBan, err := s.capability.BotCanBan(ctx, chatID)
	if err != nil {
		return model.ChatModerationConfig{}, fmt.Errorf("resolve bot capability: %w", err)
	}
	cfg.BotCanBan = canBan

	return cfg, nil
}

func (s *Service) Quorum(ctx context.Context, chatID int64) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("settings store is not configured")
	}
	if chatID == 0 {
		return 0, fmt.Errorf("invalid chat id")
	}

	stored, err := s.store.Get(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return NormalizeQuorum(int64(stored.VotebanQuorum)), nil
}

// SetQuorum stores the normalized value and returns what was stored.
func (s *Service) SetQuorum(ctx context.Context, chatID int64, raw int64) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("settings store is not configured")
	}
	if chatID == 0 {
		return 0, fmt.Errorf("invalid chat id")
	}

	quorum := NormalizeQuorum(raw)
	if err := s.store.SetVotebanQuorum(ctx, chatID, quorum); err != nil {
		return 0, err
	}
	return quorum, nil
}

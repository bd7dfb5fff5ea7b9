package membership

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	tginfra "github.com/ivankudzin/chatwarden/internal/infra/telegram"
)

const defaultCacheTTL = 5 * time.Minute

type ChatAPI interface {
	ChatMember(ctx context.Context, chatID, userID int64) (tginfra.MemberInfo, error)
	ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error)
	SelfID() int64
}

type Cache interface {
	GetAdmins(ctx context.Context, chatID int64) ([]int64, bool, error)
	SetAdmins(ctx context.Context, chatID int64, adminIDs []int64, ttl time.Duration) error
	GetBotCanBan(ctx context.Context, chatID int64) (bool, bool, error)
	SetBotCanBan(ctx context.Context, chatID int64, canBan bool, ttl time.Duration) error
	Invalidate(ctx context.Context, chatID int64) error
}

// Service answers admin and membership questions about a chat. Platform
// failures are reported as Unknown and left to the caller's tolerance rules.
type Service struct {
	api      ChatAPI
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewService(api ChatAPI, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:      api,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *Service) IsAdmin(ctx context.Context, chatID, userID int64) enums.Tristate {
	admins, err := s.admins(ctx, chatID)
	if err != nil {
		s.logger.Warn("resolve chat admins failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return enums.TristateUnknown
	}
	for _, id := range admins {
		if id == userID {
			return enums.TristateYes
		}
	}
	return enums.TristateNo
}

func (s *Service) IsMember(ctx context.Context, chatID, userID int64) enums.Tristate {
	if s.api == nil {
		return enums.TristateUnknown
	}

	member, err := s.api.ChatMember(ctx, chatID, userID)
	if err != nil {
		s.logger.Warn("resolve chat membership failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return enums.TristateUnknown
	}
	return enums.TristateOf(member.InChat())
}

// BotCanBan reports whether the bot may ban members. An unknown answer is
// reported as false.
func (s *Service) BotCanBan(ctx context.Context, chatID int64) (bool, error) {
	if s.cache != nil {
		canBan, ok, err := s.cache.GetBotCanBan(ctx, chatID)
		if err != nil {
			s.logger.Warn("read bot capability cache failed", zap.Int64("chat_id", chatID), zap.Error(err))
		} else if ok {
			return canBan, nil
		}
	}

	if s.api == nil {
		return false, fmt.Errorf("telegram api is not configured")
	}

	member, err := s.api.ChatMember(ctx, chatID, s.api.SelfID())
	if err != nil {
		s.logger.Warn("resolve bot capability failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return false, nil
	}

	canBan := member.IsAdmin() && member.CanRestrictMembers
	if s.cache != nil {
		if err := s.cache.SetBotCanBan(ctx, chatID, canBan, s.cacheTTL); err != nil {
			s.logger.Warn("store bot capability cache failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return canBan, nil
}

// HandleMemberUpdate drops cached answers once a status change touches the
// bot or an administrator.
func (s *Service) HandleMemberUpdate(ctx context.Context, update tginfra.MemberUpdate) error {
	if s.cache == nil {
		return nil
	}
	if !s.affectsCache(update) {
		return nil
	}
	if err := s.cache.Invalidate(ctx, update.ChatID); err != nil {
		return fmt.Errorf("invalidate membership cache: %w", err)
	}
	s.logger.Debug("membership cache invalidated",
		zap.Int64("chat_id", update.ChatID),
		zap.Int64("user_id", update.UserID),
		zap.String("old_status", update.OldStatus),
		zap.String("new_status", update.NewStatus),
	)
	return nil
}

func (s *Service) affectsCache(update tginfra.MemberUpdate) bool {
	if s.api != nil && update.UserID == s.api.SelfID() {
		return true
	}
	return isAdminStatus(update.OldStatus) || isAdminStatus(update.NewStatus)
}

func (s *Service) admins(ctx context.Context, chatID int64) ([]int64, error) {
	if s.cache != nil {
		ids, ok, err := s.cache.GetAdmins(ctx, chatID)
		if err != nil {
			s.logger.Warn("read admins cache failed", zap.Int64("chat_id", chatID), zap.Error(err))
		} else if ok {
			return ids, nil
		}
	}

	if s.api == nil {
		return nil, fmt.Errorf("telegram api is not configured")
	}

	ids, err := s.api.ChatAdministrators(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAdmins(ctx, chatID, ids, s.cacheTTL); err != nil {
			s.logger.Warn("store admins cache failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
	return ids, nil
}

func isAdminStatus(status string) bool {
	return status == tginfra.StatusCreator || status == tginfra.StatusAdministrator
}

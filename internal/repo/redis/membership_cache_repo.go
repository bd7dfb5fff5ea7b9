package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	chatAdminsPrefix    = "chat_admins:"
	botCanBanPrefix     = "chat_bot_can_ban:"
	adminsEmptySentinel = "none"
)

// MembershipCacheRepo caches per-chat administrator lists and the bot's own
// ban capability so that vote handling does not hit the Bot API on every press.
type MembershipCacheRepo struct {
	client *goredis.Client
}

func NewMembershipCacheRepo(client *goredis.Client) *MembershipCacheRepo {
	return &MembershipCacheRepo{client: client}
}

// GetAdmins returns the cached admin ids. ok is false on a cache miss.
func (r *MembershipCacheRepo) GetAdmins(ctx context.Context, chatID int64) ([]int64, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}

	members, err := r.client.SMembers(ctx, adminsKey(chatID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read cached chat admins: %w", err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		if member == adminsEmptySentinel {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse cached admin id %q: %w", member, err)
		}
		ids = append(ids, id)
	}

	return ids, true, nil
}

func (r *MembershipCacheRepo) SetAdmins(ctx context.Context, chatID int64, adminIDs []int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("admin cache ttl must be positive")
	}

	members := make([]interface{}, 0, len(adminIDs)+1)
	members = append(members, adminsEmptySentinel)
	for _, id := range adminIDs {
		members = append(members, strconv.FormatInt(id, 10))
	}

	key := adminsKey(chatID)
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store cached chat admins: %w", err)
	}
	return nil
}

func (r *MembershipCacheRepo) GetBotCanBan(ctx context.Context, chatID int64) (bool, bool, error) {
	if r.client == nil {
		return false, false, fmt.Errorf("redis client is nil")
	}

	value, err := r.client.Get(ctx, botCanBanKey(chatID)).Result()
	if err == goredis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read cached bot capability: %w", err)
	}

	return value == "1", true, nil
}

func (r *MembershipCacheRepo) SetBotCanBan(ctx context.Context, chatID int64, canBan bool, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	value := "0"
	if canBan {
		value = "1"
	}
	if err := r.client.Set(ctx, botCanBanKey(chatID), value, ttl).Err(); err != nil {
		return fmt.Errorf("store cached bot capability: %w", err)
	}
	return nil
}

// Invalidate drops everything cached for the chat, used when membership
// changes are observed.
func (r *MembershipCacheRepo) Invalidate(ctx context.Context, chatID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, adminsKey(chatID), botCanBanKey(chatID)).Err(); err != nil {
		return fmt.Errorf("invalidate chat membership cache: %w", err)
	}
	return nil
}

func adminsKey(chatID int64) string {
	return chatAdminsPrefix + strconv.FormatInt(chatID, 10)
}

func botCanBanKey(chatID int64) string {
	return botCanBanPrefix + strconv.FormatInt(chatID, 10)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

type ChatSettingsRepo struct {
	pool *pgxpool.Pool
}

func NewChatSettingsRepo(pool *pgxpool.Pool) *ChatSettingsRepo {
	return &ChatSettingsRepo{pool: pool}
}

// Get returns stored settings, or zero settings for chats never configured.
func (r *ChatSettingsRepo) Get(ctx context.Context, chatID int64) (model.ChatSettings, error) {
	if r.pool == nil {
		return model.ChatSettings{}, fmt.Errorf("postgres pool is nil")
	}
	if chatID == 0 {
		return model.ChatSettings{}, fmt.Errorf("invalid chat id")
	}

	settings := model.ChatSettings{ChatID: chatID}
	err := r.pool.QueryRow(ctx, `
SELECT voteban_quorum, updated_at
FROM chat_settings
WHERE chat_id = $1
`, chatID).Scan(&settings.VotebanQuorum, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ChatSettings{ChatID: chatID}, nil
		}
		return model.ChatSettings{}, fmt.Errorf("get chat settings: %w", err)
	}

	return settings, nil
}

func (r *ChatSettingsRepo) SetVotebanQuorum(ctx context.Context, chatID int64, quorum int) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if chatID == 0 || quorum < 0 {
		return fmt.Errorf("invalid chat settings payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO chat_settings (chat_id, voteban_quorum, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (chat_id) DO UPDATE SET
	voteban_quorum = EXCLUDED.voteban_quorum,
	updated_at = EXCLUDED.updated_at
`, chatID, quorum); err != nil {
		return fmt.Errorf("upsert chat voteban quorum: %w", err)
	}

	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

type ChatMessageRepo struct {
	pool *pgxpool.Pool
}

func NewChatMessageRepo(pool *pgxpool.Pool) *ChatMessageRepo {
	return &ChatMessageRepo{pool: pool}
}

func (r *ChatMessageRepo) Record(ctx context.Context, msg model.ChatMessage) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if msg.ChatID == 0 || msg.MessageID <= 0 {
		return fmt.Errorf("invalid chat message payload")
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO chat_messages (chat_id, message_id, media_group_id, created_at)
VALUES ($1, $2, NULLIF($3, ''), $4)
ON CONFLICT (chat_id, message_id) DO NOTHING
`, msg.ChatID, msg.MessageID, strings.TrimSpace(msg.MediaGroupID), createdAt.UTC()); err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	return nil
}

func (r *ChatMessageRepo) ListMediaGroup(ctx context.Context, chatID int64, mediaGroupID string) ([]int, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	mediaGroupID = strings.TrimSpace(mediaGroupID)
	if chatID == 0 || mediaGroupID == "" {
		return []int{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT message_id
FROM chat_messages
WHERE chat_id = $1 AND media_group_id = $2
ORDER BY message_id ASC
`, chatID, mediaGroupID)
	if err != nil {
		return nil, fmt.Errorf("list media group messages: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan media group message: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media group messages: %w", err)
	}

	return ids, nil
}

func (r *ChatMessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM chat_messages
WHERE created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale chat messages: %w", err)
	}

	return result.RowsAffected(), nil
}

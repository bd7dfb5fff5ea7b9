package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivankudzin/chatwarden/internal/domain/model"
)

const ChatTypePrivate = "private"

type Bot struct {
	api         *tgbotapi.BotAPI
	logger      *zap.Logger
	pollTimeout int
	workers     int
}

type Options struct {
	PollTimeoutSeconds int
	Workers            int
}

type RepliedMessage struct {
	MessageID          int
	Sender             model.SenderRef
	SenderIsBot        bool
	MediaGroupID       string
	IsAutomaticForward bool
}

type MessageUpdate struct {
	ChatID       int64
	ChatType     string
	MessageID    int
	Sender       model.SenderRef
	SenderIsBot  bool
	Text         string
	MediaGroupID string
	ReplyTo      *RepliedMessage
	Date         time.Time
}

func (u MessageUpdate) IsPrivate() bool {
	return u.ChatType == ChatTypePrivate
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	UserID     int64
	UserName   string
	Data       string
}

type MemberUpdate struct {
	ChatID    int64
	UserID    int64
	IsBot     bool
	OldStatus string
	NewStatus string
}

type Handlers struct {
	OnMessage      func(context.Context, MessageUpdate) error
	OnCallback     func(context.Context, CallbackUpdate) error
	OnMemberUpdate func(context.Context, MemberUpdate) error
}

func NewBot(token string, opts Options, logger *zap.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	if opts.PollTimeoutSeconds <= 0 {
		opts.PollTimeoutSeconds = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 16
	}

	return &Bot{
		api:         api,
		logger:      logger,
		pollTimeout: opts.PollTimeoutSeconds,
		workers:     opts.Workers,
	}, nil
}

func (b *Bot) SelfID() int64 {
	if b == nil || b.api == nil {
		return 0
	}
	return b.api.Self.ID
}

func (b *Bot) Username() string {
	if b == nil || b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

// Listen long-polls updates and hands each one to its handler on a bounded
// pool of goroutines. Handler errors are logged and never stop the loop.
func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.pollTimeout
	updateCfg.AllowedUpdates = []string{"message", "callback_query", "my_chat_member", "chat_member"}
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.workers)

	for {
		select {
		case <-ctx.Done():
			_ = group.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				_ = group.Wait()
				return nil
			}
			group.Go(func() error {
				b.dispatch(groupCtx, update, handlers)
				return nil
			})
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update, handlers Handlers) {
	var (
		kind string
		err  error
	)

	switch {
	case update.Message != nil && handlers.OnMessage != nil:
		kind = "message"
		err = handlers.OnMessage(ctx, toMessageUpdate(update.Message))
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil:
		kind = "callback"
		err = handlers.OnCallback(ctx, toCallbackUpdate(update.CallbackQuery))
	case update.MyChatMember != nil && handlers.OnMemberUpdate != nil:
		kind = "my_chat_member"
		err = handlers.OnMemberUpdate(ctx, toMemberUpdate(update.MyChatMember))
	case update.ChatMember != nil && handlers.OnMemberUpdate != nil:
		kind = "chat_member"
		err = handlers.OnMemberUpdate(ctx, toMemberUpdate(update.ChatMember))
	default:
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("telegram update handler failed",
			zap.String("kind", kind),
			zap.Int("update_id", update.UpdateID),
			zap.Error(err),
		)
	}
}

func toMessageUpdate(msg *tgbotapi.Message) MessageUpdate {
	out := MessageUpdate{
		MessageID:    msg.MessageID,
		Text:         msg.Text,
		MediaGroupID: msg.MediaGroupID,
		Date:         msg.Time(),
	}
	if msg.Chat != nil {
		out.ChatID = msg.Chat.ID
		out.ChatType = msg.Chat.Type
	}
	out.Sender, out.SenderIsBot = senderOf(msg)
	if out.Text == "" {
		out.Text = msg.Caption
	}

	if reply := msg.ReplyToMessage; reply != nil {
		sender, isBot := senderOf(reply)
		out.ReplyTo = &RepliedMessage{
			MessageID:          reply.MessageID,
			Sender:             sender,
			SenderIsBot:        isBot,
			MediaGroupID:       reply.MediaGroupID,
			IsAutomaticForward: reply.IsAutomaticForward,
		}
	}

	return out
}

func senderOf(msg *tgbotapi.Message) (model.SenderRef, bool) {
	if msg.SenderChat != nil {
		return model.SenderRef{
			SenderChatID: msg.SenderChat.ID,
			Name:         chatDisplayName(msg.SenderChat),
		}, false
	}
	if msg.From != nil {
		return model.SenderRef{
			UserID: msg.From.ID,
			Name:   UserDisplayName(msg.From),
		}, msg.From.IsBot
	}
	return model.SenderRef{}, false
}

func toCallbackUpdate(q *tgbotapi.CallbackQuery) CallbackUpdate {
	out := CallbackUpdate{
		CallbackID: q.ID,
		UserID:     q.From.ID,
		UserName:   UserDisplayName(q.From),
		Data:       q.Data,
	}
	if q.Message != nil {
		out.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			out.ChatID = q.Message.Chat.ID
		}
	}
	return out
}

func toMemberUpdate(u *tgbotapi.ChatMemberUpdated) MemberUpdate {
	out := MemberUpdate{
		ChatID:    u.Chat.ID,
		OldStatus: u.OldChatMember.Status,
		NewStatus: u.NewChatMember.Status,
	}
	if u.NewChatMember.User != nil {
		out.UserID = u.NewChatMember.User.ID
		out.IsBot = u.NewChatMember.User.IsBot
	}
	return out
}

// UserDisplayName prefers the full name and falls back to the username.
func UserDisplayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return fmt.Sprintf("id%d", u.ID)
}

func chatDisplayName(c *tgbotapi.Chat) string {
	if c == nil {
		return ""
	}
	if title := strings.TrimSpace(c.Title); title != "" {
		return title
	}
	if c.UserName != "" {
		return "@" + c.UserName
	}
	return fmt.Sprintf("chat%d", c.ID)
}

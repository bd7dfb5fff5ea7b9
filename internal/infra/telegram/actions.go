package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

type MemberInfo struct {
	Status             string
	IsMember           bool
	CanRestrictMembers bool
	CanDeleteMessages  bool
}

func (m MemberInfo) IsAdmin() bool {
	return m.Status == StatusCreator || m.Status == StatusAdministrator
}

// InChat reports current membership. Restricted users carry an explicit
// membership flag, everyone else is judged by status.
func (m MemberInfo) InChat() bool {
	switch m.Status {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	case StatusRestricted:
		return m.IsMember
	default:
		return false
	}
}

func (b *Bot) SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	return b.send(ctx, chatID, replyTo, text, nil)
}

func (b *Bot) SendWithButtons(ctx context.Context, chatID int64, replyTo int, text string, rows [][]InlineButton) (int, error) {
	return b.send(ctx, chatID, replyTo, text, rows)
}

func (b *Bot) send(ctx context.Context, chatID int64, replyTo int, text string, rows [][]InlineButton) (int, error) {
	if b == nil || b.api == nil {
		return 0, fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return 0, fmt.Errorf("chat id is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = replyTo
	msg.AllowSendingWithoutReply = true
	if len(rows) > 0 {
		msg.ReplyMarkup = BuildInlineKeyboard(rows)
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}
	return sent.MessageID, nil
}

// EditText replaces the message text. Passing no rows drops the keyboard.
func (b *Bot) EditText(ctx context.Context, chatID int64, messageID int, text string, rows [][]InlineButton) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	if len(rows) > 0 {
		markup := BuildInlineKeyboard(rows)
		edit.ReplyMarkup = &markup
	}

	if _, err := b.api.Request(edit); err != nil && !isNotModified(err) {
		return fmt.Errorf("edit telegram message: %w", err)
	}
	return nil
}

func (b *Bot) EditButtons(ctx context.Context, chatID int64, messageID int, rows [][]InlineButton) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, BuildInlineKeyboard(rows))
	if _, err := b.api.Request(edit); err != nil && !isNotModified(err) {
		return fmt.Errorf("edit telegram keyboard: %w", err)
	}
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}
	return nil
}

// DeleteMessages attempts every id and reports all failures together.
func (b *Bot) DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	var errs []error
	for _, id := range messageIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			errs = append(errs, fmt.Errorf("delete message %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) BanUser(ctx context.Context, chatID, userID int64) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		RevokeMessages: false,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("ban chat member: %w", err)
	}
	return nil
}

func (b *Bot) BanSenderChat(ctx context.Context, chatID, senderChatID int64) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.BanChatSenderChatConfig{
		ChatID:       chatID,
		SenderChatID: senderChatID,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("ban sender chat: %w", err)
	}
	return nil
}

func (b *Bot) ChatMember(ctx context.Context, chatID, userID int64) (MemberInfo, error) {
	if b == nil || b.api == nil {
		return MemberInfo{}, fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return MemberInfo{}, err
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return MemberInfo{}, fmt.Errorf("get chat member: %w", err)
	}

	return MemberInfo{
		Status:             member.Status,
		IsMember:           member.IsMember,
		CanRestrictMembers: member.CanRestrictMembers || member.Status == StatusCreator,
		CanDeleteMessages:  member.CanDeleteMessages || member.Status == StatusCreator,
	}, nil
}

func (b *Bot) ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	if b == nil || b.api == nil {
		return nil, fmt.Errorf("telegram bot is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	members, err := b.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat administrators: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		if member.User != nil {
			ids = append(ids, member.User.ID)
		}
	}
	return ids, nil
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

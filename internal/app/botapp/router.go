package botapp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
	tginfra "github.com/ivankudzin/chatwarden/internal/infra/telegram"
	votebansvc "github.com/ivankudzin/chatwarden/internal/services/voteban"
	"github.com/ivankudzin/chatwarden/internal/ui"
)

type votingEngine interface {
	StartVote(ctx context.Context, cmd votebansvc.StartCommand) (votebansvc.Outcome, error)
	CastVote(ctx context.Context, cb votebansvc.VoteCallback) (votebansvc.Outcome, error)
}

type quorumSettings interface {
	Quorum(ctx context.Context, chatID int64) (int, error)
	SetQuorum(ctx context.Context, chatID int64, raw int64) (int, error)
}

type adminOracle interface {
	IsAdmin(ctx context.Context, chatID, userID int64) enums.Tristate
	HandleMemberUpdate(ctx context.Context, update tginfra.MemberUpdate) error
}

type messageRecorder interface {
	Record(ctx context.Context, msg model.ChatMessage) error
}

type chatReplier interface {
	Username() string
	SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// router turns telegram updates into engine and settings calls.
type router struct {
	voting   votingEngine
	settings quorumSettings
	oracle   adminOracle
	messages messageRecorder
	chat     chatReplier
	logger   *zap.Logger
}

func (r *router) handlers() tginfra.Handlers {
	return tginfra.Handlers{
		OnMessage:      r.handleMessage,
		OnCallback:     r.handleCallback,
		OnMemberUpdate: r.handleMemberUpdate,
	}
}

func (r *router) handleMessage(ctx context.Context, update tginfra.MessageUpdate) error {
	if update.MediaGroupID != "" && !update.IsPrivate() && r.messages != nil {
		if err := r.messages.Record(ctx, model.ChatMessage{
			ChatID:       update.ChatID,
			MessageID:    update.MessageID,
			MediaGroupID: update.MediaGroupID,
			CreatedAt:    update.Date,
		}); err != nil {
			r.logger.Warn("record media group message failed",
				zap.Int64("chat_id", update.ChatID),
				zap.Int("message_id", update.MessageID),
				zap.Error(err),
			)
		}
	}

	if update.SenderIsBot {
		return nil
	}

	cmd, ok := ParseCommand(update.Text, r.chat.Username())
	if !ok {
		return nil
	}

	switch cmd.Name {
	case commandVoteban:
		_, err := r.voting.StartVote(ctx, votebansvc.StartCommand{
			ChatID:    update.ChatID,
			ChatType:  update.ChatType,
			MessageID: update.MessageID,
			Author:    update.Sender,
			ReplyTo:   replyTarget(update.ReplyTo),
		})
		return err
	case commandVotebanQuorum:
		return r.handleQuorumCommand(ctx, update, cmd.Args)
	}
	return nil
}

func (r *router) handleQuorumCommand(ctx context.Context, update tginfra.MessageUpdate, args []string) error {
	if update.IsPrivate() {
		return nil
	}

	if !r.isChatAdmin(ctx, update.ChatID, update.Sender) {
		return r.reply(ctx, update, ui.MsgSettingsAdminsOnly)
	}

	if len(args) == 0 {
		quorum, err := r.settings.Quorum(ctx, update.ChatID)
		if err != nil {
			return fmt.Errorf("load voteban quorum: %w", err)
		}
		return r.reply(ctx, update, ui.QuorumStatus(quorum))
	}

	raw, ok := parseQuorumArg(args[0])
	if !ok || len(args) > 1 {
		return r.reply(ctx, update, ui.MsgSettingsUsage)
	}

	quorum, err := r.settings.SetQuorum(ctx, update.ChatID, raw)
	if err != nil {
		return fmt.Errorf("store voteban quorum: %w", err)
	}
	r.logger.Info("voteban quorum updated",
		zap.Int64("chat_id", update.ChatID),
		zap.Int64("user_id", update.Sender.UserID),
		zap.Int("quorum", quorum),
	)
	return r.reply(ctx, update, ui.QuorumUpdated(quorum))
}

func (r *router) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if !votebansvc.IsCallback(update.Data) {
		return r.chat.AnswerCallback(ctx, update.CallbackID, ui.MsgUnknownAction, false)
	}

	_, err := r.voting.CastVote(ctx, votebansvc.VoteCallback{
		CallbackID: update.CallbackID,
		ChatID:     update.ChatID,
		MessageID:  update.MessageID,
		VoterID:    update.UserID,
		VoterName:  update.UserName,
		Data:       update.Data,
	})
	return err
}

func (r *router) handleMemberUpdate(ctx context.Context, update tginfra.MemberUpdate) error {
	if r.oracle == nil {
		return nil
	}
	return r.oracle.HandleMemberUpdate(ctx, update)
}

// isChatAdmin accepts the chat posting as itself, which is how anonymous
// admins appear. Unknown answers are refused.
func (r *router) isChatAdmin(ctx context.Context, chatID int64, sender model.SenderRef) bool {
	if sender.IsSenderChat() {
		return sender.SenderChatID == chatID
	}
	if sender.UserID == 0 || r.oracle == nil {
		return false
	}
	return r.oracle.IsAdmin(ctx, chatID, sender.UserID) == enums.TristateYes
}

func (r *router) reply(ctx context.Context, update tginfra.MessageUpdate, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := r.chat.SendText(ctx, update.ChatID, update.MessageID, text)
	return err
}

func replyTarget(reply *tginfra.RepliedMessage) *votebansvc.ReplyTarget {
	if reply == nil {
		return nil
	}
	return &votebansvc.ReplyTarget{
		MessageID:          reply.MessageID,
		Sender:             reply.Sender,
		MediaGroupID:       reply.MediaGroupID,
		IsAutomaticForward: reply.IsAutomaticForward,
	}
}

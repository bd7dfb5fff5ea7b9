package voteban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
	tginfra "github.com/ivankudzin/chatwarden/internal/infra/telegram"
	"github.com/ivankudzin/chatwarden/internal/ui"
)

const (
	defaultCooldown     = 2 * time.Minute
	defaultSessionTTL   = 48 * time.Hour
	defaultMaxTextRunes = 4096
)

type Store interface {
	HasRecentSession(ctx context.Context, chatID int64, targetMessageID int, mediaGroupID string, since time.Time) (bool, error)
	CreateSession(ctx context.Context, session model.VoteSession, authorBallot *model.Ballot, cooldownSince time.Time) error
	GetSession(ctx context.Context, chatID int64, messageID int) (model.VoteSession, error)
	GetBallot(ctx context.Context, sessionID uuid.UUID, voterID int64) (model.Ballot, bool, error)
	CastBallot(ctx context.Context, ballot model.Ballot) error
	Tally(ctx context.Context, sessionID uuid.UUID) (model.Tally, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (model.Tally, bool, error)
	ClaimIfReached(ctx context.Context, sessionID uuid.UUID, quorum int) (model.Tally, bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type MessageStore interface {
	ListMediaGroup(ctx context.Context, chatID int64, mediaGroupID string) ([]int, error)
}

type ConfigResolver interface {
	Resolve(ctx context.Context, chatID int64) (model.ChatModerationConfig, error)
}

type MembershipOracle interface {
	IsAdmin(ctx context.Context, chatID, userID int64) enums.Tristate
	IsMember(ctx context.Context, chatID, userID int64) enums.Tristate
}

type Messenger interface {
	SelfID() int64
	SendText(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	SendWithButtons(ctx context.Context, chatID int64, replyTo int, text string, rows [][]tginfra.InlineButton) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, rows [][]tginfra.InlineButton) error
	EditButtons(ctx context.Context, chatID int64, messageID int, rows [][]tginfra.InlineButton) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error
	BanUser(ctx context.Context, chatID, userID int64) error
	BanSenderChat(ctx context.Context, chatID, senderChatID int64) error
}

type Config struct {
	Cooldown     time.Duration
	SessionTTL   time.Duration
	MaxTextRunes int
}

type Service struct {
	store     Store
	messages  MessageStore
	resolver  ConfigResolver
	oracle    MembershipOracle
	messenger Messenger
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// ReplyTarget is the message the start command replied to.
type ReplyTarget struct {
	MessageID          int
	Sender             model.SenderRef
	MediaGroupID       string
	IsAutomaticForward bool
}

type StartCommand struct {
	ChatID    int64
	ChatType  string
	MessageID int
	Author    model.SenderRef
	ReplyTo   *ReplyTarget
}

type VoteCallback struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	VoterID    int64
	VoterName  string
	Data       string
}

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRefused   Outcome = "refused"
	OutcomeStarted   Outcome = "started"
	OutcomeExpired   Outcome = "expired"
	OutcomeOpen      Outcome = "open"
	OutcomeFinalized Outcome = "finalized"
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeClaimed means another caller already finalized or cancelled
	// the session.
	OutcomeClaimed Outcome = "claimed"
)

func NewService(
	store Store,
	messages MessageStore,
	resolver ConfigResolver,
	oracle MembershipOracle,
	messenger Messenger,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = defaultMaxTextRunes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:     store,
		messages:  messages,
		resolver:  resolver,
		oracle:    oracle,
		messenger: messenger,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// StartVote opens a session against the replied-to message. Refusals are
// answered in the chat and reported as OutcomeRefused; a disabled chat is
// ignored without a reply.
func (s *Service) StartVote(ctx context.Context, cmd StartCommand) (Outcome, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	if cmd.ChatType == tginfra.ChatTypePrivate {
		return s.refuse(ctx, cmd, ui.MsgGroupsOnly)
	}

	cfg, err := s.resolver.Resolve(ctx, cmd.ChatID)
	if err != nil {
		return "", fmt.Errorf("resolve chat config: %w", err)
	}
	if !cfg.Enabled() {
		return OutcomeIgnored, nil
	}
	if !cfg.BotCanBan {
		return s.refuse(ctx, cmd, ui.MsgNeedAdminRights)
	}

	target := cmd.ReplyTo
	if target == nil || target.Sender.IsZero() {
		return s.refuse(ctx, cmd, ui.MsgReplyToSomeone)
	}
	if !target.Sender.IsSenderChat() && target.Sender.UserID == s.messenger.SelfID() {
		return s.refuse(ctx, cmd, ui.MsgCantVoteAgainstMe)
	}
	if target.IsAutomaticForward || s.isAdmin(ctx, cmd.ChatID, target.Sender) {
		return s.refuse(ctx, cmd, ui.MsgCantVoteAgainstAdmin)
	}

	now := s.now()
	cooldownSince := now.Add(-s.cfg.Cooldown)
	busy, err := s.store.HasRecentSession(ctx, cmd.ChatID, target.MessageID, target.MediaGroupID, cooldownSince)
	if err != nil {
		return "", fmt.Errorf("check recent voteban session: %w", err)
	}
	if busy {
		return s.refuse(ctx, cmd, ui.MsgVotingAlreadyStarted)
	}

	var (
		authorBallot *model.Ballot
		tally        model.Tally
	)
	session := model.VoteSession{
		ID:              uuid.New(),
		ChatID:          cmd.ChatID,
		Author:          cmd.Author,
		Candidate:       target.Sender,
		TargetMessageID: target.MessageID,
		MediaGroupID:    target.MediaGroupID,
		CreatedAt:       now,
	}
	if !cmd.Author.IsSenderChat() && cmd.Author.UserID > 0 {
		authorBallot = &model.Ballot{
			SessionID: session.ID,
			VoterID:   cmd.Author.UserID,
			VoterName: cmd.Author.Name,
			Side:      enums.VoteSideBan,
			CreatedAt: now,
		}
		tally = model.NewTally([]model.Ballot{*authorBallot})
	}

	messageID, err := s.messenger.SendWithButtons(ctx, cmd.ChatID, cmd.MessageID,
		ui.VoteQuestion(cmd.Author, target.Sender), voteKeyboard(tally, cfg.Quorum))
	if err != nil {
		return "", fmt.Errorf("post voteban question: %w", err)
	}
	session.MessageID = messageID

	if err := s.store.CreateSession(ctx, session, authorBallot, cooldownSince); err != nil {
		s.dropQuestion(ctx, cmd.ChatID, messageID)
		if errors.Is(err, ErrSessionConflict) {
			return s.refuse(ctx, cmd, ui.MsgVotingAlreadyStarted)
		}
		return "", fmt.Errorf("create voteban session: %w", err)
	}

	s.logger.Info("voteban session started",
		zap.String("session_id", session.ID.String()),
		zap.Int64("chat_id", session.ChatID),
		zap.Int("message_id", session.MessageID),
		zap.Int64("candidate_user_id", session.Candidate.UserID),
		zap.Int64("candidate_sender_chat_id", session.Candidate.SenderChatID),
	)
	return OutcomeStarted, nil
}

// CastVote records the voter's side and advances the session. Every
// user-facing answer goes back through the callback.
func (s *Service) CastVote(ctx context.Context, cb VoteCallback) (Outcome, error) {
	if err := s.ready(); err != nil {
		return "", err
	}

	side, err := ParseCallback(cb.Data)
	if err != nil {
		s.answer(ctx, cb.CallbackID, ui.MsgUnknownAction)
		return OutcomeRefused, nil
	}

	session, err := s.store.GetSession(ctx, cb.ChatID, cb.MessageID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			s.answer(ctx, cb.CallbackID, ui.MsgVotingExpired)
			return OutcomeExpired, nil
		}
		return "", fmt.Errorf("load voteban session: %w", err)
	}

	existing, found, err := s.store.GetBallot(ctx, session.ID, cb.VoterID)
	if err != nil {
		return "", fmt.Errorf("load voteban ballot: %w", err)
	}
	if found && existing.Side == side {
		s.answer(ctx, cb.CallbackID, ui.MsgAlreadyVoted)
		return OutcomeRefused, nil
	}

	cfg, err := s.resolver.Resolve(ctx, session.ChatID)
	if err != nil {
		return "", fmt.Errorf("resolve chat config: %w", err)
	}
	if !cfg.Enabled() || !cfg.BotCanBan {
		s.answer(ctx, cb.CallbackID, "")
		return s.recompute(ctx, session, cfg)
	}

	if !s.oracle.IsMember(ctx, session.ChatID, cb.VoterID).Or(true) {
		s.answer(ctx, cb.CallbackID, ui.MsgMustBeMember)
		return OutcomeRefused, nil
	}

	err = s.store.CastBallot(ctx, model.Ballot{
		SessionID: session.ID,
		VoterID:   cb.VoterID,
		VoterName: cb.VoterName,
		Side:      side,
		CreatedAt: s.now(),
	})
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		s.answer(ctx, cb.CallbackID, ui.MsgAlreadyVoted)
		return OutcomeRefused, nil
	case errors.Is(err, ErrSessionNotFound):
		s.answer(ctx, cb.CallbackID, ui.MsgVotingExpired)
		return OutcomeExpired, nil
	case err != nil:
		return "", fmt.Errorf("cast voteban ballot: %w", err)
	}

	s.answer(ctx, cb.CallbackID, ui.MsgVoteAccepted)
	return s.recompute(ctx, session, cfg)
}

// Cleanup drops every session older than the session TTL.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, fmt.Errorf("voteban store is not configured")
	}
	deleted, err := s.store.DeleteOlderThan(ctx, s.now().Add(-s.cfg.SessionTTL))
	if err != nil {
		return 0, fmt.Errorf("delete expired voteban sessions: %w", err)
	}
	return deleted, nil
}

func (s *Service) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}

// recompute checks the session against the current chat state and either
// cancels it, finalizes it or refreshes its counters.
func (s *Service) recompute(ctx context.Context, session model.VoteSession, cfg model.ChatModerationConfig) (Outcome, error) {
	switch {
	case !cfg.Enabled():
		return s.cancel(ctx, session, ui.MsgCancelledDisabled)
	case !cfg.BotCanBan:
		return s.cancel(ctx, session, ui.MsgCancelledNotAdmin)
	case s.isAdmin(ctx, session.ChatID, session.Candidate):
		return s.cancel(ctx, session, ui.MsgCancelledAdmin)
	}

	tally, err := s.store.Tally(ctx, session.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return OutcomeClaimed, nil
		}
		return "", fmt.Errorf("tally voteban session: %w", err)
	}

	if !tally.Reached(cfg.Quorum) {
		return s.refreshCounters(ctx, session, tally, cfg.Quorum)
	}

	return s.finalize(ctx, session, cfg.Quorum)
}

// finalize claims the session only if the ballots still reach the quorum
// under the row lock. A side switch that landed after the earlier tally
// keeps the session open.
func (s *Service) finalize(ctx context.Context, session model.VoteSession, quorum int) (Outcome, error) {
	tally, claimed, err := s.store.ClaimIfReached(ctx, session.ID, quorum)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return OutcomeClaimed, nil
	case err != nil:
		return "", fmt.Errorf("claim voteban session: %w", err)
	case !claimed:
		return s.refreshCounters(ctx, session, tally, quorum)
	}

	decision := tally.Decision()
	text := ui.VoteResult(session.Candidate, decision, tally.Voters(decision), s.cfg.MaxTextRunes)
	if err := s.messenger.EditText(ctx, session.ChatID, session.MessageID, text, nil); err != nil {
		s.logger.Warn("render voteban result failed", sessionFields(session, err)...)
	}
	if _, err := s.messenger.SendText(ctx, session.ChatID, session.MessageID, ui.MsgVotingCompleted); err != nil {
		s.logger.Warn("post voting completed notice failed", sessionFields(session, err)...)
	}

	s.logger.Info("voteban session finalized",
		zap.String("session_id", session.ID.String()),
		zap.Int64("chat_id", session.ChatID),
		zap.String("decision", string(decision)),
		zap.Int("ban", tally.Count(enums.VoteSideBan)),
		zap.Int("noban", tally.Count(enums.VoteSideNoBan)),
	)

	if decision == enums.VoteSideBan {
		s.punish(ctx, session)
	}
	return OutcomeFinalized, nil
}

// refreshCounters redraws the buttons of an open session. A session claimed
// since the tally was read keeps its final text untouched.
func (s *Service) refreshCounters(ctx context.Context, session model.VoteSession, tally model.Tally, quorum int) (Outcome, error) {
	if _, err := s.store.GetSession(ctx, session.ChatID, session.MessageID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return OutcomeClaimed, nil
		}
		return "", fmt.Errorf("reload voteban session: %w", err)
	}

	if err := s.messenger.EditButtons(ctx, session.ChatID, session.MessageID, voteKeyboard(tally, quorum)); err != nil {
		s.logger.Warn("refresh voteban counters failed", sessionFields(session, err)...)
	}
	return OutcomeOpen, nil
}

func (s *Service) cancel(ctx context.Context, session model.VoteSession, reason string) (Outcome, error) {
	if _, claimed, err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return "", fmt.Errorf("claim voteban session: %w", err)
	} else if !claimed {
		return OutcomeClaimed, nil
	}

	if err := s.messenger.EditText(ctx, session.ChatID, session.MessageID, ui.VoteCancelled(session.Candidate, reason), nil); err != nil {
		s.logger.Warn("render voteban cancellation failed", sessionFields(session, err)...)
	}
	s.logger.Info("voteban session cancelled",
		zap.String("session_id", session.ID.String()),
		zap.Int64("chat_id", session.ChatID),
		zap.String("reason", reason),
	)
	return OutcomeCancelled, nil
}

// punish deletes the flagged messages and bans the candidate. Failures are
// logged only: the outcome is already recorded and shown.
func (s *Service) punish(ctx context.Context, session model.VoteSession) {
	ids := []int{session.TargetMessageID}
	if session.MediaGroupID != "" && s.messages != nil {
		siblings, err := s.messages.ListMediaGroup(ctx, session.ChatID, session.MediaGroupID)
		if err != nil {
			s.logger.Warn("list media group messages failed", sessionFields(session, err)...)
		}
		for _, id := range siblings {
			if id != session.TargetMessageID {
				ids = append(ids, id)
			}
		}
	}
	if err := s.messenger.DeleteMessages(ctx, session.ChatID, ids); err != nil {
		s.logger.Warn("delete voted messages failed", sessionFields(session, err)...)
	}

	var err error
	if session.Candidate.IsSenderChat() {
		err = s.messenger.BanSenderChat(ctx, session.ChatID, session.Candidate.SenderChatID)
	} else {
		err = s.messenger.BanUser(ctx, session.ChatID, session.Candidate.UserID)
	}
	if err != nil {
		s.logger.Warn("ban voted candidate failed", sessionFields(session, err)...)
	}
}

// isAdmin treats an unknown answer as "not an admin". A sender chat equal to
// the chat itself is an anonymous admin.
func (s *Service) isAdmin(ctx context.Context, chatID int64, ref model.SenderRef) bool {
	if ref.IsSenderChat() {
		return ref.SenderChatID == chatID
	}
	return s.oracle.IsAdmin(ctx, chatID, ref.UserID).Or(false)
}

func (s *Service) refuse(ctx context.Context, cmd StartCommand, text string) (Outcome, error) {
	if _, err := s.messenger.SendText(ctx, cmd.ChatID, cmd.MessageID, text); err != nil {
		return "", fmt.Errorf("reply to voteban command: %w", err)
	}
	return OutcomeRefused, nil
}

func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if err := s.messenger.AnswerCallback(ctx, callbackID, text, false); err != nil {
		s.logger.Debug("answer voteban callback failed", zap.Error(err))
	}
}

func (s *Service) dropQuestion(ctx context.Context, chatID int64, messageID int) {
	if err := s.messenger.DeleteMessages(ctx, chatID, []int{messageID}); err != nil {
		s.logger.Warn("delete orphan voteban question failed",
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
			zap.Error(err),
		)
	}
}

func (s *Service) ready() error {
	if s.store == nil || s.resolver == nil || s.oracle == nil || s.messenger == nil {
		return fmt.Errorf("voteban service dependencies are not configured")
	}
	return nil
}

func voteKeyboard(tally model.Tally, quorum int) [][]tginfra.InlineButton {
	return [][]tginfra.InlineButton{{
		{
			Text: ui.VoteButtonText(enums.VoteSideBan, tally.Count(enums.VoteSideBan), quorum),
			Data: EncodeCallback(enums.VoteSideBan),
		},
		{
			Text: ui.VoteButtonText(enums.VoteSideNoBan, tally.Count(enums.VoteSideNoBan), quorum),
			Data: EncodeCallback(enums.VoteSideNoBan),
		},
	}}
}

func sessionFields(session model.VoteSession, err error) []zap.Field {
	return []zap.Field{
		zap.String("session_id", session.ID.String()),
		zap.Int64("chat_id", session.ChatID),
		zap.Int("message_id", session.MessageID),
		zap.Error(err),
	}
}

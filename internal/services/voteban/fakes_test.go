package voteban

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
	tginfra "github.com/ivankudzin/chatwarden/internal/infra/telegram"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.VoteSession
	ballots  map[uuid.UUID]map[int64]model.Ballot
	deleted  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: make(map[uuid.UUID]model.VoteSession),
		ballots:  make(map[uuid.UUID]map[int64]model.Ballot),
	}
}

func (m *memoryStore) HasRecentSession(_ context.Context, chatID int64, targetMessageID int, mediaGroupID string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasRecentLocked(chatID, targetMessageID, mediaGroupID, since), nil
}

func (m *memoryStore) hasRecentLocked(chatID int64, targetMessageID int, mediaGroupID string, since time.Time) bool {
	for _, s := range m.sessions {
		if s.ChatID != chatID || s.CreatedAt.Before(since) {
			continue
		}
		if s.TargetMessageID == targetMessageID || (mediaGroupID != "" && s.MediaGroupID == mediaGroupID) {
			return true
		}
	}
	return false
}

func (m *memoryStore) CreateSession(_ context.Context, session model.VoteSession, authorBallot *model.Ballot, cooldownSince time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasRecentLocked(session.ChatID, session.TargetMessageID, session.MediaGroupID, cooldownSince) {
		return ErrSessionConflict
	}
	m.sessions[session.ID] = session
	m.ballots[session.ID] = make(map[int64]model.Ballot)
	if authorBallot != nil {
		m.ballots[session.ID][authorBallot.VoterID] = *authorBallot
	}
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, chatID int64, messageID int) (model.VoteSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ChatID == chatID && s.MessageID == messageID {
			return s, nil
		}
	}
	return model.VoteSession{}, ErrSessionNotFound
}

func (m *memoryStore) GetBallot(_ context.Context, sessionID uuid.UUID, voterID int64) (model.Ballot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.ballots[sessionID][voterID]
	return b, ok, nil
}

func (m *memoryStore) CastBallot(_ context.Context, ballot model.Ballot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byVoter, ok := m.ballots[ballot.SessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if existing, ok := byVoter[ballot.VoterID]; ok && existing.Side == ballot.Side {
		return ErrAlreadyVoted
	}
	byVoter[ballot.VoterID] = ballot
	return nil
}

func (m *memoryStore) Tally(_ context.Context, sessionID uuid.UUID) (model.Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byVoter, ok := m.ballots[sessionID]
	if !ok {
		return model.Tally{}, ErrSessionNotFound
	}
	return model.NewTally(sortedBallots(byVoter)), nil
}

func (m *memoryStore) DeleteSession(_ context.Context, sessionID uuid.UUID) (model.Tally, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byVoter, ok := m.ballots[sessionID]
	if !ok {
		return model.Tally{}, false, nil
	}
	delete(m.sessions, sessionID)
	delete(m.ballots, sessionID)
	m.deleted++
	return model.NewTally(sortedBallots(byVoter)), true, nil
}

func (m *memoryStore) ClaimIfReached(_ context.Context, sessionID uuid.UUID, quorum int) (model.Tally, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byVoter, ok := m.ballots[sessionID]
	if !ok {
		return model.Tally{}, false, ErrSessionNotFound
	}
	tally := model.NewTally(sortedBallots(byVoter))
	if !tally.Reached(quorum) {
		return tally, false, nil
	}
	delete(m.sessions, sessionID)
	delete(m.ballots, sessionID)
	m.deleted++
	return tally, true, nil
}

func (m *memoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.ballots, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memoryStore) ballotsOf(sessionID uuid.UUID) []model.Ballot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedBallots(m.ballots[sessionID])
}

func sortedBallots(byVoter map[int64]model.Ballot) []model.Ballot {
	out := make([]model.Ballot, 0, len(byVoter))
	for _, b := range byVoter {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VoterID < out[j].VoterID })
	return out
}

type staticResolver struct {
	mu  sync.Mutex
	cfg model.ChatModerationConfig
}

func (r *staticResolver) Resolve(_ context.Context, chatID int64) (model.ChatModerationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.cfg
	cfg.ChatID = chatID
	return cfg, nil
}

func (r *staticResolver) set(fn func(*model.ChatModerationConfig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.cfg)
}

type fakeOracle struct {
	mu         sync.Mutex
	admins     map[int64]enums.Tristate
	nonMembers map[int64]bool
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		admins:     make(map[int64]enums.Tristate),
		nonMembers: make(map[int64]bool),
	}
}

func (o *fakeOracle) IsAdmin(_ context.Context, _ int64, userID int64) enums.Tristate {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := o.admins[userID]; ok {
		return v
	}
	return enums.TristateNo
}

func (o *fakeOracle) IsMember(_ context.Context, _ int64, userID int64) enums.Tristate {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.nonMembers[userID] {
		return enums.TristateNo
	}
	return enums.TristateYes
}

func (o *fakeOracle) promote(userID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.admins[userID] = enums.TristateYes
}

type sentMessage struct {
	ChatID  int64
	ReplyTo int
	Text    string
	Rows    [][]tginfra.InlineButton
}

type fakeMessenger struct {
	mu            sync.Mutex
	selfID        int64
	nextID        int
	sent          []sentMessage
	edits         map[int]string
	buttons       map[int][][]tginfra.InlineButton
	answers       []string
	deleted       []int
	bannedUsers   []int64
	bannedChats   []int64
	banErr        error
	sendButtonErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		selfID:  777,
		nextID:  1000,
		edits:   make(map[int]string),
		buttons: make(map[int][][]tginfra.InlineButton),
	}
}

func (f *fakeMessenger) SelfID() int64 { return f.selfID }

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, replyTo int, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return f.nextID, nil
}

func (f *fakeMessenger) SendWithButtons(_ context.Context, chatID int64, replyTo int, text string, rows [][]tginfra.InlineButton) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendButtonErr != nil {
		return 0, f.sendButtonErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, ReplyTo: replyTo, Text: text, Rows: rows})
	f.buttons[f.nextID] = rows
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, _ int64, messageID int, text string, rows [][]tginfra.InlineButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[messageID] = text
	f.buttons[messageID] = rows
	return nil
}

func (f *fakeMessenger) EditButtons(_ context.Context, _ int64, messageID int, rows [][]tginfra.InlineButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons[messageID] = rows
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) DeleteMessages(_ context.Context, _ int64, messageIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageIDs...)
	return nil
}

func (f *fakeMessenger) BanUser(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bannedUsers = append(f.bannedUsers, userID)
	return nil
}

func (f *fakeMessenger) BanSenderChat(_ context.Context, _ int64, senderChatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bannedChats = append(f.bannedChats, senderChatID)
	return nil
}

func (f *fakeMessenger) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) lastAnswer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return ""
	}
	return f.answers[len(f.answers)-1]
}

type mediaGroupIndex map[string][]int

func (m mediaGroupIndex) ListMediaGroup(_ context.Context, _ int64, mediaGroupID string) ([]int, error) {
	ids, ok := m[mediaGroupID]
	if !ok {
		return nil, errors.New("media group not recorded")
	}
	return ids, nil
}

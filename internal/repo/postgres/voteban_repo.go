package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/chatwarden/internal/domain/enums"
	"github.com/ivankudzin/chatwarden/internal/domain/model"
	votebansvc "github.com/ivankudzin/chatwarden/internal/services/voteban"
)

type VotebanRepo struct {
	pool *pgxpool.Pool
}

func NewVotebanRepo(pool *pgxpool.Pool) *VotebanRepo {
	return &VotebanRepo{pool: pool}
}

const sessionColumns = `
	id,
	chat_id,
	message_id,
	author_user_id,
	author_sender_chat_id,
	author_name,
	candidate_user_id,
	candidate_sender_chat_id,
	candidate_name,
	target_message_id,
	media_group_id,
	created_at`

func (r *VotebanRepo) HasRecentSession(ctx context.Context, chatID int64, targetMessageID int, mediaGroupID string, since time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	return hasRecentSession(ctx, r.pool, chatID, targetMessageID, mediaGroupID, since)
}

func hasRecentSession(ctx context.Context, q rowQuerier, chatID int64, targetMessageID int, mediaGroupID string, since time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM voteban_sessions
	WHERE chat_id = $1
		AND created_at >= $4
		AND (
			target_message_id = $2
			OR ($3 <> '' AND media_group_id = $3)
		)
)
`, chatID, targetMessageID, strings.TrimSpace(mediaGroupID), since.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup recent voteban session: %w", err)
	}
	return exists, nil
}

// CreateSession persists the session together with the author's ballot.
// Sessions of one chat are serialized by an advisory lock so that two
// concurrent commands against the same target cannot both pass the cooldown.
func (r *VotebanRepo) CreateSession(ctx context.Context, session model.VoteSession, authorBallot *model.Ballot, cooldownSince time.Time) error {
	if session.ID == uuid.Nil || session.ChatID == 0 || session.MessageID <= 0 {
		return fmt.Errorf("invalid voteban session payload")
	}
	if session.Author.IsZero() || session.Candidate.IsZero() {
		return fmt.Errorf("voteban session requires author and candidate")
	}

	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, session.ChatID); err != nil {
			return fmt.Errorf("lock chat sessions: %w", err)
		}

		exists, err := hasRecentSession(ctx, tx, session.ChatID, session.TargetMessageID, session.MediaGroupID, cooldownSince)
		if err != nil {
			return err
		}
		if exists {
			return votebansvc.ErrSessionConflict
		}

		createdAt := session.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO voteban_sessions (
	id,
	chat_id,
	message_id,
	author_user_id,
	author_sender_chat_id,
	author_name,
	candidate_user_id,
	candidate_sender_chat_id,
	candidate_name,
	target_message_id,
	media_group_id,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12)
`,
			session.ID,
			session.ChatID,
			session.MessageID,
			nullableID(session.Author.UserID),
			nullableID(session.Author.SenderChatID),
			session.Author.Name,
			nullableID(session.Candidate.UserID),
			nullableID(session.Candidate.SenderChatID),
			session.Candidate.Name,
			session.TargetMessageID,
			strings.TrimSpace(session.MediaGroupID),
			createdAt.UTC(),
		); err != nil {
			if isUniqueViolation(err) {
				return votebansvc.ErrSessionConflict
			}
			return fmt.Errorf("insert voteban session: %w", err)
		}

		if authorBallot == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO voteban_ballots (session_id, voter_user_id, voter_name, side, created_at)
VALUES ($1, $2, $3, $4, $5)
`, session.ID, authorBallot.VoterID, authorBallot.VoterName, string(authorBallot.Side), createdAt.UTC()); err != nil {
			return fmt.Errorf("insert author ballot: %w", err)
		}

		return nil
	})
}

func (r *VotebanRepo) GetSession(ctx context.Context, chatID int64, messageID int) (model.VoteSession, error) {
	if r.pool == nil {
		return model.VoteSession{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT`+sessionColumns+`
FROM voteban_sessions
WHERE chat_id = $1 AND message_id = $2
`, chatID, messageID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VoteSession{}, votebansvc.ErrSessionNotFound
		}
		return model.VoteSession{}, fmt.Errorf("get voteban session: %w", err)
	}
	return session, nil
}

func (r *VotebanRepo) GetBallot(ctx context.Context, sessionID uuid.UUID, voterID int64) (model.Ballot, bool, error) {
	if r.pool == nil {
		return model.Ballot{}, false, fmt.Errorf("postgres pool is nil")
	}

	var (
		ballot model.Ballot
		side   string
	)
	err := r.pool.QueryRow(ctx, `
SELECT session_id, voter_user_id, voter_name, side, created_at
FROM voteban_ballots
WHERE session_id = $1 AND voter_user_id = $2
`, sessionID, voterID).Scan(&ballot.SessionID, &ballot.VoterID, &ballot.VoterName, &side, &ballot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ballot{}, false, nil
		}
		return model.Ballot{}, false, fmt.Errorf("get voteban ballot: %w", err)
	}
	ballot.Side = enums.VoteSide(side)
	return ballot, true, nil
}

// CastBallot records or switches a voter's side in one statement. The primary
// key on (session_id, voter_user_id) keeps a single ballot per voter, and the
// conditional update makes a repeated press of the same side a no-op.
func (r *VotebanRepo) CastBallot(ctx context.Context, ballot model.Ballot) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if ballot.SessionID == uuid.Nil || ballot.VoterID <= 0 || !ballot.Side.Valid() {
		return fmt.Errorf("invalid voteban ballot payload")
	}

	result, err := r.pool.Exec(ctx, `
INSERT INTO voteban_ballots (session_id, voter_user_id, voter_name, side, created_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (session_id, voter_user_id) DO UPDATE SET
	side = EXCLUDED.side,
	voter_name = EXCLUDED.voter_name,
	created_at = EXCLUDED.created_at
WHERE voteban_ballots.side <> EXCLUDED.side
`, ballot.SessionID, ballot.VoterID, ballot.VoterName, string(ballot.Side))
	if err != nil {
		if isForeignKeyViolation(err) {
			return votebansvc.ErrSessionNotFound
		}
		return fmt.Errorf("cast voteban ballot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return votebansvc.ErrAlreadyVoted
	}
	return nil
}

// Tally reports ErrSessionNotFound once the session has been claimed.
func (r *VotebanRepo) Tally(ctx context.Context, sessionID uuid.UUID) (model.Tally, error) {
	if r.pool == nil {
		return model.Tally{}, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM voteban_sessions WHERE id = $1)`, sessionID).Scan(&exists); err != nil {
		return model.Tally{}, fmt.Errorf("lookup voteban session: %w", err)
	}
	if !exists {
		return model.Tally{}, votebansvc.ErrSessionNotFound
	}

	ballots, err := listBallots(ctx, r.pool, sessionID)
	if err != nil {
		return model.Tally{}, err
	}
	return model.NewTally(ballots), nil
}

// DeleteSession removes the session and reports whether this caller was the
// one that removed it. The row lock taken first makes concurrent claimers
// wait, and every later claimer observes the row gone. The returned tally is
// the one frozen at the moment of deletion.
func (r *VotebanRepo) DeleteSession(ctx context.Context, sessionID uuid.UUID) (model.Tally, bool, error) {
	tally, claimed, err := r.claim(ctx, sessionID, nil)
	if errors.Is(err, votebansvc.ErrSessionNotFound) {
		return model.Tally{}, false, nil
	}
	return tally, claimed, err
}

// ClaimIfReached deletes the session only when the ballots read under the
// row lock still reach the quorum. Below quorum the session stays and the
// locked tally is returned unclaimed. A missing session is ErrSessionNotFound.
func (r *VotebanRepo) ClaimIfReached(ctx context.Context, sessionID uuid.UUID, quorum int) (model.Tally, bool, error) {
	return r.claim(ctx, sessionID, func(t model.Tally) bool {
		return t.Reached(quorum)
	})
}

func (r *VotebanRepo) claim(ctx context.Context, sessionID uuid.UUID, ready func(model.Tally) bool) (model.Tally, bool, error) {
	if r.pool == nil {
		return model.Tally{}, false, fmt.Errorf("postgres pool is nil")
	}

	var (
		tally   model.Tally
		claimed bool
	)

	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
SELECT id
FROM voteban_sessions
WHERE id = $1
FOR UPDATE
`, sessionID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return votebansvc.ErrSessionNotFound
			}
			return fmt.Errorf("lock voteban session: %w", err)
		}

		ballots, err := listBallots(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		tally = model.NewTally(ballots)
		if ready != nil && !ready(tally) {
			return nil
		}

		result, err := tx.Exec(ctx, `DELETE FROM voteban_sessions WHERE id = $1`, sessionID)
		if err != nil {
			return fmt.Errorf("delete voteban session: %w", err)
		}
		claimed = result.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return model.Tally{}, false, err
	}

	return tally, claimed, nil
}

func (r *VotebanRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
DELETE FROM voteban_sessions
WHERE created_at < $1
`, cutoff.UTC())
		if err != nil {
			return fmt.Errorf("delete expired voteban sessions: %w", err)
		}
		deleted = result.RowsAffected()
		return nil
	})
	return deleted, err
}

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listBallots(ctx context.Context, q rowsQuerier, sessionID uuid.UUID) ([]model.Ballot, error) {
	rows, err := q.Query(ctx, `
SELECT session_id, voter_user_id, voter_name, side, created_at
FROM voteban_ballots
WHERE session_id = $1
ORDER BY created_at ASC, voter_user_id ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list voteban ballots: %w", err)
	}
	defer rows.Close()

	ballots := make([]model.Ballot, 0)
	for rows.Next() {
		var (
			ballot model.Ballot
			side   string
		)
		if err := rows.Scan(&ballot.SessionID, &ballot.VoterID, &ballot.VoterName, &side, &ballot.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voteban ballot: %w", err)
		}
		ballot.Side = enums.VoteSide(side)
		ballots = append(ballots, ballot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voteban ballots: %w", err)
	}

	return ballots, nil
}

func scanSession(row pgx.Row) (model.VoteSession, error) {
	var (
		session               model.VoteSession
		authorUserID          *int64
		authorSenderChatID    *int64
		candidateUserID       *int64
		candidateSenderChatID *int64
		mediaGroupID          *string
	)

	if err := row.Scan(
		&session.ID,
		&session.ChatID,
		&session.MessageID,
		&authorUserID,
		&authorSenderChatID,
		&session.Author.Name,
		&candidateUserID,
		&candidateSenderChatID,
		&session.Candidate.Name,
		&session.TargetMessageID,
		&mediaGroupID,
		&session.CreatedAt,
	); err != nil {
		return model.VoteSession{}, err
	}

	session.Author.UserID = derefID(authorUserID)
	session.Author.SenderChatID = derefID(authorSenderChatID)
	session.Candidate.UserID = derefID(candidateUserID)
	session.Candidate.SenderChatID = derefID(candidateSenderChatID)
	if mediaGroupID != nil {
		session.MediaGroupID = *mediaGroupID
	}

	return session, nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

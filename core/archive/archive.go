// Package archive writes finished polls and stopped games to Postgres.
// The archive is history only; sessions are never loaded back from it.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/roombot/core/game"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/poll"
)

const (
	insertPollRow = `INSERT INTO poll_results
	(archive_id, room_id, poll_name, description, author, option_index, option_text, votes, created_at, ended_at)
	VALUES (:archive_id, :room_id, :poll_name, :description, :author, :option_index, :option_text, :votes, :created_at, :ended_at)`

	insertScoreRow = `INSERT INTO game_scores
	(archive_id, room_id, seat, player, score, started_at, stopped_at)
	VALUES (:archive_id, :room_id, :seat, :player, :score, :started_at, :stopped_at)`
)

// PollRow is one option of an archived poll.
type PollRow struct {
	ArchiveID   uuid.UUID `db:"archive_id"`
	RoomID      string    `db:"room_id"`
	PollName    string    `db:"poll_name"`
	Description string    `db:"description"`
	Author      string    `db:"author"`
	OptionIndex int       `db:"option_index"`
	OptionText  string    `db:"option_text"`
	Votes       int       `db:"votes"`
	CreatedAt   time.Time `db:"created_at"`
	EndedAt     time.Time `db:"ended_at"`
}

// ScoreRow is one player of an archived game.
type ScoreRow struct {
	ArchiveID uuid.UUID `db:"archive_id"`
	RoomID    string    `db:"room_id"`
	Seat      int       `db:"seat"`
	Player    string    `db:"player"`
	Score     int       `db:"score"`
	StartedAt time.Time `db:"started_at"`
	StoppedAt time.Time `db:"stopped_at"`
}

// Store is the Postgres archive. It implements poll.Recorder and game.Recorder.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New wraps an open database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordPoll stores one row per option of an ended poll.
func (s *Store) RecordPoll(ctx context.Context, p poll.Poll) error {
	rows := PollRows(uuid.New(), p, s.now())
	if len(rows) == 0 {
		return nil
	}
	return s.insert(ctx, "poll", len(rows), func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, insertPollRow, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordGame stores the final scoreboard of a stopped game.
func (s *Store) RecordGame(ctx context.Context, g game.Game) error {
	rows := ScoreRows(uuid.New(), g, s.now())
	if len(rows) == 0 {
		return nil
	}
	return s.insert(ctx, "game", len(rows), func(tx *sqlx.Tx) error {
		for _, row := range rows {
			if _, err := tx.NamedExecContext(ctx, insertScoreRow, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, kind string, n int, fn func(tx *sqlx.Tx) error) error {
	start := time.Now()
	err := s.inTx(ctx, fn)
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("kind", kind),
		slog.Int("rows", n),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "archive.write", attrs...)
		return fmt.Errorf("archive: record %s: %w", kind, err)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "archive.write", attrs...)
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// PollRows flattens p into archive rows, zero-vote options included.
func PollRows(id uuid.UUID, p poll.Poll, now time.Time) []PollRow {
	endedAt := p.EndedAt
	if endedAt.IsZero() {
		endedAt = now
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = endedAt
	}
	rows := make([]PollRow, 0, len(p.Options))
	for i, opt := range p.Options {
		rows = append(rows, PollRow{
			ArchiveID:   id,
			RoomID:      p.RoomID,
			PollName:    p.Name,
			Description: p.Description,
			Author:      p.Author,
			OptionIndex: i,
			OptionText:  opt,
			Votes:       p.Votes[i],
			CreatedAt:   createdAt,
			EndedAt:     endedAt,
		})
	}
	return rows
}

// ScoreRows flattens g into archive rows in join order.
func ScoreRows(id uuid.UUID, g game.Game, stoppedAt time.Time) []ScoreRow {
	startedAt := g.StartedAt
	if startedAt.IsZero() {
		startedAt = stoppedAt
	}
	rows := make([]ScoreRow, 0, len(g.Players))
	for i, pl := range g.Players {
		rows = append(rows, ScoreRow{
			ArchiveID: id,
			RoomID:    g.RoomID,
			Seat:      i,
			Player:    pl.Name,
			Score:     pl.Score,
			StartedAt: startedAt,
			StoppedAt: stoppedAt,
		})
	}
	return rows
}

// Nop discards everything. It is used when no database is configured.
type Nop struct{}

func (Nop) RecordPoll(context.Context, poll.Poll) error { return nil }
func (Nop) RecordGame(context.Context, game.Game) error { return nil }

var (
	_ poll.Recorder = (*Store)(nil)
	_ game.Recorder = (*Store)(nil)
	_ poll.Recorder = Nop{}
	_ game.Recorder = Nop{}
)

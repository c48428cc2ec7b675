package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/wordrace/internal/history"
)

// RoundResultRepository persists finished rounds. It satisfies history.Store.
type RoundResultRepository struct {
	db *pgxpool.Pool
}

// NewRoundResultRepository creates a RoundResultRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRoundResultRepository(db *pgxpool.Pool) *RoundResultRepository {
	return &RoundResultRepository{db: db}
}

// InsertRoundResult stores one round.
//
// Precondition: r.RoomID must be a UUID.
func (r *RoundResultRepository) InsertRoundResult(ctx context.Context, res history.RoundResult) error {
	roomID, err := uuid.Parse(res.RoomID)
	if err != nil {
		return fmt.Errorf("parsing room id %q: %w", res.RoomID, err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO round_results
		    (room_id, room_code, round, winner, word, scores, player_count, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		roomID, res.RoomCode, res.Round, res.Winner, res.Word, res.Scores, res.PlayerCount, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting round %d of room %s: %w", res.Round, res.RoomCode, err)
	}
	return nil
}

const roundResultColumns = `room_id::text, room_code, round, winner, word, scores, player_count, finished_at`

// ListByRoom returns every recorded round of one room instance in round order.
func (r *RoundResultRepository) ListByRoom(ctx context.Context, roomID string) ([]history.RoundResult, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, fmt.Errorf("parsing room id %q: %w", roomID, err)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+roundResultColumns+`
		   FROM round_results
		  WHERE room_id = $1
		  ORDER BY round, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rounds for room %s: %w", roomID, err)
	}
	return collect(rows)
}

// ListRecent returns the latest limit rounds across all rooms, newest first.
//
// Precondition: limit must be > 0.
func (r *RoundResultRepository) ListRecent(ctx context.Context, limit int) ([]history.RoundResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+roundResultColumns+`
		   FROM round_results
		  ORDER BY finished_at DESC, id DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent rounds: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]history.RoundResult, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.RoundResult, error) {
		var res history.RoundResult
		err := row.Scan(
			&res.RoomID, &res.RoomCode, &res.Round, &res.Winner, &res.Word,
			&res.Scores, &res.PlayerCount, &res.FinishedAt,
		)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning round results: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// inChunk bounds the number of ids bound into a single IN list.
const inChunk = 500

// Stats summarizes the store contents.
type Stats struct {
	Waves         int `json:"waves"`
	Active        int `json:"active"`
	Unlocked      int `json:"unlocked"`
	PendingUnlock int `json:"pending_unlock"`
	Participants  int `json:"participants"`
}

// GetWave returns a wave regardless of expiry, or wave.ErrNotFound.
func (s *Store) GetWave(ctx context.Context, waveID string) (wave.Wave, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+waveColumns+` FROM waves WHERE id = ?`), waveID)
	w, err := scanWave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wave.Wave{}, wave.ErrNotFound
	}
	if err != nil {
		return wave.Wave{}, fmt.Errorf("get wave: %w", err)
	}
	return w, nil
}

// ListParticipants returns the members of a wave ordered by join time, then
// user id. Returns an empty slice (not nil) for unknown waves.
func (s *Store) ListParticipants(ctx context.Context, waveID string) ([]wave.Participant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT wave_id, user_id, joined_at
		FROM wave_participants
		WHERE wave_id = ?
		ORDER BY joined_at ASC, user_id ASC
	`), waveID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := []wave.Participant{}
	for rows.Next() {
		var p wave.Participant
		var joinedAt int64
		if err := rows.Scan(&p.WaveID, &p.UserID, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.JoinedAt = fromMillis(joinedAt)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// ListActive returns the waves among ids that have not expired at now,
// ordered by id. Unknown ids are skipped.
func (s *Store) ListActive(ctx context.Context, ids []string, now time.Time) ([]wave.Wave, error) {
	waves := []wave.Wave{}
	for start := 0; start < len(ids); start += inChunk {
		end := min(start+inChunk, len(ids))
		args := make([]any, 0, end-start+1)
		args = append(args, toMillis(now))
		for _, id := range ids[start:end] {
			args = append(args, id)
		}

		rows, err := s.db.QueryContext(ctx, s.q(`
			SELECT `+waveColumns+` FROM waves
			WHERE expires_at > ? AND id IN (`+placeholders(end-start)+`)
		`), args...)
		if err != nil {
			return nil, fmt.Errorf("list active: %w", err)
		}
		chunk, err := scanWaves(rows)
		if err != nil {
			return nil, fmt.Errorf("list active: %w", err)
		}
		waves = append(waves, chunk...)
	}

	sort.Slice(waves, func(i, j int) bool { return waves[i].ID < waves[j].ID })
	return waves, nil
}

// ListActiveLocated returns every unexpired wave that has coordinates.
func (s *Store) ListActiveLocated(ctx context.Context, now time.Time) ([]wave.Wave, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+waveColumns+` FROM waves
		WHERE expires_at > ? AND lat IS NOT NULL AND lng IS NOT NULL
		ORDER BY id ASC
	`), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("list located: %w", err)
	}
	waves, err := scanWaves(rows)
	if err != nil {
		return nil, fmt.Errorf("list located: %w", err)
	}
	return waves, nil
}

// ListPendingUnlocks returns active waves that reached their threshold but
// have no room yet and no live unlock lease, oldest first.
func (s *Store) ListPendingUnlocks(ctx context.Context, now time.Time, limit int) ([]wave.Wave, error) {
	if limit <= 0 {
		limit = inChunk
	}
	nowMs := toMillis(now)
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+waveColumns+` FROM waves
		WHERE is_unlocked = FALSE
		  AND participant_count >= threshold
		  AND expires_at > ?
		  AND (unlock_lease_until IS NULL OR unlock_lease_until <= ?)
		ORDER BY started_at ASC, id ASC
		LIMIT ?
	`), nowMs, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending unlocks: %w", err)
	}
	waves, err := scanWaves(rows)
	if err != nil {
		return nil, fmt.Errorf("list pending unlocks: %w", err)
	}
	return waves, nil
}

// UnlockAttempts reports how many provisioning attempts failed for a wave
// and the last recorded cause.
func (s *Store) UnlockAttempts(ctx context.Context, waveID string) (int, string, error) {
	var attempts int
	var cause string
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT unlock_attempts, last_unlock_error FROM waves WHERE id = ?
	`), waveID).Scan(&attempts, &cause)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", wave.ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("unlock attempts: %w", err)
	}
	return attempts, cause, nil
}

// Stats counts waves and participants as of now.
func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	nowMs := toMillis(now)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_unlocked THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT is_unlocked AND participant_count >= threshold AND expires_at > ? THEN 1 ELSE 0 END), 0)
		FROM waves
	`), nowMs, nowMs).Scan(&st.Waves, &st.Active, &st.Unlocked, &st.PendingUnlock)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: waves: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wave_participants`).Scan(&st.Participants); err != nil {
		return Stats{}, fmt.Errorf("stats: participants: %w", err)
	}
	return st, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// purgeChunk bounds the IN lists PurgeExpired builds.
const purgeChunk = 500

func (s *Store) q(query string) string {
	return s.d.rebind(query)
}

// lockWave loads a wave inside tx, taking a row lock where the dialect has one.
func (s *Store) lockWave(ctx context.Context, tx *sql.Tx, waveID string) (wave.Wave, error) {
	row := tx.QueryRowContext(ctx, s.q(`SELECT `+waveColumns+` FROM waves WHERE id = ?`+s.d.forUpdate), waveID)
	w, err := scanWave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wave.Wave{}, wave.ErrNotFound
	}
	if err != nil {
		return wave.Wave{}, err
	}
	return w, nil
}

// CreateWave stores a new wave together with its creator's participant row.
// The stored wave always starts locked with a participant count of one.
func (s *Store) CreateWave(ctx context.Context, w wave.Wave) (wave.Wave, error) {
	w.ParticipantCount = 1
	w.IsUnlocked = false
	w.ChatRoomID = ""

	lat, lng := nullCoords(w.Location)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wave.Wave{}, fmt.Errorf("create wave: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO waves
		(id, creator_id, activity, area, location_name, lat, lng, scheduled_for,
		 threshold, participant_count, is_unlocked, chat_room_id, thought, started_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		w.ID,
		w.CreatorID,
		string(w.Activity),
		w.Area,
		w.LocationName,
		lat,
		lng,
		nullMillis(w.ScheduledFor),
		w.Threshold,
		w.ParticipantCount,
		w.IsUnlocked,
		w.ChatRoomID,
		w.Thought,
		toMillis(w.StartedAt),
		toMillis(w.ExpiresAt),
	)
	if err != nil {
		return wave.Wave{}, fmt.Errorf("create wave: insert wave: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO wave_participants (wave_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`), w.ID, w.CreatorID, toMillis(w.StartedAt))
	if err != nil {
		return wave.Wave{}, fmt.Errorf("create wave: insert creator: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return wave.Wave{}, fmt.Errorf("create wave: commit: %w", err)
	}

	w.StartedAt = fromMillis(toMillis(w.StartedAt))
	w.ExpiresAt = fromMillis(toMillis(w.ExpiresAt))
	if w.ScheduledFor != nil {
		t := fromMillis(toMillis(*w.ScheduledFor))
		w.ScheduledFor = &t
	}
	return w, nil
}

// TryAddParticipant adds userID to the wave in one transaction.
//
// A missing or expired wave yields wave.ErrNotFound. An existing membership
// leaves everything untouched and reports AlreadyMember. Otherwise the row is
// inserted, the cached count is recomputed from the participant rows, and
// Crossed is set when this insert brought the count up to the threshold of a
// still-locked wave. The crossing call also takes the unlock lease until
// now+lease.
func (s *Store) TryAddParticipant(ctx context.Context, waveID, userID string, now time.Time, lease time.Duration) (wave.JoinResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: begin tx: %w", err)
	}
	defer tx.Rollback()

	w, err := s.lockWave(ctx, tx, waveID)
	if err != nil {
		if wave.IsNotFound(err) {
			return wave.JoinResult{}, err
		}
		return wave.JoinResult{}, fmt.Errorf("add participant: load wave: %w", err)
	}
	if w.Expired(now) {
		return wave.JoinResult{}, wave.ErrNotFound
	}

	result, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO wave_participants (wave_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (wave_id, user_id) DO NOTHING
	`), waveID, userID, toMillis(now))
	if err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if err := tx.Commit(); err != nil {
			return wave.JoinResult{}, fmt.Errorf("add participant: commit (existing): %w", err)
		}
		return wave.JoinResult{Wave: w, AlreadyMember: true}, nil
	}

	var count int
	err = tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM wave_participants WHERE wave_id = ?`), waveID).Scan(&count)
	if err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: count: %w", err)
	}

	crossed := !w.IsUnlocked && w.ParticipantCount < w.Threshold && count >= w.Threshold
	if crossed {
		_, err = tx.ExecContext(ctx, s.q(`
			UPDATE waves SET participant_count = ?, unlock_lease_until = ?
			WHERE id = ?
		`), count, toMillis(now.Add(lease)), waveID)
	} else {
		_, err = tx.ExecContext(ctx, s.q(`UPDATE waves SET participant_count = ? WHERE id = ?`), count, waveID)
	}
	if err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: update count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return wave.JoinResult{}, fmt.Errorf("add participant: commit: %w", err)
	}

	w.ParticipantCount = count
	return wave.JoinResult{Wave: w, Crossed: crossed}, nil
}

// ClaimUnlock grants the unlock lease for an active wave that reached its
// threshold without a room, provided nobody else holds a live lease.
func (s *Store) ClaimUnlock(ctx context.Context, waveID string, now time.Time, lease time.Duration) (bool, error) {
	nowMs := toMillis(now)
	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE waves SET unlock_lease_until = ?
		WHERE id = ?
		  AND is_unlocked = FALSE
		  AND participant_count >= threshold
		  AND expires_at > ?
		  AND (unlock_lease_until IS NULL OR unlock_lease_until <= ?)
	`), toMillis(now.Add(lease)), waveID, nowMs, nowMs)
	if err != nil {
		return false, fmt.Errorf("claim unlock: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim unlock: rows affected: %w", err)
	}
	return n == 1, nil
}

// SetUnlocked records the room and flips is_unlocked. It applies at most
// once per wave; the returned bool reports whether this call applied it.
func (s *Store) SetUnlocked(ctx context.Context, waveID, roomID string) (bool, error) {
	if roomID == "" {
		return false, fmt.Errorf("set unlocked: empty room id")
	}
	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE waves
		SET is_unlocked = TRUE, chat_room_id = ?, unlock_lease_until = NULL, last_unlock_error = ''
		WHERE id = ? AND is_unlocked = FALSE
	`), roomID, waveID)
	if err != nil {
		return false, fmt.Errorf("set unlocked: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set unlocked: rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseUnlock gives the lease back after a failed provisioning attempt so
// the next join or sweep can retry.
func (s *Store) ReleaseUnlock(ctx context.Context, waveID, cause string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE waves
		SET unlock_lease_until = NULL, unlock_attempts = unlock_attempts + 1, last_unlock_error = ?
		WHERE id = ? AND is_unlocked = FALSE
	`), cause, waveID)
	if err != nil {
		return fmt.Errorf("release unlock: %w", err)
	}
	return nil
}

// DeleteWave removes a wave and all of its participant rows, returning the
// wave as it was before deletion.
func (s *Store) DeleteWave(ctx context.Context, waveID string) (wave.Wave, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wave.Wave{}, fmt.Errorf("delete wave: begin tx: %w", err)
	}
	defer tx.Rollback()

	w, err := s.lockWave(ctx, tx, waveID)
	if err != nil {
		if wave.IsNotFound(err) {
			return wave.Wave{}, err
		}
		return wave.Wave{}, fmt.Errorf("delete wave: load: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM wave_participants WHERE wave_id = ?`), waveID); err != nil {
		return wave.Wave{}, fmt.Errorf("delete wave: participants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM waves WHERE id = ?`), waveID); err != nil {
		return wave.Wave{}, fmt.Errorf("delete wave: wave: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return wave.Wave{}, fmt.Errorf("delete wave: commit: %w", err)
	}
	return w, nil
}

// PurgeExpired hard-deletes up to limit waves whose expiry is before the
// given instant and returns them, oldest first.
func (s *Store) PurgeExpired(ctx context.Context, before time.Time, limit int) ([]wave.Wave, error) {
	if limit <= 0 {
		limit = purgeChunk
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("purge expired: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT `+waveColumns+` FROM waves
		WHERE expires_at < ?
		ORDER BY expires_at ASC, id ASC
		LIMIT ?
	`), toMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("purge expired: select: %w", err)
	}
	waves, err := scanWaves(rows)
	if err != nil {
		return nil, fmt.Errorf("purge expired: %w", err)
	}

	for start := 0; start < len(waves); start += purgeChunk {
		end := min(start+purgeChunk, len(waves))
		ids := make([]any, 0, end-start)
		for _, w := range waves[start:end] {
			ids = append(ids, w.ID)
		}
		marks := placeholders(len(ids))
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM wave_participants WHERE wave_id IN (`+marks+`)`), ids...); err != nil {
			return nil, fmt.Errorf("purge expired: participants: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM waves WHERE id IN (`+marks+`)`), ids...); err != nil {
			return nil, fmt.Errorf("purge expired: waves: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("purge expired: commit: %w", err)
	}
	return waves, nil
}

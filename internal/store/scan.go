package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

const waveColumns = `id, creator_id, activity, area, location_name, lat, lng, scheduled_for,
	threshold, participant_count, is_unlocked, chat_room_id, thought, started_at, expires_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWave(sc scanner) (wave.Wave, error) {
	var (
		w            wave.Wave
		activity     string
		lat, lng     sql.NullFloat64
		scheduledFor sql.NullInt64
		startedAt    int64
		expiresAt    int64
	)
	err := sc.Scan(
		&w.ID,
		&w.CreatorID,
		&activity,
		&w.Area,
		&w.LocationName,
		&lat,
		&lng,
		&scheduledFor,
		&w.Threshold,
		&w.ParticipantCount,
		&w.IsUnlocked,
		&w.ChatRoomID,
		&w.Thought,
		&startedAt,
		&expiresAt,
	)
	if err != nil {
		return wave.Wave{}, err
	}

	w.Activity = wave.ActivityType(activity)
	if lat.Valid && lng.Valid {
		w.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if scheduledFor.Valid {
		t := fromMillis(scheduledFor.Int64)
		w.ScheduledFor = &t
	}
	w.StartedAt = fromMillis(startedAt)
	w.ExpiresAt = fromMillis(expiresAt)
	return w, nil
}

func scanWaves(rows *sql.Rows) ([]wave.Wave, error) {
	defer rows.Close()

	waves := []wave.Wave{}
	for rows.Next() {
		w, err := scanWave(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wave: %w", err)
		}
		waves = append(waves, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waves: %w", err)
	}
	return waves, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullCoords(p *geo.Point) (lat, lng sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}

package wave

import (
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
)

// MinThreshold is the smallest quorum a wave may require.
const MinThreshold = 2

// MaxThoughtRunes bounds the creator's free-text note.
const MaxThoughtRunes = 280

// State is the unlock dimension of a wave's lifecycle.
type State string

const (
	StateForming  State = "forming"
	StateUnlocked State = "unlocked"
)

// Wave is a group-formation request.
type Wave struct {
	ID               string       `json:"id"`
	CreatorID        string       `json:"creator_id"`
	Activity         ActivityType `json:"activity"`
	Area             string       `json:"area,omitempty"`
	LocationName     string       `json:"location_name,omitempty"`
	Location         *geo.Point   `json:"location,omitempty"`
	ScheduledFor     *time.Time   `json:"scheduled_for,omitempty"`
	Threshold        int          `json:"threshold"`
	ParticipantCount int          `json:"participant_count"`
	IsUnlocked       bool         `json:"is_unlocked"`
	ChatRoomID       string       `json:"chat_room_id,omitempty"`
	Thought          string       `json:"thought,omitempty"`
	StartedAt        time.Time    `json:"started_at"`
	ExpiresAt        time.Time    `json:"expires_at"`
}

// Expired reports whether the wave is no longer active at now.
func (w Wave) Expired(now time.Time) bool {
	return !w.ExpiresAt.After(now)
}

// PendingUnlock reports whether quorum was reached but no room is recorded yet.
func (w Wave) PendingUnlock() bool {
	return w.ParticipantCount >= w.Threshold && !w.IsUnlocked
}

// State returns the unlock state.
func (w Wave) State() State {
	if w.IsUnlocked {
		return StateUnlocked
	}
	return StateForming
}

// EffectiveTime is when the activity happens: the scheduled time, or the
// start of the wave for "happening now" declarations.
func (w Wave) EffectiveTime() time.Time {
	if w.ScheduledFor != nil {
		return *w.ScheduledFor
	}
	return w.StartedAt
}

// Participant is one membership row.
type Participant struct {
	WaveID   string    `json:"wave_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// JoinResult is what the store reports for one atomic join attempt.
type JoinResult struct {
	Wave          Wave
	AlreadyMember bool
	// Crossed is true only for the single call whose insert brought the
	// count up to the threshold. That caller owns the unlock.
	Crossed bool
}

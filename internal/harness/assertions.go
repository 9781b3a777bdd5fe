package harness

import (
	"fmt"
	"slices"
)

// check compares an observation with the step's expectations and returns
// one message per mismatch. A step without expectations must not fail.
func (h *Harness) check(exp *Expect, obs observation) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	if exp == nil {
		if obs.err != nil {
			fail("unexpected error: %v", obs.err)
		}
		return failures
	}

	got := outcomeOf(obs.err)
	want := exp.Error
	if want == "" {
		want = OutcomeOK
	}
	if got != want {
		fail("outcome: expected %s, got %s (%v)", want, got, obs.err)
		return failures
	}

	if w := obs.wave; w != nil {
		if exp.ParticipantCount != nil && w.ParticipantCount != *exp.ParticipantCount {
			fail("participant_count: expected %d, got %d", *exp.ParticipantCount, w.ParticipantCount)
		}
		if exp.Unlocked != nil && w.IsUnlocked != *exp.Unlocked {
			fail("unlocked: expected %t, got %t", *exp.Unlocked, w.IsUnlocked)
		}
		if exp.ChatRoom != nil && (w.ChatRoomID != "") != *exp.ChatRoom {
			fail("chat_room: expected set=%t, got %q", *exp.ChatRoom, w.ChatRoomID)
		}
	} else if exp.ParticipantCount != nil || exp.Unlocked != nil || exp.ChatRoom != nil {
		fail("wave fields expected but the step observed no wave")
	}

	if exp.AlreadyMember != nil && (obs.alreadyMember == nil || *obs.alreadyMember != *exp.AlreadyMember) {
		fail("already_member: expected %t", *exp.AlreadyMember)
	}
	if exp.PendingUnlock != nil && (obs.pendingUnlock == nil || *obs.pendingUnlock != *exp.PendingUnlock) {
		fail("pending_unlock: expected %t", *exp.PendingUnlock)
	}
	if exp.RoomsCreated != nil && h.chat.RoomCount() != *exp.RoomsCreated {
		fail("rooms_created: expected %d, got %d", *exp.RoomsCreated, h.chat.RoomCount())
	}

	if exp.Waves != nil && !slices.Equal(obs.nearby, exp.Waves) {
		fail("waves: expected %v, got %v", exp.Waves, obs.nearby)
	}
	if exp.Count != nil && len(obs.nearby) != *exp.Count {
		fail("count: expected %d, got %d", *exp.Count, len(obs.nearby))
	}
	for _, ref := range exp.Excludes {
		if slices.Contains(obs.nearby, ref) {
			fail("excludes: %s was returned", ref)
		}
	}

	if exp.Exists != nil && (obs.exists == nil || *obs.exists != *exp.Exists) {
		fail("exists: expected %t", *exp.Exists)
	}
	if exp.Rows != nil && (obs.rows == nil || *obs.rows != *exp.Rows) {
		fail("rows: expected %d", *exp.Rows)
	}

	if exp.SweptUnlocks != nil && (obs.sweep == nil || obs.sweep.Unlocked != *exp.SweptUnlocks) {
		fail("swept_unlocks: expected %d", *exp.SweptUnlocks)
	}
	if exp.Purged != nil && (obs.sweep == nil || obs.sweep.Purged != *exp.Purged) {
		fail("purged: expected %d", *exp.Purged)
	}
	return failures
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// releaseTimeout bounds the bookkeeping done after a failed unlock.
const releaseTimeout = 5 * time.Second

// JoinOutcome is what a joining user sees.
type JoinOutcome struct {
	Wave          wave.Wave
	AlreadyMember bool
	Unlocked      bool
	ChatRoomID    string
	// PendingUnlock means quorum is reached but the room is not ready yet.
	PendingUnlock bool
}

// Coordinator runs joins and owns the unlock transition.
type Coordinator struct {
	store     WaveStore
	chat      chat.Provisioner
	clock     Clock
	logger    *slog.Logger
	settings  Settings
	publisher Publisher
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(s WaveStore, p chat.Provisioner, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	return &Coordinator{
		store:     s,
		chat:      p,
		clock:     o.clock,
		logger:    o.logger,
		settings:  o.settings,
		publisher: o.publisher,
	}
}

// Join records userID as a participant of waveID.
//
// Joining twice is not an error. A missing, deleted or expired wave yields
// wave.ErrNotFound. Once the membership row is stored the join succeeds,
// whatever happens while provisioning the chat room.
func (c *Coordinator) Join(ctx context.Context, waveID, userID string) (JoinOutcome, error) {
	if userID == "" {
		return JoinOutcome{}, wave.Invalid("user_id", "required")
	}

	now := c.clock.Now()
	res, err := c.store.TryAddParticipant(ctx, waveID, userID, now, c.settings.UnlockLease)
	if err != nil {
		return JoinOutcome{}, fmt.Errorf("join wave %s: %w", waveID, err)
	}

	w := res.Wave
	switch {
	case res.Crossed:
		c.logger.Info("wave reached quorum", "wave_id", w.ID, "participants", w.ParticipantCount, "threshold", w.Threshold)
		w = c.unlock(ctx, w)

	case w.PendingUnlock():
		claimed, err := c.store.ClaimUnlock(ctx, w.ID, now, c.settings.UnlockLease)
		if err != nil {
			c.logger.Warn("claim unlock failed", "wave_id", w.ID, "error", err)
			break
		}
		if claimed {
			c.logger.Info("retrying pending unlock", "wave_id", w.ID, "trigger", "join")
			w = c.unlock(ctx, w)
		}

	case w.IsUnlocked && !res.AlreadyMember:
		c.admit(ctx, w, userID)
	}

	c.logger.Debug("join",
		"wave_id", w.ID,
		"user_id", userID,
		"already_member", res.AlreadyMember,
		"participants", w.ParticipantCount,
		"unlocked", w.IsUnlocked,
	)
	return outcome(w, res.AlreadyMember), nil
}

// RetryUnlock claims the unlock lease of a pending wave and runs the
// unlock. It reports whether the wave is unlocked afterwards; false with a
// nil error means another caller holds the lease or the wave is not pending.
func (c *Coordinator) RetryUnlock(ctx context.Context, waveID string) (bool, error) {
	claimed, err := c.store.ClaimUnlock(ctx, waveID, c.clock.Now(), c.settings.UnlockLease)
	if err != nil {
		return false, fmt.Errorf("retry unlock %s: %w", waveID, err)
	}
	if !claimed {
		return false, nil
	}

	w, err := c.store.GetWave(ctx, waveID)
	if err != nil {
		c.release(ctx, waveID, err)
		return false, fmt.Errorf("retry unlock %s: %w", waveID, err)
	}
	c.logger.Info("retrying pending unlock", "wave_id", waveID, "trigger", "sweep")
	w = c.unlock(ctx, w)
	return w.IsUnlocked, nil
}

// unlock provisions the room for a wave whose lease the caller holds and
// returns the wave as it stands afterwards. Failures are logged and leave
// the wave pending.
func (c *Coordinator) unlock(ctx context.Context, w wave.Wave) wave.Wave {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settings.ProvisionTimeout)
	defer cancel()

	participants, err := c.store.ListParticipants(pctx, w.ID)
	if err != nil {
		c.release(ctx, w.ID, err)
		return w
	}
	ids := userIDs(participants)

	roomID, err := c.chat.CreateRoom(pctx, w.ID, ids)
	if err != nil {
		c.logger.Warn("chat room provisioning failed, unlock pending", "wave_id", w.ID, "error", err)
		c.release(ctx, w.ID, err)
		return w
	}

	applied, err := c.store.SetUnlocked(pctx, w.ID, roomID)
	if err != nil {
		c.logger.Error("record unlock failed", "wave_id", w.ID, "room_id", roomID, "error", err)
		c.release(ctx, w.ID, err)
		return w
	}
	if !applied {
		return c.settle(ctx, w, roomID)
	}

	w.IsUnlocked = true
	w.ChatRoomID = roomID
	c.logger.Info("wave unlocked", "wave_id", w.ID, "room_id", roomID, "participants", len(ids))

	ids = c.reconcileMembers(pctx, w, ids)

	ev := UnlockEvent{WaveID: w.ID, ChatRoomID: roomID, ParticipantIDs: ids, UnlockedAt: c.clock.Now()}
	if err := c.publisher.PublishUnlock(pctx, ev); err != nil {
		c.logger.Warn("publish unlock event failed", "wave_id", w.ID, "error", err)
	}
	return w
}

// settle handles a room whose unlock was not recorded. Either an earlier
// lease holder recorded the same room, or the wave was deleted or given
// another room meanwhile; in those cases the room is orphaned and archived.
func (c *Coordinator) settle(ctx context.Context, w wave.Wave, roomID string) wave.Wave {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	fresh, err := c.store.GetWave(rctx, w.ID)
	switch {
	case wave.IsNotFound(err):
		c.logger.Info("wave deleted during provisioning, archiving room", "wave_id", w.ID, "room_id", roomID)
		archiveRoom(ctx, c.chat, c.logger, c.settings, wave.Wave{ID: w.ID, ChatRoomID: roomID})
		return w
	case err != nil:
		c.logger.Warn("reload wave after unlock failed", "wave_id", w.ID, "room_id", roomID, "error", err)
		return w
	case fresh.ChatRoomID != roomID:
		c.logger.Warn("wave unlocked with another room, archiving orphan", "wave_id", w.ID, "room_id", roomID, "recorded_room_id", fresh.ChatRoomID)
		archiveRoom(ctx, c.chat, c.logger, c.settings, wave.Wave{ID: w.ID, ChatRoomID: roomID})
	}
	return fresh
}

// reconcileMembers adds to the room anyone who joined between the
// participant listing and SetUnlocked. Those joiners saw a locked wave and
// were not admitted individually.
func (c *Coordinator) reconcileMembers(ctx context.Context, w wave.Wave, seeded []string) []string {
	participants, err := c.store.ListParticipants(ctx, w.ID)
	if err != nil {
		c.logger.Warn("list participants after unlock failed", "wave_id", w.ID, "error", err)
		return seeded
	}

	known := make(map[string]struct{}, len(seeded))
	for _, id := range seeded {
		known[id] = struct{}{}
	}
	all := seeded
	for _, p := range participants {
		if _, ok := known[p.UserID]; ok {
			continue
		}
		c.admit(ctx, w, p.UserID)
		all = append(all, p.UserID)
	}
	return all
}

// admit adds a late joiner to an unlocked wave's room, best effort.
func (c *Coordinator) admit(ctx context.Context, w wave.Wave, userID string) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settings.ProvisionTimeout)
	defer cancel()

	if err := c.chat.AddMember(actx, w.ChatRoomID, userID); err != nil {
		c.logger.Warn("add member to chat room failed", "wave_id", w.ID, "room_id", w.ChatRoomID, "user_id", userID, "error", err)
	}
}

func (c *Coordinator) release(ctx context.Context, waveID string, cause error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := c.store.ReleaseUnlock(rctx, waveID, cause.Error()); err != nil {
		c.logger.Error("release unlock lease failed", "wave_id", waveID, "error", err)
	}
}

func outcome(w wave.Wave, alreadyMember bool) JoinOutcome {
	return JoinOutcome{
		Wave:          w,
		AlreadyMember: alreadyMember,
		Unlocked:      w.IsUnlocked,
		ChatRoomID:    w.ChatRoomID,
		PendingUnlock: w.PendingUnlock(),
	}
}

func userIDs(participants []wave.Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	return ids
}

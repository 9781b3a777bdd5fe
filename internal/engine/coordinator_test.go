package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

func TestJoin_UnlocksAtThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)
	assert.Equal(t, 1, w.ParticipantCount)
	assert.False(t, w.IsUnlocked)

	out, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)

	assert.True(t, out.Unlocked)
	assert.Equal(t, "room-1", out.ChatRoomID)
	assert.False(t, out.PendingUnlock)
	assert.Equal(t, 2, out.Wave.ParticipantCount)
	assert.Equal(t, 1, f.chat.CreateCalls())

	room, ok := f.chat.Room("room-1")
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, room.Members)

	stored := f.assertCountMatchesRows(t, w.ID)
	assert.True(t, stored.IsUnlocked)
	assert.Equal(t, "room-1", stored.ChatRoomID)

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, w.ID, events[0].WaveID)
	assert.Equal(t, "room-1", events[0].ChatRoomID)
	assert.Equal(t, []string{"alice", "bob"}, events[0].ParticipantIDs)
	assert.Equal(t, t0, events[0].UnlockedAt)
}

func TestJoin_DeletedDuringProvisioningArchivesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	f.chat.OnCreate(func(ctx context.Context, key string) {
		require.NoError(t, f.engine.Lifecycle.Delete(ctx, key, "alice"))
	})

	out, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)
	assert.False(t, out.Unlocked)
	assert.Empty(t, out.ChatRoomID)

	assert.Equal(t, []string{"room-1"}, f.chat.Archived())
	room, ok := f.chat.Room("room-1")
	require.True(t, ok)
	assert.True(t, room.Archived)
	assert.Empty(t, f.pub.Events())

	_, err = f.store.GetWave(ctx, w.ID)
	assert.True(t, wave.IsNotFound(err))
}

func TestJoin_OrphanRoomArchivedWhenAnotherRoomRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	f.chat.OnCreate(func(ctx context.Context, key string) {
		applied, err := f.store.SetUnlocked(ctx, key, "room-elsewhere")
		require.NoError(t, err)
		require.True(t, applied)
	})

	out, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)
	assert.True(t, out.Unlocked)
	assert.Equal(t, "room-elsewhere", out.ChatRoomID)
	assert.Equal(t, []string{"room-1"}, f.chat.Archived())
	assert.Empty(t, f.pub.Events())
}

func TestJoin_BelowThresholdStaysForming(t *testing.T) {
	f := newFixture(t)
	w := f.create(t, "alice", 3, marinaBay)

	out, err := f.engine.Coordinator.Join(context.Background(), w.ID, "bob")
	require.NoError(t, err)
	assert.False(t, out.Unlocked)
	assert.False(t, out.PendingUnlock)
	assert.Equal(t, wave.StateForming, out.Wave.State())
	assert.Equal(t, 0, f.chat.CreateCalls())
}

func TestJoin_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 3, marinaBay)

	first, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)
	second, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)

	assert.False(t, first.AlreadyMember)
	assert.True(t, second.AlreadyMember)
	assert.Equal(t, first.Wave.ParticipantCount, second.Wave.ParticipantCount)
	f.assertCountMatchesRows(t, w.ID)
}

func TestJoin_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Coordinator.Join(ctx, "wave-404", "bob")
	assert.True(t, wave.IsNotFound(err))

	w := f.create(t, "alice", 3, marinaBay)
	require.NoError(t, f.engine.Lifecycle.Delete(ctx, w.ID, "alice"))
	_, err = f.engine.Coordinator.Join(ctx, w.ID, "bob")
	assert.True(t, wave.IsNotFound(err), "deleted waves cannot be joined")

	expiring := f.create(t, "carol", 3, marinaBay)
	f.clock.Set(expiring.ExpiresAt)
	_, err = f.engine.Coordinator.Join(ctx, expiring.ID, "bob")
	assert.True(t, wave.IsNotFound(err), "expired waves cannot be joined")
}

func TestJoin_RequiresUser(t *testing.T) {
	f := newFixture(t)
	w := f.create(t, "alice", 3, marinaBay)

	_, err := f.engine.Coordinator.Join(context.Background(), w.ID, "")
	assert.True(t, wave.IsValidation(err))
}

func TestJoin_ConcurrentJoinersUnlockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "user-00", 3, marinaBay)

	const callers = 10
	outcomes := make([]JoinOutcome, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i], errs[i] = f.engine.Coordinator.Join(ctx, w.ID, fmt.Sprintf("user-%02d", i))
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}

	assert.Equal(t, 1, f.chat.CreateCalls(), "exactly one room requested")
	assert.Equal(t, 1, f.chat.RoomCount())
	assert.Len(t, f.pub.Events(), 1, "unlock happens once")

	stored := f.assertCountMatchesRows(t, w.ID)
	assert.Equal(t, callers, stored.ParticipantCount)
	assert.True(t, stored.IsUnlocked)

	room, ok := f.chat.Room(stored.ChatRoomID)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]string{"user-00", "user-01", "user-02", "user-03", "user-04", "user-05", "user-06", "user-07", "user-08", "user-09"},
		room.Members)
}

func TestJoin_ProvisioningFailureIsRecoveredByNextJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	f.chat.SetFailing(true)
	out, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err, "provisioning failure never fails the join")
	assert.False(t, out.Unlocked)
	assert.True(t, out.PendingUnlock)
	assert.Empty(t, out.ChatRoomID)

	attempts, cause, err := f.store.UnlockAttempts(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, cause, "chat service unavailable")

	f.chat.SetFailing(false)
	out, err = f.engine.Coordinator.Join(ctx, w.ID, "carol")
	require.NoError(t, err)
	assert.True(t, out.Unlocked)
	assert.False(t, out.PendingUnlock)
	assert.Equal(t, 2, f.chat.CreateCalls())
	assert.Equal(t, 1, f.chat.RoomCount())

	room, _ := f.chat.Room(out.ChatRoomID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, room.Members)
}

func TestJoin_RejoinRetriesPendingUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	f.chat.SetFailing(true)
	_, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)

	f.chat.SetFailing(false)
	out, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)
	assert.True(t, out.AlreadyMember)
	assert.True(t, out.Unlocked)
	assert.Equal(t, 2, out.Wave.ParticipantCount)
}

func TestJoin_LateJoinerIsAddedToRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	_, err := f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)

	out, err := f.engine.Coordinator.Join(ctx, w.ID, "carol")
	require.NoError(t, err)
	assert.True(t, out.Unlocked)
	assert.Equal(t, 3, out.Wave.ParticipantCount, "joins are accepted past the threshold")
	assert.Equal(t, 1, f.chat.CreateCalls())
	assert.Equal(t, 1, f.chat.AddMemberCalls())

	room, _ := f.chat.Room(out.ChatRoomID)
	assert.Equal(t, []string{"alice", "bob", "carol"}, room.Members)
}

func TestRetryUnlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.create(t, "alice", 2, marinaBay)

	unlocked, err := f.engine.Coordinator.RetryUnlock(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, unlocked, "nothing to retry below threshold")

	f.chat.SetFailing(true)
	_, err = f.engine.Coordinator.Join(ctx, w.ID, "bob")
	require.NoError(t, err)
	f.chat.SetFailing(false)

	f.clock.Advance(time.Second)
	unlocked, err = f.engine.Coordinator.RetryUnlock(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = f.engine.Coordinator.RetryUnlock(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, unlocked, "already unlocked waves are not claimed")
	assert.Equal(t, 2, f.chat.CreateCalls())
}

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

func TestGetWave_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetWave(context.Background(), "nope")
	assert.ErrorIs(t, err, wave.ErrNotFound)
}

func TestListParticipants_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, createTestWave("w-1", "alice", 5))

	_, err := s.TryAddParticipant(ctx, "w-1", "zed", testNow.Add(time.Minute), testLease)
	require.NoError(t, err)
	_, err = s.TryAddParticipant(ctx, "w-1", "bob", testNow.Add(time.Minute), testLease)
	require.NoError(t, err)

	participants, err := s.ListParticipants(ctx, "w-1")
	require.NoError(t, err)

	var ids []string
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	assert.Equal(t, []string{"alice", "bob", "zed"}, ids)
}

func TestListActive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	short := createTestWave("w-b", "alice", 3)
	short.ExpiresAt = testNow.Add(time.Minute)
	mustCreate(t, s, short)
	mustCreate(t, s, createTestWave("w-a", "bob", 3))

	got, err := s.ListActive(ctx, []string{"w-b", "w-a", "w-missing"}, testNow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "w-a", got[0].ID)
	assert.Equal(t, "w-b", got[1].ID)

	got, err = s.ListActive(ctx, []string{"w-b", "w-a"}, testNow.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w-a", got[0].ID)

	got, err = s.ListActive(ctx, nil, testNow)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListActive_Chunked(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ids := make([]string, 0, inChunk+20)
	for i := 0; i < inChunk+20; i++ {
		ids = append(ids, fmt.Sprintf("w-%04d", i))
	}
	for _, id := range ids[:5] {
		mustCreate(t, s, createTestWave(id, "alice", 3))
	}
	mustCreate(t, s, createTestWave(ids[len(ids)-1], "alice", 3))

	got, err := s.ListActive(ctx, ids, testNow)
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestListActiveLocated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, createTestWave("w-located", "alice", 3))
	unlocated := createTestWave("w-unlocated", "bob", 3)
	unlocated.Location = nil
	mustCreate(t, s, unlocated)

	got, err := s.ListActiveLocated(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w-located", got[0].ID)
	require.NotNil(t, got[0].Location)
	assert.InDelta(t, 1.2816, got[0].Location.Lat, 1e-9)
}

func TestListPendingUnlocks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustCreate(t, s, createTestWave("w-pending", "alice", 2))
	mustCreate(t, s, createTestWave("w-forming", "bob", 3))

	_, err := s.TryAddParticipant(ctx, "w-pending", "carol", testNow, testLease)
	require.NoError(t, err)

	got, err := s.ListPendingUnlocks(ctx, testNow, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "crossing join holds the lease")

	got, err = s.ListPendingUnlocks(ctx, testNow.Add(testLease), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w-pending", got[0].ID)
	assert.True(t, got[0].PendingUnlock())

	_, err = s.SetUnlocked(ctx, "w-pending", "room-1")
	require.NoError(t, err)
	got, err = s.ListPendingUnlocks(ctx, testNow.Add(testLease), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, createTestWave("w-1", "alice", 2))
	mustCreate(t, s, createTestWave("w-2", "bob", 2))
	expired := createTestWave("w-3", "carol", 3)
	expired.ExpiresAt = testNow.Add(time.Minute)
	mustCreate(t, s, expired)

	_, err := s.TryAddParticipant(ctx, "w-1", "dave", testNow, testLease)
	require.NoError(t, err)
	_, err = s.TryAddParticipant(ctx, "w-2", "erin", testNow, testLease)
	require.NoError(t, err)
	_, err = s.SetUnlocked(ctx, "w-2", "room-2")
	require.NoError(t, err)

	st, err := s.Stats(ctx, testNow.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Stats{Waves: 3, Active: 2, Unlocked: 1, PendingUnlock: 1, Participants: 5}, st)
}

func TestPing(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

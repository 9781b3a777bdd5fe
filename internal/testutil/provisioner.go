package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
)

// ErrChatDown is what FlakyProvisioner returns while failing.
var ErrChatDown = errors.New("chat service unavailable")

// FlakyProvisioner wraps a MemoryProvisioner and fails CreateRoom while
// failing is set. It counts every call so tests can assert how many rooms
// were requested.
type FlakyProvisioner struct {
	*chat.MemoryProvisioner

	failing     atomic.Bool
	createCalls atomic.Int64
	addCalls    atomic.Int64

	mu       sync.Mutex
	archived []string
	onCreate func(ctx context.Context, key string)
}

// NewFlakyProvisioner returns a healthy provisioner.
func NewFlakyProvisioner() *FlakyProvisioner {
	return &FlakyProvisioner{MemoryProvisioner: chat.NewMemoryProvisioner()}
}

// SetFailing toggles failure of CreateRoom.
func (f *FlakyProvisioner) SetFailing(failing bool) {
	f.failing.Store(failing)
}

// OnCreate installs a hook that runs at the start of every CreateRoom, so
// tests can change the world while a room is being provisioned.
func (f *FlakyProvisioner) OnCreate(fn func(ctx context.Context, key string)) {
	f.mu.Lock()
	f.onCreate = fn
	f.mu.Unlock()
}

func (f *FlakyProvisioner) CreateRoom(ctx context.Context, key string, participantIDs []string) (string, error) {
	f.createCalls.Add(1)
	f.mu.Lock()
	hook := f.onCreate
	f.mu.Unlock()
	if hook != nil {
		hook(ctx, key)
	}
	if f.failing.Load() {
		return "", ErrChatDown
	}
	return f.MemoryProvisioner.CreateRoom(ctx, key, participantIDs)
}

func (f *FlakyProvisioner) AddMember(ctx context.Context, roomID, userID string) error {
	f.addCalls.Add(1)
	return f.MemoryProvisioner.AddMember(ctx, roomID, userID)
}

func (f *FlakyProvisioner) ArchiveRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	f.archived = append(f.archived, roomID)
	f.mu.Unlock()
	return f.MemoryProvisioner.ArchiveRoom(ctx, roomID)
}

// CreateCalls counts CreateRoom calls, failed ones included.
func (f *FlakyProvisioner) CreateCalls() int {
	return int(f.createCalls.Load())
}

// AddMemberCalls counts AddMember calls.
func (f *FlakyProvisioner) AddMemberCalls() int {
	return int(f.addCalls.Load())
}

// Archived returns the room ids passed to ArchiveRoom, in call order.
func (f *FlakyProvisioner) Archived() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.archived...)
}

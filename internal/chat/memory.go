package chat

import (
	"context"
	"fmt"
	"sync"
)

// Room is the in-process view of a chat room.
type Room struct {
	ID       string
	Key      string
	Members  []string
	Archived bool
}

// MemoryProvisioner keeps rooms in memory. Room ids are "room-1", "room-2",
// ... in creation order.
type MemoryProvisioner struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	byKey       map[string]string
	createCalls int
}

// NewMemoryProvisioner creates an empty provisioner.
func NewMemoryProvisioner() *MemoryProvisioner {
	return &MemoryProvisioner{
		rooms: make(map[string]*Room),
		byKey: make(map[string]string),
	}
}

func (m *MemoryProvisioner) CreateRoom(ctx context.Context, key string, participantIDs []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if id, ok := m.byKey[key]; ok {
		return id, nil
	}

	id := fmt.Sprintf("room-%d", len(m.rooms)+1)
	m.rooms[id] = &Room{
		ID:      id,
		Key:     key,
		Members: append([]string(nil), participantIDs...),
	}
	m.byKey[key] = id
	return id, nil
}

func (m *MemoryProvisioner) ArchiveRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.Archived = true
	return nil
}

func (m *MemoryProvisioner) AddMember(ctx context.Context, roomID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	for _, member := range r.Members {
		if member == userID {
			return nil
		}
	}
	r.Members = append(r.Members, userID)
	return nil
}

// Room returns a copy of the room with the given id.
func (m *MemoryProvisioner) Room(roomID string) (Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return Room{}, false
	}
	cp := *r
	cp.Members = append([]string(nil), r.Members...)
	return cp, true
}

// RoomCount returns the number of distinct rooms created.
func (m *MemoryProvisioner) RoomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// CreateCalls returns how many times CreateRoom was invoked, including
// idempotent repeats.
func (m *MemoryProvisioner) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

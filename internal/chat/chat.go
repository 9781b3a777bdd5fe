// Package chat talks to the external group-chat service that hosts the room
// a wave unlocks.
package chat

import (
	"context"
	"errors"
	"fmt"
)

// Provisioner creates and manages chat rooms.
//
// CreateRoom must be idempotent on key: calling it again with the same key
// returns the room created by the first successful call.
type Provisioner interface {
	CreateRoom(ctx context.Context, key string, participantIDs []string) (roomID string, err error)
	ArchiveRoom(ctx context.Context, roomID string) error
	AddMember(ctx context.Context, roomID, userID string) error
}

// ErrRoomNotFound is returned for operations on unknown rooms.
var ErrRoomNotFound = errors.New("chat room not found")

// StatusError is a non-2xx response from the chat service.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat %s: unexpected status %d", e.Op, e.Status)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == 408 || e.Status == 429
}

// isPermanent reports whether err should stop a retry loop.
func isPermanent(err error) bool {
	if errors.Is(err, ErrRoomNotFound) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Temporary()
	}
	return false
}

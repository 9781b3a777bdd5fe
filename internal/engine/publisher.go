package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnlockChannelPrefix prefixes the per-wave Redis channel.
const UnlockChannelPrefix = "wave:unlocked:"

// UnlockEvent announces that a wave's chat room is ready.
type UnlockEvent struct {
	WaveID         string    `json:"wave_id"`
	ChatRoomID     string    `json:"chat_room_id"`
	ParticipantIDs []string  `json:"participant_ids"`
	UnlockedAt     time.Time `json:"unlocked_at"`
}

// Publisher fans unlock events out to whoever delivers notifications.
type Publisher interface {
	PublishUnlock(ctx context.Context, ev UnlockEvent) error
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) PublishUnlock(context.Context, UnlockEvent) error { return nil }

// RedisPublisher publishes JSON events on wave:unlocked:{waveID}.
type RedisPublisher struct {
	rdb redis.UniversalClient
}

// NewRedisPublisher creates a publisher on rdb.
func NewRedisPublisher(rdb redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// UnlockChannel returns the channel for a wave.
func UnlockChannel(waveID string) string {
	return UnlockChannelPrefix + waveID
}

func (p *RedisPublisher) PublishUnlock(ctx context.Context, ev UnlockEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("publish unlock: encode: %w", err)
	}
	if err := p.rdb.Publish(ctx, UnlockChannel(ev.WaveID), payload).Err(); err != nil {
		return fmt.Errorf("publish unlock: %w", err)
	}
	return nil
}

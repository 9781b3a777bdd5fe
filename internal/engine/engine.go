package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// WaveStore is the durable storage the engine needs. *store.Store
// implements it.
type WaveStore interface {
	CreateWave(ctx context.Context, w wave.Wave) (wave.Wave, error)
	TryAddParticipant(ctx context.Context, waveID, userID string, now time.Time, lease time.Duration) (wave.JoinResult, error)
	ClaimUnlock(ctx context.Context, waveID string, now time.Time, lease time.Duration) (bool, error)
	SetUnlocked(ctx context.Context, waveID, roomID string) (bool, error)
	ReleaseUnlock(ctx context.Context, waveID, cause string) error
	DeleteWave(ctx context.Context, waveID string) (wave.Wave, error)
	GetWave(ctx context.Context, waveID string) (wave.Wave, error)
	ListParticipants(ctx context.Context, waveID string) ([]wave.Participant, error)
	ListActive(ctx context.Context, ids []string, now time.Time) ([]wave.Wave, error)
	ListActiveLocated(ctx context.Context, now time.Time) ([]wave.Wave, error)
	ListPendingUnlocks(ctx context.Context, now time.Time, limit int) ([]wave.Wave, error)
	PurgeExpired(ctx context.Context, before time.Time, limit int) ([]wave.Wave, error)
	Stats(ctx context.Context, now time.Time) (store.Stats, error)
	Ping(ctx context.Context) error
}

var _ WaveStore = (*store.Store)(nil)

// options are shared by every component.
type options struct {
	clock     Clock
	ids       IDGenerator
	logger    *slog.Logger
	settings  Settings
	publisher Publisher
}

// Option configures engine components.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithIDGenerator replaces the UUIDv7 wave id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSettings replaces DefaultSettings().
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithPublisher sets where unlock events go. Default: NopPublisher.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:     SystemClock{},
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
		settings:  DefaultSettings(),
		publisher: NopPublisher{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine bundles the components wired to the same store, index and chat
// provisioner.
type Engine struct {
	Coordinator *Coordinator
	Lifecycle   *Lifecycle
	Query       *Query
	Sweeper     *Sweeper

	store WaveStore
	clock Clock
}

// New wires every component.
func New(s WaveStore, idx geo.Index, p chat.Provisioner, catalog *wave.Catalog, opts ...Option) *Engine {
	coord := NewCoordinator(s, p, opts...)
	lifecycle := NewLifecycle(s, idx, p, catalog, opts...)
	sweeper := NewSweeper(s, idx, p, coord, opts...)
	sweeper.lifecycle = lifecycle
	o := buildOptions(opts)
	return &Engine{
		Coordinator: coord,
		Lifecycle:   lifecycle,
		Query:       NewQuery(s, idx, opts...),
		Sweeper:     sweeper,
		store:       s,
		clock:       o.clock,
	}
}

// Stats reports store counts as of now.
func (e *Engine) Stats(ctx context.Context) (store.Stats, error) {
	return e.store.Stats(ctx, e.clock.Now())
}

// Healthy pings the store.
func (e *Engine) Healthy(ctx context.Context) error {
	return e.store.Ping(ctx)
}

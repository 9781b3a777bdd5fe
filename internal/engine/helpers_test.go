package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/testutil"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var (
	marinaBay = geo.Point{Lat: 1.2816, Lng: 103.8636}
	orchard   = geo.Point{Lat: 1.3048, Lng: 103.8318}
	changi    = geo.Point{Lat: 1.3644, Lng: 103.9915}
	cityHall  = geo.Point{Lat: 1.30, Lng: 103.85}
)

type fixture struct {
	store  *store.Store
	index  *geo.MemoryIndex
	chat   *testutil.FlakyProvisioner
	clock  *testutil.FixedClock
	pub    *recordingPublisher
	engine *Engine
}

func testCatalog(t *testing.T) *wave.Catalog {
	t.Helper()
	c, err := wave.NewCatalog([]wave.Activity{
		{Type: "run", Label: "Run", Emoji: "🏃", DefaultThreshold: 3},
		{Type: "yoga", Label: "Yoga", Emoji: "🧘", DefaultThreshold: 2, RequiresLocation: true},
		{Type: "walk", Label: "Walk", Emoji: "🚶", DefaultThreshold: 2},
	})
	require.NoError(t, err)
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "waves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		store: s,
		index: geo.NewMemoryIndex(geo.Options{}),
		chat:  testutil.NewFlakyProvisioner(),
		clock: testutil.NewFixedClock(t0),
		pub:   &recordingPublisher{},
	}
	base := []Option{
		WithClock(f.clock),
		WithIDGenerator(testutil.NewSequenceGenerator("wave")),
		WithLogger(discardLogger()),
		WithPublisher(f.pub),
	}
	f.engine = New(s, f.index, f.chat, testCatalog(t), append(base, opts...)...)
	return f
}

// create makes a located wave of the given activity and threshold.
func (f *fixture) create(t *testing.T, creator string, threshold int, at geo.Point) wave.Wave {
	t.Helper()
	p := at
	w, err := f.engine.Lifecycle.Create(context.Background(), CreateRequest{
		CreatorID: creator,
		Activity:  "run",
		Location:  &p,
		Threshold: threshold,
	})
	require.NoError(t, err)
	return w
}

// assertCountMatchesRows checks the cached count against participant rows.
func (f *fixture) assertCountMatchesRows(t *testing.T, waveID string) wave.Wave {
	t.Helper()
	ctx := context.Background()
	w, err := f.store.GetWave(ctx, waveID)
	require.NoError(t, err)
	rows, err := f.store.ListParticipants(ctx, waveID)
	require.NoError(t, err)
	require.Len(t, rows, w.ParticipantCount)
	return w
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []UnlockEvent
}

func (p *recordingPublisher) PublishUnlock(_ context.Context, ev UnlockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []UnlockEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]UnlockEvent(nil), p.events...)
}

var errIndexDown = errors.New("index unavailable")

// flakyIndex fails Put while failing is set.
type flakyIndex struct {
	*geo.MemoryIndex
	failing atomic.Bool
}

func (f *flakyIndex) Put(ctx context.Context, id string, p geo.Point) error {
	if f.failing.Load() {
		return errIndexDown
	}
	return f.MemoryIndex.Put(ctx, id, p)
}

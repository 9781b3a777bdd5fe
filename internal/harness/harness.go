package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/testutil"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// Harness holds the wired engine for one scenario run.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.FixedClock
	chat   *testutil.FlakyProvisioner

	// refs maps scenario names to wave ids; names is the reverse.
	refs  map[string]string
	names map[string]string
}

// observation is what a step saw, compared against its Expect.
type observation struct {
	err           error
	wave          *wave.Wave
	alreadyMember *bool
	pendingUnlock *bool
	nearby        []string
	exists        *bool
	rows          *int
	sweep         *engine.SweepReport
}

// Run executes a scenario against a fresh engine.
//
// The returned error reports harness failures (the store could not be
// opened, and similar). Failed expectations are recorded in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	catalog, err := config.Default().Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	start := scenario.Start
	if start.IsZero() {
		start = DefaultStart
	}

	h := &Harness{
		store: st,
		clock: testutil.NewFixedClock(start.UTC()),
		chat:  testutil.NewFlakyProvisioner(),
		refs:  make(map[string]string),
		names: make(map[string]string),
	}
	h.engine = engine.New(st, geo.NewMemoryIndex(geo.Options{}), h.chat, catalog,
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("wave")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := NewResult()
	for i, step := range scenario.Steps {
		n := i + 1
		obs, detail, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", n, step.Op, err)
		}

		target := step.Wave
		if step.Op == OpCreate {
			target = step.Ref
		}
		result.addTrace(TraceEvent{
			Step:    n,
			Op:      step.Op,
			Actor:   step.As,
			Wave:    target,
			Outcome: outcomeOf(obs.err),
			Detail:  detail,
		})
		for _, msg := range h.check(step.Expect, obs) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", n, step.Op, msg))
		}
	}
	return result, nil
}

func (h *Harness) waveID(ref string) string {
	if id, ok := h.refs[ref]; ok {
		return id
	}
	return ref
}

func (h *Harness) refOf(id string) string {
	if name, ok := h.names[id]; ok {
		return name
	}
	return id
}

func (h *Harness) execute(ctx context.Context, step Step) (observation, string, error) {
	switch step.Op {
	case OpCreate:
		return h.create(ctx, step)
	case OpJoin:
		out, err := h.engine.Coordinator.Join(ctx, h.waveID(step.Wave), step.As)
		if err != nil {
			return observation{err: err}, "", nil
		}
		obs := observation{
			wave:          &out.Wave,
			alreadyMember: &out.AlreadyMember,
			pendingUnlock: &out.PendingUnlock,
		}
		return obs, fmt.Sprintf("%s already_member=%t pending_unlock=%t",
			describeWave(out.Wave), out.AlreadyMember, out.PendingUnlock), nil
	case OpDelete:
		err := h.engine.Lifecycle.Delete(ctx, h.waveID(step.Wave), step.As)
		return observation{err: err}, "", nil
	case OpNearby:
		return h.nearby(ctx, step)
	case OpAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return observation{}, "", err
		}
		now := h.clock.Advance(d)
		return observation{}, "now=" + now.Format(time.RFC3339), nil
	case OpSweep:
		report, err := h.engine.Sweeper.RunOnce(ctx)
		if err != nil {
			return observation{}, "", err
		}
		return observation{sweep: &report}, fmt.Sprintf("pending_found=%d unlocked=%d purged=%d",
			report.PendingFound, report.Unlocked, report.Purged), nil
	case OpChatDown:
		h.chat.SetFailing(true)
		return observation{}, "", nil
	case OpChatUp:
		h.chat.SetFailing(false)
		return observation{}, "", nil
	case OpCheck:
		return h.inspect(ctx, step)
	default:
		return observation{}, "", fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) create(ctx context.Context, step Step) (observation, string, error) {
	args := step.Create
	req := engine.CreateRequest{
		CreatorID: step.As,
		Activity:  wave.ActivityType(args.Activity),
		Area:      args.Area,
		Threshold: args.Threshold,
		Thought:   args.Thought,
	}
	if args.Lat != nil && args.Lng != nil {
		req.Location = &geo.Point{Lat: *args.Lat, Lng: *args.Lng}
	}
	if args.ScheduledIn != "" {
		d, err := time.ParseDuration(args.ScheduledIn)
		if err != nil {
			return observation{}, "", err
		}
		at := h.clock.Now().Add(d)
		req.ScheduledFor = &at
	}

	w, err := h.engine.Lifecycle.Create(ctx, req)
	if err != nil {
		return observation{err: err}, "", nil
	}
	h.refs[step.Ref] = w.ID
	h.names[w.ID] = step.Ref
	return observation{wave: &w}, fmt.Sprintf("id=%s activity=%s threshold=%d %s expires_at=%s",
		w.ID, w.Activity, w.Threshold, describeWave(w), w.ExpiresAt.Format(time.RFC3339)), nil
}

func (h *Harness) nearby(ctx context.Context, step Step) (observation, string, error) {
	args := step.Nearby
	window, err := wave.ParseTimeWindow(args.Window)
	if err != nil {
		return observation{err: err}, "", nil
	}
	page, err := h.engine.Query.Nearby(ctx, engine.NearbyRequest{
		Center:   geo.Point{Lat: args.Lat, Lng: args.Lng},
		RadiusKm: args.RadiusKm,
		Window:   window,
		Limit:    args.Limit,
	})
	if err != nil {
		return observation{err: err}, "", nil
	}

	refs := make([]string, len(page.Waves))
	for i, w := range page.Waves {
		refs[i] = h.refOf(w.ID)
	}
	return observation{nearby: refs}, "results=[" + strings.Join(refs, " ") + "]", nil
}

func (h *Harness) inspect(ctx context.Context, step Step) (observation, string, error) {
	id := h.waveID(step.Wave)
	participants, err := h.store.ListParticipants(ctx, id)
	if err != nil {
		return observation{}, "", err
	}
	rows := len(participants)

	w, err := h.store.GetWave(ctx, id)
	if wave.IsNotFound(err) {
		exists := false
		return observation{exists: &exists, rows: &rows}, fmt.Sprintf("exists=false rows=%d", rows), nil
	}
	if err != nil {
		return observation{}, "", err
	}
	exists := true
	return observation{wave: &w, exists: &exists, rows: &rows},
		fmt.Sprintf("exists=true rows=%d %s", rows, describeWave(w)), nil
}

func describeWave(w wave.Wave) string {
	room := w.ChatRoomID
	if room == "" {
		room = "-"
	}
	return fmt.Sprintf("participants=%d unlocked=%t room=%s", w.ParticipantCount, w.IsUnlocked, room)
}

func outcomeOf(err error) string {
	var ve *wave.ValidationError
	switch {
	case err == nil:
		return OutcomeOK
	case wave.IsNotFound(err):
		return OutcomeNotFound
	case wave.IsForbidden(err):
		return OutcomeForbidden
	case errors.As(err, &ve):
		return OutcomeValidation
	default:
		return OutcomeError
	}
}

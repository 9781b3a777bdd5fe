package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// CreateRequest describes a new wave.
type CreateRequest struct {
	CreatorID    string
	Activity     wave.ActivityType
	Area         string
	LocationName string
	Location     *geo.Point
	// ScheduledFor nil means the activity is happening now.
	ScheduledFor *time.Time
	// Threshold zero means the activity's default.
	Threshold int
	Thought   string
}

// Lifecycle creates, reads and deletes waves.
type Lifecycle struct {
	store    WaveStore
	index    geo.Index
	chat     chat.Provisioner
	catalog  *wave.Catalog
	clock    Clock
	ids      IDGenerator
	logger   *slog.Logger
	settings Settings

	// unindexed holds waves whose index Put failed; Reindex retries them.
	mu        sync.Mutex
	unindexed map[string]geo.Point
}

// NewLifecycle creates a Lifecycle. The catalog decides which activities
// exist and their default thresholds.
func NewLifecycle(s WaveStore, idx geo.Index, p chat.Provisioner, catalog *wave.Catalog, opts ...Option) *Lifecycle {
	o := buildOptions(opts)
	return &Lifecycle{
		store:     s,
		index:     idx,
		chat:      p,
		catalog:   catalog,
		clock:     o.clock,
		ids:       o.ids,
		logger:    o.logger,
		settings:  o.settings,
		unindexed: make(map[string]geo.Point),
	}
}

// Create validates req and stores a wave with its creator as the first
// participant.
func (l *Lifecycle) Create(ctx context.Context, req CreateRequest) (wave.Wave, error) {
	now := l.clock.Now()

	w, err := l.build(req, now)
	if err != nil {
		return wave.Wave{}, err
	}

	created, err := l.store.CreateWave(ctx, w)
	if err != nil {
		return wave.Wave{}, fmt.Errorf("create wave: %w", err)
	}

	if created.Location != nil {
		if err := l.index.Put(ctx, created.ID, *created.Location); err != nil {
			l.logger.Error("index wave failed, will retry on sweep", "wave_id", created.ID, "error", err)
			l.mu.Lock()
			l.unindexed[created.ID] = *created.Location
			l.mu.Unlock()
		}
	}

	l.logger.Info("wave created",
		"wave_id", created.ID,
		"creator_id", created.CreatorID,
		"activity", created.Activity,
		"threshold", created.Threshold,
		"expires_at", created.ExpiresAt,
	)
	return created, nil
}

func (l *Lifecycle) build(req CreateRequest, now time.Time) (wave.Wave, error) {
	creator := strings.TrimSpace(req.CreatorID)
	if creator == "" {
		return wave.Wave{}, wave.Invalid("creator_id", "required")
	}

	activity, ok := l.catalog.Lookup(req.Activity)
	if !ok {
		return wave.Wave{}, wave.Invalid("activity", "unknown activity %q", req.Activity)
	}

	if req.Location == nil && activity.RequiresLocation {
		return wave.Wave{}, wave.Invalid("location", "required for %s", activity.Type)
	}
	var loc *geo.Point
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return wave.Wave{}, wave.Invalid("location", "%v", err)
		}
		p := *req.Location
		loc = &p
	}

	threshold := activity.DefaultThreshold
	if req.Threshold != 0 {
		threshold = req.Threshold
	}
	if threshold < wave.MinThreshold {
		return wave.Wave{}, wave.Invalid("threshold", "must be at least %d", wave.MinThreshold)
	}
	if threshold > l.settings.MaxThreshold {
		return wave.Wave{}, wave.Invalid("threshold", "must be at most %d", l.settings.MaxThreshold)
	}

	expiresAt := now.Add(l.settings.TTL)
	var scheduled *time.Time
	if req.ScheduledFor != nil {
		at := req.ScheduledFor.UTC()
		if at.Before(now) {
			return wave.Wave{}, wave.Invalid("scheduled_for", "must not be in the past")
		}
		if at.After(now.Add(l.settings.MaxScheduleAhead)) {
			return wave.Wave{}, wave.Invalid("scheduled_for", "must be within %s", l.settings.MaxScheduleAhead)
		}
		scheduled = &at
		if end := at.Add(l.settings.ScheduledGrace); end.After(expiresAt) {
			expiresAt = end
		}
	}

	thought := wave.NormalizeText(req.Thought)
	if n := wave.RuneLen(thought); n > wave.MaxThoughtRunes {
		return wave.Wave{}, wave.Invalid("thought", "%d characters exceeds %d", n, wave.MaxThoughtRunes)
	}

	return wave.Wave{
		ID:           l.ids.Generate(),
		CreatorID:    creator,
		Activity:     activity.Type,
		Area:         wave.NormalizeText(req.Area),
		LocationName: wave.NormalizeText(req.LocationName),
		Location:     loc,
		ScheduledFor: scheduled,
		Threshold:    threshold,
		Thought:      thought,
		StartedAt:    now,
		ExpiresAt:    expiresAt,
	}, nil
}

// Get returns an active wave. Expired waves are reported as not found.
func (l *Lifecycle) Get(ctx context.Context, waveID string) (wave.Wave, error) {
	w, err := l.store.GetWave(ctx, waveID)
	if err != nil {
		return wave.Wave{}, fmt.Errorf("get wave %s: %w", waveID, err)
	}
	if w.Expired(l.clock.Now()) {
		return wave.Wave{}, fmt.Errorf("get wave %s: %w", waveID, wave.ErrNotFound)
	}
	return w, nil
}

// Participants lists the members of an active wave.
func (l *Lifecycle) Participants(ctx context.Context, waveID string) ([]wave.Participant, error) {
	if _, err := l.Get(ctx, waveID); err != nil {
		return nil, err
	}
	participants, err := l.store.ListParticipants(ctx, waveID)
	if err != nil {
		return nil, fmt.Errorf("participants of %s: %w", waveID, err)
	}
	return participants, nil
}

// Delete removes a wave on behalf of its creator. Anyone else gets
// wave.ErrForbidden. The chat room, if any, is archived best effort.
func (l *Lifecycle) Delete(ctx context.Context, waveID, requesterID string) error {
	w, err := l.store.GetWave(ctx, waveID)
	if err != nil {
		return fmt.Errorf("delete wave %s: %w", waveID, err)
	}
	if w.CreatorID != requesterID {
		l.logger.Warn("delete refused", "wave_id", waveID, "requester_id", requesterID)
		return fmt.Errorf("delete wave %s: %w", waveID, wave.ErrForbidden)
	}

	deleted, err := l.store.DeleteWave(ctx, waveID)
	if err != nil {
		return fmt.Errorf("delete wave %s: %w", waveID, err)
	}

	l.forget(waveID)
	if err := l.index.Remove(ctx, waveID); err != nil {
		l.logger.Error("unindex wave failed", "wave_id", waveID, "error", err)
	}
	if deleted.ChatRoomID != "" {
		archiveRoom(ctx, l.chat, l.logger, l.settings, deleted)
	}

	l.logger.Info("wave deleted", "wave_id", waveID, "participants", deleted.ParticipantCount)
	return nil
}

// WarmIndex loads every active located wave into the geo index and returns
// how many were indexed.
func (l *Lifecycle) WarmIndex(ctx context.Context) (int, error) {
	waves, err := l.store.ListActiveLocated(ctx, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("warm index: %w", err)
	}
	for _, w := range waves {
		if err := l.index.Put(ctx, w.ID, *w.Location); err != nil {
			return 0, fmt.Errorf("warm index: put %s: %w", w.ID, err)
		}
	}
	l.logger.Info("geo index warmed", "waves", len(waves))
	return len(waves), nil
}

// Reindex retries index writes that failed during Create. Waves that
// expired or were deleted meanwhile are dropped. It returns how many waves
// were indexed.
func (l *Lifecycle) Reindex(ctx context.Context) (int, error) {
	l.mu.Lock()
	ids := make([]string, 0, len(l.unindexed))
	for id := range l.unindexed {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	if len(ids) == 0 {
		return 0, nil
	}
	sort.Strings(ids)

	active, err := l.store.ListActive(ctx, ids, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("reindex: %w", err)
	}
	live := make(map[string]struct{}, len(active))
	for _, w := range active {
		live[w.ID] = struct{}{}
	}

	indexed := 0
	var firstErr error
	for _, id := range ids {
		l.mu.Lock()
		p, ok := l.unindexed[id]
		l.mu.Unlock()
		if !ok {
			continue
		}
		if _, ok := live[id]; !ok {
			l.forget(id)
			continue
		}
		if err := l.index.Put(ctx, id, p); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("reindex: put %s: %w", id, err)
			}
			continue
		}
		l.forget(id)
		indexed++
	}
	return indexed, firstErr
}

func (l *Lifecycle) forget(id string) {
	l.mu.Lock()
	delete(l.unindexed, id)
	l.mu.Unlock()
}

func archiveRoom(ctx context.Context, p chat.Provisioner, logger *slog.Logger, settings Settings, w wave.Wave) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.ProvisionTimeout)
	defer cancel()

	if err := p.ArchiveRoom(actx, w.ChatRoomID); err != nil {
		logger.Warn("archive chat room failed", "wave_id", w.ID, "room_id", w.ChatRoomID, "error", err)
	}
}

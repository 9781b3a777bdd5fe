package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	PendingFound int `json:"pending_found"`
	Unlocked     int `json:"unlocked"`
	Purged       int `json:"purged"`
	Reindexed    int `json:"reindexed"`
}

// Sweeper periodically retries pending unlocks and purges waves that
// expired longer ago than the retention period.
//
// Thread-safety: Start runs the loop on the calling goroutine; Stop and
// RunOnce are safe from any goroutine.
type Sweeper struct {
	store    WaveStore
	index    geo.Index
	chat     chat.Provisioner
	coord    *Coordinator
	clock    Clock
	logger   *slog.Logger
	settings Settings

	// lifecycle, when set, has its failed index writes retried.
	lifecycle *Lifecycle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper that retries unlocks through coord.
func NewSweeper(s WaveStore, idx geo.Index, p chat.Provisioner, coord *Coordinator, opts ...Option) *Sweeper {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:    s,
		index:    idx,
		chat:     p,
		coord:    coord,
		clock:    o.clock,
		logger:   o.logger,
		settings: o.settings,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start sweeps immediately and then every SweepInterval until ctx is
// canceled or Stop is called. It blocks.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.settings.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.settings.SweepInterval, "retention", s.settings.Retention)

	s.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("sweeper stopping", "reason", "context canceled")
			return
		case <-s.ctx.Done():
			s.logger.Info("sweeper stopping", "reason", "stopped")
			return
		}
	}
}

// Stop ends Start and waits for the in-flight sweep.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) sweep(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		return
	}
	if report != (SweepReport{}) {
		s.logger.Info("sweep finished",
			"pending_found", report.PendingFound,
			"unlocked", report.Unlocked,
			"purged", report.Purged,
			"reindexed", report.Reindexed,
		)
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.clock.Now()

	pending, err := s.store.ListPendingUnlocks(ctx, now, s.settings.SweepBatch)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	report.PendingFound = len(pending)
	for _, w := range pending {
		unlocked, err := s.coord.RetryUnlock(ctx, w.ID)
		if err != nil {
			s.logger.Warn("retry unlock failed", "wave_id", w.ID, "error", err)
			continue
		}
		if unlocked {
			report.Unlocked++
		}
	}

	if s.lifecycle != nil {
		n, err := s.lifecycle.Reindex(ctx)
		if err != nil {
			s.logger.Warn("reindex failed", "error", err)
		}
		report.Reindexed = n
	}

	if s.settings.Retention <= 0 {
		return report, nil
	}

	purged, err := s.store.PurgeExpired(ctx, now.Add(-s.settings.Retention), s.settings.SweepBatch)
	if err != nil {
		return report, fmt.Errorf("sweep: %w", err)
	}
	report.Purged = len(purged)
	for _, w := range purged {
		if err := s.index.Remove(ctx, w.ID); err != nil {
			s.logger.Warn("unindex purged wave failed", "wave_id", w.ID, "error", err)
		}
		if w.ChatRoomID != "" {
			archiveRoom(ctx, s.chat, s.logger, s.settings, w)
		}
	}
	return report, nil
}

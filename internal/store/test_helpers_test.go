package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore opens a fresh SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestWave builds a located wave started at testNow that lives one hour.
func createTestWave(id, creator string, threshold int) wave.Wave {
	return wave.Wave{
		ID:           id,
		CreatorID:    creator,
		Activity:     "run",
		Area:         "Marina Bay",
		LocationName: "Gardens by the Bay",
		Location:     &geo.Point{Lat: 1.2816, Lng: 103.8636},
		Threshold:    threshold,
		StartedAt:    testNow,
		ExpiresAt:    testNow.Add(time.Hour),
	}
}

// mustCreate stores w or fails the test.
func mustCreate(t *testing.T, s *Store, w wave.Wave) wave.Wave {
	t.Helper()
	created, err := s.CreateWave(context.Background(), w)
	if err != nil {
		t.Fatalf("CreateWave(%s) failed: %v", w.ID, err)
	}
	return created
}

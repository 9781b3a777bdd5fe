package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

// NearbyRequest is a proximity query. Zero RadiusKm and Limit take the
// configured defaults; an empty Window means any time.
type NearbyRequest struct {
	Center   geo.Point
	RadiusKm float64
	Window   wave.TimeWindow
	Cursor   string
	Limit    int
}

// NearbyWave is a wave with its distance from the query point.
type NearbyWave struct {
	wave.Wave
	DistanceKm float64 `json:"distance_km"`
}

// NearbyPage is one page of results, closest first.
type NearbyPage struct {
	Waves      []NearbyWave `json:"waves"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// Query answers proximity searches.
type Query struct {
	store    WaveStore
	index    geo.Index
	clock    Clock
	logger   *slog.Logger
	settings Settings
}

// NewQuery creates a Query.
func NewQuery(s WaveStore, idx geo.Index, opts ...Option) *Query {
	o := buildOptions(opts)
	return &Query{
		store:    s,
		index:    idx,
		clock:    o.clock,
		logger:   o.logger,
		settings: o.settings,
	}
}

// Nearby returns active waves within the radius, ordered by distance and
// then id. Expired waves are never returned.
func (q *Query) Nearby(ctx context.Context, req NearbyRequest) (NearbyPage, error) {
	radius, limit, window, after, err := q.normalize(req)
	if err != nil {
		return NearbyPage{}, err
	}

	now := q.clock.Now()
	ids, err := q.index.CandidatesNear(ctx, req.Center, radius)
	if err != nil {
		return NearbyPage{}, fmt.Errorf("nearby: candidates: %w", err)
	}

	waves, err := q.store.ListActive(ctx, ids, now)
	if err != nil {
		return NearbyPage{}, fmt.Errorf("nearby: %w", err)
	}

	results := make([]NearbyWave, 0, len(waves))
	for _, w := range waves {
		if w.Location == nil || w.Expired(now) || !window.Contains(w, now, q.settings.location()) {
			continue
		}
		d := geo.Distance(req.Center, *w.Location)
		if d > radius {
			continue
		}
		results = append(results, NearbyWave{Wave: w, DistanceKm: d})
	}

	sort.Slice(results, func(i, j int) bool {
		return keyOf(results[i]).less(keyOf(results[j]))
	})

	if after != nil {
		start := sort.Search(len(results), func(i int) bool {
			return after.less(keyOf(results[i]))
		})
		results = results[start:]
	}

	page := NearbyPage{Waves: results}
	if len(results) > limit {
		page.Waves = results[:limit]
		last := page.Waves[limit-1]
		page.NextCursor = encodeCursor(last.DistanceKm, last.ID)
	}

	q.logger.Debug("nearby",
		"lat", req.Center.Lat,
		"lng", req.Center.Lng,
		"radius_km", radius,
		"window", window,
		"candidates", len(ids),
		"returned", len(page.Waves),
	)
	return page, nil
}

func (q *Query) normalize(req NearbyRequest) (radius float64, limit int, window wave.TimeWindow, after *cursor, err error) {
	if err := req.Center.Validate(); err != nil {
		return 0, 0, "", nil, wave.Invalid("location", "%v", err)
	}

	radius = req.RadiusKm
	if radius == 0 {
		radius = q.settings.DefaultRadiusKm
	}
	if math.IsNaN(radius) || radius <= 0 || radius > q.settings.MaxRadiusKm {
		return 0, 0, "", nil, wave.Invalid("radius_km", "must be in (0, %g]", q.settings.MaxRadiusKm)
	}

	limit = req.Limit
	if limit < 0 {
		return 0, 0, "", nil, wave.Invalid("limit", "must not be negative")
	}
	if limit == 0 {
		limit = q.settings.DefaultLimit
	}
	limit = min(limit, q.settings.MaxLimit)

	window, err = wave.ParseTimeWindow(string(req.Window))
	if err != nil {
		return 0, 0, "", nil, err
	}

	if req.Cursor != "" {
		c, err := decodeCursor(req.Cursor)
		if err != nil {
			return 0, 0, "", nil, err
		}
		after = &c
	}
	return radius, limit, window, after, nil
}

// cursor is the sort key of the last wave on the previous page.
type cursor struct {
	distance float64
	id       string
}

func keyOf(n NearbyWave) cursor {
	return cursor{distance: n.DistanceKm, id: n.ID}
}

func (c cursor) less(o cursor) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	return c.id < o.id
}

func encodeCursor(distance float64, id string) string {
	raw := strconv.FormatFloat(distance, 'g', -1, 64) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, wave.Invalid("cursor", "malformed")
	}
	dist, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return cursor{}, wave.Invalid("cursor", "malformed")
	}
	d, err := strconv.ParseFloat(dist, 64)
	if err != nil || math.IsNaN(d) || d < 0 {
		return cursor{}, wave.Invalid("cursor", "malformed")
	}
	return cursor{distance: d, id: id}, nil
}

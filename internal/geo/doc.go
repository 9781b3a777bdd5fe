// Package geo answers proximity questions for waves.
//
// Two layers cooperate:
//
//   - Distance computes the haversine great-circle distance in kilometers
//     (mean Earth radius 6371 km). This is the only formula used for ranking,
//     so every caller that compares distances goes through it.
//   - Index keeps a coarse geohash bucket per wave and returns a superset of
//     the waves that may lie within a radius. Exact filtering is left to the
//     caller, who has the wave rows and the clock.
//
// Each wave is registered in one cell per precision level (1..Precision).
// A query picks the finest level whose cover of the radius bounding box needs
// at most MaxCells cells, then unions those buckets. Small radii therefore
// touch a handful of fine cells while very large radii fall back to a few
// coarse ones instead of enumerating thousands of buckets.
//
// MemoryIndex serves a single process; RedisIndex shares buckets between
// API replicas.
package geo

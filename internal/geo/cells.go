package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// DefaultPrecision is the finest geohash level a wave is bucketed at (~1.2km x 0.6km).
	DefaultPrecision = 6

	// DefaultMaxCells bounds how many buckets one query may union.
	DefaultMaxCells = 64

	// MaxPrecision is the longest geohash the index accepts.
	MaxPrecision = 12
)

// Options configures bucketing for an Index.
type Options struct {
	Precision int
	MaxCells  int
}

func (o Options) withDefaults() Options {
	if o.Precision <= 0 {
		o.Precision = DefaultPrecision
	}
	if o.Precision > MaxPrecision {
		o.Precision = MaxPrecision
	}
	if o.MaxCells <= 0 {
		o.MaxCells = DefaultMaxCells
	}
	return o
}

// cellsFor returns the cell of p at every precision level, coarsest first.
func cellsFor(p Point, precision int) []string {
	hash := geohash.EncodeWithPrecision(p.Lat, p.Lng, uint(precision))
	cells := make([]string, precision)
	for i := 1; i <= precision; i++ {
		cells[i-1] = hash[:i]
	}
	return cells
}

// cellSize returns the height and width in degrees of a cell at precision.
func cellSize(precision int) (float64, float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / float64(uint64(1)<<latBits), 360 / float64(uint64(1)<<lngBits)
}

// cover enumerates the cells at precision that intersect b.
// It gives up and returns false as soon as more than maxCells would be needed.
func cover(b Box, precision, maxCells int) ([]string, bool) {
	h, w := cellSize(precision)
	latTotal := int(math.Round(180 / h))
	lngTotal := int(math.Round(360 / w))

	latStart := clampIndex(int(math.Floor((b.MinLat+90)/h)), latTotal)
	latEnd := clampIndex(int(math.Floor((b.MaxLat+90)/h)), latTotal)
	latCells := latEnd - latStart + 1

	lngStart := int(math.Floor((b.MinLng + 180) / w))
	lngEnd := int(math.Floor((b.MaxLng + 180) / w))
	lngCells := lngEnd - lngStart + 1
	if lngCells >= lngTotal {
		lngStart, lngCells = 0, lngTotal
	}

	if latCells*lngCells > maxCells {
		return nil, false
	}

	cells := make([]string, 0, latCells*lngCells)
	for i := 0; i < latCells; i++ {
		lat := -90 + (float64(latStart+i)+0.5)*h
		for j := 0; j < lngCells; j++ {
			idx := ((lngStart+j)%lngTotal + lngTotal) % lngTotal
			lng := -180 + (float64(idx)+0.5)*w
			cells = append(cells, geohash.EncodeWithPrecision(lat, lng, uint(precision)))
		}
	}
	return cells, true
}

func clampIndex(i, total int) int {
	if i < 0 {
		return 0
	}
	if i >= total {
		return total - 1
	}
	return i
}

// selectCover picks the finest precision whose cover fits in maxCells.
// all is true when even the coarsest level is too wide and the caller should
// return every indexed wave.
func selectCover(center Point, radiusKm float64, opts Options) (cells []string, all bool) {
	box := BoundingBox(center, radiusKm)
	for p := opts.Precision; p >= 1; p-- {
		if cells, ok := cover(box, p, opts.MaxCells); ok {
			return cells, false
		}
	}
	return nil, true
}

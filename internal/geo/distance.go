package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// kmPerDegree is the length of one degree of latitude on the mean sphere.
const kmPerDegree = EarthRadiusKm * math.Pi / 180

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate reports whether the point lies on the globe.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lng)
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// Box is a latitude/longitude rectangle. MinLng may be below -180 and MaxLng
// above 180 when the box crosses the antimeridian; cover wraps them.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm of center.
// The box is deliberately loose near the poles.
func BoundingBox(center Point, radiusKm float64) Box {
	dLat := radiusKm / kmPerDegree
	minLat, maxLat := center.Lat-dLat, center.Lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return Box{
			MinLat: math.Max(minLat, -90),
			MaxLat: math.Min(maxLat, 90),
			MinLng: -180,
			MaxLng: 180,
		}
	}

	// Longitude degrees shrink with latitude; widen using the box edge closest to a pole.
	widest := math.Max(math.Abs(minLat), math.Abs(maxLat))
	dLng := dLat / math.Cos(widest*math.Pi/180)
	if dLng >= 180 {
		return Box{MinLat: minLat, MaxLat: maxLat, MinLng: -180, MaxLng: 180}
	}

	return Box{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

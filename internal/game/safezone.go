package game

import (
	"time"

	"github.com/citychase/tagmode/internal/geo"
)

// SafeZoneEvaluator answers whether a coordinate is currently protected by
// any configured safe zone. It holds no state beyond the zone list.
type SafeZoneEvaluator struct {
	zones []SafeZone
}

func NewSafeZoneEvaluator(zones []SafeZone) *SafeZoneEvaluator {
	return &SafeZoneEvaluator{zones: zones}
}

// IsInSafeZone reports whether the coordinate lies within an active zone.
// A zone without active hours is always active; one with hours is active
// only when the current hour falls inside the window.
func (e *SafeZoneEvaluator) IsInSafeZone(lat, lon float64, now time.Time) bool {
	for i := range e.zones {
		z := &e.zones[i]
		if !zoneActiveAt(z, now) {
			continue
		}
		if geo.DistanceMeters(lat, lon, z.Latitude, z.Longitude) <= z.RadiusMeters {
			return true
		}
	}
	return false
}

// NearestSafeZone returns the closest configured zone and the distance to
// its center, ignoring active hours. Returns nil when no zones exist.
func (e *SafeZoneEvaluator) NearestSafeZone(lat, lon float64) (*SafeZone, float64) {
	var nearest *SafeZone
	best := 0.0
	for i := range e.zones {
		z := &e.zones[i]
		d := geo.DistanceMeters(lat, lon, z.Latitude, z.Longitude)
		if nearest == nil || d < best {
			nearest = z
			best = d
		}
	}
	return nearest, best
}

func zoneActiveAt(z *SafeZone, now time.Time) bool {
	if z.ActiveHours == nil {
		return true
	}
	h := now.Hour()
	start, end := z.ActiveHours.Start, z.ActiveHours.End
	if start <= end {
		return h >= start && h < end
	}
	// window wraps midnight
	return h >= start || h < end
}

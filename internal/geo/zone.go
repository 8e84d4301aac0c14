package geo

import (
	"fmt"
	"math"
)

// DefaultCellSizeDegrees is roughly a 500m grid cell at the equator.
const DefaultCellSizeDegrees = 0.005

// Resolver buckets exact coordinates into coarse grid cells so that other
// players only ever see a low-resolution zone label.
type Resolver struct {
	CellSize float64
}

func NewResolver(cellSize float64) *Resolver {
	if cellSize <= 0 {
		cellSize = DefaultCellSizeDegrees
	}
	return &Resolver{CellSize: cellSize}
}

// ZoneLabel maps a coordinate to its grid cell label. Coordinates inside
// the same cell produce the same label.
func (r *Resolver) ZoneLabel(lat, lon float64) string {
	row := cellIndex(lat, r.CellSize)
	col := cellIndex(lon, r.CellSize)
	return fmt.Sprintf("zone-%d-%d", row, col)
}

func cellIndex(v, size float64) int {
	return int(math.Floor(v / size))
}

// DistanceCategory coarsens an exact distance into the buckets shown to
// other players in place of real numbers.
func DistanceCategory(meters float64) string {
	switch {
	case meters < 100:
		return "very_close"
	case meters < 500:
		return "close"
	case meters < 2000:
		return "far"
	default:
		return "very_far"
	}
}

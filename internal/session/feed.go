package session

import "time"

// Sample is one geolocation reading from the platform sensor.
type Sample struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// LocationFeed is the platform location sensor at its boundary: a
// best-effort periodic supplier of samples. Start returns an error when
// the platform denies location permission, in which case tracking never
// begins.
type LocationFeed interface {
	Start() (<-chan Sample, error)
	Stop()
}

package game

import (
	"testing"
	"time"
)

func atHour(h int) time.Time {
	return time.Date(2026, 4, 10, h, 30, 0, 0, time.UTC)
}

func TestSafeZoneAlwaysActiveWithoutHours(t *testing.T) {
	ev := NewSafeZoneEvaluator([]SafeZone{
		{ID: "library", Latitude: 0, Longitude: 0, RadiusMeters: 100},
	})

	if !ev.IsInSafeZone(0, 0, atHour(3)) {
		t.Error("center of zone should be safe")
	}
	if !ev.IsInSafeZone(0, 0.0005, atHour(14)) {
		t.Error("~55m from center should be inside a 100m zone")
	}
	if ev.IsInSafeZone(0, 0.002, atHour(14)) {
		t.Error("~220m from center should be outside a 100m zone")
	}
}

func TestSafeZoneActiveHoursWrapMidnight(t *testing.T) {
	ev := NewSafeZoneEvaluator([]SafeZone{
		{
			ID: "plaza", Latitude: 0, Longitude: 0, RadiusMeters: 100,
			ActiveHours: &ActiveHours{Start: 22, End: 6},
		},
	})

	if !ev.IsInSafeZone(0, 0, atHour(23)) {
		t.Error("overnight zone should be active at hour 23")
	}
	if !ev.IsInSafeZone(0, 0, atHour(2)) {
		t.Error("overnight zone should be active at hour 2")
	}
	if ev.IsInSafeZone(0, 0, atHour(12)) {
		t.Error("overnight zone should be inactive at hour 12")
	}
}

func TestSafeZoneActiveHoursNoWrap(t *testing.T) {
	ev := NewSafeZoneEvaluator([]SafeZone{
		{
			ID: "cafe", Latitude: 0, Longitude: 0, RadiusMeters: 100,
			ActiveHours: &ActiveHours{Start: 9, End: 17},
		},
	})

	if !ev.IsInSafeZone(0, 0, atHour(9)) {
		t.Error("zone should be active at its start hour")
	}
	if !ev.IsInSafeZone(0, 0, atHour(16)) {
		t.Error("zone should be active inside the window")
	}
	if ev.IsInSafeZone(0, 0, atHour(17)) {
		t.Error("zone should be inactive at its end hour")
	}
	if ev.IsInSafeZone(0, 0, atHour(3)) {
		t.Error("zone should be inactive outside the window")
	}
}

func TestNearestSafeZoneIgnoresActiveHours(t *testing.T) {
	ev := NewSafeZoneEvaluator([]SafeZone{
		{ID: "far", Latitude: 0, Longitude: 1, RadiusMeters: 50},
		{
			ID: "near-but-closed", Latitude: 0, Longitude: 0.001, RadiusMeters: 50,
			ActiveHours: &ActiveHours{Start: 22, End: 6},
		},
	})

	z, d := ev.NearestSafeZone(0, 0)
	if z == nil {
		t.Fatal("expected a nearest zone")
	}
	if z.ID != "near-but-closed" {
		t.Errorf("expected near-but-closed, got %s", z.ID)
	}
	if d > 200 {
		t.Errorf("expected ~111m distance, got %f", d)
	}
}

func TestNearestSafeZoneEmpty(t *testing.T) {
	ev := NewSafeZoneEvaluator(nil)
	if z, _ := ev.NearestSafeZone(0, 0); z != nil {
		t.Errorf("expected nil with no zones, got %v", z)
	}
}

package maintenance

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCutoff_MidnightInTimezone(t *testing.T) {
	p := NewPruner(nil, 30, "UTC", zap.NewNop())

	now := time.Date(2026, 8, 31, 15, 42, 7, 0, time.UTC)
	cutoff, err := p.Cutoff(now)
	if err != nil {
		t.Fatalf("Cutoff: %v", err)
	}

	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !cutoff.Equal(want) {
		t.Fatalf("expected %v, got %v", want, cutoff)
	}
}

func TestCutoff_ConvertsToTimezone(t *testing.T) {
	p := NewPruner(nil, 1, "America/New_York", zap.NewNop())

	// 03:00 UTC is still the previous day in New York.
	now := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	cutoff, err := p.Cutoff(now)
	if err != nil {
		t.Fatalf("Cutoff: %v", err)
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	want := time.Date(2026, 8, 29, 0, 0, 0, 0, loc)
	if !cutoff.Equal(want) {
		t.Fatalf("expected %v, got %v", want, cutoff)
	}
}

func TestCutoff_BadTimezone(t *testing.T) {
	p := NewPruner(nil, 30, "Not/AZone", zap.NewNop())
	if _, err := p.Cutoff(time.Now()); err == nil {
		t.Fatal("expected invalid timezone to fail")
	}
}

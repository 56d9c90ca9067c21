package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestSubScores(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	if got := WorkloadScore(BrokerSnapshot{OpenInquiries: 4, OpenClients: 2}); got != 75 {
		t.Errorf("WorkloadScore = %v, want 75", got)
	}
	if got := WorkloadScore(BrokerSnapshot{OpenInquiries: 30}); got != 0 {
		t.Errorf("WorkloadScore should floor at 0, got %v", got)
	}
	if got := ResponseScore(nil); got != 50 {
		t.Errorf("ResponseScore(nil) = %v", got)
	}
	if got := ResponseScore(ptrFloat(10)); got != 80 {
		t.Errorf("ResponseScore(10h) = %v", got)
	}
	if got := ResponseScore(ptrFloat(80)); got != 0 {
		t.Errorf("ResponseScore(80h) = %v", got)
	}
	if got := ConversionScore(0, 0); got != 50 {
		t.Errorf("ConversionScore(0,0) = %v", got)
	}
	if got := ConversionScore(3, 4); got != 75 {
		t.Errorf("ConversionScore(3,4) = %v", got)
	}

	locTests := []struct {
		location string
		prefs    []string
		want     float64
	}{
		{"Amsterdam Zuid", nil, 50},
		{"Amsterdam Zuid", []string{"amsterdam"}, 100},
		{"Zuid", []string{"Amsterdam Zuid"}, 100},
		{"Utrecht", []string{"Amsterdam", "Haarlem"}, 25},
		{"", []string{"Amsterdam"}, 25},
	}
	for _, tc := range locTests {
		if got := LocationScore(tc.location, tc.prefs); got != tc.want {
			t.Errorf("LocationScore(%q, %v) = %v, want %v", tc.location, tc.prefs, got, tc.want)
		}
	}

	availTests := []struct {
		last *time.Time
		want float64
	}{
		{nil, 25},
		{ptrTime(now.Add(-1 * time.Hour)), 100},
		{ptrTime(now.Add(-2 * time.Hour)), 100},
		{ptrTime(now.Add(-20 * time.Hour)), 75},
		{ptrTime(now.Add(-72 * time.Hour)), 50},
		{ptrTime(now.Add(-73 * time.Hour)), 25},
	}
	for _, tc := range availTests {
		if got := AvailabilityScore(tc.last, now); got != tc.want {
			t.Errorf("AvailabilityScore(%v) = %v, want %v", tc.last, got, tc.want)
		}
	}
}

func TestScoringScenarioPrefersIdleRecentBroker(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := BrokerSnapshot{
		ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Active: true, Approved: true,
		LastActivityAt: ptrTime(now.Add(-time.Hour)), PreferredLocations: []string{"Rotterdam"},
	}
	b := BrokerSnapshot{
		ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Active: true, Approved: true,
		LastActivityAt: ptrTime(now.Add(-5 * 24 * time.Hour)), PreferredLocations: []string{"Eindhoven"},
		OpenInquiries: 10,
	}

	sa := ScoreBroker(a, "Groningen", now)
	sb := ScoreBroker(b, "Groningen", now)

	if sa.Workload != 100 {
		t.Fatalf("A workload = %v, want 100", sa.Workload)
	}
	if sb.Workload > 50 {
		t.Fatalf("B workload = %v, want <= 50", sb.Workload)
	}
	// A: 0.4*100 + 0.3*50 + 0.2*25 + 0.1*100 = 70
	if math.Abs(sa.Composite-70) > 1e-9 {
		t.Fatalf("A composite = %v, want 70", sa.Composite)
	}
	// B: 0.4*50 + 0.3*50 + 0.2*25 + 0.1*25 = 42.5
	if math.Abs(sb.Composite-42.5) > 1e-9 {
		t.Fatalf("B composite = %v, want 42.5", sb.Composite)
	}

	ranked := Rank([]BrokerSnapshot{b, a}, "Groningen", now)
	if ranked[0].Broker.ID != a.ID {
		t.Fatalf("expected A to rank first, got %s", ranked[0].Broker.ID)
	}
}

func TestRankTieBreaks(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	recent := ptrTime(now.Add(-time.Hour))
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	// identical snapshots: lowest id wins
	ranked := Rank([]BrokerSnapshot{
		{ID: high, Active: true, Approved: true, LastActivityAt: recent},
		{ID: low, Active: true, Approved: true, LastActivityAt: recent},
	}, "", now)
	if ranked[0].Broker.ID != low {
		t.Fatalf("expected lowest id first, got %s", ranked[0].Broker.ID)
	}

	// equal composite: lower workload wins even with the higher id
	a := Ranked{Broker: BrokerSnapshot{ID: high, OpenInquiries: 1}, Score: Score{Composite: 60}}
	b := Ranked{Broker: BrokerSnapshot{ID: low, OpenInquiries: 3}, Score: Score{Composite: 60}}
	if !Better(a, b) {
		t.Fatalf("lower workload should win a composite tie")
	}
	if Better(b, a) {
		t.Fatalf("Better must be asymmetric")
	}
}

func TestRankIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	pool := []BrokerSnapshot{
		{ID: uuid.New(), Active: true, Approved: true, OpenInquiries: 2, LastActivityAt: ptrTime(now.Add(-3 * time.Hour))},
		{ID: uuid.New(), Active: true, Approved: true, OpenInquiries: 2, LastActivityAt: ptrTime(now.Add(-3 * time.Hour))},
		{ID: uuid.New(), Active: true, Approved: true, OpenInquiries: 1, OpenClients: 2, LastActivityAt: ptrTime(now.Add(-3 * time.Hour))},
	}
	first := Rank(pool, "Leiden", now)[0].Broker.ID
	reversed := []BrokerSnapshot{pool[2], pool[1], pool[0]}
	for i := 0; i < 3; i++ {
		if got := Rank(reversed, "Leiden", now)[0].Broker.ID; got != first {
			t.Fatalf("rank depends on input order: %s vs %s", got, first)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	base := BrokerSnapshot{Active: true, Approved: true, LastActivityAt: ptrTime(now.Add(-10 * time.Hour))}

	if !IsAvailable(base, now) {
		t.Fatalf("expected base broker to be available")
	}

	stale := base
	stale.LastActivityAt = ptrTime(now.Add(-100 * time.Hour))
	if IsAvailable(stale, now) {
		t.Fatalf("stale broker should be unavailable")
	}

	overloaded := base
	overloaded.OpenInquiries = 17 // workload 15
	if IsAvailable(overloaded, now) {
		t.Fatalf("overloaded broker should be unavailable")
	}

	inactive := base
	inactive.Active = false
	if IsAvailable(inactive, now) {
		t.Fatalf("inactive broker should be unavailable")
	}
}

package domain

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Composite score weights.
const (
	WeightWorkload     = 0.4
	WeightPerformance  = 0.3
	WeightLocation     = 0.2
	WeightAvailability = 0.1
)

const (
	neutralScore = 50.0

	// availableMinAvailability and availableMinWorkload bound the
	// availability predicate.
	availableMinAvailability = 50.0
	availableMinWorkload     = 20.0
)

// BrokerSnapshot is everything the engine needs to rank one broker,
// captured at a single point in time.
type BrokerSnapshot struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Active             bool
	Approved           bool
	LastActivityAt     *time.Time
	PreferredLocations []string

	OpenInquiries    int
	OpenClients      int
	AvgResponseHours *float64
	Completed30d     int
	Total30d         int
}

// Score is the per-candidate breakdown.
type Score struct {
	BrokerID     uuid.UUID `json:"brokerId"`
	Workload     float64   `json:"workload"`
	Performance  float64   `json:"performance"`
	Location     float64   `json:"location"`
	Availability float64   `json:"availability"`
	Composite    float64   `json:"composite"`
}

// WorkloadUnits is the raw load figure behind the workload score.
func (b BrokerSnapshot) WorkloadUnits() float64 {
	return float64(b.OpenInquiries) + 0.5*float64(b.OpenClients)
}

// WorkloadScore is max(0, 100 - 5 * (open inquiries + 0.5 * open clients)).
func WorkloadScore(b BrokerSnapshot) float64 {
	return math.Max(0, 100-5*b.WorkloadUnits())
}

// ResponseScore is max(0, 100 - 2 * avg hours), neutral without data.
func ResponseScore(avgHours *float64) float64 {
	if avgHours == nil {
		return neutralScore
	}
	return math.Max(0, 100-2**avgHours)
}

// ConversionScore is completed / total * 100, neutral without inquiries.
func ConversionScore(completed, total int) float64 {
	if total <= 0 {
		return neutralScore
	}
	return float64(completed) / float64(total) * 100
}

// PerformanceScore blends response time and conversion 60/40.
func PerformanceScore(b BrokerSnapshot) float64 {
	return 0.6*ResponseScore(b.AvgResponseHours) + 0.4*ConversionScore(b.Completed30d, b.Total30d)
}

// LocationScore is 100 when the property location and any preference
// contain one another (case-insensitive), 25 otherwise and 50 when the
// broker has no preferences.
func LocationScore(propertyLocation string, preferred []string) float64 {
	prefs := make([]string, 0, len(preferred))
	for _, p := range preferred {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefs = append(prefs, p)
		}
	}
	if len(prefs) == 0 {
		return neutralScore
	}

	loc := strings.ToLower(strings.TrimSpace(propertyLocation))
	if loc == "" {
		return 25
	}
	for _, p := range prefs {
		if strings.Contains(loc, p) || strings.Contains(p, loc) {
			return 100
		}
	}
	return 25
}

// AvailabilityScore buckets the time since last activity.
func AvailabilityScore(lastActivity *time.Time, now time.Time) float64 {
	if lastActivity == nil {
		return 25
	}
	idle := now.Sub(*lastActivity)
	switch {
	case idle <= 2*time.Hour:
		return 100
	case idle <= 24*time.Hour:
		return 75
	case idle <= 72*time.Hour:
		return 50
	default:
		return 25
	}
}

// ScoreBroker computes the weighted composite for one broker.
func ScoreBroker(b BrokerSnapshot, propertyLocation string, now time.Time) Score {
	s := Score{
		BrokerID:     b.ID,
		Workload:     WorkloadScore(b),
		Performance:  PerformanceScore(b),
		Location:     LocationScore(propertyLocation, b.PreferredLocations),
		Availability: AvailabilityScore(b.LastActivityAt, now),
	}
	s.Composite = WeightWorkload*s.Workload +
		WeightPerformance*s.Performance +
		WeightLocation*s.Location +
		WeightAvailability*s.Availability
	return s
}

// IsAvailable is the availability predicate: active, approved, recently
// seen and not severely overloaded.
func IsAvailable(b BrokerSnapshot, now time.Time) bool {
	return b.Active && b.Approved &&
		AvailabilityScore(b.LastActivityAt, now) >= availableMinAvailability &&
		WorkloadScore(b) >= availableMinWorkload
}

// Ranked pairs a broker with its score.
type Ranked struct {
	Broker BrokerSnapshot
	Score  Score
}

// Better reports whether a outranks b: higher composite, then lower
// workload, then lower id.
func Better(a, b Ranked) bool {
	if a.Score.Composite != b.Score.Composite {
		return a.Score.Composite > b.Score.Composite
	}
	if wa, wb := a.Broker.WorkloadUnits(), b.Broker.WorkloadUnits(); wa != wb {
		return wa < wb
	}
	return strings.Compare(a.Broker.ID.String(), b.Broker.ID.String()) < 0
}

// Rank scores every candidate and returns them best first. The result is
// deterministic for a given snapshot.
func Rank(candidates []BrokerSnapshot, propertyLocation string, now time.Time) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, b := range candidates {
		out = append(out, Ranked{Broker: b, Score: ScoreBroker(b, propertyLocation, now)})
	}
	sort.SliceStable(out, func(i, j int) bool { return Better(out[i], out[j]) })
	return out
}

package domain

import (
	"reflect"
	"testing"
)

func TestReduceWorstSeverityWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckResult
		want   Action
	}{
		{"nothing fires", []CheckResult{
			{Name: CheckExactMatch, Severity: SeverityHigh},
			{Name: CheckSimilarContent, Severity: SeverityMedium},
		}, ActionAllow},
		{"medium flags", []CheckResult{
			{Name: CheckExactMatch, Severity: SeverityHigh},
			{Name: CheckClientFrequency, Severity: SeverityMedium, IsDuplicate: true},
		}, ActionFlag},
		{"high beats medium", []CheckResult{
			{Name: CheckSimilarContent, Severity: SeverityMedium, IsDuplicate: true},
			{Name: CheckIPFrequency, Severity: SeverityHigh, IsDuplicate: true},
		}, ActionBlock},
		{"low positive allows", []CheckResult{
			{Name: "custom", Severity: SeverityLow, IsDuplicate: true},
		}, ActionAllow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reduce(tc.checks).Action; got != tc.want {
				t.Fatalf("Reduce = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReduceIsIdempotent(t *testing.T) {
	checks := []CheckResult{
		{Name: CheckExactMatch, Severity: SeverityHigh},
		{Name: CheckSimilarContent, Severity: SeverityMedium, IsDuplicate: true},
		{Name: CheckClientFrequency, Severity: SeverityMedium},
		{Name: CheckIPFrequency, Severity: SeverityHigh},
		{Name: CheckPropertySpam, Severity: SeverityHigh},
	}
	first := Reduce(checks)
	for i := 0; i < 5; i++ {
		if again := Reduce(checks); !reflect.DeepEqual(first, again) {
			t.Fatalf("Reduce not stable: %+v vs %+v", first, again)
		}
	}
	if !reflect.DeepEqual(first.Positive(), []string{CheckSimilarContent}) {
		t.Fatalf("unexpected positives: %v", first.Positive())
	}
}

func TestSummaryKeepsOnlyFiredCheckNames(t *testing.T) {
	res := Reduce([]CheckResult{
		{Name: CheckExactMatch, Severity: SeverityHigh, IsDuplicate: true, Evidence: map[string]any{"matchedOn": "phone"}},
		{Name: CheckIPFrequency, Severity: SeverityHigh},
	})
	got := res.Summary()
	if got.Action != ActionBlock {
		t.Fatalf("action = %s, want block", got.Action)
	}
	if !reflect.DeepEqual(got.PositiveChecks, []string{CheckExactMatch}) {
		t.Fatalf("positive checks = %v", got.PositiveChecks)
	}
}

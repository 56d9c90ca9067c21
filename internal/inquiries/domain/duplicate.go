package domain

// Severity ranks a positive duplicate check.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Action is the admission decision of the duplicate detector.
type Action string

const (
	ActionAllow Action = "allow"
	ActionFlag  Action = "flag"
	ActionBlock Action = "block"
)

// Names of the duplicate checks, in evaluation order.
const (
	CheckExactMatch      = "exact_match"
	CheckSimilarContent  = "similar_content"
	CheckClientFrequency = "client_frequency"
	CheckIPFrequency     = "ip_frequency"
	CheckPropertySpam    = "property_spam"
)

// CheckOrder is the fixed order in which check results are reported.
var CheckOrder = []string{
	CheckExactMatch,
	CheckSimilarContent,
	CheckClientFrequency,
	CheckIPFrequency,
	CheckPropertySpam,
}

// SimilarityThreshold is the minimum message similarity for a
// similar_content hit.
const SimilarityThreshold = 0.8

// CheckResult is the outcome of one duplicate heuristic.
type CheckResult struct {
	Name        string         `json:"name"`
	IsDuplicate bool           `json:"isDuplicate"`
	Severity    Severity       `json:"severity"`
	Reason      string         `json:"reason,omitempty"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

// DuplicateCheckResult is the combined outcome of all checks.
type DuplicateCheckResult struct {
	Action Action        `json:"action"`
	Checks []CheckResult `json:"checks"`
}

// Reduce combines check results with worst-severity-wins: any high positive
// blocks, any medium positive flags, everything else is allowed.
func Reduce(checks []CheckResult) DuplicateCheckResult {
	action := ActionAllow
	for _, c := range checks {
		if !c.IsDuplicate {
			continue
		}
		switch c.Severity {
		case SeverityHigh:
			action = ActionBlock
		case SeverityMedium:
			if action == ActionAllow {
				action = ActionFlag
			}
		}
	}
	return DuplicateCheckResult{Action: action, Checks: checks}
}

// Positive returns the names of checks that fired.
func (r DuplicateCheckResult) Positive() []string {
	out := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		if c.IsDuplicate {
			out = append(out, c.Name)
		}
	}
	return out
}

// DuplicateSummary is the part of a decision that goes back to the
// submitter. Evidence stays in the audit log and on the stored inquiry.
type DuplicateSummary struct {
	Action         Action   `json:"action"`
	PositiveChecks []string `json:"positiveChecks"`
}

func (r DuplicateCheckResult) Summary() DuplicateSummary {
	return DuplicateSummary{Action: r.Action, PositiveChecks: r.Positive()}
}

// Flagged reports whether the inquiry is admitted with a flag.
func (r DuplicateCheckResult) Flagged() bool { return r.Action == ActionFlag }

// Blocked reports whether admission is refused.
func (r DuplicateCheckResult) Blocked() bool { return r.Action == ActionBlock }

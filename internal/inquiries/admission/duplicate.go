package admission

import (
	"context"
	"fmt"
	"time"

	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DuplicateStore answers the lookups behind the duplicate heuristics.
type DuplicateStore interface {
	FindExactMatch(ctx context.Context, email, phone string, propertyID uuid.UUID, message string, since time.Time) (*repository.ContactMatch, error)
	RecentMessagesByContact(ctx context.Context, propertyID uuid.UUID, email, phone string, since time.Time) ([]repository.MessageSample, error)
	CountByContactSince(ctx context.Context, email, phone string, since time.Time) (int, error)
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
	PropertyActivitySince(ctx context.Context, propertyID uuid.UUID, since time.Time) (repository.PropertyActivity, error)
}

const (
	exactMatchWindow        = 24 * time.Hour
	similarContentWindow    = 48 * time.Hour
	clientDailyLimit        = 5
	ipFrequencyWindow       = time.Hour
	ipFrequencyLimit        = 3
	propertySpamWindow      = time.Hour
	propertySpamMinTotal    = 5
	propertySpamMinDistinct = 3
)

// Detector runs the five duplicate heuristics and reduces them to one
// admission action.
type Detector struct {
	store DuplicateStore
	now   func() time.Time
}

func NewDetector(store DuplicateStore, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{store: store, now: now}
}

type check func(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error)

// Detect runs every check concurrently against a single reference time and
// reports results in a fixed order. A lookup failure aborts detection.
func (d *Detector) Detect(ctx context.Context, c Candidate) (domain.DuplicateCheckResult, error) {
	now := d.now().UTC()
	checks := []check{
		d.exactMatch,
		d.similarContent,
		d.clientFrequency,
		d.ipFrequency,
		d.propertySpam,
	}

	results := make([]domain.CheckResult, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, run := range checks {
		g.Go(func() error {
			res, err := run(gctx, c, now)
			if err != nil {
				return fmt.Errorf("%s: %w", domain.CheckOrder[i], err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DuplicateCheckResult{}, err
	}

	return domain.Reduce(results), nil
}

func (d *Detector) exactMatch(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error) {
	res := domain.CheckResult{Name: domain.CheckExactMatch, Severity: domain.SeverityHigh}
	match, err := d.store.FindExactMatch(ctx, c.Email, c.Phone, c.PropertyID, c.Message, now.Add(-exactMatchWindow))
	if err != nil || match == nil {
		return res, err
	}
	res.IsDuplicate = true
	res.Reason = fmt.Sprintf("matching %s within the last 24 hours", match.MatchedOn)
	res.Evidence = map[string]any{
		"inquiryId": match.InquiryID.String(),
		"matchedOn": match.MatchedOn,
		"createdAt": match.CreatedAt.UTC().Format(time.RFC3339),
	}
	return res, nil
}

func (d *Detector) similarContent(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error) {
	res := domain.CheckResult{Name: domain.CheckSimilarContent, Severity: domain.SeverityMedium}
	samples, err := d.store.RecentMessagesByContact(ctx, c.PropertyID, c.Email, c.Phone, now.Add(-similarContentWindow))
	if err != nil {
		return res, err
	}

	best := 0.0
	var bestID uuid.UUID
	for _, s := range samples {
		if sim := domain.Similarity(c.Message, s.Message); sim > best {
			best, bestID = sim, s.InquiryID
		}
	}
	if best >= domain.SimilarityThreshold {
		res.IsDuplicate = true
		res.Reason = "similar message from the same contact on this property within 48 hours"
		res.Evidence = map[string]any{
			"inquiryId":  bestID.String(),
			"similarity": best,
		}
	}
	return res, nil
}

func (d *Detector) clientFrequency(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error) {
	res := domain.CheckResult{Name: domain.CheckClientFrequency, Severity: domain.SeverityMedium}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := d.store.CountByContactSince(ctx, c.Email, c.Phone, dayStart)
	if err != nil {
		return res, err
	}
	if n >= clientDailyLimit {
		res.IsDuplicate = true
		res.Reason = "contact already submitted many inquiries today"
		res.Evidence = map[string]any{"count": n, "since": dayStart.Format(time.RFC3339)}
	}
	return res, nil
}

func (d *Detector) ipFrequency(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error) {
	res := domain.CheckResult{Name: domain.CheckIPFrequency, Severity: domain.SeverityHigh}
	if c.IPAddress == "" {
		return res, nil
	}
	n, err := d.store.CountByIPSince(ctx, c.IPAddress, now.Add(-ipFrequencyWindow))
	if err != nil {
		return res, err
	}
	if n >= ipFrequencyLimit {
		res.IsDuplicate = true
		res.Reason = "address submitted many inquiries within the last hour"
		res.Evidence = map[string]any{"count": n}
	}
	return res, nil
}

func (d *Detector) propertySpam(ctx context.Context, c Candidate, now time.Time) (domain.CheckResult, error) {
	res := domain.CheckResult{Name: domain.CheckPropertySpam, Severity: domain.SeverityHigh}
	activity, err := d.store.PropertyActivitySince(ctx, c.PropertyID, now.Add(-propertySpamWindow))
	if err != nil {
		return res, err
	}
	if activity.Total > propertySpamMinTotal && activity.DistinctContacts > propertySpamMinDistinct {
		res.IsDuplicate = true
		res.Reason = "burst of inquiries from many contacts on this property"
		res.Evidence = map[string]any{"total": activity.Total, "distinctContacts": activity.DistinctContacts}
	}
	return res, nil
}

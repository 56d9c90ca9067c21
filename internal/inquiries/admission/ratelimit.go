package admission

import (
	"context"
	"fmt"
	"time"

	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/config"
)

// SubmissionCounter counts persisted inquiries over trailing windows.
type SubmissionCounter interface {
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
	CountByEmailSince(ctx context.Context, email string, since time.Time) (int, error)
}

// RateLimiter enforces per-IP and per-email submission ceilings. Counts are
// derived from stored inquiries, so there is no counter state to expire.
type RateLimiter struct {
	counter SubmissionCounter
	policy  config.AdmissionPolicy
	now     func() time.Time
}

func NewRateLimiter(counter SubmissionCounter, policy config.AdmissionPolicy, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{counter: counter, policy: policy, now: now}
}

// Check rejects the submission when the IP or email already reached its
// limit inside the window.
func (l *RateLimiter) Check(ctx context.Context, ip, email string) error {
	now := l.now()

	if ip != "" {
		n, err := l.counter.CountByIPSince(ctx, ip, now.Add(-l.policy.IPWindow))
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "rate limit lookup failed", err)
		}
		if n >= l.policy.IPLimit {
			return apperr.RateLimitExceeded(fmt.Sprintf("too many inquiries from this address, try again later (limit %d per %s)", l.policy.IPLimit, l.policy.IPWindow)).
				WithDetails(map[string]any{"scope": "ip", "limit": l.policy.IPLimit, "window": l.policy.IPWindow.String()})
		}
	}

	if email != "" {
		n, err := l.counter.CountByEmailSince(ctx, email, now.Add(-l.policy.EmailWindow))
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "rate limit lookup failed", err)
		}
		if n >= l.policy.EmailLimit {
			return apperr.RateLimitExceeded(fmt.Sprintf("too many inquiries from this email, try again later (limit %d per %s)", l.policy.EmailLimit, l.policy.EmailWindow)).
				WithDetails(map[string]any{"scope": "email", "limit": l.policy.EmailLimit, "window": l.policy.EmailWindow.String()})
		}
	}

	return nil
}

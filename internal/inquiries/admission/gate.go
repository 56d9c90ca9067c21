package admission

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/validator"

	"github.com/google/uuid"
)

// PropertyReader looks up a listing.
type PropertyReader interface {
	GetProperty(ctx context.Context, id uuid.UUID) (repository.Property, error)
}

// Gate runs the structural and business-rule checks on a submission.
type Gate struct {
	val        *validator.Validator
	properties PropertyReader
	policy     config.AdmissionPolicy
	loc        *time.Location
	now        func() time.Time
}

func NewGate(val *validator.Validator, properties PropertyReader, policy config.AdmissionPolicy, now func() time.Time) (*Gate, error) {
	if now == nil {
		now = time.Now
	}
	loc, err := policy.BusinessHours.Location()
	if err != nil {
		return nil, err
	}
	return &Gate{val: val, properties: properties, policy: policy, loc: loc, now: now}, nil
}

// Check validates the payload and returns the referenced property.
func (g *Gate) Check(ctx context.Context, s Submission) (repository.Property, error) {
	if err := g.val.Struct(s); err != nil {
		if fields := validator.FieldErrors(err); len(fields) > 0 {
			return repository.Property{}, apperr.FieldValidation(fields)
		}
		return repository.Property{}, apperr.Wrap(apperr.KindInternal, "validation failed", err)
	}

	if g.policy.BusinessHours.Enabled && !g.withinBusinessHours() {
		return repository.Property{}, apperr.Validation("inquiries are only accepted during business hours").
			WithDetails(map[string]string{
				"start":    g.policy.BusinessHours.Start,
				"end":      g.policy.BusinessHours.End,
				"timezone": g.loc.String(),
			})
	}

	propertyID, err := uuid.Parse(s.PropertyID)
	if err != nil {
		return repository.Property{}, apperr.FieldValidation(map[string]string{"propertyId": "must be a valid identifier"})
	}

	property, err := g.properties.GetProperty(ctx, propertyID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Property{}, apperr.FieldValidation(map[string]string{"propertyId": "property does not exist"})
	}
	if err != nil {
		return repository.Property{}, apperr.Wrap(apperr.KindInternal, "property lookup failed", err)
	}

	if !g.eligible(property.Status) {
		return repository.Property{}, apperr.FieldValidation(map[string]string{"propertyId": "property is not accepting inquiries"})
	}

	return property, nil
}

func (g *Gate) eligible(status string) bool {
	return slices.ContainsFunc(g.policy.EligiblePropertyStatuses, func(s string) bool {
		return strings.EqualFold(s, strings.TrimSpace(status))
	})
}

func (g *Gate) withinBusinessHours() bool {
	local := g.now().In(g.loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	start, end, err := g.policy.BusinessHours.Window()
	if err != nil {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= start && minute < end
}

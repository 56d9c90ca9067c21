package admission

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/platform/apperr"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/validator"

	"github.com/google/uuid"
)

func newGate(t *testing.T, store *memStore, policy config.AdmissionPolicy, now time.Time) *Gate {
	t.Helper()
	g, err := NewGate(validator.New(), store, policy, fixedClock(now))
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func validSubmission(propertyID uuid.UUID) Submission {
	return Submission{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "+31 6 1234 5678",
		Message:    "Is this apartment still available for a viewing?",
		PropertyID: propertyID.String(),
		IPAddress:  "203.0.113.9",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields, _ := appErr.Details.(map[string]string)
	return fields
}

func TestGateAcceptsValidSubmission(t *testing.T) {
	pid := uuid.New()
	store := &memStore{properties: map[uuid.UUID]repository.Property{pid: {ID: pid, Status: "Active", Location: "Utrecht"}}}
	g := newGate(t, store, config.DefaultAdmissionPolicy(), time.Now())

	prop, err := g.Check(context.Background(), validSubmission(pid))
	if err != nil {
		t.Fatalf("expected valid submission, got %v", err)
	}
	if prop.ID != pid {
		t.Fatalf("expected property %s, got %s", pid, prop.ID)
	}
}

func TestGateFieldErrors(t *testing.T) {
	pid := uuid.New()
	store := &memStore{properties: map[uuid.UUID]repository.Property{pid: {ID: pid, Status: "active"}}}
	g := newGate(t, store, config.DefaultAdmissionPolicy(), time.Now())

	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"missing name", func(s *Submission) { s.Name = "" }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"bad email", func(s *Submission) { s.Email = "jane@" }, "email"},
		{"bad phone", func(s *Submission) { s.Phone = "call me" }, "phone"},
		{"short phone", func(s *Submission) { s.Phone = "12345" }, "phone"},
		{"short message", func(s *Submission) { s.Message = "hi there" }, "message"},
		{"long message", func(s *Submission) { s.Message = strings.Repeat("x", 2001) }, "message"},
		{"missing property", func(s *Submission) { s.PropertyID = "" }, "propertyId"},
		{"unknown property", func(s *Submission) { s.PropertyID = uuid.NewString() }, "propertyId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := validSubmission(pid)
			tc.mutate(&s)
			_, err := g.Check(context.Background(), s)
			fields := fieldsOf(t, err)
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, fields)
			}
		})
	}
}

func TestGateMessageBoundsCountCharacters(t *testing.T) {
	pid := uuid.New()
	store := &memStore{properties: map[uuid.UUID]repository.Property{pid: {ID: pid, Status: "available"}}}
	g := newGate(t, store, config.DefaultAdmissionPolicy(), time.Now())

	s := validSubmission(pid)
	s.Message = strings.Repeat("é", 10)
	if _, err := g.Check(context.Background(), s); err != nil {
		t.Fatalf("10 characters should pass: %v", err)
	}
	s.Message = strings.Repeat("é", 2000)
	if _, err := g.Check(context.Background(), s); err != nil {
		t.Fatalf("2000 characters should pass: %v", err)
	}
}

func TestGateRejectsIneligibleProperty(t *testing.T) {
	pid := uuid.New()
	store := &memStore{properties: map[uuid.UUID]repository.Property{pid: {ID: pid, Status: "sold"}}}
	g := newGate(t, store, config.DefaultAdmissionPolicy(), time.Now())

	_, err := g.Check(context.Background(), validSubmission(pid))
	if fields := fieldsOf(t, err); fields["propertyId"] == "" {
		t.Fatalf("expected propertyId error, got %v", fields)
	}
}

func TestGateBusinessHours(t *testing.T) {
	pid := uuid.New()
	store := &memStore{properties: map[uuid.UUID]repository.Property{pid: {ID: pid, Status: "active"}}}
	policy := config.DefaultAdmissionPolicy()
	policy.BusinessHours.Enabled = true

	monday10 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	monday19 := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	saturday10 := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	if _, err := newGate(t, store, policy, monday10).Check(context.Background(), validSubmission(pid)); err != nil {
		t.Fatalf("monday 10:00 should pass: %v", err)
	}
	for _, at := range []time.Time{monday19, saturday10} {
		_, err := newGate(t, store, policy, at).Check(context.Background(), validSubmission(pid))
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s should be outside business hours, got %v", at, err)
		}
	}

	policy.BusinessHours.Enabled = false
	if _, err := newGate(t, store, policy, saturday10).Check(context.Background(), validSubmission(pid)); err != nil {
		t.Fatalf("disabled business hours should pass: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	s := Normalize(Submission{
		Name:    "  <b>Jane</b>   Doe ",
		Email:   " Jane@Example.COM ",
		Phone:   "06 12345678",
		Message: "<p>Hello, is it available?</p>",
	}, "NL")

	if s.Name != "Jane Doe" || s.Email != "jane@example.com" || s.Phone != "+31612345678" || s.Message != "Hello, is it available?" {
		t.Fatalf("unexpected normalisation: %+v", s)
	}
}

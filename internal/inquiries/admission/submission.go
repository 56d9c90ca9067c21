// Package admission decides whether an inquiry submission may enter the
// pipeline: rate limits, payload validation and duplicate detection.
package admission

import (
	"strings"

	"brokerage_intake/platform/phone"
	"brokerage_intake/platform/sanitize"

	"github.com/google/uuid"
)

// Submission is a raw inquiry as received from the caller.
type Submission struct {
	Name       string     `json:"name" validate:"required,max=200"`
	Email      string     `json:"email" validate:"required,email,max=320"`
	Phone      string     `json:"phone" validate:"omitempty,loosephone"`
	Message    string     `json:"message" validate:"required,min=10,max=2000"`
	PropertyID string     `json:"propertyId" validate:"required,uuid"`
	UserID     *uuid.UUID `json:"-"`
	IPAddress  string     `json:"-"`
}

// Normalize strips markup, lower-cases the email and formats the phone as
// E.164 when it parses for region. Matching and counting always use the
// normalised values.
func Normalize(s Submission, region string) Submission {
	s.Name = sanitize.Line(s.Name)
	s.Message = sanitize.Text(s.Message)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.Phone = phone.NormalizeE164(s.Phone, region)
	s.PropertyID = strings.TrimSpace(s.PropertyID)
	s.IPAddress = strings.TrimSpace(s.IPAddress)
	return s
}

// Candidate is a validated submission ready for duplicate detection.
type Candidate struct {
	PropertyID uuid.UUID
	Email      string
	Phone      string
	Message    string
	IPAddress  string
}

// Candidate converts a validated submission. Call only after the gate passed.
func (s Submission) Candidate() Candidate {
	id, _ := uuid.Parse(s.PropertyID)
	return Candidate{
		PropertyID: id,
		Email:      s.Email,
		Phone:      s.Phone,
		Message:    s.Message,
		IPAddress:  s.IPAddress,
	}
}

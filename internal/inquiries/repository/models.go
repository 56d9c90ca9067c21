package repository

import (
	"time"

	"brokerage_intake/internal/inquiries/domain"

	"github.com/google/uuid"
)

type Inquiry struct {
	ID               uuid.UUID
	PropertyID       uuid.UUID
	ClientID         *uuid.UUID
	UserID           *uuid.UUID
	Name             string
	Email            string
	Phone            string
	Message          string
	Status           domain.Status
	AssignedBrokerID *uuid.UUID
	IPAddress        string
	IsFlagged        bool
	FlagReason       *domain.DuplicateCheckResult
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ContactedAt      *time.Time
	ScheduledAt      *time.Time
	RespondedAt      *time.Time
}

// Timestamps returns the lifecycle stamps in domain form.
func (i Inquiry) Timestamps() domain.Timestamps {
	return domain.Timestamps{
		ContactedAt: i.ContactedAt,
		ScheduledAt: i.ScheduledAt,
		RespondedAt: i.RespondedAt,
	}
}

type CreateInquiryParams struct {
	PropertyID uuid.UUID
	UserID     *uuid.UUID
	Name       string
	Email      string
	Phone      string
	Message    string
	IPAddress  string
	IsFlagged  bool
	FlagReason *domain.DuplicateCheckResult
}

type Client struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Phone     string
	UserID    *uuid.UUID
	CreatedAt time.Time
}

type CreateClientParams struct {
	Email  string
	Name   string
	Phone  string
	UserID *uuid.UUID
}

// Property is the read-only projection of a listing.
type Property struct {
	ID              uuid.UUID
	Title           string
	Status          string
	Location        string
	ListingBrokerID *uuid.UUID
}

// BrokerProfile is the read-only projection of a broker user.
type BrokerProfile struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Role               string
	IsApproved         bool
	IsActive           bool
	LastActivityAt     *time.Time
	PreferredLocations []string
}

// BrokerMetrics are aggregates derived from inquiry rows at scoring time.
type BrokerMetrics struct {
	OpenInquiries    int
	OpenClients      int
	AvgResponseHours *float64
	Completed30d     int
	Total30d         int
}

// ContactMatch identifies the most recent inquiry matching a submission.
type ContactMatch struct {
	InquiryID uuid.UUID
	MatchedOn string
	CreatedAt time.Time
}

// MessageSample is a prior message used for similarity checks.
type MessageSample struct {
	InquiryID uuid.UUID
	Message   string
	CreatedAt time.Time
}

// PropertyActivity summarises recent submissions on one property.
type PropertyActivity struct {
	Total            int
	DistinctContacts int
}

type StatusUpdate struct {
	Status domain.Status
	Stamps domain.Timestamps
}

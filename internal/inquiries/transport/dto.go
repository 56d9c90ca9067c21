package transport

import (
	"time"

	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/internal/inquiries/domain"
	"brokerage_intake/internal/inquiries/intake"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/httpkit"

	"github.com/google/uuid"
)

// Request DTOs

// SubmitInquiryRequest is the public inquiry form. Validation happens in the
// admission gate so that every field error is reported together.
type SubmitInquiryRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	PropertyID string `json:"propertyId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Response DTOs

type InquiryResponse struct {
	ID               uuid.UUID                    `json:"id"`
	PropertyID       uuid.UUID                    `json:"propertyId"`
	ClientID         *uuid.UUID                   `json:"clientId,omitempty"`
	UserID           *uuid.UUID                   `json:"userId,omitempty"`
	Name             string                       `json:"name"`
	Email            string                       `json:"email"`
	Phone            string                       `json:"phone,omitempty"`
	Message          string                       `json:"message"`
	Status           domain.Status                `json:"status"`
	AssignedBrokerID *uuid.UUID                   `json:"assignedBrokerId,omitempty"`
	IsFlagged        bool                         `json:"isFlagged"`
	FlagReason       *domain.DuplicateCheckResult `json:"flagReason,omitempty"`
	CreatedAt        time.Time                    `json:"createdAt"`
	UpdatedAt        time.Time                    `json:"updatedAt"`
	ContactedAt      *time.Time                   `json:"contactedAt,omitempty"`
	ScheduledAt      *time.Time                   `json:"scheduledAt,omitempty"`
	RespondedAt      *time.Time                   `json:"respondedAt,omitempty"`
}

type BrokerResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Reason string    `json:"reason"`
	Score  float64   `json:"score"`
}

// AdmissionResponse is the envelope returned by the public submit route.
// Callers are anonymous, so it carries no duplicate evidence.
type AdmissionResponse struct {
	Success        bool                     `json:"success"`
	Inquiry        *InquiryResponse         `json:"inquiry,omitempty"`
	Broker         *BrokerResponse          `json:"broker,omitempty"`
	DuplicateCheck *domain.DuplicateSummary `json:"duplicateCheck,omitempty"`
	Error          *httpkit.FailureBody     `json:"error,omitempty"`
}

type InquiryEnvelope struct {
	Success bool            `json:"success"`
	Inquiry InquiryResponse `json:"inquiry"`
}

type AssignmentEnvelope struct {
	Success bool               `json:"success"`
	Outcome assignment.Outcome `json:"outcome"`
}

type ReassignmentEnvelope struct {
	Success bool             `json:"success"`
	Batch   assignment.Batch `json:"batch"`
}

type QueuedEnvelope struct {
	Success  bool      `json:"success"`
	BrokerID uuid.UUID `json:"brokerId"`
	Queued   bool      `json:"queued"`
}

type MetricsEnvelope struct {
	Success bool                     `json:"success"`
	Metrics monitoring.DailySnapshot `json:"metrics"`
}

// Mappers

func ToInquiryResponse(inq repository.Inquiry) InquiryResponse {
	return InquiryResponse{
		ID:               inq.ID,
		PropertyID:       inq.PropertyID,
		ClientID:         inq.ClientID,
		UserID:           inq.UserID,
		Name:             inq.Name,
		Email:            inq.Email,
		Phone:            inq.Phone,
		Message:          inq.Message,
		Status:           inq.Status,
		AssignedBrokerID: inq.AssignedBrokerID,
		IsFlagged:        inq.IsFlagged,
		FlagReason:       inq.FlagReason,
		CreatedAt:        inq.CreatedAt,
		UpdatedAt:        inq.UpdatedAt,
		ContactedAt:      inq.ContactedAt,
		ScheduledAt:      inq.ScheduledAt,
		RespondedAt:      inq.RespondedAt,
	}
}

func ToAdmissionResponse(res intake.Result) AdmissionResponse {
	inq := ToInquiryResponse(res.Inquiry)
	inq.FlagReason = nil
	dup := res.DuplicateCheck.Summary()
	out := AdmissionResponse{
		Success:        true,
		Inquiry:        &inq,
		DuplicateCheck: &dup,
	}
	if b := res.Broker; b != nil {
		out.Broker = &BrokerResponse{ID: b.ID, Name: b.Name, Email: b.Email, Reason: b.Reason, Score: b.Score}
	}
	return out
}

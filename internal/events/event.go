// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"brokerage_intake/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Inquiry Intake Events
// =============================================================================

// Assignment reasons carried by BrokerAssigned.
const (
	AssignReasonListingBroker = "listing_broker"
	AssignReasonScored        = "scored"
	AssignReasonReassigned    = "reassigned"
)

// Failure reasons carried by AssignmentFailed.
const (
	AssignFailNoEligibleBroker = "no_eligible_broker"
	AssignFailEngineError      = "engine_error"
	AssignFailWriteFailed      = "write_failed"
)

// InquiryCreated is published after an inquiry has been admitted and committed.
type InquiryCreated struct {
	BaseEvent
	InquiryID        uuid.UUID  `json:"inquiryId"`
	PropertyID       uuid.UUID  `json:"propertyId"`
	ClientID         *uuid.UUID `json:"clientId,omitempty"`
	AssignedBrokerID *uuid.UUID `json:"assignedBrokerId,omitempty"`
	ContactName      string     `json:"contactName"`
	ContactEmail     string     `json:"contactEmail"`
	IsFlagged        bool       `json:"isFlagged"`
}

func (e InquiryCreated) EventName() string { return "inquiries.inquiry_created" }

// BrokerAssigned is published when an inquiry gets a responsible broker,
// either at admission or through reassignment.
type BrokerAssigned struct {
	BaseEvent
	InquiryID      uuid.UUID  `json:"inquiryId"`
	PropertyID     uuid.UUID  `json:"propertyId"`
	PreviousBroker *uuid.UUID `json:"previousBroker,omitempty"`
	BrokerID       uuid.UUID  `json:"brokerId"`
	BrokerName     string     `json:"brokerName"`
	BrokerEmail    string     `json:"brokerEmail"`
	Reason         string     `json:"reason"`
	Score          *float64   `json:"score,omitempty"`
}

func (e BrokerAssigned) EventName() string { return "inquiries.broker_assigned" }

// DuplicatePrevented is published when the duplicate detector flags or
// blocks a submission. Contact data is masked.
type DuplicatePrevented struct {
	BaseEvent
	PropertyID     uuid.UUID `json:"propertyId"`
	Action         string    `json:"action"`
	PositiveChecks []string  `json:"positiveChecks"`
	MaskedEmail    string    `json:"maskedEmail"`
	IPHash         string    `json:"ipHash"`
}

func (e DuplicatePrevented) EventName() string { return "inquiries.duplicate_prevented" }

// InquiryStatusChanged is published for every accepted status transition.
type InquiryStatusChanged struct {
	BaseEvent
	InquiryID uuid.UUID  `json:"inquiryId"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
}

func (e InquiryStatusChanged) EventName() string { return "inquiries.status_changed" }

// AssignmentFailed is published when an admitted inquiry is left without a
// broker so an operator can intervene.
type AssignmentFailed struct {
	BaseEvent
	InquiryID  uuid.UUID `json:"inquiryId"`
	PropertyID uuid.UUID `json:"propertyId"`
	Reason     string    `json:"reason"`
	Detail     string    `json:"detail,omitempty"`
}

func (e AssignmentFailed) EventName() string { return "inquiries.assignment_failed" }

// =============================================================================
// Notification Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// row is ready for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox_due" }

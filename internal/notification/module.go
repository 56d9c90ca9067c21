// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: the intake
// pipeline never needs to know about e-mail providers or templates. Every
// notification is written to the outbox first and delivered later by the
// scheduler worker.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"brokerage_intake/internal/email"
	"brokerage_intake/internal/events"
	notificationoutbox "brokerage_intake/internal/notification/outbox"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/logger"

	"github.com/google/uuid"
)

const (
	templateInquiryCreated     = "inquiry_created"
	templateBrokerAssigned     = "broker_assigned"
	templateDuplicatePrevented = "duplicate_prevented"
	templateStatusChanged      = "status_changed"
	templateAssignmentAlert    = "assignment_alert"
	templateAssignmentFailed   = "assignment_failed"

	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = 30 * time.Second
	outboxRetryMaxDelay        = 30 * time.Minute
	invalidOutboxPayloadPrefix = "invalid payload: "
)

// Outbox is the persistence surface the module needs.
type Outbox interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (notificationoutbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, retryAt time.Time, lastError string) error
}

type brokerAssignedPayload struct {
	ToEmail    string `json:"toEmail"`
	BrokerName string `json:"brokerName"`
	InquiryID  string `json:"inquiryId"`
	PropertyID string `json:"propertyId"`
	Reason     string `json:"reason"`
	Reassigned bool   `json:"reassigned"`
}

type assignmentAlertPayload struct {
	ToEmail    string `json:"toEmail"`
	InquiryID  string `json:"inquiryId"`
	PropertyID string `json:"propertyId"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// Module turns intake events into outbox records and delivers them.
type Module struct {
	outbox Outbox
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
	now    func() time.Time
}

func New(outbox Outbox, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{outbox: outbox, sender: sender, cfg: cfg, log: log, now: time.Now}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InquiryCreated{}.EventName(), m)
	bus.Subscribe(events.BrokerAssigned{}.EventName(), m)
	bus.Subscribe(events.DuplicatePrevented{}.EventName(), m)
	bus.Subscribe(events.InquiryStatusChanged{}.EventName(), m)
	bus.Subscribe(events.AssignmentFailed{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InquiryCreated:
		return m.record(ctx, notificationoutbox.KindLog, templateInquiryCreated, e)
	case events.BrokerAssigned:
		return m.handleBrokerAssigned(ctx, e)
	case events.DuplicatePrevented:
		return m.record(ctx, notificationoutbox.KindLog, templateDuplicatePrevented, e)
	case events.InquiryStatusChanged:
		return m.record(ctx, notificationoutbox.KindLog, templateStatusChanged, e)
	case events.AssignmentFailed:
		return m.handleAssignmentFailed(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleBrokerAssigned(ctx context.Context, e events.BrokerAssigned) error {
	if strings.TrimSpace(e.BrokerEmail) == "" {
		return m.record(ctx, notificationoutbox.KindLog, templateBrokerAssigned, e)
	}
	return m.record(ctx, notificationoutbox.KindEmail, templateBrokerAssigned, brokerAssignedPayload{
		ToEmail:    e.BrokerEmail,
		BrokerName: e.BrokerName,
		InquiryID:  e.InquiryID.String(),
		PropertyID: e.PropertyID.String(),
		Reason:     e.Reason,
		Reassigned: e.Reason == events.AssignReasonReassigned,
	})
}

func (m *Module) handleAssignmentFailed(ctx context.Context, e events.AssignmentFailed) error {
	to := ""
	if m.cfg != nil {
		to = strings.TrimSpace(m.cfg.GetOpsAlertAddress())
	}
	if to == "" {
		return m.record(ctx, notificationoutbox.KindLog, templateAssignmentFailed, e)
	}
	return m.record(ctx, notificationoutbox.KindEmail, templateAssignmentAlert, assignmentAlertPayload{
		ToEmail:    to,
		InquiryID:  e.InquiryID.String(),
		PropertyID: e.PropertyID.String(),
		Reason:     e.Reason,
		Detail:     e.Detail,
	})
}

func (m *Module) record(ctx context.Context, kind, template string, payload any) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; dropping notification", "template", template)
		return nil
	}
	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     kind,
		Template: template,
		Payload:  payload,
		RunAt:    m.now().UTC(),
	})
	if err != nil {
		m.log.Error("failed to enqueue notification", "kind", kind, "template", template, "error", err)
		return err
	}
	m.log.Info("outbox message enqueued", "outboxId", id.String(), "kind", kind, "template", template)
	return nil
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox repository not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}
	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	var processErr error
	switch {
	case rec.Kind == notificationoutbox.KindLog:
		processErr = m.processLogOutbox(ctx, rec)
	case rec.Kind == notificationoutbox.KindEmail && rec.Template == templateBrokerAssigned:
		processErr = m.processBrokerAssignedOutbox(ctx, rec)
	case rec.Kind == notificationoutbox.KindEmail && rec.Template == templateAssignmentAlert:
		processErr = m.processAssignmentAlertOutbox(ctx, rec)
	default:
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (notificationoutbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if errors.Is(err, notificationoutbox.ErrNotFound) {
		m.log.Warn("outbox record vanished; skipping", "outboxId", outboxID.String())
		return rec, false, nil
	}
	if err != nil {
		return notificationoutbox.Record{}, false, err
	}
	if rec.Status == notificationoutbox.StatusSucceeded || rec.Status == notificationoutbox.StatusFailed {
		m.log.Debug("outbox record already settled; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return notificationoutbox.Record{}, false, err
	}
	return rec, true, nil
}

// processLogOutbox settles a record whose only channel is the log. The
// payload is not logged; it may carry contact details.
func (m *Module) processLogOutbox(ctx context.Context, rec notificationoutbox.Record) error {
	m.log.Info("notification recorded", "outboxId", rec.ID.String(), "template", rec.Template, "payloadBytes", len(rec.Payload))
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) processBrokerAssignedOutbox(ctx context.Context, rec notificationoutbox.Record) error {
	var payload brokerAssignedPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if strings.TrimSpace(payload.ToEmail) == "" {
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}

	err := m.sender.SendBrokerAssignedEmail(ctx, payload.ToEmail, email.BrokerAssignedData{
		BrokerName: payload.BrokerName,
		InquiryID:  payload.InquiryID,
		PropertyID: payload.PropertyID,
		Reason:     payload.Reason,
		Reassigned: payload.Reassigned,
	})
	if err != nil {
		return err
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) processAssignmentAlertOutbox(ctx context.Context, rec notificationoutbox.Record) error {
	var payload assignmentAlertPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}

	err := m.sender.SendAssignmentAlertEmail(ctx, payload.ToEmail, email.AssignmentAlertData{
		InquiryID:  payload.InquiryID,
		PropertyID: payload.PropertyID,
		Reason:     payload.Reason,
		Detail:     payload.Detail,
	})
	if err != nil {
		return err
	}
	return m.outbox.MarkSucceeded(ctx, rec.ID)
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec notificationoutbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed", "outboxId", rec.ID.String(), "error", err)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec notificationoutbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

package email

import (
	"context"

	"brokerage_intake/platform/config"
	"brokerage_intake/platform/logger"
)

// Sender delivers the notification e-mails of the intake pipeline.
type Sender interface {
	SendBrokerAssignedEmail(ctx context.Context, toEmail string, data BrokerAssignedData) error
	SendAssignmentAlertEmail(ctx context.Context, toEmail string, data AssignmentAlertData) error
}

// BrokerAssignedData fills the broker hand-off template.
type BrokerAssignedData struct {
	BrokerName   string
	InquiryID    string
	PropertyID   string
	ContactName  string
	ContactEmail string
	Reason       string
	Reassigned   bool
}

// AssignmentAlertData fills the operator alert sent when an inquiry is left
// without a broker.
type AssignmentAlertData struct {
	InquiryID  string
	PropertyID string
	Reason     string
	Detail     string
}

// NewSender returns an SMTP sender when e-mail is enabled and a log-only
// sender otherwise.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		return NewLogSender(log)
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

// LogSender renders nothing and records each send as a log line.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendBrokerAssignedEmail(ctx context.Context, toEmail string, data BrokerAssignedData) error {
	s.log.WithContext(ctx).Info("email disabled; broker notification logged",
		"to", logger.MaskEmail(toEmail),
		"inquiryId", data.InquiryID,
		"reason", data.Reason,
	)
	return nil
}

func (s *LogSender) SendAssignmentAlertEmail(ctx context.Context, toEmail string, data AssignmentAlertData) error {
	s.log.WithContext(ctx).Warn("email disabled; assignment alert logged",
		"to", logger.MaskEmail(toEmail),
		"inquiryId", data.InquiryID,
		"reason", data.Reason,
	)
	return nil
}

package email

import (
	"bytes"
	"context"
	"net/mail"
	"strings"
	"testing"

	"brokerage_intake/platform/logger"
)

func TestRenderBrokerAssignedTemplate(t *testing.T) {
	out, err := renderEmailTemplate("broker_assigned.html", brokerAssignedEmailData{
		baseEmailData: baseEmailData{Title: "New inquiry", Heading: "New inquiry"},
		BrokerAssignedData: BrokerAssignedData{
			BrokerName:  "Bea <script>",
			InquiryID:   "inq-1",
			PropertyID:  "prop-1",
			ContactName: "Jane Doe",
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"New inquiry", "inq-1", "prop-1", "Jane Doe", "routed to you"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in rendered mail", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("template must escape broker name")
	}
}

func TestRenderReassignedVariant(t *testing.T) {
	out, err := renderEmailTemplate("broker_assigned.html", brokerAssignedEmailData{
		BrokerAssignedData: BrokerAssignedData{BrokerName: "Bea", Reassigned: true},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "no longer available") {
		t.Fatalf("expected reassignment wording")
	}
}

func TestRenderAssignmentAlertTemplate(t *testing.T) {
	out, err := renderEmailTemplate("assignment_alert.html", assignmentAlertEmailData{
		AssignmentAlertData: AssignmentAlertData{InquiryID: "inq-2", Reason: "no_eligible_broker"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "no_eligible_broker") || !strings.Contains(out, "inq-2") {
		t.Fatalf("alert is missing inquiry details: %s", out)
	}
}

func TestSMTPMessageHeaders(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "intake@example.com", "Brokerage")
	msg, err := s.message("bea@example.com", subjectBrokerAssigned, "<p>hi</p>")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	rcpts, err := msg.GetRecipients()
	if err != nil {
		t.Fatalf("recipients: %v", err)
	}
	if len(rcpts) != 1 {
		t.Fatalf("unexpected recipients %v", rcpts)
	}
	addr, err := mail.ParseAddress(rcpts[0])
	if err != nil || addr.Address != "bea@example.com" {
		t.Fatalf("unexpected recipient %q", rcpts[0])
	}
	if _, err := s.message("not an address", "x", "y"); err == nil {
		t.Fatalf("expected invalid recipient to fail")
	}
}

type disabledConfig struct{}

func (disabledConfig) GetEmailEnabled() bool       { return false }
func (disabledConfig) GetSMTPHost() string         { return "" }
func (disabledConfig) GetSMTPPort() int            { return 0 }
func (disabledConfig) GetSMTPUsername() string     { return "" }
func (disabledConfig) GetSMTPPassword() string     { return "" }
func (disabledConfig) GetEmailFromName() string    { return "" }
func (disabledConfig) GetEmailFromAddress() string { return "" }

func TestNewSenderFallsBackToLogWithoutLeakingAddress(t *testing.T) {
	var buf bytes.Buffer
	sender := NewSender(disabledConfig{}, logger.NewWithWriter("production", &buf))
	if _, ok := sender.(*LogSender); !ok {
		t.Fatalf("expected log sender when e-mail is disabled, got %T", sender)
	}

	if err := sender.SendBrokerAssignedEmail(context.Background(), "bea.broker@example.com", BrokerAssignedData{InquiryID: "inq-3"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(buf.String(), "bea.broker@example.com") {
		t.Fatalf("log sender leaked the recipient: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "inq-3") {
		t.Fatalf("expected inquiry id in log: %s", buf.String())
	}
}

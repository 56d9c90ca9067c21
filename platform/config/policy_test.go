package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultAdmissionPolicyIsValid(t *testing.T) {
	p := DefaultAdmissionPolicy()
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy should validate: %v", err)
	}
	if p.IPLimit != 5 || p.IPWindow != time.Hour {
		t.Fatalf("unexpected ip defaults: %d/%s", p.IPLimit, p.IPWindow)
	}
	if p.EmailLimit != 3 || p.EmailWindow != 24*time.Hour {
		t.Fatalf("unexpected email defaults: %d/%s", p.EmailLimit, p.EmailWindow)
	}
}

func TestLoadPolicyFileOverlaysBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
ip_limit: 10
email_window: 12h
business_hours:
  enabled: true
  start: "09:30"
  end: "17:00"
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	p, err := LoadPolicyFile(path, DefaultAdmissionPolicy())
	if err != nil {
		t.Fatalf("LoadPolicyFile: %v", err)
	}
	if p.IPLimit != 10 {
		t.Fatalf("expected ip_limit override, got %d", p.IPLimit)
	}
	if p.EmailWindow != 12*time.Hour {
		t.Fatalf("expected email_window override, got %s", p.EmailWindow)
	}
	if p.EmailLimit != 3 {
		t.Fatalf("expected email_limit to keep base value, got %d", p.EmailLimit)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("overlaid policy should validate: %v", err)
	}
	start, end, err := p.BusinessHours.Window()
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if start != 9*60+30 || end != 17*60 {
		t.Fatalf("unexpected window %d-%d", start, end)
	}
}

func TestValidateRejectsInvertedBusinessHours(t *testing.T) {
	p := DefaultAdmissionPolicy()
	p.BusinessHours = BusinessHours{Enabled: true, Start: "18:00", End: "08:00"}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected inverted business hours to fail validation")
	}
}

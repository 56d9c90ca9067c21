package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AdmissionPolicy holds the tunable thresholds of the inquiry admission gate.
// It is resolved once at startup and passed to the rate limiter and
// validation gate by value.
type AdmissionPolicy struct {
	IPLimit                  int           `yaml:"ip_limit"`
	IPWindow                 time.Duration `yaml:"ip_window"`
	EmailLimit               int           `yaml:"email_limit"`
	EmailWindow              time.Duration `yaml:"email_window"`
	EligiblePropertyStatuses []string      `yaml:"eligible_property_statuses"`
	PhoneRegion              string        `yaml:"phone_region"`
	BusinessHours            BusinessHours `yaml:"business_hours"`
}

// BusinessHours restricts submissions to Monday through Friday between Start and End
// (local clock in Timezone) when Enabled.
type BusinessHours struct {
	Enabled  bool   `yaml:"enabled"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

// DefaultAdmissionPolicy returns the stock thresholds.
func DefaultAdmissionPolicy() AdmissionPolicy {
	return AdmissionPolicy{
		IPLimit:                  5,
		IPWindow:                 time.Hour,
		EmailLimit:               3,
		EmailWindow:              24 * time.Hour,
		EligiblePropertyStatuses: []string{"active", "available"},
		PhoneRegion:              "US",
		BusinessHours: BusinessHours{
			Enabled:  false,
			Start:    "08:00",
			End:      "18:00",
			Timezone: "UTC",
		},
	}
}

// Validate reports the first inconsistent setting.
func (p AdmissionPolicy) Validate() error {
	if p.IPLimit < 1 || p.IPWindow <= 0 {
		return fmt.Errorf("intake ip limit and window must be positive")
	}
	if p.EmailLimit < 1 || p.EmailWindow <= 0 {
		return fmt.Errorf("intake email limit and window must be positive")
	}
	if len(p.EligiblePropertyStatuses) == 0 {
		return fmt.Errorf("at least one eligible property status is required")
	}
	if !p.BusinessHours.Enabled {
		return nil
	}
	start, end, err := p.BusinessHours.Window()
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("business hours start %q must be before end %q", p.BusinessHours.Start, p.BusinessHours.End)
	}
	if _, err := p.BusinessHours.Location(); err != nil {
		return err
	}
	return nil
}

// Window returns start and end as minutes after midnight.
func (b BusinessHours) Window() (int, int, error) {
	start, err := parseClock(b.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("business hours start: %w", err)
	}
	end, err := parseClock(b.End)
	if err != nil {
		return 0, 0, fmt.Errorf("business hours end: %w", err)
	}
	return start, end, nil
}

// Location resolves the configured IANA timezone.
func (b BusinessHours) Location() (*time.Location, error) {
	tz := strings.TrimSpace(b.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("business hours timezone: %w", err)
	}
	return loc, nil
}

// LoadPolicyFile overlays a YAML policy file on top of base.
// Keys missing from the file keep their base value.
func LoadPolicyFile(path string, base AdmissionPolicy) (AdmissionPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AdmissionPolicy{}, err
	}
	policy := base
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return AdmissionPolicy{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return policy, nil
}

func applyPolicyEnv(p AdmissionPolicy) AdmissionPolicy {
	if v := getEnv("INTAKE_IP_LIMIT", ""); v != "" {
		p.IPLimit = mustInt(v)
	}
	if v := getEnv("INTAKE_IP_WINDOW", ""); v != "" {
		p.IPWindow = mustDuration(v)
	}
	if v := getEnv("INTAKE_EMAIL_LIMIT", ""); v != "" {
		p.EmailLimit = mustInt(v)
	}
	if v := getEnv("INTAKE_EMAIL_WINDOW", ""); v != "" {
		p.EmailWindow = mustDuration(v)
	}
	if v := getEnv("INTAKE_ELIGIBLE_PROPERTY_STATUSES", ""); v != "" {
		p.EligiblePropertyStatuses = splitCSV(v)
	}
	if v := getEnv("PHONE_DEFAULT_REGION", ""); v != "" {
		p.PhoneRegion = strings.ToUpper(strings.TrimSpace(v))
	}
	if v := getEnv("INTAKE_BUSINESS_HOURS_ENABLED", ""); v != "" {
		p.BusinessHours.Enabled = strings.EqualFold(v, "true")
	}
	if v := getEnv("INTAKE_BUSINESS_HOURS_START", ""); v != "" {
		p.BusinessHours.Start = v
	}
	if v := getEnv("INTAKE_BUSINESS_HOURS_END", ""); v != "" {
		p.BusinessHours.End = v
	}
	if v := getEnv("INTAKE_TIMEZONE", ""); v != "" {
		p.BusinessHours.Timezone = v
	}
	return p
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

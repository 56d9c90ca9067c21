// Package domain provides the core business rules of the inquiry intake
// pipeline: the status lifecycle, duplicate decision reduction, text
// similarity and broker scoring. Everything here is pure.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an inquiry.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusClosed    Status = "closed"
)

// ErrIllegalTransition is returned when the target status is not reachable
// from the current one.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrUnknownStatus is returned by ParseStatus for values outside the enum.
var ErrUnknownStatus = errors.New("unknown inquiry status")

// transitions lists every legal target per source. Terminal states map to nil.
var transitions = map[Status][]Status{
	StatusNew:       {StatusContacted, StatusClosed},
	StatusContacted: {StatusScheduled, StatusClosed},
	StatusScheduled: {StatusCompleted, StatusClosed},
	StatusCompleted: nil,
	StatusClosed:    nil,
}

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusScheduled, StatusCompleted, StatusClosed}
}

// OpenStatuses are the statuses that still need broker attention.
func OpenStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusScheduled}
}

// ParseStatus accepts any casing.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return s, nil
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// IsOpen reports whether the inquiry still awaits handling.
func (s Status) IsOpen() bool {
	return s == StatusNew || s == StatusContacted || s == StatusScheduled
}

// CanTransition reports whether target is directly reachable from s.
func (s Status) CanTransition(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Timestamps are the lifecycle stamps of an inquiry.
type Timestamps struct {
	ContactedAt *time.Time
	ScheduledAt *time.Time
	RespondedAt *time.Time
}

// Transition validates current -> target and returns the stamps to persist.
// contacted_at is set once, scheduled_at on every entry into scheduled, and
// responded_at on the first terminal transition.
func Transition(current, target Status, stamps Timestamps, now time.Time) (Timestamps, error) {
	if !current.CanTransition(target) {
		return stamps, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, target)
	}

	at := now.UTC()
	switch target {
	case StatusContacted:
		if stamps.ContactedAt == nil {
			stamps.ContactedAt = &at
		}
	case StatusScheduled:
		stamps.ScheduledAt = &at
	case StatusCompleted, StatusClosed:
		if stamps.RespondedAt == nil {
			stamps.RespondedAt = &at
		}
	}
	return stamps, nil
}

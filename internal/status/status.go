// Package status maps raw upstream transaction strings to a closed set of display classes.
package status

import (
	"strings"

	"ReceiptPoll/internal/models"
)

type Class int

const (
	FailedOrUnknown Class = iota
	Pending
	Succeeded
)

func (c Class) String() string {
	switch c {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	default:
		return "failed_or_unknown"
	}
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText. Anything else decodes to FailedOrUnknown.
func (c *Class) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*c = Pending
	case "succeeded":
		*c = Succeeded
	default:
		*c = FailedOrUnknown
	}
	return nil
}

// Policy enumerates the raw strings a call site treats as success, pending and failure.
// Anything outside Succeeded and Pending classifies as FailedOrUnknown.
type Policy struct {
	Succeeded []string
	Pending   []string
	Failed    []string
}

var (
	pendingSet = []string{string(models.StatusPending), string(models.StatusCreated)}
	failedSet  = []string{string(models.StatusFailed), string(models.StatusExpired), "CANCEL", "CANCELLED", "DENY"}
)

var (
	CirclePolicy = Policy{
		Succeeded: []string{string(models.StatusSuccess), string(models.StatusSettlement), string(models.StatusSucceeded)},
		Pending:   pendingSet,
		Failed:    failedSet,
	}
	EventPolicy = Policy{
		Succeeded: []string{string(models.StatusSettlement), string(models.StatusSucceeded)},
		Pending:   pendingSet,
		Failed:    failedSet,
	}
	TournamentPolicy = Policy{
		Succeeded: []string{string(models.StatusSettlement), string(models.StatusSucceeded), string(models.StatusSuccess)},
		Pending:   pendingSet,
		Failed:    failedSet,
	}
)

func (p Policy) Classify(raw string) Class {
	raw = strings.TrimSpace(raw)
	switch {
	case contains(p.Succeeded, raw):
		return Succeeded
	case contains(p.Pending, raw):
		return Pending
	default:
		return FailedOrUnknown
	}
}

// Terminal reports whether raw is final: an explicit success or an explicit failure.
// Unknown strings are not terminal so pollers keep asking.
func (p Policy) Terminal(raw string) bool {
	raw = strings.TrimSpace(raw)
	return contains(p.Succeeded, raw) || contains(p.Failed, raw)
}

func contains(set []string, raw string) bool {
	if raw == "" {
		return false
	}
	for _, s := range set {
		if s == raw {
			return true
		}
	}
	return false
}

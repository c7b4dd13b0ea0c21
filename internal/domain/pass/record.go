package pass

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxPerMonth is the largest allowed monthly quota.
	MaxPerMonth = 31
	// MaxReasonLength is the maximum reason length in characters, after trimming.
	MaxReasonLength = 500
)

// Entry records one consumed pass.
type Entry struct {
	UsedAt time.Time `json:"used_at"`
	Reason string    `json:"reason"`
}

// Record is the durable pass ledger state of an installation.
type Record struct {
	CurrentMonth    Month             `json:"current_month"`
	Remaining       uint32            `json:"remaining"`
	PerMonth        uint32            `json:"per_month"`
	PendingPerMonth *uint32           `json:"pending_per_month,omitempty"`
	History         map[Month][]Entry `json:"history"`
}

// NewRecord creates a fresh record with a full quota for month.
func NewRecord(perMonth uint32, month Month) Record {
	return Record{
		CurrentMonth: month,
		Remaining:    perMonth,
		PerMonth:     perMonth,
		History:      make(map[Month][]Entry),
	}
}

// NormalizeReason trims reason and checks its length.
func NormalizeReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "", ErrEmptyReason
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxReasonLength {
		return "", &ReasonTooLongError{Max: MaxReasonLength, Actual: n}
	}
	return trimmed, nil
}

// ValidateQuota checks that q is within 0..MaxPerMonth.
func ValidateQuota(q uint32) error {
	if q > MaxPerMonth {
		return fmt.Errorf("%w: %d, want 0-%d", ErrQuotaOutOfRange, q, MaxPerMonth)
	}
	return nil
}

// RollTo advances the record to month m. When m differs from CurrentMonth
// the pending quota (if any) becomes active, Remaining is refilled and
// CurrentMonth moves to m. History is untouched. It reports whether
// anything changed.
func (r *Record) RollTo(m Month) bool {
	if r.CurrentMonth == m {
		return false
	}
	if r.PendingPerMonth != nil {
		r.PerMonth = *r.PendingPerMonth
		r.PendingPerMonth = nil
	}
	r.Remaining = r.PerMonth
	r.CurrentMonth = m
	return true
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() Record {
	c := *r
	if r.PendingPerMonth != nil {
		p := *r.PendingPerMonth
		c.PendingPerMonth = &p
	}
	c.History = make(map[Month][]Entry, len(r.History))
	for m, entries := range r.History {
		c.History[m] = append([]Entry(nil), entries...)
	}
	return c
}

// Status summarises the active month.
func (r *Record) Status() Status {
	s := Status{
		Month:     r.CurrentMonth,
		Remaining: r.Remaining,
		PerMonth:  r.PerMonth,
	}
	if r.PerMonth > r.Remaining {
		s.UsedThisMonth = r.PerMonth - r.Remaining
	}
	if r.PendingPerMonth != nil {
		p := *r.PendingPerMonth
		s.PendingPerMonth = &p
	}
	return s
}

// Status is a read-only view of the active month's allowance.
type Status struct {
	Month           Month
	Remaining       uint32
	PerMonth        uint32
	UsedThisMonth   uint32
	PendingPerMonth *uint32
}

// MarshalRecord encodes r in its durable JSON form.
func MarshalRecord(r Record) ([]byte, error) {
	if r.History == nil {
		r.History = make(map[Month][]Entry)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pass record: %w", err)
	}
	return append(data, '\n'), nil
}

// UnmarshalRecord decodes and validates a durable record.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal pass record: %w", err)
	}
	if !IsValidMonth(string(r.CurrentMonth)) {
		return Record{}, fmt.Errorf("current_month %q: %w", r.CurrentMonth, ErrInvalidMonth)
	}
	if err := ValidateQuota(r.PerMonth); err != nil {
		return Record{}, fmt.Errorf("per_month: %w", err)
	}
	if r.PendingPerMonth != nil {
		if err := ValidateQuota(*r.PendingPerMonth); err != nil {
			return Record{}, fmt.Errorf("pending_per_month: %w", err)
		}
	}
	if r.Remaining > r.PerMonth {
		return Record{}, fmt.Errorf("remaining %d exceeds per_month %d", r.Remaining, r.PerMonth)
	}
	if r.History == nil {
		r.History = make(map[Month][]Entry)
	}
	return r, nil
}

package pass

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyReason signals a reason that is empty after trimming.
	ErrEmptyReason = errors.New("reason must not be empty")
	// ErrReasonTooLong signals a reason longer than MaxReasonLength.
	ErrReasonTooLong = errors.New("reason too long")
	// ErrNoPassesRemaining signals an exhausted monthly quota.
	ErrNoPassesRemaining = errors.New("no passes remaining")
	// ErrQuotaOutOfRange signals a monthly quota outside 0..MaxPerMonth.
	ErrQuotaOutOfRange = errors.New("passes per month out of range")
	// ErrInvalidMonth signals a malformed month token.
	ErrInvalidMonth = errors.New("invalid month")
)

// ReasonTooLongError wraps ErrReasonTooLong with the limit and the actual length.
type ReasonTooLongError struct {
	Max    int
	Actual int
}

func (e *ReasonTooLongError) Error() string {
	return fmt.Sprintf("%s: %d characters, max %d", ErrReasonTooLong.Error(), e.Actual, e.Max)
}

func (e *ReasonTooLongError) Unwrap() error { return ErrReasonTooLong }

// NoPassesRemainingError wraps ErrNoPassesRemaining with the exhausted month and its quota.
type NoPassesRemainingError struct {
	Month Month
	Max   uint32
}

func (e *NoPassesRemainingError) Error() string {
	return fmt.Sprintf("%s: all %d passes for %s used", ErrNoPassesRemaining.Error(), e.Max, e.Month)
}

func (e *NoPassesRemainingError) Unwrap() error { return ErrNoPassesRemaining }

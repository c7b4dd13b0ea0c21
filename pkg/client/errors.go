package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors matched by *APIError through errors.Is.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrNoPassesRemaining    = errors.New("no passes remaining")
	ErrEmptyReason          = errors.New("reason must not be empty")
	ErrReasonTooLong        = errors.New("reason too long")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidPassesCount   = errors.New("passes per month out of range")
	ErrDeviceNotConfigured  = errors.New("bluetooth device not configured")
	ErrBluetoothUnavailable = errors.New("bluetooth unavailable")
)

var codeSentinels = map[string]error{
	"unauthorized":          ErrUnauthorized,
	"not_found":             ErrNotFound,
	"no_passes_remaining":   ErrNoPassesRemaining,
	"empty_reason":          ErrEmptyReason,
	"reason_too_long":       ErrReasonTooLong,
	"invalid_month_format":  ErrInvalidMonth,
	"invalid_passes_count":  ErrInvalidPassesCount,
	"device_not_configured": ErrDeviceNotConfigured,
	"bluetooth_unavailable": ErrBluetoothUnavailable,
	"bluetooth_scan_failed": ErrBluetoothUnavailable,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("tether: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tether: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is matches the sentinel that corresponds to the error code.
func (e *APIError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// ResetsAt returns when passes refill, for ErrNoPassesRemaining responses.
func (e *APIError) ResetsAt() (time.Time, bool) {
	if len(e.Details) == 0 {
		return time.Time{}, false
	}
	var d struct {
		ResetsAtUTC time.Time `json:"resets_at_utc"`
	}
	if err := json.Unmarshal(e.Details, &d); err != nil || d.ResetsAtUTC.IsZero() {
		return time.Time{}, false
	}
	return d.ResetsAtUTC, true
}

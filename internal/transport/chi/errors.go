package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/domain/pass"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// clientMessages maps domain errors to the message shown to API clients.
// Order matters: the first match wins.
var clientMessages = []struct {
	err error
	msg string
}{
	{pass.ErrEmptyReason, "Reason must not be empty"},
	{pass.ErrNoPassesRemaining, "No passes remaining for this month"},
	{pass.ErrQuotaOutOfRange, fmt.Sprintf("Passes per month must be between 0 and %d", pass.MaxPerMonth)},
	{pass.ErrInvalidMonth, "Month must be in YYYY-MM format (e.g., 2025-01)"},
	{device.ErrInvalidAddress, "Bluetooth address must be in format XX:XX:XX:XX:XX:XX"},
	{device.ErrInvalidRSSIThreshold, "RSSI threshold must be between -100 and 0 dBm"},
	{device.ErrInvalidTimezone, "Unknown timezone. Use IANA timezone names (e.g., 'America/Los_Angeles')."},
	{domain.ErrOnboardingComplete, "Onboarding has already been completed"},
	{domain.ErrDeviceNotConfigured, "No Bluetooth device has been configured. Complete onboarding first."},
	{domain.ErrScannerUnavailable, "Bluetooth adapter is not available"},
	{domain.ErrScanFailed, "Bluetooth scan failed"},
	{domain.ErrSettingsSave, "Failed to save configuration"},
	{domain.ErrWriteFailure, "Failed to persist pass ledger"},
}

// safeDomainMessage returns a client message for err without exposing internals.
func safeDomainMessage(err error) string {
	var tooLong *pass.ReasonTooLongError
	if errors.As(err, &tooLong) {
		return fmt.Sprintf("Reason must be at most %d characters (got %d)", tooLong.Max, tooLong.Actual)
	}
	for _, m := range clientMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// noPassesHandler answers an exhausted quota with 409 and the next reset time.
func noPassesHandler(nextReset func() time.Time) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, pass.ErrNoPassesRemaining) {
			return false
		}
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   CodeNoPassesRemaining,
			Message: msg,
			Details: NoPassesDetails{
				Remaining:   0,
				ResetsAtUTC: formatTime(nextReset()),
			},
		})
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// formatTime renders t as RFC 3339 in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

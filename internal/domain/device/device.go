// Package device describes the paired phone and Bluetooth scan results.
package device

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // embedded zoneinfo for hosts without /usr/share/zoneinfo
)

// UnconfiguredAddress is the placeholder address before a phone is paired.
const UnconfiguredAddress = "00:00:00:00:00:00"

// RSSI threshold bounds in dBm.
const (
	MinRSSIThreshold     = -100
	MaxRSSIThreshold     = 0
	DefaultRSSIThreshold = -60
)

var (
	// ErrInvalidAddress signals a malformed Bluetooth MAC address.
	ErrInvalidAddress = errors.New("bluetooth address must be in format XX:XX:XX:XX:XX:XX")
	// ErrInvalidRSSIThreshold signals a threshold outside -100..0 dBm.
	ErrInvalidRSSIThreshold = errors.New("rssi threshold must be between -100 and 0 dBm")
	// ErrInvalidTimezone signals an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("unknown timezone")
)

var macRegex = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)

// IsValidAddress reports whether s looks like XX:XX:XX:XX:XX:XX.
func IsValidAddress(s string) bool {
	return macRegex.MatchString(s)
}

// NormalizeAddress validates s and returns it upper-cased.
func NormalizeAddress(s string) (string, error) {
	if !IsValidAddress(s) {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidAddress)
	}
	return strings.ToUpper(s), nil
}

// ValidateRSSIThreshold checks v against the allowed range.
func ValidateRSSIThreshold(v int) error {
	if v < MinRSSIThreshold || v > MaxRSSIThreshold {
		return fmt.Errorf("%w, got %d", ErrInvalidRSSIThreshold, v)
	}
	return nil
}

// LoadTimezone loads an IANA timezone. The empty name is rejected rather
// than silently meaning UTC.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// Target is the phone whose proximity is checked.
type Target struct {
	Address       string
	Name          string
	RSSIThreshold int
}

// Configured reports whether a real phone has been paired.
func (t Target) Configured() bool {
	return t.Address != "" && t.Address != UnconfiguredAddress
}

// Device is one Bluetooth device seen during a scan.
type Device struct {
	Address string
	Name    string
	RSSI    *int // nil when the adapter reported no signal strength
}

// Proximity is the result of one proximity check.
type Proximity struct {
	Target    Target
	Nearby    bool
	RSSI      *int
	CheckedAt time.Time
}

// IsNearby reports whether rssi meets the threshold. Unknown signal
// strength counts as away.
func IsNearby(rssi *int, threshold int) bool {
	return rssi != nil && *rssi >= threshold
}

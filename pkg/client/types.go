package client

import "time"

// Passes is the pass allowance of the current month.
type Passes struct {
	Remaining       uint32    `json:"remaining"`
	TotalPerMonth   uint32    `json:"total_per_month"`
	UsedThisMonth   uint32    `json:"used_this_month"`
	Month           string    `json:"month"`
	PendingPerMonth *uint32   `json:"pending_per_month,omitempty"`
	ResetsAt        time.Time `json:"resets_at_utc"`
	Timezone        string    `json:"timezone"`
}

// HistoryEntry is one used pass.
type HistoryEntry struct {
	UsedAt time.Time `json:"used_at_utc"`
	Reason string    `json:"reason"`
}

// History lists the passes used in a month.
type History struct {
	Month         string         `json:"month"`
	Entries       []HistoryEntry `json:"entries"`
	TotalUsed     int            `json:"total_used"`
	TotalPerMonth uint32         `json:"total_per_month"`
}

// UsedPass is the result of UsePass.
type UsedPass struct {
	Remaining uint32    `json:"remaining"`
	UsedAt    time.Time `json:"used_at_utc"`
	Reason    string    `json:"reason"`
}

// QuotaChange is the result of SetQuota.
type QuotaChange struct {
	PerMonth uint32 `json:"per_month"`
	Pending  bool   `json:"pending"`
	Message  string `json:"message"`
}

// Proximity reports whether the paired phone is near.
type Proximity struct {
	DeviceName    string    `json:"device_name"`
	DeviceAddress string    `json:"device_address"`
	IsNearby      bool      `json:"is_nearby"`
	RSSI          *int      `json:"rssi_dbm"`
	Threshold     int       `json:"threshold_dbm"`
	CheckedAt     time.Time `json:"checked_at_utc"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status             string            `json:"status"` // "ok", "degraded"
	Version            string            `json:"version"`
	OnboardingComplete bool              `json:"onboarding_complete"`
	Checks             map[string]string `json:"checks"` // component → "ok"/"error"/"unavailable"
}

package chi

// ErrorCode is the machine-readable error identifier in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeInvalidRequest          ErrorCode = "invalid_request"
	CodeUnauthorized            ErrorCode = "unauthorized"
	CodeNotFound                ErrorCode = "not_found"
	CodeMethodNotAllowed        ErrorCode = "method_not_allowed"
	CodeInternalError           ErrorCode = "internal_error"
	CodePersistenceError        ErrorCode = "persistence_error"
	CodeEmptyReason             ErrorCode = "empty_reason"
	CodeReasonTooLong           ErrorCode = "reason_too_long"
	CodeNoPassesRemaining       ErrorCode = "no_passes_remaining"
	CodeInvalidMonthFormat      ErrorCode = "invalid_month_format"
	CodeInvalidPassesCount      ErrorCode = "invalid_passes_count"
	CodeInvalidBluetoothAddress ErrorCode = "invalid_bluetooth_address"
	CodeInvalidRSSIThreshold    ErrorCode = "invalid_rssi_threshold"
	CodeInvalidTimezone         ErrorCode = "invalid_timezone"
	CodeConfigSaveFailed        ErrorCode = "config_save_failed"
	CodeAlreadyComplete         ErrorCode = "already_complete"
	CodePrerequisitesNotMet     ErrorCode = "prerequisites_not_met"
	CodeDeviceNotConfigured     ErrorCode = "device_not_configured"
	CodeBluetoothUnavailable    ErrorCode = "bluetooth_unavailable"
	CodeBluetoothScanFailed     ErrorCode = "bluetooth_scan_failed"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   ErrorCode `json:"error"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// NoPassesDetails accompanies CodeNoPassesRemaining.
type NoPassesDetails struct {
	Remaining   uint32 `json:"remaining"`
	ResetsAtUTC string `json:"resets_at_utc"`
}

// --- Passes ---

// PassesResponse is the body of GET /api/passes.
type PassesResponse struct {
	Remaining       uint32  `json:"remaining"`
	TotalPerMonth   uint32  `json:"total_per_month"`
	UsedThisMonth   uint32  `json:"used_this_month"`
	Month           string  `json:"month"`
	PendingPerMonth *uint32 `json:"pending_per_month,omitempty"`
	ResetsAtUTC     string  `json:"resets_at_utc"`
	Timezone        string  `json:"timezone"`
}

// HistoryEntry is one used pass.
type HistoryEntry struct {
	UsedAtUTC string `json:"used_at_utc"`
	Reason    string `json:"reason"`
}

// HistoryResponse is the body of GET /api/passes/history.
type HistoryResponse struct {
	Month         string         `json:"month"`
	Entries       []HistoryEntry `json:"entries"`
	TotalUsed     int            `json:"total_used"`
	TotalPerMonth uint32         `json:"total_per_month"`
}

// UsePassRequest is the body of POST /api/passes/use.
type UsePassRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// UsePassResponse is returned after a pass is used.
type UsePassResponse struct {
	Success   bool   `json:"success"`
	Remaining uint32 `json:"remaining"`
	UsedAtUTC string `json:"used_at_utc"`
	Reason    string `json:"reason"`
}

// --- Config ---

// BluetoothConfig is the paired phone as shown by the API.
type BluetoothConfig struct {
	TargetAddress string `json:"target_address"`
	TargetName    string `json:"target_name"`
	RSSIThreshold int    `json:"rssi_threshold"`
	IsConfigured  bool   `json:"is_configured"`
}

// ConfigResponse is the body of GET /api/config.
type ConfigResponse struct {
	Bluetooth          BluetoothConfig `json:"bluetooth"`
	Timezone           string          `json:"timezone"`
	PassesPerMonth     uint32          `json:"passes_per_month"`
	OnboardingComplete bool            `json:"onboarding_complete"`
}

// UpdatePassesRequest is the body of PUT /api/config/passes.
type UpdatePassesRequest struct {
	PerMonth *uint32 `json:"per_month" validate:"required,max=31"`
}

// UpdatePassesResponse reports whether the new quota is active or pending.
type UpdatePassesResponse struct {
	Success  bool   `json:"success"`
	PerMonth uint32 `json:"per_month"`
	Pending  bool   `json:"pending"`
	Message  string `json:"message"`
}

// UpdateBluetoothRequest is the body of PUT /api/config/bluetooth.
type UpdateBluetoothRequest struct {
	TargetAddress string `json:"target_address" validate:"required"`
	TargetName    string `json:"target_name"`
	RSSIThreshold *int   `json:"rssi_threshold" validate:"omitempty,min=-100,max=0"`
}

// UpdateBluetoothResponse echoes the stored target.
type UpdateBluetoothResponse struct {
	Success   bool            `json:"success"`
	Bluetooth BluetoothConfig `json:"bluetooth"`
}

// UpdateTimezoneRequest is the body of PUT /api/config/timezone.
type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required"`
}

// UpdateTimezoneResponse echoes the stored timezone.
type UpdateTimezoneResponse struct {
	Success  bool   `json:"success"`
	Timezone string `json:"timezone"`
}

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// --- Bluetooth ---

// ProximityResponse is the body of GET /api/proximity.
type ProximityResponse struct {
	DeviceName    string `json:"device_name"`
	DeviceAddress string `json:"device_address"`
	IsNearby      bool   `json:"is_nearby"`
	RSSIDbm       *int   `json:"rssi_dbm"`
	ThresholdDbm  int    `json:"threshold_dbm"`
	CheckedAtUTC  string `json:"checked_at_utc"`
}

// DiscoveredDevice is one device seen by a scan.
type DiscoveredDevice struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	RSSIDbm *int   `json:"rssi_dbm"`
}

// DevicesResponse is the body of GET /api/devices.
type DevicesResponse struct {
	Devices          []DiscoveredDevice `json:"devices"`
	ScanDurationSecs uint64             `json:"scan_duration_secs"`
	ScannedAtUTC     string             `json:"scanned_at_utc"`
}

// --- System ---

// SystemStatusResponse is the body of GET /api/system/status.
type SystemStatusResponse struct {
	Version            string `json:"version"`
	UptimeSecs         uint64 `json:"uptime_secs"`
	BluetoothAvailable bool   `json:"bluetooth_available"`
	ConfigLoaded       bool   `json:"config_loaded"`
	OnboardingComplete bool   `json:"onboarding_complete"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status             string            `json:"status"`
	Version            string            `json:"version"`
	OnboardingComplete bool              `json:"onboarding_complete"`
	Checks             map[string]string `json:"checks"`
}

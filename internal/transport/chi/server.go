package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tether-home/tether/internal/config"
	"github.com/tether-home/tether/internal/domain"
	"github.com/tether-home/tether/internal/domain/device"
	"github.com/tether-home/tether/internal/domain/pass"
	healthuc "github.com/tether-home/tether/internal/usecase/health"
	passesuc "github.com/tether-home/tether/internal/usecase/passes"
	proximityuc "github.com/tether-home/tether/internal/usecase/proximity"
	settingsuc "github.com/tether-home/tether/internal/usecase/settings"
)

// Server serves the tether HTTP API.
type Server struct {
	passes        *passesuc.Service
	settings      *settingsuc.Service
	proximity     *proximityuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	version       string
	startedAt     time.Time
	now           func() time.Time
	validate      *validator.Validate
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. startedAt is reported as the
// process start in /api/system/status.
func NewServer(
	passes *passesuc.Service,
	settings *settingsuc.Service,
	proximity *proximityuc.Service,
	health *healthuc.Service,
	version string,
	startedAt time.Time,
	logger *zap.Logger,
) *Server {
	s := &Server{
		passes:    passes,
		settings:  settings,
		proximity: proximity,
		health:    health,
		logger:    logger,
		version:   version,
		startedAt: startedAt,
		now:       time.Now,
		validate:  validator.New(),
	}
	s.errorHandlers = []errorHandler{
		noPassesHandler(func() time.Time { return s.settings.NextReset(s.now()) }),
		sentinelHandler(pass.ErrEmptyReason, http.StatusBadRequest, CodeEmptyReason),
		sentinelHandler(pass.ErrReasonTooLong, http.StatusBadRequest, CodeReasonTooLong),
		sentinelHandler(pass.ErrQuotaOutOfRange, http.StatusBadRequest, CodeInvalidPassesCount),
		sentinelHandler(pass.ErrInvalidMonth, http.StatusBadRequest, CodeInvalidMonthFormat),
		sentinelHandler(device.ErrInvalidAddress, http.StatusBadRequest, CodeInvalidBluetoothAddress),
		sentinelHandler(device.ErrInvalidRSSIThreshold, http.StatusBadRequest, CodeInvalidRSSIThreshold),
		sentinelHandler(device.ErrInvalidTimezone, http.StatusBadRequest, CodeInvalidTimezone),
		sentinelHandler(domain.ErrOnboardingComplete, http.StatusBadRequest, CodeAlreadyComplete),
		sentinelHandler(domain.ErrDeviceNotConfigured, http.StatusFailedDependency, CodeDeviceNotConfigured),
		sentinelHandler(domain.ErrScannerUnavailable, http.StatusServiceUnavailable, CodeBluetoothUnavailable),
		sentinelHandler(domain.ErrScanFailed, http.StatusServiceUnavailable, CodeBluetoothScanFailed),
		sentinelHandler(domain.ErrSettingsSave, http.StatusInternalServerError, CodeConfigSaveFailed),
		sentinelHandler(domain.ErrWriteFailure, http.StatusInternalServerError, CodePersistenceError),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chirouter.Router) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chirouter.Router) {
		r.Get("/passes", s.GetPasses)
		r.Get("/passes/history", s.GetPassHistory)
		r.Post("/passes/use", s.UsePass)

		r.Get("/config", s.GetConfig)
		r.Put("/config/passes", s.UpdatePasses)
		r.Put("/config/bluetooth", s.UpdateBluetooth)
		r.Put("/config/timezone", s.UpdateTimezone)
		r.Put("/config/onboarding/complete", s.CompleteOnboarding)

		r.Get("/proximity", s.GetProximity)
		r.Get("/devices", s.ListDevices)

		r.Get("/system/status", s.SystemStatus)
	})
}

// GetPasses handles GET /api/passes.
func (s *Server) GetPasses(w http.ResponseWriter, r *http.Request) {
	st, err := s.passes.Status(r.Context())
	if err != nil {
		// The status is still valid in memory; the failed write shows up in /health.
		s.logger.Warn("rollover not persisted", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, PassesResponse{
		Remaining:       st.Remaining,
		TotalPerMonth:   st.PerMonth,
		UsedThisMonth:   st.UsedThisMonth,
		Month:           st.Month.String(),
		PendingPerMonth: st.PendingPerMonth,
		ResetsAtUTC:     formatTime(s.settings.NextReset(s.now())),
		Timezone:        s.settings.Snapshot().System.Timezone,
	})
}

// GetPassHistory handles GET /api/passes/history?month=YYYY-MM.
func (s *Server) GetPassHistory(w http.ResponseWriter, r *http.Request) {
	var month pass.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		m, err := pass.ParseMonth(raw)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		month = m
	} else {
		st, err := s.passes.Status(r.Context())
		if err != nil {
			s.logger.Warn("rollover not persisted", zap.Error(err))
		}
		month = st.Month
	}

	entries, perMonth := s.passes.History(month)
	items := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		items[i] = HistoryEntry{UsedAtUTC: formatTime(e.UsedAt), Reason: e.Reason}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Month:         month.String(),
		Entries:       items,
		TotalUsed:     len(items),
		TotalPerMonth: perMonth,
	})
}

// UsePass handles POST /api/passes/use.
func (s *Server) UsePass(w http.ResponseWriter, r *http.Request) {
	var req UsePassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.handleDomainError(w, pass.ErrEmptyReason)
		return
	}

	entry, st, err := s.passes.Use(r.Context(), req.Reason)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UsePassResponse{
		Success:   true,
		Remaining: st.Remaining,
		UsedAtUTC: formatTime(entry.UsedAt),
		Reason:    entry.Reason,
	})
}

// GetConfig handles GET /api/config.
func (s *Server) GetConfig(w http.ResponseWriter, _ *http.Request) {
	cur := s.settings.Snapshot()
	writeJSON(w, http.StatusOK, ConfigResponse{
		Bluetooth:          bluetoothToDTO(cur.Bluetooth),
		Timezone:           cur.System.Timezone,
		PassesPerMonth:     cur.Passes.PerMonth,
		OnboardingComplete: cur.System.OnboardingComplete,
	})
}

// UpdatePasses handles PUT /api/config/passes.
func (s *Server) UpdatePasses(w http.ResponseWriter, r *http.Request) {
	var req UpdatePassesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.handleDomainError(w, pass.ErrQuotaOutOfRange)
		return
	}

	applied, err := s.settings.UpdatePassesPerMonth(r.Context(), *req.PerMonth)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	msg := "Passes per month updated immediately"
	if !applied {
		msg = "Change will take effect on the first of next month"
	}
	writeJSON(w, http.StatusOK, UpdatePassesResponse{
		Success:  true,
		PerMonth: *req.PerMonth,
		Pending:  !applied,
		Message:  msg,
	})
}

// UpdateBluetooth handles PUT /api/config/bluetooth.
func (s *Server) UpdateBluetooth(w http.ResponseWriter, r *http.Request) {
	var req UpdateBluetoothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.handleDomainError(w, bluetoothValidationError(err))
		return
	}

	target, err := s.settings.UpdateBluetooth(r.Context(), req.TargetAddress, req.TargetName, req.RSSIThreshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateBluetoothResponse{
		Success:   true,
		Bluetooth: bluetoothToDTO(target),
	})
}

// UpdateTimezone handles PUT /api/config/timezone.
func (s *Server) UpdateTimezone(w http.ResponseWriter, r *http.Request) {
	var req UpdateTimezoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.handleDomainError(w, device.ErrInvalidTimezone)
		return
	}

	if err := s.settings.UpdateTimezone(r.Context(), req.Timezone); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateTimezoneResponse{
		Success:  true,
		Timezone: req.Timezone,
	})
}

// CompleteOnboarding handles PUT /api/config/onboarding/complete.
func (s *Server) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	err := s.settings.CompleteOnboarding(r.Context())
	if errors.Is(err, domain.ErrDeviceNotConfigured) {
		writeError(w, http.StatusFailedDependency, CodePrerequisitesNotMet,
			"Cannot complete onboarding: Bluetooth device not configured")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Onboarding completed successfully",
	})
}

// GetProximity handles GET /api/proximity.
func (s *Server) GetProximity(w http.ResponseWriter, r *http.Request) {
	p, err := s.proximity.Check(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProximityResponse{
		DeviceName:    p.Target.Name,
		DeviceAddress: p.Target.Address,
		IsNearby:      p.Nearby,
		RSSIDbm:       p.RSSI,
		ThresholdDbm:  p.Target.RSSIThreshold,
		CheckedAtUTC:  formatTime(p.CheckedAt),
	})
}

// ListDevices handles GET /api/devices.
func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	res, err := s.proximity.Devices(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DiscoveredDevice, len(res.Devices))
	for i, d := range res.Devices {
		items[i] = DiscoveredDevice{Address: d.Address, Name: d.Name, RSSIDbm: d.RSSI}
	}

	writeJSON(w, http.StatusOK, DevicesResponse{
		Devices:          items,
		ScanDurationSecs: uint64(res.Duration / time.Second),
		ScannedAtUTC:     formatTime(res.ScannedAt),
	})
}

// SystemStatus handles GET /api/system/status.
func (s *Server) SystemStatus(w http.ResponseWriter, _ *http.Request) {
	uptime := s.now().Sub(s.startedAt)
	if uptime < 0 {
		uptime = 0
	}

	writeJSON(w, http.StatusOK, SystemStatusResponse{
		Version:            s.version,
		UptimeSecs:         uint64(uptime / time.Second),
		BluetoothAvailable: s.proximity.Available(),
		ConfigLoaded:       true,
		OnboardingComplete: s.settings.OnboardingComplete(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:             string(report.Status),
		Version:            s.version,
		OnboardingComplete: s.settings.OnboardingComplete(),
		Checks:             checks,
	})
}

func bluetoothToDTO(t config.TargetSettings) BluetoothConfig {
	return BluetoothConfig{
		TargetAddress: t.TargetAddress,
		TargetName:    t.TargetName,
		RSSIThreshold: t.RSSIThreshold,
		IsConfigured:  device.Target{Address: t.TargetAddress}.Configured(),
	}
}

// bluetoothValidationError maps a request validation failure to the
// domain error of the offending field.
func bluetoothValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "RSSIThreshold" {
				return device.ErrInvalidRSSIThreshold
			}
		}
	}
	return device.ErrInvalidAddress
}

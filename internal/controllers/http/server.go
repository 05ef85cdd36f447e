package httpctrl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/thermoctl/internal/ports"
	"github.com/Agrid-Dev/thermoctl/internal/thermostat"
)

type Server struct {
	svc      ports.ThermostatService
	srv      *http.Server
	deviceID string
}

// New returns a runnable server. gatherer may be nil to skip /metrics.
func New(svc ports.ThermostatService, addr string, deviceID string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/history", s.handleGetHistory)

	// Write: one endpoint per variable
	mux.HandleFunc("POST /v1/mode", s.handlePostMode)
	mux.HandleFunc("POST /v1/temperature_setpoint", s.handlePostSetpoint)
	mux.HandleFunc("POST /v1/temperature_setpoints", s.handlePostSetpoints)
	mux.HandleFunc("POST /v1/temperature", s.handlePostTemperature)
	mux.HandleFunc("POST /v1/band", s.handlePostBand)
	mux.HandleFunc("POST /v1/calibration", s.handlePostCalibration)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID     string   `json:"device_id"`
	Mode         string   `json:"mode"`
	Setpoint     *float64 `json:"temperature_setpoint"`
	LowSetpoint  *float64 `json:"temperature_setpoint_low"`
	HighSetpoint *float64 `json:"temperature_setpoint_high"`
	Temperature  *float64 `json:"temperature"`
	Band         float64  `json:"band"`
	Calibration  float64  `json:"calibration"`
	Heating      bool     `json:"heating"`
	Cooling      bool     `json:"cooling"`
}

func toDTO(s thermostat.Snapshot) snapshotDTO {
	return snapshotDTO{
		Mode:         s.Mode.String(),
		Setpoint:     s.Setpoint,
		LowSetpoint:  s.LowSetpoint,
		HighSetpoint: s.HighSetpoint,
		Temperature:  s.Temperature,
		Band:         s.Band,
		Calibration:  s.Calibration,
		Heating:      s.Heating,
		Cooling:      s.Cooling,
	}
}

type readingDTO struct {
	Value float64   `json:"value"`
	Time  time.Time `json:"time"`
}

// setpointsDTO is the body of POST /v1/temperature_setpoints: {"value":{"low":..,"high":..}}.
type setpointsDTO struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, _ *http.Request) {
	hist := s.svc.History()
	out := make([]readingDTO, len(hist))
	for i, r := range hist {
		out[i] = readingDTO{Value: r.Value, Time: r.Time}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostMode(w http.ResponseWriter, r *http.Request) {
	// body: {"value": "heat"}
	postValue(s, w, r, func(v string) error {
		m, err := thermostat.ParseMode(v)
		if err != nil {
			return err
		}
		return s.svc.SetMode(m)
	})
}

func (s *Server) handlePostSetpoint(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetSetpoint(v)
	})
}

func (s *Server) handlePostSetpoints(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v setpointsDTO) error {
		return s.svc.SetSetpoints(v.Low, v.High)
	})
}

func (s *Server) handlePostTemperature(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetTemp(v)
	})
}

func (s *Server) handlePostBand(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetBand(v)
	})
}

func (s *Server) handlePostCalibration(w http.ResponseWriter, r *http.Request) {
	postValue(s, w, r, func(v float64) error {
		return s.svc.SetCalibration(v)
	})
}

// ---- generic helpers ----
func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Snapshot())
	dto.DeviceID = s.deviceID
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

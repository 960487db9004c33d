package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/poller"
	"github.com/anicoll/foxess-integration/internal/pkg/sensor"
)

var (
	errUnknownDevice   = errors.New("unknown device")
	errHistoryDisabled = errors.New("history is not enabled")
	errMissingSlug     = errors.New("slug query parameter is required")
)

type DeviceService interface {
	Snapshot() *model.Snapshot
	Config() *config.DeviceConfig
	Device() model.Device
	Refresh(ctx context.Context) (*model.Snapshot, error)
}

type HistoryStore interface {
	GetProperties(ctx context.Context, identifier, slug string, from, to *time.Time) (model.Properties, error)
	GetLatestProperties(ctx context.Context, identifier string) (model.Properties, error)
}

// Devices indexes the configured devices by id, keeping configuration order for listings.
type Devices struct {
	byID  map[string]DeviceService
	order []DeviceService
}

func NewDevices(services ...DeviceService) *Devices {
	d := &Devices{byID: make(map[string]DeviceService, len(services))}
	for _, s := range services {
		d.byID[s.Config().Key()] = s
		d.order = append(d.order, s)
	}
	return d
}

func (d *Devices) lookup(w http.ResponseWriter, r *http.Request) (DeviceService, bool) {
	id := r.PathValue("id")
	svc, ok := d.byID[id]
	if !ok {
		handleError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownDevice, id))
	}
	return svc, ok
}

// Health reports 503 once any device coordinator has stopped.
func Health(devices *Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Devices: make(map[string]model.SchedulerState)}
		code := http.StatusOK
		for _, svc := range devices.order {
			state := svc.Snapshot().State
			resp.Devices[svc.Config().Key()] = state
			if state == model.StateFatal {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, resp)
	}
}

func ListDevices(devices *Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]DeviceResponse, 0, len(devices.order))
		for _, svc := range devices.order {
			out = append(out, deviceResponse(svc))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Snapshot(devices *Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := devices.lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, svc.Snapshot())
	}
}

func Sensors(devices *Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := devices.lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sensor.Map(svc.Snapshot(), svc.Config().ExtendPV))
	}
}

// Refresh returns realtime values no older than one poll interval, fetching them when the stored snapshot is older.
func Refresh(devices *Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := devices.lookup(w, r)
		if !ok {
			return
		}
		snap, err := svc.Refresh(r.Context())
		switch {
		case err == nil, errors.Is(err, poller.ErrDeviceOffline):
			writeJSON(w, http.StatusOK, snap)
		case errors.Is(err, poller.ErrFatal):
			handleError(w, http.StatusServiceUnavailable, err)
		default:
			handleError(w, http.StatusBadGateway, err)
		}
	}
}

// History returns stored values of one sensor. from and to are RFC 3339 timestamps.
func History(devices *Devices, store HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := devices.lookup(w, r)
		if !ok {
			return
		}
		if store == nil {
			handleError(w, http.StatusNotFound, errHistoryDisabled)
			return
		}
		q := r.URL.Query()
		from, err := parseTime(q.Get("from"))
		if err != nil {
			handleError(w, http.StatusBadRequest, fmt.Errorf("from: %w", err))
			return
		}
		to, err := parseTime(q.Get("to"))
		if err != nil {
			handleError(w, http.StatusBadRequest, fmt.Errorf("to: %w", err))
			return
		}

		id := svc.Config().Key()
		var props model.Properties
		if slug := q.Get("slug"); slug != "" {
			props, err = store.GetProperties(r.Context(), id, slug, from, to)
		} else if from == nil && to == nil {
			props, err = store.GetLatestProperties(r.Context(), id)
		} else {
			handleError(w, http.StatusBadRequest, errMissingSlug)
			return
		}
		if err != nil {
			handleError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, props)
	}
}

// Live builds the live feed message for a snapshot.
func Live(svc DeviceService, snap *model.Snapshot) ([]byte, error) {
	return json.Marshal(LiveMessage{
		Device:  svc.Config().Key(),
		Online:  snap.Online,
		Sensors: sensor.Map(snap, svc.Config().ExtendPV),
	})
}

func deviceResponse(svc DeviceService) DeviceResponse {
	snap := svc.Snapshot()
	resp := DeviceResponse{
		Device:    svc.Device(),
		Online:    snap.Online,
		Status:    snap.Status().String(),
		State:     snap.State,
		Tick:      snap.Tick,
		LastError: snap.LastError,
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	return resp
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write response", zap.Error(err))
	}
}

func handleError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

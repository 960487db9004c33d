package handler

import (
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
)

type DeviceResponse struct {
	model.Device
	Online    bool                 `json:"online"`
	Status    string               `json:"status"`
	State     model.SchedulerState `json:"state"`
	Tick      int                  `json:"tick"`
	LastError string               `json:"last_error,omitempty"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
}

type HealthResponse struct {
	Status  string                          `json:"status"`
	Devices map[string]model.SchedulerState `json:"devices"`
}

// LiveMessage is pushed to live feed clients for every stored snapshot.
type LiveMessage struct {
	Device  string               `json:"device"`
	Online  bool                 `json:"online"`
	Sensors []model.DeviceStatus `json:"sensors"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

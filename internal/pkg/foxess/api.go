package foxess

import (
	"context"
	"fmt"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
)

// API is one generation of the vendor cloud api. The poll coordinator only talks to this interface.
type API interface {
	Generation() config.Generation
	// Authenticate verifies credentials. Bad credentials surface as ErrAuth.
	Authenticate(ctx context.Context) error
	DeviceDetail(ctx context.Context) (*model.DeviceDetail, error)
	// RealTime returns the latest value of each variable. A nil variables list asks for the full catalogue.
	RealTime(ctx context.Context, variables []string) (map[string]model.Reading, error)
	// Report returns the cumulative value of each variable for day. Days the vendor has not reported are absent.
	Report(ctx context.Context, day time.Time, variables []string) (map[string]*float64, error)
	DailyGeneration(ctx context.Context) (*model.Generation, error)
	BatterySettings(ctx context.Context) (*model.BatterySettings, error)
}

// New builds the api strategy selected by the device's configured generation.
// gate may be nil for the cloud generation.
func New(device *config.DeviceConfig, vendor *config.VendorConfig, gate *RateGate) (API, error) {
	switch device.Generation {
	case config.GenerationCloud:
		t := newTransport(HTTPClient(vendor.CloudTimeout, vendor.UserAgent), vendor.BaseURL, vendor.CloudTimeout)
		return newCloudAPI(device.DeviceID, NewSession(t, device.Username, device.Password)), nil
	case config.GenerationOpenAPI:
		t := newTransport(HTTPClient(vendor.OpenAPITimeout, vendor.UserAgent), vendor.BaseURL, vendor.OpenAPITimeout)
		if gate == nil {
			gate = NewRateGate(vendor.RateSpacing, vendor.RateBuffer)
		}
		return newOpenAPI(device.DeviceSN, NewSigner(device.APIKey), t, gate), nil
	default:
		return nil, fmt.Errorf("%w: unknown api generation %q", config.ErrInvalidDevice, device.Generation)
	}
}

// reportIndex picks the value for day out of a month shaped series of index/value pairs.
func reportIndex(day time.Time) int {
	return day.Day()
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg     ScheduleConfig
		wantErr bool
	}{
		"defaults":           {cfg: *DefaultSchedule()},
		"short rollover":     {cfg: ScheduleConfig{MainWindow: 5, DetailWindow: 15, Rollover: 14}, wantErr: true},
		"not a multiple":     {cfg: ScheduleConfig{MainWindow: 5, DetailWindow: 12, Rollover: 59}, wantErr: true},
		"zero main window":   {cfg: ScheduleConfig{MainWindow: 0, DetailWindow: 15, Rollover: 59}, wantErr: true},
		"negative backoff":   {cfg: ScheduleConfig{MainWindow: 5, DetailWindow: 15, Rollover: 59, AlarmBackoff: -1}, wantErr: true},
		"single window tick": {cfg: ScheduleConfig{MainWindow: 1, DetailWindow: 1, Rollover: 5}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeviceConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg     DeviceConfig
		wantErr bool
	}{
		"cloud ok":         {cfg: DeviceConfig{Generation: GenerationCloud, Username: "u", Password: "p", DeviceID: "id"}},
		"cloud no id":      {cfg: DeviceConfig{Generation: GenerationCloud, Username: "u", Password: "p"}, wantErr: true},
		"cloud no creds":   {cfg: DeviceConfig{Generation: GenerationCloud, DeviceID: "id"}, wantErr: true},
		"openapi ok":       {cfg: DeviceConfig{Generation: GenerationOpenAPI, APIKey: "k", DeviceSN: "sn"}},
		"openapi no sn":    {cfg: DeviceConfig{Generation: GenerationOpenAPI, APIKey: "k"}, wantErr: true},
		"unknown api":      {cfg: DeviceConfig{Generation: "v2"}, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDevice)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "FoxESS", tt.cfg.Name)
		})
	}
}

func TestDeviceConfig_Key(t *testing.T) {
	assert.Equal(t, "id", (&DeviceConfig{DeviceID: "id", DeviceSN: "sn"}).Key())
	assert.Equal(t, "sn", (&DeviceConfig{DeviceSN: "sn"}).Key())
}

func TestLoadDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
devices:
  - name: Garage
    apiKey: key
    deviceSN: SN1
    extendPV: true
  - name: Shed
    generation: cloud
    username: me
    password: secret
    deviceID: abc-123
`), 0o600))

	devices, err := LoadDevices(path)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, GenerationOpenAPI, devices[0].Generation)
	assert.True(t, devices[0].ExtendPV)
	assert.Equal(t, "SN1", devices[0].Key())
	assert.Equal(t, GenerationCloud, devices[1].Generation)
	assert.Equal(t, "abc-123", devices[1].Key())
}

func TestLoadDevices_Duplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
devices:
  - {apiKey: a, deviceSN: SN1}
  - {apiKey: b, deviceSN: SN1}
`), 0o600))

	_, err := LoadDevices(path)
	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestLoadDevices_EmptyEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
devices:
  - {apiKey: a, deviceSN: SN1}
  - ~
`), 0o600))

	var err error
	assert.NotPanics(t, func() {
		_, err = LoadDevices(path)
	})
	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestLoadTuning(t *testing.T) {
	t.Setenv("SCHEDULE_MAIN_WINDOW", "1")
	t.Setenv("SCHEDULE_DETAIL_WINDOW", "3")
	t.Setenv("SCHEDULE_ROLLOVER", "30")
	t.Setenv("FOXESS_RATE_BUFFER", "500ms")

	schedule, vendor, err := LoadTuning()
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.MainWindow)
	assert.Equal(t, 3, schedule.DetailWindow)
	assert.Equal(t, 30, schedule.Rollover)
	assert.Equal(t, 5, schedule.OfflineBackoff)
	assert.Equal(t, 500*time.Millisecond, vendor.RateBuffer)
	assert.Equal(t, time.Second, vendor.RateSpacing)
	assert.Equal(t, 75*time.Second, vendor.OpenAPITimeout)
}

func TestLoadTuning_Invalid(t *testing.T) {
	t.Setenv("SCHEDULE_ROLLOVER", "3")

	_, _, err := LoadTuning()
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Devices      []*DeviceConfig
	MqttCfg      *MqttConfig
	DatabaseCfg  *DatabaseConfig
	HTTPCfg      *HTTPConfig
	Schedule     *ScheduleConfig
	Vendor       *VendorConfig
	PollInterval time.Duration
	LogLevel     string
}

type MqttConfig struct {
	Host     string
	Username string
	Password string
	ClientID string
}

// Enabled reports whether an MQTT broker was configured.
func (m *MqttConfig) Enabled() bool {
	return m != nil && m.Host != ""
}

type DatabaseConfig struct {
	URL              string
	MigrationsFolder string
	Retention        time.Duration
	CleanupSchedule  string
}

func (d *DatabaseConfig) Enabled() bool {
	return d != nil && d.URL != ""
}

type HTTPConfig struct {
	Addr string
}

// ScheduleConfig tunes the poll tick windows. Counts are in ticks.
type ScheduleConfig struct {
	MainWindow     int `env:"SCHEDULE_MAIN_WINDOW" envDefault:"5"`
	DetailWindow   int `env:"SCHEDULE_DETAIL_WINDOW" envDefault:"15"`
	Rollover       int `env:"SCHEDULE_ROLLOVER" envDefault:"59"`
	OfflineBackoff int `env:"SCHEDULE_OFFLINE_BACKOFF" envDefault:"5"`
	AlarmBackoff   int `env:"SCHEDULE_ALARM_BACKOFF" envDefault:"15"`
}

func DefaultSchedule() *ScheduleConfig {
	return &ScheduleConfig{
		MainWindow:     5,
		DetailWindow:   15,
		Rollover:       59,
		OfflineBackoff: 5,
		AlarmBackoff:   15,
	}
}

var ErrInvalidSchedule = errors.New("invalid schedule")

func (s *ScheduleConfig) Validate() error {
	switch {
	case s.MainWindow <= 0 || s.DetailWindow <= 0 || s.Rollover <= 0:
		return fmt.Errorf("%w: windows and rollover must be positive", ErrInvalidSchedule)
	case s.OfflineBackoff < 0 || s.AlarmBackoff < 0:
		return fmt.Errorf("%w: backoff must not be negative", ErrInvalidSchedule)
	case s.DetailWindow%s.MainWindow != 0:
		return fmt.Errorf("%w: detail window %d is not a multiple of main window %d", ErrInvalidSchedule, s.DetailWindow, s.MainWindow)
	case s.Rollover < s.DetailWindow:
		return fmt.Errorf("%w: rollover %d is below detail window %d", ErrInvalidSchedule, s.Rollover, s.DetailWindow)
	}
	return nil
}

type VendorConfig struct {
	BaseURL        string        `env:"FOXESS_BASE_URL" envDefault:"https://www.foxesscloud.com"`
	RateSpacing    time.Duration `env:"FOXESS_RATE_SPACING" envDefault:"1s"`
	RateBuffer     time.Duration `env:"FOXESS_RATE_BUFFER" envDefault:"200ms"`
	OpenAPITimeout time.Duration `env:"FOXESS_OPENAPI_TIMEOUT" envDefault:"75s"`
	CloudTimeout   time.Duration `env:"FOXESS_CLOUD_TIMEOUT" envDefault:"30s"`
	UserAgent      string        `env:"FOXESS_USER_AGENT" envDefault:"foxess-integration/1.0"`
}

func DefaultVendor() *VendorConfig {
	return &VendorConfig{
		BaseURL:        "https://www.foxesscloud.com",
		RateSpacing:    time.Second,
		RateBuffer:     200 * time.Millisecond,
		OpenAPITimeout: 75 * time.Second,
		CloudTimeout:   30 * time.Second,
		UserAgent:      "foxess-integration/1.0",
	}
}

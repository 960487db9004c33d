package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
)

// buildConfig reads the flags. A devices file replaces the single device flags.
func buildConfig(c *cli.Context) (*config.Config, error) {
	schedule, vendor, err := config.LoadTuning()
	if err != nil {
		return nil, err
	}

	var devices []*config.DeviceConfig
	if path := c.String("devices-file"); path != "" {
		devices, err = config.LoadDevices(path)
		if err != nil {
			return nil, err
		}
	} else {
		device := &config.DeviceConfig{
			Name:       c.String("name"),
			Generation: config.Generation(c.String("api-generation")),
			Username:   c.String("foxess-username"),
			Password:   c.String("foxess-password"),
			APIKey:     c.String("foxess-api-key"),
			DeviceSN:   c.String("foxess-device-sn"),
			DeviceID:   c.String("foxess-device-id"),
			ExtendPV:   c.Bool("extend-pv"),
			Restrict:   c.Bool("restrict"),
		}
		if err := device.Validate(); err != nil {
			return nil, err
		}
		devices = []*config.DeviceConfig{device}
	}

	return &config.Config{
		Devices: devices,
		MqttCfg: &config.MqttConfig{
			Host:     c.String("mqtt-host"),
			Username: c.String("mqtt-user"),
			Password: c.String("mqtt-pass"),
			ClientID: c.String("mqtt-client-id"),
		},
		DatabaseCfg: &config.DatabaseConfig{
			URL:              c.String("database-url"),
			MigrationsFolder: c.String("migrations-folder"),
			Retention:        c.Duration("database-retention"),
			CleanupSchedule:  c.String("database-cleanup-schedule"),
		},
		HTTPCfg: &config.HTTPConfig{
			Addr: c.String("http-addr"),
		},
		Schedule:     schedule,
		Vendor:       vendor,
		PollInterval: c.Duration("poll-interval"),
		LogLevel:     c.String("log-level"),
	}, nil
}

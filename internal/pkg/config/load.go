package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type devicesFile struct {
	Devices []*DeviceConfig `yaml:"devices"`
}

// LoadDevices reads a yaml file holding a list of devices.
func LoadDevices(path string) ([]*DeviceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f devicesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(f.Devices))
	for i, d := range f.Devices {
		if d == nil {
			return nil, fmt.Errorf("%w: empty entry at index %d", ErrInvalidDevice, i)
		}
		if d.Generation == "" {
			d.Generation = GenerationOpenAPI
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[d.Key()]; ok {
			return nil, fmt.Errorf("%w: duplicate device %s", ErrInvalidDevice, d.Key())
		}
		seen[d.Key()] = struct{}{}
	}
	return f.Devices, nil
}

// LoadTuning reads schedule and vendor tuning from the environment.
func LoadTuning() (*ScheduleConfig, *VendorConfig, error) {
	schedule, err := env.ParseAs[ScheduleConfig]()
	if err != nil {
		return nil, nil, err
	}
	if err := schedule.Validate(); err != nil {
		return nil, nil, err
	}
	vendor, err := env.ParseAs[VendorConfig]()
	if err != nil {
		return nil, nil, err
	}
	return &schedule, &vendor, nil
}

package config

import (
	"errors"
	"fmt"
)

type Generation string

const (
	// GenerationCloud is the legacy token session API under /c/v0.
	GenerationCloud Generation = "cloud"
	// GenerationOpenAPI is the signed API under /op/v0.
	GenerationOpenAPI Generation = "openapi"
)

var ErrInvalidDevice = errors.New("invalid device config")

// DeviceConfig is the static identity of one inverter. It is never mutated after setup.
type DeviceConfig struct {
	Name       string     `yaml:"name"`
	Generation Generation `yaml:"generation"`
	Username   string     `yaml:"username"`
	Password   string     `yaml:"password"`
	APIKey     string     `yaml:"apiKey"`
	DeviceSN   string     `yaml:"deviceSN"`
	DeviceID   string     `yaml:"deviceID"`
	ExtendPV   bool       `yaml:"extendPV"`
	Restrict   bool       `yaml:"restrict"`
}

// Key identifies the device across sinks and the HTTP api.
func (d *DeviceConfig) Key() string {
	if d.DeviceID != "" {
		return d.DeviceID
	}
	return d.DeviceSN
}

func (d *DeviceConfig) Validate() error {
	if d.Name == "" {
		d.Name = "FoxESS"
	}
	switch d.Generation {
	case GenerationCloud:
		if d.Username == "" || d.Password == "" {
			return fmt.Errorf("%w: %s: username and password are required for the cloud api", ErrInvalidDevice, d.Name)
		}
		if d.DeviceID == "" {
			return fmt.Errorf("%w: %s: deviceID is required for the cloud api", ErrInvalidDevice, d.Name)
		}
	case GenerationOpenAPI:
		if d.APIKey == "" || d.DeviceSN == "" {
			return fmt.Errorf("%w: %s: apiKey and deviceSN are required for the open api", ErrInvalidDevice, d.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown api generation %q", ErrInvalidDevice, d.Name, d.Generation)
	}
	return nil
}

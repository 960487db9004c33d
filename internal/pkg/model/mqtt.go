package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer"`
	SerialNumber string   `json:"serial_number,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// RegisterMessage is a Home Assistant MQTT discovery config payload for one sensor.
type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	ObjectID          string         `json:"object_id,omitempty"`
	StateTopic        string         `json:"state_topic"`
	ValueTemplate     string         `json:"value_template"`
	Availability      []Availability `json:"availability,omitempty"`
	AvailabilityMode  string         `json:"availability_mode,omitempty"`
	Unit              string         `json:"unit_of_measurement,omitempty"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	Device            RegisterDevice `json:"device"`
}

type Availability struct {
	Topic string `json:"topic"`
}

type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Manufacturer string `json:"manufacturer"`
	Version      string `json:"version,omitempty"`
}

// DeviceStatus is one mapped sensor value ready to be published.
type DeviceStatus struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	UniqueID    string  `json:"unique_id"`
	Value       *string `json:"value"`
	Unit        string  `json:"unit"`
	DeviceClass string  `json:"device_class,omitempty"`
	StateClass  string  `json:"state_class,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Text        bool    `json:"text"`
}

package model

import (
	"maps"
	"time"
)

// Reading is one realtime variable as returned by the vendor.
type Reading struct {
	Value *float64 `json:"value"`
	Text  string   `json:"text,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

type DeviceDetail struct {
	DeviceSN       string         `json:"deviceSN"`
	ModuleSN       string         `json:"moduleSN"`
	PlantName      string         `json:"plantName"`
	StationName    string         `json:"stationName"`
	DeviceType     string         `json:"deviceType"`
	Status         InverterStatus `json:"status"`
	HasBattery     bool           `json:"hasBattery"`
	HasPV          bool           `json:"hasPV"`
	Country        string         `json:"country"`
	CountryCode    string         `json:"countryCode"`
	City           string         `json:"city"`
	Address        string         `json:"address"`
	FeedinDate     string         `json:"feedinDate"`
	MasterVersion  string         `json:"masterVersion"`
	SlaveVersion   string         `json:"slaveVersion"`
	ManagerVersion string         `json:"managerVersion"`
}

type Generation struct {
	Today      *float64 `json:"today"`
	Month      *float64 `json:"month"`
	Cumulative *float64 `json:"cumulative"`
}

type BatterySettings struct {
	MinSoc       *float64 `json:"minSoc"`
	MinSocOnGrid *float64 `json:"minSocOnGrid"`
}

// Snapshot aggregates the latest fetch results for one device.
// A published snapshot is never mutated; the coordinator clones it to build the next one.
type Snapshot struct {
	DeviceID        string              `json:"deviceID"`
	DeviceSN        string              `json:"deviceSN"`
	Name            string              `json:"name"`
	AddressBook     *DeviceDetail       `json:"addressbook"`
	Raw             map[string]Reading  `json:"raw"`
	Report          map[string]*float64 `json:"report"`
	ReportDay       time.Time           `json:"reportDay"`
	DailyGeneration *Generation         `json:"reportDailyGeneration"`
	Battery         *BatterySettings    `json:"battery"`
	Online          bool                `json:"online"`
	Tick            int                 `json:"tick"`
	State           SchedulerState      `json:"state"`
	LastError       string              `json:"lastError,omitempty"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Status is the inverter status from the cached address book, off-line when unknown.
func (s *Snapshot) Status() InverterStatus {
	if s == nil || s.AddressBook == nil {
		return InverterStatusOffline
	}
	return s.AddressBook.Status
}

func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	c := *s
	c.Raw = maps.Clone(s.Raw)
	c.Report = maps.Clone(s.Report)
	if s.AddressBook != nil {
		ab := *s.AddressBook
		c.AddressBook = &ab
	}
	if s.DailyGeneration != nil {
		g := *s.DailyGeneration
		c.DailyGeneration = &g
	}
	if s.Battery != nil {
		b := *s.Battery
		c.Battery = &b
	}
	return &c
}

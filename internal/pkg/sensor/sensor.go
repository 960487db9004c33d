package sensor

import (
	"strconv"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Section names the part of a snapshot a sensor reads from.
type Section string

const (
	SectionRaw        Section = "raw"
	SectionReport     Section = "report"
	SectionGeneration Section = "reportDailyGeneration"
	SectionBattery    Section = "battery"
	SectionDerived    Section = "derived"
)

// Value is the current state of a sensor. Both fields nil means unknown.
type Value struct {
	Number *float64
	Text   *string
}

func (v Value) IsNull() bool {
	return v.Number == nil && v.Text == nil
}

// String renders the value for sinks, nil when unknown.
func (v Value) String() *string {
	switch {
	case v.Text != nil:
		s := *v.Text
		return &s
	case v.Number != nil:
		s := strconv.FormatFloat(*v.Number, 'f', -1, 64)
		return &s
	default:
		return nil
	}
}

func number(f float64) Value {
	return Value{Number: &f}
}

func text(s string) Value {
	return Value{Text: &s}
}

// Sensor projects one field of a snapshot into an observable metric.
type Sensor struct {
	Name        string
	Field       string
	Section     Section
	Unit        model.NumericUnit
	DeviceClass string
	StateClass  string
	Icon        string
	// RequiresOnline sensors are unknown while the inverter is off-line rather than stale.
	RequiresOnline bool
	ExtendedPV     bool
	Text           bool

	transform func(float64) float64
	derive    func(*model.Snapshot) Value
}

// Slug is the kebab case form of the sensor name.
func (s Sensor) Slug() string {
	return slug.Make(s.Name)
}

func (s Sensor) UniqueID(deviceID string) string {
	return deviceID + "-" + s.Slug()
}

// Value reads the sensor from snap. It never panics and never mutates snap.
func (s Sensor) Value(snap *model.Snapshot) Value {
	if snap == nil {
		return Value{}
	}
	if s.RequiresOnline && !snap.Online {
		return Value{}
	}
	if s.derive != nil {
		return s.derive(snap)
	}

	var (
		f  *float64
		ok bool
	)
	switch s.Section {
	case SectionRaw:
		var r model.Reading
		r, ok = snap.Raw[s.Field]
		if ok && r.Value == nil && r.Text != "" && s.Text {
			return text(r.Text)
		}
		f = r.Value
	case SectionReport:
		f, ok = snap.Report[s.Field]
	case SectionGeneration:
		f, ok = generationField(snap.DailyGeneration, s.Field)
	case SectionBattery:
		f, ok = batteryField(snap.Battery, s.Field)
	}
	if !ok {
		zap.L().Debug("sensor field missing from snapshot",
			zap.String("sensor", s.Name),
			zap.String("section", string(s.Section)),
			zap.String("field", s.Field),
			zap.String("device", snap.DeviceID))
		return Value{}
	}
	if f == nil {
		return Value{}
	}
	v := *f
	if s.transform != nil {
		v = s.transform(v)
	}
	return number(v)
}

func generationField(g *model.Generation, field string) (*float64, bool) {
	if g == nil {
		return nil, false
	}
	switch field {
	case "today":
		return g.Today, true
	case "month":
		return g.Month, true
	case "cumulative":
		return g.Cumulative, true
	}
	return nil, false
}

func batteryField(b *model.BatterySettings, field string) (*float64, bool) {
	if b == nil {
		return nil, false
	}
	switch field {
	case "minSoc":
		return b.MinSoc, true
	case "minSocOnGrid":
		return b.MinSocOnGrid, true
	}
	return nil, false
}

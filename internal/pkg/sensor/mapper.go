package sensor

import (
	"math"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/samber/lo"
)

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func scale(factor float64) func(float64) float64 {
	return func(v float64) float64 {
		return round3(v * factor)
	}
}

// residualEnergy converts the vendor's residual battery energy (10 Wh units) to kWh.
func residualEnergy(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / 100
}

// SolarEstimate is loads + charge + feedIn - grid - discharge, floored at zero and rounded to 3 places.
// Nil inputs count as zero.
func SolarEstimate(loads, charge, feedIn, grid, discharge *float64) float64 {
	v := lo.FromPtr(loads) + lo.FromPtr(charge) + lo.FromPtr(feedIn) - lo.FromPtr(grid) - lo.FromPtr(discharge)
	return round3(math.Max(0, v))
}

func rawValue(snap *model.Snapshot, field string) *float64 {
	return snap.Raw[field].Value
}

func solarPower(snap *model.Snapshot) Value {
	return number(SolarEstimate(
		rawValue(snap, "loadsPower"),
		rawValue(snap, "batChargePower"),
		rawValue(snap, "feedinPower"),
		rawValue(snap, "gridConsumptionPower"),
		rawValue(snap, "batDischargePower"),
	))
}

func solarEnergy(snap *model.Snapshot) Value {
	if len(snap.Report) == 0 {
		return Value{}
	}
	return number(SolarEstimate(
		snap.Report["loads"],
		snap.Report["chargeEnergyToTal"],
		snap.Report["feedin"],
		snap.Report["gridConsumption"],
		snap.Report["dischargeEnergyToTal"],
	))
}

func inverterStatus(snap *model.Snapshot) Value {
	return text(snap.Status().String())
}

func runningState(snap *model.Snapshot) Value {
	r, ok := snap.Raw["runningState"]
	if !ok || r.Value == nil {
		return Value{}
	}
	return text(model.RunningState(int(*r.Value)).String())
}

// Map renders every sensor enabled for the device against snap.
func Map(snap *model.Snapshot, extendPV bool) []model.DeviceStatus {
	if snap == nil {
		return nil
	}
	return lo.Map(Sensors(extendPV), func(s Sensor, _ int) model.DeviceStatus {
		return model.DeviceStatus{
			Name:        s.Name,
			Slug:        s.Slug(),
			UniqueID:    s.UniqueID(snap.DeviceID),
			Value:       s.Value(snap).String(),
			Unit:        s.Unit.String(),
			DeviceClass: s.DeviceClass,
			StateClass:  s.StateClass,
			Icon:        s.Icon,
			Text:        s.Text,
		}
	})
}

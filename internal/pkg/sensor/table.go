package sensor

import (
	"fmt"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/samber/lo"
)

const (
	classPower       = "power"
	classEnergy      = "energy"
	classStorage     = "energy_storage"
	classBattery     = "battery"
	classTemperature = "temperature"
	classVoltage     = "voltage"
	classCurrent     = "current"
	classFrequency   = "frequency"
	classReactive    = "reactive_power"
	classPowerFactor = "power_factor"

	stateMeasurement     = "measurement"
	stateTotal           = "total"
	stateTotalIncreasing = "total_increasing"
)

func power(name, field string) Sensor {
	return Sensor{
		Name:           name,
		Field:          field,
		Section:        SectionRaw,
		Unit:           model.NumericUnitKiloWatt,
		DeviceClass:    classPower,
		StateClass:     stateMeasurement,
		Icon:           "mdi:flash-outline",
		RequiresOnline: true,
	}
}

func measurement(name, field string, unit model.NumericUnit, class string) Sensor {
	return Sensor{
		Name:           name,
		Field:          field,
		Section:        SectionRaw,
		Unit:           unit,
		DeviceClass:    class,
		StateClass:     stateMeasurement,
		RequiresOnline: true,
	}
}

func energy(name, field string, section Section, stateClass string) Sensor {
	return Sensor{
		Name:        name,
		Field:       field,
		Section:     section,
		Unit:        model.NumericUnitKiloWattHour,
		DeviceClass: classEnergy,
		StateClass:  stateClass,
		Icon:        "mdi:lightning-bolt-outline",
	}
}

func pvStrings() []Sensor {
	var sensors []Sensor
	for i := 1; i <= 18; i++ {
		extended := i > 6
		for _, s := range []Sensor{
			power(fmt.Sprintf("PV%d Power", i), fmt.Sprintf("pv%dPower", i)),
			measurement(fmt.Sprintf("PV%d Volt", i), fmt.Sprintf("pv%dVolt", i), model.NumericUnitVolt, classVoltage),
			measurement(fmt.Sprintf("PV%d Current", i), fmt.Sprintf("pv%dCurrent", i), model.NumericUnitAmp, classCurrent),
		} {
			s.ExtendedPV = extended
			sensors = append(sensors, s)
		}
	}
	return sensors
}

func phases() []Sensor {
	var sensors []Sensor
	for _, p := range []string{"R", "S", "T"} {
		sensors = append(sensors,
			measurement(p+" Volt", p+"Volt", model.NumericUnitVolt, classVoltage),
			measurement(p+" Current", p+"Current", model.NumericUnitAmp, classCurrent),
			measurement(p+" Freq", p+"Freq", model.NumericUnitHertz, classFrequency),
			power(p+" Power", p+"Power"),
			power("Load Power "+p, "loadsPower"+p),
			power("Meter Power "+p, "meterPower"+p),
		)
	}
	return sensors
}

var table = buildTable()

func buildTable() []Sensor {
	sensors := []Sensor{
		power("Generation Power", "generationPower"),
		power("Grid Consumption Power", "gridConsumptionPower"),
		power("FeedIn Power", "feedinPower"),
		power("Bat Discharge Power", "batDischargePower"),
		power("Bat Charge Power", "batChargePower"),
		power("Load Power", "loadsPower"),
		power("PV Power", "pvPower"),
		power("EPS Power", "epsPower"),
		power("Meter Power", "meterPower"),
		power("Meter2 Power", "meterPower2"),
		power("Inv Bat Power", "invBatPower"),
		{
			Name:           "Solar Power",
			Unit:           model.NumericUnitKiloWatt,
			Section:        SectionDerived,
			DeviceClass:    classPower,
			StateClass:     stateMeasurement,
			Icon:           "mdi:solar-power",
			RequiresOnline: true,
			derive:         solarPower,
		},
		{
			Name:           "Reactive Power",
			Field:          "ReactivePower",
			Section:        SectionRaw,
			Unit:           model.NumericUnitVoltAmpereReactive,
			DeviceClass:    classReactive,
			StateClass:     stateMeasurement,
			RequiresOnline: true,
			transform:      scale(1000),
		},
		measurement("Power Factor", "PowerFactor", model.NumericUnitNone, classPowerFactor),

		measurement("Bat Temperature", "batTemperature", model.NumericUnitDegreeC, classTemperature),
		measurement("Ambient Temperature", "ambientTemperation", model.NumericUnitDegreeC, classTemperature),
		measurement("Boost Temperature", "boostTemperation", model.NumericUnitDegreeC, classTemperature),
		measurement("Inverter Temperature", "invTemperation", model.NumericUnitDegreeC, classTemperature),
		measurement("Charge Temperature", "chargeTemperature", model.NumericUnitDegreeC, classTemperature),
		measurement("DSP Temperature", "dspTemperature", model.NumericUnitDegreeC, classTemperature),

		measurement("Bat SoC", "SoC", model.NumericUnitPercent, classBattery),
		measurement("Bat Volt", "batVolt", model.NumericUnitVolt, classVoltage),
		measurement("Bat Current", "batCurrent", model.NumericUnitAmp, classCurrent),
		measurement("Inv Bat Volt", "invBatVolt", model.NumericUnitVolt, classVoltage),
		measurement("Inv Bat Current", "invBatCurrent", model.NumericUnitAmp, classCurrent),
		{
			Name:           "Residual Energy",
			Field:          "ResidualEnergy",
			Section:        SectionRaw,
			Unit:           model.NumericUnitKiloWattHour,
			DeviceClass:    classStorage,
			StateClass:     stateMeasurement,
			Icon:           "mdi:battery-charging",
			RequiresOnline: true,
			transform:      residualEnergy,
		},
		{
			Name:        "Min SoC",
			Field:       "minSoc",
			Section:     SectionBattery,
			Unit:        model.NumericUnitPercent,
			DeviceClass: classBattery,
			StateClass:  stateMeasurement,
		},
		{
			Name:        "Min SoC On Grid",
			Field:       "minSocOnGrid",
			Section:     SectionBattery,
			Unit:        model.NumericUnitPercent,
			DeviceClass: classBattery,
			StateClass:  stateMeasurement,
		},

		{
			Name:           "Today Yield",
			Field:          "todayYield",
			Section:        SectionRaw,
			Unit:           model.NumericUnitKiloWattHour,
			DeviceClass:    classEnergy,
			StateClass:     stateTotalIncreasing,
			Icon:           "mdi:lightning-bolt-outline",
			RequiresOnline: true,
		},
		energy("Energy Generated", "generation", SectionReport, stateTotalIncreasing),
		energy("Energy Grid Consumption", "gridConsumption", SectionReport, stateTotalIncreasing),
		energy("Energy FeedIn", "feedin", SectionReport, stateTotalIncreasing),
		energy("Energy Bat Charge", "chargeEnergyToTal", SectionReport, stateTotalIncreasing),
		energy("Energy Bat Discharge", "dischargeEnergyToTal", SectionReport, stateTotalIncreasing),
		energy("Energy Load", "loads", SectionReport, stateTotalIncreasing),
		{
			Name:        "Energy Solar",
			Unit:        model.NumericUnitKiloWattHour,
			Section:     SectionDerived,
			DeviceClass: classEnergy,
			StateClass:  stateTotal,
			Icon:        "mdi:solar-power",
			derive:      solarEnergy,
		},
		energy("Generation Today", "today", SectionGeneration, stateTotalIncreasing),
		energy("Generation Month", "month", SectionGeneration, stateTotalIncreasing),
		energy("Generation Total", "cumulative", SectionGeneration, stateTotalIncreasing),

		{
			Name:    "Inverter",
			Section: SectionDerived,
			Icon:    "mdi:solar-power",
			Text:    true,
			derive:  inverterStatus,
		},
		{
			Name:           "Running State",
			Field:          "runningState",
			Section:        SectionDerived,
			Icon:           "mdi:state-machine",
			Text:           true,
			RequiresOnline: true,
			derive:         runningState,
		},
		{
			Name:           "Current Fault",
			Field:          "currentFault",
			Section:        SectionRaw,
			Icon:           "mdi:alert-circle-outline",
			Text:           true,
			RequiresOnline: true,
		},
	}
	sensors = append(sensors, pvStrings()...)
	sensors = append(sensors, phases()...)
	return sensors
}

// Sensors returns the sensor table for a device, including PV strings 7-18 only when extendPV is set.
func Sensors(extendPV bool) []Sensor {
	return lo.Filter(table, func(s Sensor, _ int) bool {
		return extendPV || !s.ExtendedPV
	})
}

// RawVariables lists the realtime variables the sensor table reads, for restricted queries.
func RawVariables(extendPV bool) []string {
	fields := lo.FilterMap(Sensors(extendPV), func(s Sensor, _ int) (string, bool) {
		return s.Field, s.Field != "" && (s.Section == SectionRaw || s.Section == SectionDerived)
	})
	// the derived solar estimate reads these directly
	fields = append(fields, "loadsPower", "batChargePower", "feedinPower", "gridConsumptionPower", "batDischargePower")
	return lo.Uniq(fields)
}

// ReportVariables lists the report variables the sensor table reads.
func ReportVariables() []string {
	return lo.Uniq(lo.FilterMap(table, func(s Sensor, _ int) (string, bool) {
		return s.Field, s.Section == SectionReport
	}))
}

// Lookup finds a sensor by slug.
func Lookup(slug string) (Sensor, bool) {
	return lo.Find(table, func(s Sensor) bool {
		return s.Slug() == slug
	})
}

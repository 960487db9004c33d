package model

import "fmt"

type NumericUnit string

func (u NumericUnit) String() string {
	return string(u)
}

const (
	NumericUnitNone                   NumericUnit = ""
	NumericUnitAmp                    NumericUnit = "A"
	NumericUnitPercent                NumericUnit = "%"
	NumericUnitKiloWatt               NumericUnit = "kW"
	NumericUnitWatt                   NumericUnit = "W"
	NumericUnitKiloWattHour           NumericUnit = "kWh"
	NumericUnitDegreeC                NumericUnit = "°C"
	NumericUnitVolt                   NumericUnit = "V"
	NumericUnitVoltAmpereReactive     NumericUnit = "var"
	NumericUnitKilovoltAmpereReactive NumericUnit = "kvar"
	NumericUnitHertz                  NumericUnit = "Hz"
)

// InverterStatus is the device status reported by the vendor's device directory.
type InverterStatus int

const (
	InverterStatusOnline  InverterStatus = 1
	InverterStatusAlarm   InverterStatus = 2
	InverterStatusOffline InverterStatus = 3
)

// Online reports whether the status means the inverter is reachable (on-grid or in alarm).
func (s InverterStatus) Online() bool {
	return s == InverterStatusOnline || s == InverterStatusAlarm
}

func (s InverterStatus) String() string {
	switch s {
	case InverterStatusOnline:
		return "on-line"
	case InverterStatusAlarm:
		return "in-alarm"
	default:
		return "off-line"
	}
}

// RunningState is the vendor internal running state code.
type RunningState int

var runningStates = map[RunningState]string{
	160: "self-test",
	161: "waiting",
	162: "checking",
	163: "on-grid",
	164: "off-grid",
	165: "fault",
	166: "permanent-fault",
	167: "standby",
	168: "upgrading",
	169: "fct",
	170: "illegal",
}

func (r RunningState) String() string {
	if label, ok := runningStates[r]; ok {
		return label
	}
	return fmt.Sprintf("unknown code %d", int(r))
}

// SchedulerState is the coordinator state exposed on each snapshot.
type SchedulerState string

func (s SchedulerState) String() string {
	return string(s)
}

const (
	StateIdle    SchedulerState = "idle"
	StatePolling SchedulerState = "polling"
	StateBackoff SchedulerState = "backoff"
	StateFatal   SchedulerState = "fatal"
)

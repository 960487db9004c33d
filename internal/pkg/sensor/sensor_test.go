package sensor

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func ptr(f float64) *float64 { return &f }

func mustSensor(t *testing.T, slug string) Sensor {
	t.Helper()
	s, ok := Lookup(slug)
	require.True(t, ok, "sensor %s not in table", slug)
	return s
}

func onlineSnapshot() *model.Snapshot {
	return &model.Snapshot{
		DeviceID:    "dev1",
		Online:      true,
		AddressBook: &model.DeviceDetail{Status: model.InverterStatusOnline},
		Raw: map[string]model.Reading{
			"loadsPower":           {Value: ptr(2.5)},
			"batChargePower":       {Value: ptr(1.0)},
			"feedinPower":          {Value: ptr(0.75)},
			"gridConsumptionPower": {Value: ptr(0.25)},
			"batDischargePower":    {Value: ptr(0)},
			"SoC":                  {Value: ptr(87)},
			"ReactivePower":        {Value: ptr(0.123)},
			"todayYield":           {Value: ptr(7.5)},
			"ResidualEnergy":       {Value: ptr(250)},
			"runningState":         {Value: ptr(163)},
			"currentFault":         {Text: "grid lost"},
		},
		Report: map[string]*float64{
			"loads":                ptr(20),
			"chargeEnergyToTal":    ptr(5),
			"feedin":               ptr(3),
			"gridConsumption":      ptr(4),
			"dischargeEnergyToTal": ptr(6),
			"generation":           ptr(0),
		},
		DailyGeneration: &model.Generation{Today: ptr(12.3)},
		Battery:         &model.BatterySettings{MinSoc: ptr(10)},
	}
}

func TestSolarEstimate(t *testing.T) {
	tests := map[string]struct {
		loads, charge, feedIn, grid, discharge *float64
		want                                   float64
	}{
		"all present":      {ptr(2.5), ptr(1), ptr(0.75), ptr(0.25), ptr(0), 4},
		"nil battery":      {ptr(2.5), nil, ptr(0.75), ptr(0.25), nil, 3},
		"all nil":          {nil, nil, nil, nil, nil, 0},
		"clamped":          {ptr(0.1), nil, nil, ptr(5), ptr(1), 0},
		"rounded":          {ptr(1.23456), nil, nil, nil, nil, 1.235},
		"negative rounded": {ptr(0.0001), nil, nil, ptr(0.0002), nil, 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, SolarEstimate(tt.loads, tt.charge, tt.feedIn, tt.grid, tt.discharge))
		})
	}
}

func TestSolarEstimate_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	maybe := func() *float64 {
		if r.IntN(4) == 0 {
			return nil
		}
		return ptr(r.Float64()*200 - 100)
	}
	for i := 0; i < 10000; i++ {
		got := SolarEstimate(maybe(), maybe(), maybe(), maybe(), maybe())
		require.GreaterOrEqual(t, got, 0.0)
		require.False(t, math.IsNaN(got))
		s := strconv.FormatFloat(got, 'f', -1, 64)
		if dot := strings.IndexByte(s, '.'); dot >= 0 {
			require.LessOrEqual(t, len(s)-dot-1, 3, "value %s has more than 3 decimals", s)
		}
	}
}

func TestResidualEnergy(t *testing.T) {
	s := mustSensor(t, "residual-energy")
	snap := onlineSnapshot()
	assert.Equal(t, 2.5, *s.Value(snap).Number)

	snap.Raw["ResidualEnergy"] = model.Reading{Value: ptr(-10)}
	assert.Equal(t, 0.0, *s.Value(snap).Number)
}

func TestReactivePowerScaled(t *testing.T) {
	s := mustSensor(t, "reactive-power")
	assert.Equal(t, 123.0, *s.Value(onlineSnapshot()).Number)
	assert.Equal(t, model.NumericUnitVoltAmpereReactive, s.Unit)
}

func TestInverterStatusLabels(t *testing.T) {
	s := mustSensor(t, "inverter")
	tests := map[string]struct {
		detail *model.DeviceDetail
		want   string
	}{
		"on-line":  {detail: &model.DeviceDetail{Status: 1}, want: "on-line"},
		"in-alarm": {detail: &model.DeviceDetail{Status: 2}, want: "in-alarm"},
		"off-line": {detail: &model.DeviceDetail{Status: 3}, want: "off-line"},
		"missing":  {detail: nil, want: "off-line"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			snap := &model.Snapshot{AddressBook: tt.detail}
			assert.Equal(t, tt.want, *s.Value(snap).Text)
		})
	}
}

func TestRunningState(t *testing.T) {
	s := mustSensor(t, "running-state")
	snap := onlineSnapshot()
	assert.Equal(t, "on-grid", *s.Value(snap).Text)

	snap.Raw["runningState"] = model.Reading{Value: ptr(200)}
	assert.Equal(t, "unknown code 200", *s.Value(snap).Text)

	delete(snap.Raw, "runningState")
	assert.True(t, s.Value(snap).IsNull())
}

func TestCurrentFaultText(t *testing.T) {
	s := mustSensor(t, "current-fault")
	assert.Equal(t, "grid lost", *s.Value(onlineSnapshot()).Text)
}

func TestMissingFieldIsNullAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := zap.ReplaceGlobals(zap.New(core))
	defer prev()

	snap := onlineSnapshot()
	delete(snap.Raw, "SoC")

	s := mustSensor(t, "bat-soc")
	assert.NotPanics(t, func() {
		v := s.Value(snap)
		assert.True(t, v.IsNull())
		assert.Nil(t, v.String())
	})
	entries := logs.FilterMessage("sensor field missing from snapshot").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "SoC", entries[0].ContextMap()["field"])
}

func TestOfflineSuppressesInstantaneousValues(t *testing.T) {
	snap := onlineSnapshot()
	snap.Online = false
	snap.AddressBook.Status = model.InverterStatusOffline

	assert.True(t, mustSensor(t, "bat-soc").Value(snap).IsNull())
	assert.True(t, mustSensor(t, "solar-power").Value(snap).IsNull())
	assert.True(t, mustSensor(t, "today-yield").Value(snap).IsNull())
	assert.Equal(t, "off-line", *mustSensor(t, "inverter").Value(snap).Text)
	assert.Equal(t, 3.0, *mustSensor(t, "energy-feedin").Value(snap).Number)
	assert.Equal(t, 12.3, *mustSensor(t, "generation-today").Value(snap).Number)
}

func TestTodayYieldWhileOnline(t *testing.T) {
	assert.Equal(t, 7.5, *mustSensor(t, "today-yield").Value(onlineSnapshot()).Number)
}

func TestNullRawValueIsUnknown(t *testing.T) {
	snap := onlineSnapshot()
	snap.Raw["SoC"] = model.Reading{Unit: "%"}

	v := mustSensor(t, "bat-soc").Value(snap)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.String())
}

func TestDerivedSolar(t *testing.T) {
	snap := onlineSnapshot()
	assert.Equal(t, 4.0, *mustSensor(t, "solar-power").Value(snap).Number)
	// 20 + 5 + 3 - 4 - 6
	assert.Equal(t, 18.0, *mustSensor(t, "energy-solar").Value(snap).Number)

	snap.Report = nil
	assert.True(t, mustSensor(t, "energy-solar").Value(snap).IsNull())
}

func TestEnergyZeroIsNotNull(t *testing.T) {
	v := mustSensor(t, "energy-generated").Value(onlineSnapshot())
	require.NotNil(t, v.Number)
	assert.Equal(t, 0.0, *v.Number)
	assert.Equal(t, "0", *v.String())
}

func TestGenerationAndBatterySections(t *testing.T) {
	snap := onlineSnapshot()
	assert.Equal(t, 10.0, *mustSensor(t, "min-soc").Value(snap).Number)
	assert.True(t, mustSensor(t, "min-soc-on-grid").Value(snap).IsNull())
	assert.True(t, mustSensor(t, "generation-month").Value(snap).IsNull())

	snap.Battery = nil
	assert.True(t, mustSensor(t, "min-soc").Value(snap).IsNull())
}

func TestNilSnapshot(t *testing.T) {
	for _, s := range Sensors(true) {
		assert.NotPanics(t, func() {
			assert.True(t, s.Value(nil).IsNull(), s.Name)
		})
	}
	assert.Nil(t, Map(nil, true))
}

func TestEmptySnapshotNeverPanics(t *testing.T) {
	snap := &model.Snapshot{Online: true}
	for _, s := range Sensors(true) {
		assert.NotPanics(t, func() { s.Value(snap) }, s.Name)
	}
}

func TestMapIsIdempotent(t *testing.T) {
	snap := onlineSnapshot()
	before := snap.Clone()

	first := Map(snap, true)
	second := Map(snap, true)
	assert.Equal(t, first, second)
	assert.Equal(t, before, snap)
}

func TestMap(t *testing.T) {
	statuses := Map(onlineSnapshot(), false)
	require.Len(t, statuses, len(Sensors(false)))

	byslug := make(map[string]model.DeviceStatus, len(statuses))
	for _, s := range statuses {
		byslug[s.Slug] = s
	}
	soc := byslug["bat-soc"]
	assert.Equal(t, "dev1-bat-soc", soc.UniqueID)
	assert.Equal(t, "87", *soc.Value)
	assert.Equal(t, "%", soc.Unit)
	assert.Equal(t, "battery", soc.DeviceClass)
	assert.False(t, soc.Text)
	assert.True(t, byslug["inverter"].Text)
	assert.Nil(t, byslug["eps-power"].Value)
}

func TestSensorsExtendPV(t *testing.T) {
	slugs := func(ss []Sensor) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[s.Slug()] = true
		}
		return m
	}
	base := slugs(Sensors(false))
	ext := slugs(Sensors(true))
	assert.True(t, base["pv6-power"])
	assert.False(t, base["pv7-power"])
	assert.True(t, ext["pv7-power"])
	assert.True(t, ext["pv18-current"])
	assert.Len(t, ext, len(base)+12*3)

	assert.NotContains(t, RawVariables(false), "pv18Power")
	assert.Contains(t, RawVariables(true), "pv18Power")
	assert.Contains(t, RawVariables(false), "SoC")
	assert.Contains(t, RawVariables(false), "runningState")
}

func TestSlugsAreUnique(t *testing.T) {
	seen := map[string]string{}
	for _, s := range Sensors(true) {
		prev, dup := seen[s.Slug()]
		assert.False(t, dup, "%s and %s share slug %s", prev, s.Name, s.Slug())
		seen[s.Slug()] = s.Name
	}
}

func TestReportVariables(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"generation", "gridConsumption", "feedin", "chargeEnergyToTal", "dischargeEnergyToTal", "loads",
	}, ReportVariables())
}

package foxess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/pkg/hasher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestOpenAPI(t *testing.T, gate *RateGate, handler http.HandlerFunc) *openAPI {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts, err := strconv.ParseInt(r.Header.Get("timestamp"), 10, 64)
		assert.NoError(t, err)
		assert.Equal(t, "key", r.Header.Get("token"))
		assert.Equal(t, hasher.Signature(r.URL.Path, "key", ts), r.Header.Get("signature"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return newOpenAPI("SN1", NewSigner("key"), newTestTransport(srv), gate)
}

func TestOpenAPI_DeviceDetail(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, openDetailPath, r.URL.Path)
		assert.Equal(t, "SN1", r.URL.Query().Get("sn"))
		writeResult(t, w, map[string]any{
			"deviceSN":      "SN1",
			"stationName":   "Home",
			"deviceType":    "KH10",
			"status":        1,
			"hasBattery":    true,
			"hasPV":         true,
			"masterVersion": "1.50",
		})
	})

	detail, err := o.DeviceDetail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.InverterStatusOnline, detail.Status)
	assert.True(t, detail.HasBattery)
	assert.Equal(t, "Home", detail.PlantName)
	assert.Equal(t, "1.50", detail.MasterVersion)
	assert.Equal(t, config.GenerationOpenAPI, o.Generation())
}

func TestOpenAPI_RealTime(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, openRealPath, r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "SN1", body["sn"])
		assert.Equal(t, []any{"SoC", "pvPower"}, body["variables"])
		writeResult(t, w, []map[string]any{{
			"deviceSN": "SN1",
			"datas": []map[string]any{
				{"variable": "pvPower", "unit": "kW", "value": 3.25},
				{"variable": "SoC", "unit": "%", "value": "87"},
				{"variable": "currentFault", "value": "grid lost"},
				{"variable": "batStatus", "value": nil},
			},
		}})
	})

	readings, err := o.RealTime(context.Background(), []string{"SoC", "pvPower"})
	require.NoError(t, err)
	assert.Equal(t, 3.25, *readings["pvPower"].Value)
	assert.Equal(t, 87.0, *readings["SoC"].Value)
	assert.Nil(t, readings["currentFault"].Value)
	assert.Equal(t, "grid lost", readings["currentFault"].Text)
	assert.Nil(t, readings["batStatus"].Value)
}

func TestOpenAPI_RealTimeNullValues(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, []map[string]any{{
			"deviceSN": "SN1",
			"datas": []map[string]any{
				{"variable": "SoC", "unit": "%", "value": nil},
				{"variable": "batChargePower", "unit": "kW"},
				{"variable": "feedinPower", "unit": "kW", "value": 0},
			},
		}})
	})

	readings, err := o.RealTime(context.Background(), nil)
	require.NoError(t, err)
	require.Contains(t, readings, "SoC")
	assert.Nil(t, readings["SoC"].Value)
	assert.Empty(t, readings["SoC"].Text)
	assert.Equal(t, "%", readings["SoC"].Unit)
	assert.Nil(t, readings["batChargePower"].Value)
	require.NotNil(t, readings["feedinPower"].Value)
	assert.Equal(t, 0.0, *readings["feedinPower"].Value)
}

func TestOpenAPI_RealTimeOmitsVariablesWhenUnrestricted(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.NotContains(t, decodeBody(t, r), "variables")
		writeResult(t, w, []map[string]any{{"datas": []map[string]any{}}})
	})
	readings, err := o.RealTime(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestOpenAPI_RealTimeEmptyResult(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, []map[string]any{})
	})
	_, err := o.RealTime(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenAPI_Report(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := zap.ReplaceGlobals(zap.New(core))
	defer prev()

	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, openReportPath, r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "month", body["dimension"])
		assert.Equal(t, 2024.0, body["year"])
		assert.Equal(t, 3.0, body["month"])
		writeResult(t, w, []map[string]any{
			{"variable": "feedin", "unit": "kWh", "values": []any{1.0, 2.0, 3.5}},
			{"variable": "loads", "unit": "kWh", "values": []any{1.0, 2.0, nil}},
			{"variable": "generation", "unit": "kWh", "values": []any{1.0}},
		})
	})

	values, err := o.Report(context.Background(), time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), []string{"feedin", "loads", "generation"})
	require.NoError(t, err)
	assert.Equal(t, 3.5, *values["feedin"])
	assert.NotContains(t, values, "loads")
	assert.NotContains(t, values, "generation")
	assert.Equal(t, 2, logs.FilterMessage("report has no value for today").Len())
}

func TestOpenAPI_GenerationAndBattery(t *testing.T) {
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case openGenerationPath:
			writeResult(t, w, map[string]any{"today": 12.3, "month": 200.5, "cumulative": 15000})
		case openBatterySocPath:
			writeResult(t, w, map[string]any{"minSoc": 10, "minSocOnGrid": 20})
		default:
			http.NotFound(w, r)
		}
	})

	gen, err := o.DailyGeneration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.3, *gen.Today)
	assert.Equal(t, 15000.0, *gen.Cumulative)

	bat, err := o.BatterySettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.0, *bat.MinSoc)
	assert.Equal(t, 20.0, *bat.MinSocOnGrid)
}

func TestOpenAPI_RejectedKey(t *testing.T) {
	var calls atomic.Int32
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeErrno(t, w, ErrnoTokenInvalid)
	})

	err := o.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAPI_SignatureRetrySucceeds(t *testing.T) {
	var calls atomic.Int32
	o := newTestOpenAPI(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeErrno(t, w, ErrnoTokenExpired)
			return
		}
		writeResult(t, w, map[string]any{"status": 1})
	})

	require.NoError(t, o.Authenticate(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAPI_RateGateSpacesCalls(t *testing.T) {
	var (
		mu     sync.Mutex
		stamps []time.Time
	)
	gate := NewRateGate(40*time.Millisecond, 10*time.Millisecond)
	o := newTestOpenAPI(t, gate, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		writeResult(t, w, map[string]any{"status": 1})
	})

	for i := 0; i < 3; i++ {
		_, err := o.DeviceDetail(context.Background())
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 45*time.Millisecond)
	}
}

func TestRateGate_ContextCancelled(t *testing.T) {
	gate := NewRateGate(time.Hour, 0)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, gate.Wait(ctx))
}

func TestRateGate_Nil(t *testing.T) {
	var gate *RateGate
	assert.NoError(t, gate.Wait(context.Background()))
}

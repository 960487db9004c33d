package foxess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"go.uber.org/zap"
)

const (
	openDetailPath     = "/op/v0/device/detail"
	openRealPath       = "/op/v0/device/real/query"
	openReportPath     = "/op/v0/device/report/query"
	openGenerationPath = "/op/v0/device/generation"
	openBatterySocPath = "/op/v0/device/battery/soc/get"
)

type openAPI struct {
	sn     string
	signer *Signer
	t      *transport
	gate   *RateGate
	logger *zap.Logger
}

func newOpenAPI(sn string, signer *Signer, t *transport, gate *RateGate) *openAPI {
	return &openAPI{
		sn:     sn,
		signer: signer,
		t:      t,
		gate:   gate,
		logger: zap.L().With(zap.String("device_sn", sn)),
	}
}

func (o *openAPI) Generation() config.Generation {
	return config.GenerationOpenAPI
}

// call waits on the rate gate and signs each attempt. A rejected signature is retried once with a fresh timestamp.
func (o *openAPI) call(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	for i := 0; i < 2; i++ {
		if err := o.gate.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate gate: %w", ErrTransport, path, err)
		}
		err := o.t.call(ctx, method, path, query, body, dest, o.signer.sign(path))
		if !errors.Is(err, ErrTokenExpired) {
			return err
		}
		o.logger.Debug("foxess rejected signature", zap.String("path", path), zap.Int("attempt", i+1))
	}
	return fmt.Errorf("%w: %s: api key rejected", ErrAuth, path)
}

func (o *openAPI) Authenticate(ctx context.Context) error {
	// the signed api has no login; the cheapest signed call proves the key
	_, err := o.DeviceDetail(ctx)
	return err
}

type openDetailResult struct {
	DeviceSN       string `json:"deviceSN"`
	ModuleSN       string `json:"moduleSN"`
	StationName    string `json:"stationName"`
	DeviceType     string `json:"deviceType"`
	Status         int    `json:"status"`
	HasBattery     bool   `json:"hasBattery"`
	HasPV          bool   `json:"hasPV"`
	MasterVersion  string `json:"masterVersion"`
	SlaveVersion   string `json:"slaveVersion"`
	ManagerVersion string `json:"managerVersion"`
}

func (o *openAPI) DeviceDetail(ctx context.Context) (*model.DeviceDetail, error) {
	var res openDetailResult
	if err := o.call(ctx, http.MethodGet, openDetailPath, url.Values{"sn": {o.sn}}, nil, &res); err != nil {
		return nil, err
	}
	return &model.DeviceDetail{
		DeviceSN:       res.DeviceSN,
		ModuleSN:       res.ModuleSN,
		PlantName:      res.StationName,
		StationName:    res.StationName,
		DeviceType:     res.DeviceType,
		Status:         model.InverterStatus(res.Status),
		HasBattery:     res.HasBattery,
		HasPV:          res.HasPV,
		MasterVersion:  res.MasterVersion,
		SlaveVersion:   res.SlaveVersion,
		ManagerVersion: res.ManagerVersion,
	}, nil
}

type realQueryRequest struct {
	SN        string   `json:"sn"`
	Variables []string `json:"variables,omitempty"`
}

type realQueryResult struct {
	DeviceSN string      `json:"deviceSN"`
	Time     string      `json:"time"`
	Datas    []realDatum `json:"datas"`
}

type realDatum struct {
	Variable string          `json:"variable"`
	Unit     string          `json:"unit"`
	Name     string          `json:"name"`
	Value    json.RawMessage `json:"value"`
}

// reading accepts numbers, numeric strings and free text; the vendor mixes all three.
func (d realDatum) reading() model.Reading {
	r := model.Reading{Unit: d.Unit}
	if len(d.Value) == 0 || string(d.Value) == "null" {
		return r
	}
	var f float64
	if err := json.Unmarshal(d.Value, &f); err == nil {
		r.Value = &f
		return r
	}
	var s string
	if err := json.Unmarshal(d.Value, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			r.Value = &f
			return r
		}
		r.Text = s
	}
	return r
}

func (o *openAPI) RealTime(ctx context.Context, variables []string) (map[string]model.Reading, error) {
	var res []realQueryResult
	if err := o.call(ctx, http.MethodPost, openRealPath, nil, realQueryRequest{SN: o.sn, Variables: variables}, &res); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: %s: no devices in result", ErrMalformedResponse, openRealPath)
	}
	readings := make(map[string]model.Reading, len(res[0].Datas))
	for _, d := range res[0].Datas {
		readings[d.Variable] = d.reading()
	}
	return readings, nil
}

type openReportRequest struct {
	SN        string   `json:"sn"`
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Dimension string   `json:"dimension"`
	Variables []string `json:"variables"`
}

type openReportResult struct {
	Variable string     `json:"variable"`
	Unit     string     `json:"unit"`
	Values   []*float64 `json:"values"`
}

func (o *openAPI) Report(ctx context.Context, day time.Time, variables []string) (map[string]*float64, error) {
	req := openReportRequest{
		SN:        o.sn,
		Year:      day.Year(),
		Month:     int(day.Month()),
		Dimension: "month",
		Variables: variables,
	}
	var res []openReportResult
	if err := o.call(ctx, http.MethodPost, openReportPath, nil, req, &res); err != nil {
		return nil, err
	}

	// values are ordered by day of month starting at day 1
	idx := reportIndex(day) - 1
	values := make(map[string]*float64, len(res))
	for _, r := range res {
		if idx >= len(r.Values) || r.Values[idx] == nil {
			o.logger.Warn("report has no value for today", zap.String("variable", r.Variable), zap.Int("day", idx+1))
			continue
		}
		values[r.Variable] = r.Values[idx]
	}
	return values, nil
}

func (o *openAPI) DailyGeneration(ctx context.Context) (*model.Generation, error) {
	var res model.Generation
	if err := o.call(ctx, http.MethodGet, openGenerationPath, url.Values{"sn": {o.sn}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (o *openAPI) BatterySettings(ctx context.Context) (*model.BatterySettings, error) {
	var res model.BatterySettings
	if err := o.call(ctx, http.MethodGet, openBatterySocPath, url.Values{"sn": {o.sn}}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

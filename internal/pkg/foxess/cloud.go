package foxess

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"go.uber.org/zap"
)

const (
	addressBookPath = "/c/v0/device/addressbook"
	historyRawPath  = "/c/v0/device/history/raw"
	reportPath      = "/c/v0/device/history/report"
)

// cloudRawVariables is requested when no explicit variable list is given; the history endpoint rejects an empty list.
var cloudRawVariables = []string{
	"generationPower",
	"feedinPower",
	"batChargePower",
	"batDischargePower",
	"gridConsumptionPower",
	"loadsPower",
	"SoC",
	"batTemperature",
	"pv1Power",
	"pv2Power",
	"pv3Power",
	"pv4Power",
}

type cloudAPI struct {
	deviceID string
	session  *Session
	logger   *zap.Logger
	now      func() time.Time
}

func newCloudAPI(deviceID string, session *Session) *cloudAPI {
	return &cloudAPI{
		deviceID: deviceID,
		session:  session,
		logger:   zap.L().With(zap.String("device_id", deviceID)),
		now:      time.Now,
	}
}

func (c *cloudAPI) Generation() config.Generation {
	return config.GenerationCloud
}

func (c *cloudAPI) Authenticate(ctx context.Context) error {
	_, err := c.session.EnsureToken(ctx)
	return err
}

type addressBookResult struct {
	DeviceSN    string `json:"deviceSN"`
	ModuleSN    string `json:"moduleSN"`
	PlantName   string `json:"plantName"`
	DeviceType  string `json:"deviceType"`
	Status      int    `json:"status"`
	HasBattery  bool   `json:"hasBattery"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Address     string `json:"address"`
	FeedinDate  string `json:"feedinDate"`
	Software    struct {
		Master  string `json:"master"`
		Slave   string `json:"slave"`
		Manager string `json:"manager"`
	} `json:"softVersion"`
}

func (c *cloudAPI) DeviceDetail(ctx context.Context) (*model.DeviceDetail, error) {
	var res addressBookResult
	if err := c.session.Do(ctx, http.MethodGet, addressBookPath, url.Values{"deviceID": {c.deviceID}}, nil, &res); err != nil {
		return nil, err
	}
	return &model.DeviceDetail{
		DeviceSN:       res.DeviceSN,
		ModuleSN:       res.ModuleSN,
		PlantName:      res.PlantName,
		StationName:    res.PlantName,
		DeviceType:     res.DeviceType,
		Status:         model.InverterStatus(res.Status),
		HasBattery:     res.HasBattery,
		HasPV:          true,
		Country:        res.Country,
		CountryCode:    res.CountryCode,
		City:           res.City,
		Address:        res.Address,
		FeedinDate:     res.FeedinDate,
		MasterVersion:  res.Software.Master,
		SlaveVersion:   res.Software.Slave,
		ManagerVersion: res.Software.Manager,
	}, nil
}

type cloudDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
	Hour  int `json:"hour,omitempty"`
}

type rawRequest struct {
	DeviceID  string    `json:"deviceID"`
	Variables []string  `json:"variables"`
	Timespan  string    `json:"timespan"`
	BeginDate cloudDate `json:"beginDate"`
}

type rawResult struct {
	Variable string `json:"variable"`
	Unit     string `json:"unit"`
	Data     []struct {
		Time  string   `json:"time"`
		Value *float64 `json:"value"`
	} `json:"data"`
}

func (c *cloudAPI) RealTime(ctx context.Context, variables []string) (map[string]model.Reading, error) {
	if len(variables) == 0 {
		variables = cloudRawVariables
	}
	now := c.now()
	req := rawRequest{
		DeviceID:  c.deviceID,
		Variables: variables,
		Timespan:  "hour",
		BeginDate: cloudDate{Year: now.Year(), Month: int(now.Month()), Day: now.Day(), Hour: now.Hour()},
	}
	var res []rawResult
	if err := c.session.Do(ctx, http.MethodPost, historyRawPath, nil, req, &res); err != nil {
		return nil, err
	}

	readings := make(map[string]model.Reading, len(res))
	for _, r := range res {
		if len(r.Data) == 0 {
			c.logger.Debug("no data points for variable", zap.String("variable", r.Variable))
			continue
		}
		// the last point in the hour is the latest reading
		readings[r.Variable] = model.Reading{Value: r.Data[len(r.Data)-1].Value, Unit: r.Unit}
	}
	return readings, nil
}

type reportRequest struct {
	DeviceID   string    `json:"deviceID"`
	ReportType string    `json:"reportType"`
	Variables  []string  `json:"variables"`
	QueryDate  cloudDate `json:"queryDate"`
}

type reportResult struct {
	Variable string `json:"variable"`
	Unit     string `json:"unit"`
	Data     []struct {
		Index int      `json:"index"`
		Value *float64 `json:"value"`
	} `json:"data"`
}

func (c *cloudAPI) Report(ctx context.Context, day time.Time, variables []string) (map[string]*float64, error) {
	req := reportRequest{
		DeviceID:   c.deviceID,
		ReportType: "month",
		Variables:  variables,
		QueryDate:  cloudDate{Year: day.Year(), Month: int(day.Month()), Day: day.Day()},
	}
	var res []reportResult
	if err := c.session.Do(ctx, http.MethodPost, reportPath, nil, req, &res); err != nil {
		return nil, err
	}

	idx := reportIndex(day)
	values := make(map[string]*float64, len(res))
	for _, r := range res {
		found := false
		for _, d := range r.Data {
			if d.Index == idx && d.Value != nil {
				values[r.Variable] = d.Value
				found = true
				break
			}
		}
		if !found {
			c.logger.Warn("report has no value for today", zap.String("variable", r.Variable), zap.Int("index", idx))
		}
	}
	return values, nil
}

func (c *cloudAPI) DailyGeneration(context.Context) (*model.Generation, error) {
	return nil, ErrUnsupported
}

func (c *cloudAPI) BatterySettings(context.Context) (*model.BatterySettings, error) {
	return nil, ErrUnsupported
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/sensor"
)

// Source is a device whose latest snapshot is exported on scrape.
type Source interface {
	Snapshot() *model.Snapshot
	Config() *config.DeviceConfig
	Device() model.Device
}

// Collector implements prometheus.Collector over the coordinators' stored snapshots.
// Nothing is fetched from the vendor on scrape.
type Collector struct {
	sources []Source
	now     func() time.Time

	sensorValue   *prometheus.Desc
	online        *prometheus.Desc
	tick          *prometheus.Desc
	snapshotAge   *prometheus.Desc
	info          *prometheus.Desc
	schedulerInfo *prometheus.Desc
}

func NewCollector(sources ...Source) *Collector {
	return &Collector{
		sources: sources,
		now:     time.Now,
		sensorValue: prometheus.NewDesc(
			"foxess_sensor_value",
			"Current value of a numeric inverter sensor",
			[]string{"device", "sensor", "unit"},
			nil,
		),
		online: prometheus.NewDesc(
			"foxess_device_online",
			"Inverter reported on-line by the vendor cloud (1=yes, 0=no)",
			[]string{"device"},
			nil,
		),
		tick: prometheus.NewDesc(
			"foxess_poll_tick",
			"Tick of the last executed poll",
			[]string{"device"},
			nil,
		),
		snapshotAge: prometheus.NewDesc(
			"foxess_snapshot_age_seconds",
			"Seconds since the stored snapshot was last updated",
			[]string{"device"},
			nil,
		),
		info: prometheus.NewDesc(
			"foxess_device_info",
			"Inverter metadata from the device directory",
			[]string{"device", "name", "model", "serial_number", "version"},
			nil,
		),
		schedulerInfo: prometheus.NewDesc(
			"foxess_scheduler_state",
			"Poll scheduler state (1 for the current state)",
			[]string{"device", "state"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sensorValue
	ch <- c.online
	ch <- c.tick
	ch <- c.snapshotAge
	ch <- c.info
	ch <- c.schedulerInfo
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		c.collectDevice(src, ch)
	}
}

func (c *Collector) collectDevice(src Source, ch chan<- prometheus.Metric) {
	snap := src.Snapshot()
	if snap == nil {
		return
	}
	device := src.Device()
	id := device.ID

	online := 0.0
	if snap.Online {
		online = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.online, prometheus.GaugeValue, online, id)
	ch <- prometheus.MustNewConstMetric(c.tick, prometheus.GaugeValue, float64(snap.Tick), id)
	ch <- prometheus.MustNewConstMetric(c.schedulerInfo, prometheus.GaugeValue, 1, id, snap.State.String())
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, id, device.Name, device.Model, device.SerialNumber, device.Version)
	if !snap.UpdatedAt.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.snapshotAge, prometheus.GaugeValue, c.now().Sub(snap.UpdatedAt).Seconds(), id)
	}

	for _, status := range sensor.Map(snap, src.Config().ExtendPV) {
		if status.Text || status.Value == nil {
			continue
		}
		v, err := strconv.ParseFloat(*status.Value, 64)
		if err != nil {
			zap.L().Debug("skipping non numeric sensor", zap.String("sensor", status.Slug), zap.Error(err))
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.sensorValue, prometheus.GaugeValue, v, id, status.Slug, status.Unit)
	}
}

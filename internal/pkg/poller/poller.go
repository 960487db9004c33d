package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/foxess"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/sensor"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrDeviceOffline = errors.New("device off-line")
	ErrFatal         = errors.New("coordinator stopped after fatal error")
)

const defaultInterval = time.Minute

// Listener is notified with every snapshot the coordinator stores.
type Listener func(ctx context.Context, snap *model.Snapshot)

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Coordinator runs the poll cycle for one device and owns its snapshot.
type Coordinator struct {
	device   *config.DeviceConfig
	api      foxess.API
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	// tickMu guards sched and serialises every vendor fetch for the device.
	tickMu   sync.Mutex
	sched    *Scheduler
	group    singleflight.Group
	snapshot atomic.Pointer[model.Snapshot]

	mu        sync.RWMutex
	listeners []Listener
}

func New(device *config.DeviceConfig, api foxess.API, schedule *config.ScheduleConfig, opts ...Option) *Coordinator {
	c := &Coordinator{
		device:   device,
		api:      api,
		interval: defaultInterval,
		now:      time.Now,
		logger:   zap.L().With(zap.String("device", device.Key()), zap.String("name", device.Name)),
		sched:    NewScheduler(schedule),
	}
	for _, o := range opts {
		o(c)
	}
	c.snapshot.Store(&model.Snapshot{
		DeviceID: device.Key(),
		DeviceSN: device.DeviceSN,
		Name:     device.Name,
		Tick:     retryNextSlot,
		State:    model.StateIdle,
	})
	return c
}

func (c *Coordinator) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Coordinator) Config() *config.DeviceConfig {
	return c.device
}

// Snapshot returns the latest stored snapshot. Callers must not mutate it.
func (c *Coordinator) Snapshot() *model.Snapshot {
	return c.snapshot.Load()
}

// Device describes the inverter for sinks, using the cached device detail when there is one.
func (c *Coordinator) Device() model.Device {
	snap := c.Snapshot()
	d := model.Device{
		ID:           c.device.Key(),
		Name:         c.device.Name,
		SerialNumber: snap.DeviceSN,
		Manufacturer: "FoxESS",
	}
	if snap.AddressBook != nil {
		d.Model = snap.AddressBook.DeviceType
		d.Version = snap.AddressBook.MasterVersion
	}
	return d
}

// Setup verifies credentials once. Bad credentials here are fatal; anything else is retried by the poll cycle.
func (c *Coordinator) Setup(ctx context.Context) error {
	err := c.api.Authenticate(ctx)
	switch {
	case err == nil:
		c.logger.Info("foxess device configured", zap.String("generation", string(c.api.Generation())))
		return nil
	case errors.Is(err, foxess.ErrAuth):
		c.tickMu.Lock()
		defer c.tickMu.Unlock()
		c.sched.Finish(OutcomeFatal)
		failed := c.Snapshot().Clone()
		failed.State = model.StateFatal
		failed.LastError = err.Error()
		c.snapshot.Store(failed)
		return fmt.Errorf("%s: %w", c.device.Name, err)
	default:
		c.logger.Warn("foxess setup check failed, will retry on next poll", zap.Error(err))
		return nil
	}
}

// Run polls on the configured interval until ctx is done. The first tick runs immediately.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		if _, err := c.Poll(ctx); errors.Is(err, ErrFatal) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one tick. Concurrent callers share the in-flight tick.
func (c *Coordinator) Poll(ctx context.Context) (*model.Snapshot, error) {
	v, err, shared := c.group.Do(c.device.Key(), func() (any, error) {
		return c.poll(ctx)
	})
	if shared {
		c.logger.Debug("joined in-flight poll")
	}
	return v.(*model.Snapshot), err
}

// Refresh fetches realtime values outside the tick cadence. The scheduler is left untouched and the
// stored snapshot is returned as is when it is younger than one poll interval.
func (c *Coordinator) Refresh(ctx context.Context) (*model.Snapshot, error) {
	v, err, _ := c.group.Do(c.device.Key()+"/refresh", func() (any, error) {
		return c.refresh(ctx)
	})
	return v.(*model.Snapshot), err
}

func (c *Coordinator) refresh(ctx context.Context) (*model.Snapshot, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	prev := c.Snapshot()
	switch {
	case c.sched.State() == model.StateFatal:
		return prev, ErrFatal
	case !prev.Online || prev.AddressBook == nil:
		// backoff and first detail belong to the scheduled tick
		return prev, ErrDeviceOffline
	case c.now().Sub(prev.UpdatedAt) < c.interval:
		return prev, nil
	}

	var variables []string
	if c.device.Restrict {
		variables = sensor.RawVariables(c.device.ExtendPV)
	}
	raw, err := c.api.RealTime(ctx, variables)
	if err != nil {
		c.logger.Warn("refresh failed", zap.Error(err))
		return prev, fmt.Errorf("realtime: %w", err)
	}
	next := prev.Clone()
	next.Raw = raw
	next.LastError = ""
	next.UpdatedAt = c.now()
	c.snapshot.Store(next)
	c.logger.Debug("refresh complete")

	c.notify(ctx, next)
	return next, nil
}

func (c *Coordinator) poll(ctx context.Context) (*model.Snapshot, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	prev := c.Snapshot()
	if c.sched.State() == model.StateFatal {
		return prev, ErrFatal
	}

	plan := c.sched.Next()
	if plan.Skip {
		c.sched.Finish(OutcomeSkipped)
		return prev, nil
	}

	start := c.now()
	next := prev.Clone()
	outcome, err := c.fetch(ctx, plan, prev, next)
	c.sched.Finish(outcome)

	if err != nil && outcome != OutcomeOffline {
		// a failed tick keeps the last good values and only flips online
		next = prev.Clone()
		next.Online = false
		next.LastError = err.Error()
	} else {
		next.LastError = ""
	}
	next.Tick = plan.Tick
	next.State = c.sched.State()
	next.UpdatedAt = c.now()
	c.snapshot.Store(next)

	fields := []zap.Field{
		zap.Int("tick", plan.Tick),
		zap.String("outcome", outcome.String()),
		zap.String("state", next.State.String()),
		zap.Duration("took", c.now().Sub(start)),
	}
	switch {
	case err == nil:
		c.logger.Debug("poll complete", fields...)
	case outcome == OutcomeOffline:
		c.logger.Info("inverter off-line, backing off", fields...)
	case errors.Is(err, foxess.ErrAuth):
		c.logger.Warn("foxess rejected credentials, retrying next tick", append(fields, zap.Error(err))...)
	default:
		c.logger.Warn("poll failed", append(fields, zap.Error(err))...)
	}

	c.notify(ctx, next)
	return next, err
}

func (c *Coordinator) notify(ctx context.Context, snap *model.Snapshot) {
	c.mu.RLock()
	listeners := c.listeners
	c.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, snap)
	}
}

func (c *Coordinator) fetch(ctx context.Context, plan Plan, prev, next *model.Snapshot) (Outcome, error) {
	if plan.Detail || next.AddressBook == nil {
		detail, err := c.api.DeviceDetail(ctx)
		if err != nil {
			return classify(err), fmt.Errorf("device detail: %w", err)
		}
		next.AddressBook = detail
		if detail.DeviceSN != "" {
			next.DeviceSN = detail.DeviceSN
		}
	}

	status := next.AddressBook.Status
	next.Online = status.Online()
	if !next.Online {
		return OutcomeOffline, fmt.Errorf("%w: status %s", ErrDeviceOffline, status)
	}

	if plan.Full && next.AddressBook.HasBattery {
		battery, err := c.api.BatterySettings(ctx)
		switch {
		case errors.Is(err, foxess.ErrUnsupported):
		case err != nil:
			return classify(err), fmt.Errorf("battery settings: %w", err)
		default:
			next.Battery = battery
		}
	}

	var variables []string
	if c.device.Restrict {
		variables = sensor.RawVariables(c.device.ExtendPV)
	}
	raw, err := c.api.RealTime(ctx, variables)
	if err != nil {
		if status == model.InverterStatusAlarm {
			return OutcomeAlarmFailure, fmt.Errorf("realtime while in alarm: %w", err)
		}
		return classify(err), fmt.Errorf("realtime: %w", err)
	}
	next.Raw = raw

	if plan.Report {
		day := c.now()
		variables := sensor.ReportVariables()
		values, err := c.api.Report(ctx, day, variables)
		if err != nil {
			return classify(err), fmt.Errorf("report: %w", err)
		}
		next.Report = c.mergeReport(prev.Report, values, variables)
		next.ReportDay = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	}

	if plan.Full {
		gen, err := c.api.DailyGeneration(ctx)
		switch {
		case errors.Is(err, foxess.ErrUnsupported):
		case err != nil:
			return classify(err), fmt.Errorf("daily generation: %w", err)
		default:
			next.DailyGeneration = gen
		}
	}
	return OutcomeSuccess, nil
}

// mergeReport keeps the previous value of any requested variable the vendor has not reported yet.
func (c *Coordinator) mergeReport(prev, values map[string]*float64, variables []string) map[string]*float64 {
	merged := make(map[string]*float64, len(variables))
	for k, v := range values {
		merged[k] = v
	}
	for _, k := range variables {
		if _, ok := merged[k]; ok {
			continue
		}
		if v, ok := prev[k]; ok {
			c.logger.Warn("report value missing, keeping last known value", zap.String("variable", k))
			merged[k] = v
		}
	}
	return merged
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, foxess.ErrAuth):
		return OutcomeFailure
	case errors.Is(err, foxess.ErrTransport),
		errors.Is(err, foxess.ErrTokenExpired),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeTransportFailure
	default:
		return OutcomeFailure
	}
}

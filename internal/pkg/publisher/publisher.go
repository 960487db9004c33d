package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/contxt"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"go.uber.org/zap"
)

const sinkTimeout = 5 * time.Second

var errAlreadyRegistered = errors.New("publisher already registered")

// Sink receives changed sensor values. RegisterDevice is called once per device before its first Write.
type Sink interface {
	Write(ctx context.Context, data []map[string]any) error
	RegisterDevice(ctx context.Context, device *model.Device, statuses []model.DeviceStatus) error
}

// AvailabilitySink is implemented by sinks that track whether a device is reachable.
type AvailabilitySink interface {
	SetAvailability(ctx context.Context, deviceID string, online bool) error
}

// Publisher dedups sensor values per device and fans them out to every registered sink.
type Publisher struct {
	mu    sync.RWMutex
	sinks map[string]Sink

	sensors      sync.Map
	availability sync.Map
	registered   sync.Map
	now          func() time.Time
}

func New() *Publisher {
	return &Publisher{
		sinks: make(map[string]Sink),
		now:   time.Now,
	}
}

func (p *Publisher) RegisterPublisher(name string, sink Sink) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sinks[name]; ok {
		return errAlreadyRegistered
	}
	p.sinks[name] = sink
	return nil
}

// RegisterDevice announces the device and its sensors once. Later calls are no-ops.
func (p *Publisher) RegisterDevice(ctx context.Context, device *model.Device, statuses []model.DeviceStatus) {
	if _, loaded := p.registered.LoadOrStore(device.ID, struct{}{}); loaded {
		return
	}
	p.each(ctx, func(ctx context.Context, name string, sink Sink) {
		if err := sink.RegisterDevice(ctx, device, statuses); err != nil {
			zap.L().Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			// retry discovery with the next snapshot
			p.registered.Delete(device.ID)
			return
		}
		zap.L().Debug("registered device", zap.String("device", device.ID), zap.String("publisher", name))
	})
}

// PublishData writes every status whose value changed since the last successful publish for that device.
// Values are only recorded once every sink accepted them, so a failed write is retried on the next call.
func (p *Publisher) PublishData(ctx context.Context, device *model.Device, online bool, statuses []model.DeviceStatus) error {
	p.publishAvailability(ctx, device.ID, online)

	data := make([]map[string]any, 0, len(statuses))
	changed := make(map[string]string, len(statuses))
	ts := p.now()
	for _, status := range statuses {
		key, value, ok := p.changed(device.ID, status.Slug, status.Value)
		if !ok {
			continue
		}
		changed[key] = value
		var v any
		if status.Value != nil {
			v = *status.Value
		}
		data = append(data, map[string]any{
			"value":               v,
			"slug":                status.Slug,
			"timestamp":           ts,
			"identifier":          device.ID,
			"unit_of_measurement": status.Unit,
			"text":                status.Text,
		})
	}
	if len(data) == 0 {
		return nil
	}
	failed := false
	p.each(ctx, func(ctx context.Context, name string, sink Sink) {
		if err := sink.Write(ctx, data); err != nil {
			failed = true
			zap.L().Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			return
		}
		zap.L().Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	})
	if failed {
		return nil
	}
	for key, value := range changed {
		if _, loaded := p.sensors.Swap(key, value); !loaded {
			zap.L().Info("configured sensor", zap.String("device", device.ID), zap.String("sensor", key), zap.String("value", value))
		}
	}
	return nil
}

func (p *Publisher) publishAvailability(ctx context.Context, deviceID string, online bool) {
	if prev, ok := p.availability.Swap(deviceID, online); ok && prev.(bool) == online {
		return
	}
	p.each(ctx, func(ctx context.Context, name string, sink Sink) {
		as, ok := sink.(AvailabilitySink)
		if !ok {
			return
		}
		if err := as.SetAvailability(ctx, deviceID, online); err != nil {
			zap.L().Error("failed to publish availability", zap.Error(err), zap.String("publisher", name))
			p.availability.Delete(deviceID)
		}
	})
}

func (p *Publisher) each(ctx context.Context, fn func(ctx context.Context, name string, sink Sink)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, sink := range p.sinks {
		sinkCtx, cancel := contxt.WithTimeout(ctx, sinkTimeout)
		fn(sinkCtx, name, sink)
		cancel()
	}
}

// changed reports whether value differs from the last value recorded for the device sensor.
func (p *Publisher) changed(identifier, slug string, value *string) (string, string, bool) {
	key := identifier + "_" + slug
	newValue := "<nil>"
	if value != nil {
		newValue = *value
	}
	oldValue, exists := p.sensors.Load(key)
	return key, newValue, !exists || oldValue.(string) != newValue
}

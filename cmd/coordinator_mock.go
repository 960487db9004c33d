package cmd

import (
	"context"
	"sync"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/poller"
)

// MockCoordinator is a mock implementation of the CoordinatorService interface.
type MockCoordinator struct {
	SetupFunc   func(ctx context.Context) error
	RunFunc     func(ctx context.Context) error
	RefreshFunc func(ctx context.Context) (*model.Snapshot, error)

	Cfg  *config.DeviceConfig
	Snap *model.Snapshot

	mu        sync.Mutex
	listeners []poller.Listener
}

func (m *MockCoordinator) Setup(ctx context.Context) error {
	if m.SetupFunc != nil {
		return m.SetupFunc(ctx)
	}
	return nil
}

// Run blocks until ctx is done unless RunFunc is set.
func (m *MockCoordinator) Run(ctx context.Context) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockCoordinator) Subscribe(l poller.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Emit delivers snap to the subscribed listeners as a finished tick would.
func (m *MockCoordinator) Emit(ctx context.Context, snap *model.Snapshot) {
	m.mu.Lock()
	m.Snap = snap
	listeners := m.listeners
	m.mu.Unlock()
	for _, l := range listeners {
		l(ctx, snap)
	}
}

func (m *MockCoordinator) Snapshot() *model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snap == nil {
		return &model.Snapshot{DeviceID: m.Cfg.Key(), Tick: -1, State: model.StateIdle}
	}
	return m.Snap
}

func (m *MockCoordinator) Config() *config.DeviceConfig {
	return m.Cfg
}

func (m *MockCoordinator) Device() model.Device {
	return model.Device{ID: m.Cfg.Key(), Name: m.Cfg.Name, Model: "KH10", Manufacturer: "FoxESS"}
}

func (m *MockCoordinator) Refresh(ctx context.Context) (*model.Snapshot, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return m.Snapshot(), nil
}

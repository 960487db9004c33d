package cmd

import (
	"context"
	"time"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/poller"
)

// CoordinatorService defines what cmd.run expects from a device poll coordinator.
type CoordinatorService interface {
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
	Subscribe(l poller.Listener)
	// Methods needed by the http api and the metrics collector
	Snapshot() *model.Snapshot
	Config() *config.DeviceConfig
	Device() model.Device
	Refresh(ctx context.Context) (*model.Snapshot, error)
}

// Database is the history store; nil when no database is configured.
type Database interface {
	Write(ctx context.Context, data []map[string]any) error
	RegisterDevice(ctx context.Context, device *model.Device, statuses []model.DeviceStatus) error
	GetProperties(ctx context.Context, identifier, slug string, from, to *time.Time) (model.Properties, error)
	GetLatestProperties(ctx context.Context, identifier string) (model.Properties, error)
	Cleanup(ctx context.Context, retention time.Duration) error
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/database"
	"github.com/anicoll/foxess-integration/internal/pkg/database/migration"
	"github.com/anicoll/foxess-integration/internal/pkg/foxess"
	"github.com/anicoll/foxess-integration/internal/pkg/handler"
	"github.com/anicoll/foxess-integration/internal/pkg/metrics"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
	"github.com/anicoll/foxess-integration/internal/pkg/mqtt"
	"github.com/anicoll/foxess-integration/internal/pkg/poller"
	"github.com/anicoll/foxess-integration/internal/pkg/publisher"
	"github.com/anicoll/foxess-integration/internal/pkg/sensor"
	"github.com/anicoll/foxess-integration/internal/pkg/server"
	"github.com/anicoll/foxess-integration/pkg/sockets"
)

const defaultCleanupSchedule = "0 3 * * *"

var errCron = errors.New("cron error")

// FoxESSCommand is the main entry point for the foxess integration CLI command.
// It validates configuration and starts all required services.
func FoxESSCommand(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	ctx := c.Context
	var db Database
	if cfg.DatabaseCfg.Enabled() {
		if err := migration.Migrate(cfg.DatabaseCfg.URL, cfg.DatabaseCfg.MigrationsFolder); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		conn, err := database.Connect(ctx, cfg.DatabaseCfg.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		db = conn
	}

	coordinators, err := newCoordinators(cfg)
	if err != nil {
		return err
	}

	errorChan := make(chan error, 100)
	if err := run(ctx, cfg, coordinators, errorChan, logger, db); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shut down")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

// newCoordinators builds one coordinator per device. Devices sharing an api key share a rate gate.
func newCoordinators(cfg *config.Config) ([]CoordinatorService, error) {
	gates := make(map[string]*foxess.RateGate)
	out := make([]CoordinatorService, 0, len(cfg.Devices))
	for _, device := range cfg.Devices {
		var gate *foxess.RateGate
		if device.Generation == config.GenerationOpenAPI {
			gate = gates[device.APIKey]
			if gate == nil {
				gate = foxess.NewRateGate(cfg.Vendor.RateSpacing, cfg.Vendor.RateBuffer)
				gates[device.APIKey] = gate
			}
		}
		api, err := foxess.New(device, cfg.Vendor, gate)
		if err != nil {
			return nil, err
		}
		out = append(out, poller.New(device, api, cfg.Schedule, poller.WithInterval(cfg.PollInterval)))
	}
	return out, nil
}

func run(ctx context.Context, cfg *config.Config, coordinators []CoordinatorService, errorChan chan error, logger *zap.Logger, db Database) error {
	eg, ctx := errgroup.WithContext(ctx)

	pub := publisher.New()
	if db != nil {
		if err := pub.RegisterPublisher("postgres", db); err != nil {
			return err
		}
		eg.Go(func() error {
			return cronDbCleanup(ctx, db, cfg.DatabaseCfg, errorChan)
		})
	}

	if cfg.MqttCfg.Enabled() {
		mqttSvc := mqtt.New(paho_mqtt.NewClient(mqtt.ClientOptions(cfg.MqttCfg)), cfg.MqttCfg.ClientID)
		if err := mqttSvc.Connect(); err != nil {
			return err
		}
		defer func() {
			if err := mqttSvc.Close(); err != nil {
				logger.Warn("failed to close mqtt connection", zap.Error(err))
			}
		}()
		if err := pub.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	hub := sockets.New(
		sockets.OnConnected(func(conn sockets.Connection) {
			// bring new clients up to date without waiting for the next tick
			for _, c := range coordinators {
				msg, err := handler.Live(c, c.Snapshot())
				if err != nil {
					continue
				}
				_ = conn.Send(msg)
			}
		}),
		sockets.OnError(func(err error) {
			logger.Debug("live feed client error", zap.Error(err))
		}),
	)
	defer hub.Close()

	sources := make([]metrics.Source, 0, len(coordinators))
	services := make([]handler.DeviceService, 0, len(coordinators))
	for _, c := range coordinators {
		sources = append(sources, c)
		services = append(services, c)
		c.Subscribe(listener(pub, hub, c))

		eg.Go(func() error {
			if err := c.Setup(ctx); err != nil {
				logger.Error("device setup failed", zap.String("device", c.Config().Key()), zap.Error(err))
				return err
			}
			return c.Run(ctx)
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(sources...),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.HTTPCfg != nil && cfg.HTTPCfg.Addr != "" {
		var store handler.HistoryStore
		if db != nil {
			store = db
		}
		srv := server.New(cfg.HTTPCfg.Addr, handler.NewDevices(services...), store, hub, reg)
		eg.Go(func() error {
			return srv.Run(ctx)
		})
	}

	eg.Go(func() error {
		// handle any async errors from service
		for {
			select {
			case err, ok := <-errorChan:
				if !ok {
					errorChan = nil
					continue
				}
				if errors.Is(err, errCron) {
					logger.Error("cron error", zap.Error(err))
					return err
				}
				logger.Warn("async error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}

// listener fans every stored snapshot out to the sinks and the live feed.
func listener(pub *publisher.Publisher, hub *sockets.Hub, svc CoordinatorService) poller.Listener {
	return func(ctx context.Context, snap *model.Snapshot) {
		statuses := sensor.Map(snap, svc.Config().ExtendPV)
		// wait for the device detail so discovery carries the model and firmware
		if snap.AddressBook != nil {
			device := svc.Device()
			pub.RegisterDevice(ctx, &device, statuses)
			if err := pub.PublishData(ctx, &device, snap.Online, statuses); err != nil {
				zap.L().Error("failed to publish data", zap.Error(err))
			}
		}

		msg, err := handler.Live(svc, snap)
		if err != nil {
			zap.L().Error("failed to encode live message", zap.Error(err))
			return
		}
		hub.Broadcast(msg)
	}
}

func cronDbCleanup(ctx context.Context, db Database, cfg *config.DatabaseConfig, errChan chan error) error {
	retention, schedule := database.DefaultRetention, defaultCleanupSchedule
	if cfg != nil {
		if cfg.Retention > 0 {
			retention = cfg.Retention
		}
		if cfg.CleanupSchedule != "" {
			schedule = cfg.CleanupSchedule
		}
	}

	if err := db.Cleanup(ctx, retention); err != nil {
		return err
	}

	// CRON automation
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := db.Cleanup(ctx, retention); err != nil {
			zap.L().Error("error cleaning up database", zap.Error(err))
			select {
			case errChan <- fmt.Errorf("%w: %w", errCron, err):
			case <-ctx.Done():
			}
		}
	}); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

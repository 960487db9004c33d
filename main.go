package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/foxess-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "foxess-integration",
		Usage:  "polls the FoxESS cloud and publishes inverter sensors",
		Action: cmd.FoxESSCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-generation",
				Usage:   "vendor api generation: cloud or openapi",
				EnvVars: []string{"FOXESS_API_GENERATION"},
				Value:   "openapi",
			},
			&cli.StringFlag{
				Name:    "foxess-username",
				EnvVars: []string{"FOXESS_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "foxess-password",
				EnvVars: []string{"FOXESS_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "foxess-api-key",
				EnvVars: []string{"FOXESS_API_KEY"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "foxess-device-sn",
				EnvVars: []string{"FOXESS_DEVICE_SN"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "foxess-device-id",
				EnvVars: []string{"FOXESS_DEVICE_ID"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "name",
				EnvVars: []string{"FOXESS_NAME"},
				Value:   "FoxESS",
			},
			&cli.BoolFlag{
				Name:    "extend-pv",
				Usage:   "expose PV strings 7 to 18",
				EnvVars: []string{"FOXESS_EXTEND_PV"},
				Value:   false,
			},
			&cli.BoolFlag{
				Name:    "restrict",
				Usage:   "only request the variables the sensor table reads",
				EnvVars: []string{"FOXESS_RESTRICT"},
				Value:   false,
			},
			&cli.StringFlag{
				Name:    "devices-file",
				Usage:   "yaml file listing several devices; replaces the single device flags",
				EnvVars: []string{"DEVICES_FILE"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-client-id",
				EnvVars: []string{"MQTT_CLIENT_ID"},
				Value:   "foxess-integration",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "migrations",
			},
			&cli.DurationFlag{
				Name:    "database-retention",
				EnvVars: []string{"DATABASE_RETENTION"},
				Value:   8 * 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:    "database-cleanup-schedule",
				EnvVars: []string{"DATABASE_CLEANUP_SCHEDULE"},
				Value:   "0 3 * * *",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   time.Minute,
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

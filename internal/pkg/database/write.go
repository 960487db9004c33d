package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/anicoll/foxess-integration/internal/pkg/model"
)

func (db *Database) Write(ctx context.Context, data []map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, record := range data {
		batch.Queue(`
			INSERT INTO property (time_stamp, unit_of_measurement, value, identifier, slug)
			VALUES ($1, $2, $3, $4, $5)
		`, record["timestamp"], record["unit_of_measurement"], record["value"], record["identifier"], record["slug"])
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RegisterDevice upserts the device row. Sensors are not stored; property rows carry their slug.
func (db *Database) RegisterDevice(ctx context.Context, device *model.Device, _ []model.DeviceStatus) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO device (id, name, model, serial_number, manufacturer, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			model = EXCLUDED.model,
			serial_number = EXCLUDED.serial_number,
			manufacturer = EXCLUDED.manufacturer,
			version = EXCLUDED.version,
			updated_at = now();`,
		device.ID, device.Name, device.Model, device.SerialNumber, device.Manufacturer, device.Version)
	return err
}

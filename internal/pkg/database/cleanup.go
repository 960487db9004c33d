package database

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRetention is how long property rows are kept.
const DefaultRetention = 8 * 24 * time.Hour

// Cleanup removes property rows older than retention.
func (db *Database) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	tag, err := db.pool.Exec(ctx, "DELETE FROM property WHERE time_stamp < $1", time.Now().Add(-retention))
	if err != nil {
		return err
	}
	zap.L().Info("cleaned up property history", zap.Int64("deleted", tag.RowsAffected()), zap.Duration("retention", retention))
	return nil
}

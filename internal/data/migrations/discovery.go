package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	discoverydata "spotlight/app/internal/data/discovery"
)

// MigrateDiscoveries applies the discovery history schema using Gorm's AutoMigrate and logs progress.
func MigrateDiscoveries(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "discovery.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying discovery schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&discoverydata.DiscoveryRecord{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("discovery schema migration failed")
		}
		return eris.Wrap(err, "auto migrating discovery schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("discovery schema migration complete")
	}

	return nil
}

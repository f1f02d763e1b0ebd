package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/unwrapped-proof/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.ContributionState{},
		&domain.ProofRecord{},
	)
}

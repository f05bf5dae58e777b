package db

import (
	"gorm.io/gorm"

	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
)

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&questions.QuestionPart{},
		&questions.SyncIntent{},
	)
}

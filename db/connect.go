package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/config"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBName)

	// Table names come from each model's TableName override.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to MySQL: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Agent{},
		&models.Personality{},
		&models.PaymentRecord{},
		&models.Conversation{},
		&models.ConversationMessage{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

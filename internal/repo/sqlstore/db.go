// Package sqlstore is the gorm backed storage used for local development
// and tests.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

var tables = []any{
	&models.User{},
	&models.ClientPlan{},
	&models.ClientStat{},
	&models.Lead{},
	&models.Review{},
	&models.Order{},
	&models.ChatSession{},
	&models.ChatMessage{},
	&models.PublicPlan{},
	&models.PortfolioItem{},
	&models.SiteConfig{},
	&models.AuditLog{},
	&models.Visit{},
	&models.EmailOutbox{},
	&counter{},
}

// Open opens the sqlite database at path and migrates the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: gdb}
	if err := db.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Migrate(ctx context.Context) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// one open ticket per client; SQLite rejects bound parameters in a partial index
	err := tx.Exec(fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_open_ticket_per_user
		ON chat_sessions(user_id) WHERE status = '%s' AND user_id IS NOT NULL`, models.SessionStatusOpen)).Error
	if err != nil {
		return fmt.Errorf("create open ticket index: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewStores wires every SQL backed repository.
func NewStores(db *DB) *repository.Stores {
	return &repository.Stores{
		Users:       &userRepository{baseRepo[models.User]{db.DB}},
		ClientPlans: &clientPlanRepository{baseRepo[models.ClientPlan]{db.DB}},
		ClientStats: &clientStatRepository{baseRepo[models.ClientStat]{db.DB}},
		Leads:       &leadRepository{baseRepo[models.Lead]{db.DB}},
		Reviews:     &reviewRepository{baseRepo[models.Review]{db.DB}},
		Orders:      &orderRepository{baseRepo[models.Order]{db.DB}},
		Sessions:    &chatSessionRepository{baseRepo[models.ChatSession]{db.DB}},
		Messages:    &chatMessageRepository{baseRepo[models.ChatMessage]{db.DB}},
		Plans:       &publicPlanRepository{baseRepo[models.PublicPlan]{db.DB}},
		Portfolio:   &portfolioRepository{baseRepo[models.PortfolioItem]{db.DB}},
		SiteConfig:  &siteConfigRepository{baseRepo[models.SiteConfig]{db.DB}},
		Audit:       &auditLogRepository{baseRepo[models.AuditLog]{db.DB}},
		Visits:      &visitRepository{baseRepo[models.Visit]{db.DB}},
		Outbox:      &outboxRepository{baseRepo[models.EmailOutbox]{db.DB}},
	}
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

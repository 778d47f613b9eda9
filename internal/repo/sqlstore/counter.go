package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const ticketCounter = "ticket_number"

type counter struct {
	Name  string `gorm:"primaryKey;size:50"`
	Value int64
}

func (counter) TableName() string { return "counters" }

func nextSequence(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(`INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`, name).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return value, nil
}

package persistence

import (
	"context"
	"fmt"
	"time"

	"content-hub/domain/model"
	"content-hub/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// BehaviorRow is the gorm mapping of one recorded access event
type BehaviorRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"size:64;index"`
	Action      string    `gorm:"size:32"`
	Platform    string    `gorm:"size:32"`
	ContentType string    `gorm:"size:32"`
	ContentID   string    `gorm:"size:128"`
	SessionID   string    `gorm:"size:64"`
	OccurredAt  time.Time `gorm:"index"`
}

func (BehaviorRow) TableName() string { return "behavior_events" }

// NewBehaviorDB opens the MySQL store backing the behavior history and
// migrates its schema.
func NewBehaviorDB() (*gorm.DB, error) {
	cfg := configuration.C.Database.Mysql
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&BehaviorRow{}); err != nil {
		return nil, fmt.Errorf("migrate behavior_events: %w", err)
	}
	return db, nil
}

// BehaviorStore persists access events so the prefetch engine can reload its
// learning window across restarts.
type BehaviorStore struct {
	db *gorm.DB
}

func NewBehaviorStore(db *gorm.DB) *BehaviorStore {
	return &BehaviorStore{db: db}
}

func (s *BehaviorStore) Save(ctx context.Context, rec model.BehaviorRecord) error {
	row := BehaviorRow{
		UserID:      rec.UserID,
		Action:      rec.Action,
		Platform:    string(rec.Content.Platform),
		ContentType: string(rec.Content.Type),
		ContentID:   rec.Content.ID,
		SessionID:   rec.SessionID,
		OccurredAt:  rec.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// LoadRecent returns up to limit events, oldest first, so replaying them into
// the engine preserves transition order.
func (s *BehaviorStore) LoadRecent(ctx context.Context, limit int) ([]model.BehaviorRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []BehaviorRow
	err := s.db.WithContext(ctx).Order("occurred_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.BehaviorRecord, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		out = append(out, model.BehaviorRecord{
			UserID: r.UserID,
			Action: r.Action,
			Content: model.ContentRef{
				Platform: model.Platform(r.Platform),
				Type:     model.ContentType(r.ContentType),
				ID:       r.ContentID,
			},
			Timestamp: r.OccurredAt,
			SessionID: r.SessionID,
		})
	}
	return out, nil
}

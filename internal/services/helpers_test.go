package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, msgs ...domain.Message) {
	t.Helper()
	if _, err := repo.InsertMessages(context.Background(), db, msgs); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func message(id int64, channel, text string, views int64, at time.Time) domain.Message {
	return domain.Message{
		MessageID:   id,
		ChannelName: channel,
		MessageText: text,
		Views:       views,
		MessageDate: at,
		ScrapedAt:   at,
	}
}

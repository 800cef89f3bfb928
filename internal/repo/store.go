package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// MessageStore binds the message functions to one handle so the loader can
// depend on an interface instead of *gorm.DB.
type MessageStore struct {
	DB *gorm.DB
}

// NewMessageStore returns a MessageStore over db.
func NewMessageStore(db *gorm.DB) *MessageStore { return &MessageStore{DB: db} }

func (s *MessageStore) ExistingMessageIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return ExistingMessageIDs(ctx, s.DB, ids)
}

func (s *MessageStore) InsertMessages(ctx context.Context, msgs []domain.Message) (int64, error) {
	return InsertMessages(ctx, s.DB, msgs)
}

func (s *MessageStore) MessageTableStats(ctx context.Context) (domain.TableStats, error) {
	return MessageTableStats(ctx, s.DB)
}

func (s *MessageStore) ReplaceImageDetections(ctx context.Context, rows []domain.ImageDetection) error {
	return ReplaceImageDetections(ctx, s.DB, rows)
}

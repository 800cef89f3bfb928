// Package repo implements the data persistence layer for the warehouse,
// backed by GORM. This file provides repository functions for the raw
// message table.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a message is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - ExistingMessageIDs(ctx, db, ids) -> []int64, error
//     Returns the subset of ids already stored, via IN queries.
//
//   - InsertMessages(ctx, db, msgs) -> rowsAffected, error
//     Bulk insert that ignores rows whose message_id already exists.
//
//   - GetMessage(ctx, db, id) -> *domain.Message, error
//     Fetches one message, or ErrNotFound if missing.
//
//   - SearchMessages / CountMessages(ctx, db, filter)
//     Keyword search over message_text with optional channel and image filters.
//
//   - KeywordMention(ctx, db, keyword) -> domain.ProductMention, error
//     Mention count, average views and channels for one keyword.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/utils"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

const (
	// lookupChunk keeps IN lists well below driver parameter limits.
	lookupChunk = 500
	insertChunk = 200
)

// ExistingMessageIDs returns the ids from the input that already exist. The
// input is queried in chunks; the order of the result is unspecified.
func ExistingMessageIDs(ctx context.Context, db *gorm.DB, ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	for _, chunk := range utils.Chunk(ids, lookupChunk) {
		var found []int64
		err := db.WithContext(ctx).
			Model(&domain.Message{}).
			Where("message_id IN ?", chunk).
			Pluck("message_id", &found).Error
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// InsertMessages inserts msgs with ON CONFLICT (message_id) DO NOTHING, so
// rows that raced in since the existence check are skipped silently. The
// statement batches run in one transaction. The returned count is what the
// driver reports as affected.
func InsertMessages(ctx context.Context, db *gorm.DB, msgs []domain.Message) (int64, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	var affected int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).CreateInBatches(&msgs, insertChunk)
		affected = res.RowsAffected
		return res.Error
	})
	return affected, err
}

// GetMessage fetches a message by its natural key.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("message_id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MessageFilter narrows keyword searches. Query is matched as a
// case-insensitive substring of message_text. HasImage selects messages with
// (true) or without (false) a stored image path.
type MessageFilter struct {
	Query    string
	Channel  string
	HasImage *bool
	Limit    int
}

func (f MessageFilter) apply(q *gorm.DB) *gorm.DB {
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where(`LOWER(message_text) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(s))+"%")
	}
	if f.Channel != "" {
		q = q.Where("channel_name = ?", f.Channel)
	}
	if f.HasImage != nil {
		if *f.HasImage {
			q = q.Where("image_path IS NOT NULL AND image_path <> ''")
		} else {
			q = q.Where("(image_path IS NULL OR image_path = '')")
		}
	}
	return q
}

// SearchMessages returns matching messages ordered by views (desc), then
// message date (desc) and id (desc) for determinism. A non-positive Limit
// returns every match.
func SearchMessages(ctx context.Context, db *gorm.DB, f MessageFilter) ([]domain.Message, error) {
	var out []domain.Message
	q := f.apply(db.WithContext(ctx).Model(&domain.Message{})).
		Order("views DESC, message_date DESC, message_id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages counts the messages matching f, ignoring f.Limit.
func CountMessages(ctx context.Context, db *gorm.DB, f MessageFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Message{})).Count(&total).Error
	return total, err
}

// KeywordMention aggregates the messages whose text mentions keyword.
// Channels are sorted by name. A keyword without mentions yields a zero
// MentionCount and an empty channel list.
func KeywordMention(ctx context.Context, db *gorm.DB, keyword string) (domain.ProductMention, error) {
	out := domain.ProductMention{ProductName: keyword, Channels: []string{}}
	f := MessageFilter{Query: keyword}

	var row struct {
		Mentions int64
		AvgViews float64
	}
	err := f.apply(db.WithContext(ctx).Model(&domain.Message{})).
		Select("COUNT(*) AS mentions, COALESCE(AVG(views), 0) AS avg_views").
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.MentionCount = int(row.Mentions)
	out.AvgViews = row.AvgViews
	if row.Mentions == 0 {
		return out, nil
	}

	err = f.apply(db.WithContext(ctx).Model(&domain.Message{})).
		Distinct("channel_name").
		Order("channel_name ASC").
		Pluck("channel_name", &out.Channels).Error
	return out, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

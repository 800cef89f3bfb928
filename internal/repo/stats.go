// Package repo implements the data persistence layer for the warehouse,
// backed by GORM. This file provides aggregate/statistics queries over the
// raw message table used by the loader's reporting path and by the HTTP
// layer (including ETag generation). Each function is context-aware and
// safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// MessageTableStats returns the row count, distinct channels, earliest and
// latest message_date, and the count of rows with media. On an empty table
// the timestamps are nil.
func MessageTableStats(ctx context.Context, db *gorm.DB) (domain.TableStats, error) {
	var st domain.TableStats
	msgs := func() *gorm.DB { return db.WithContext(ctx).Model(&domain.Message{}) }

	if err := msgs().Count(&st.TotalMessages).Error; err != nil {
		return domain.TableStats{}, err
	}
	if st.TotalMessages == 0 {
		return st, nil
	}
	if err := msgs().Distinct("channel_name").Count(&st.UniqueChannels).Error; err != nil {
		return domain.TableStats{}, err
	}
	if err := msgs().Where("has_media = ?", true).Count(&st.MessagesWithMedia).Error; err != nil {
		return domain.TableStats{}, err
	}

	// Order+Limit instead of MIN()/MAX(): SQLite returns those as TEXT.
	earliest, err := boundaryDate(msgs(), "message_date ASC")
	if err != nil {
		return domain.TableStats{}, err
	}
	latest, err := boundaryDate(msgs(), "message_date DESC")
	if err != nil {
		return domain.TableStats{}, err
	}
	st.EarliestMessage, st.LatestMessage = earliest, latest
	return st, nil
}

func boundaryDate(q *gorm.DB, order string) (*time.Time, error) {
	var row struct {
		MessageDate time.Time
	}
	res := q.Select("message_date").Order(order).Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	t := row.MessageDate.UTC()
	return &t, nil
}

// ChannelSummaries aggregates every channel, busiest first.
func ChannelSummaries(ctx context.Context, db *gorm.DB) ([]domain.ChannelSummary, error) {
	var rows []struct {
		ChannelName    string
		TotalPosts     int64
		AvgViews       float64
		PostsWithMedia int64
	}
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Select("channel_name, COUNT(*) AS total_posts, COALESCE(AVG(views), 0) AS avg_views, " +
			"SUM(CASE WHEN has_media THEN 1 ELSE 0 END) AS posts_with_media").
		Group("channel_name").
		Order("total_posts DESC, channel_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChannelSummary, 0, len(rows))
	for _, r := range rows {
		s := domain.ChannelSummary{
			ChannelName:    r.ChannelName,
			TotalPosts:     r.TotalPosts,
			AvgViews:       r.AvgViews,
			PostsWithMedia: r.PostsWithMedia,
		}
		if r.TotalPosts > 0 {
			s.MediaPercentage = float64(r.PostsWithMedia) / float64(r.TotalPosts) * 100
		}
		scoped := func() *gorm.DB {
			return db.WithContext(ctx).Model(&domain.Message{}).Where("channel_name = ?", r.ChannelName)
		}
		if s.FirstPostDate, err = boundaryDate(scoped(), "message_date ASC"); err != nil {
			return nil, err
		}
		if s.LastPostDate, err = boundaryDate(scoped(), "message_date DESC"); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ChannelMessagesStats returns the number of messages of a channel and the
// latest scraped_at among them, or (0, nil) when the channel has none.
func ChannelMessagesStats(ctx context.Context, db *gorm.DB, channel string) (count int64, maxScrapedAt *time.Time, err error) {
	scoped := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Message{}).Where("channel_name = ?", channel)
	}
	if err = scoped().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct {
		ScrapedAt time.Time
	}
	if err = scoped().Select("scraped_at").Order("scraped_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.ScrapedAt, nil
}

// ChannelActivity returns one entry per UTC day in [from, to] (inclusive,
// date part only) for the channel, zero-filled for days without messages.
func ChannelActivity(ctx context.Context, db *gorm.DB, channel string, from, to time.Time) ([]domain.ChannelActivityDay, error) {
	start := truncateDay(from)
	end := truncateDay(to)
	if end.Before(start) {
		return []domain.ChannelActivityDay{}, nil
	}

	var rows []struct {
		MessageDate time.Time
		Views       int64
		ImagePath   *string
	}
	err := db.WithContext(ctx).Model(&domain.Message{}).
		Select("message_date, views, image_path").
		Where("channel_name = ? AND message_date >= ? AND message_date < ?", channel, start, end.AddDate(0, 0, 1)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := map[string]*domain.ChannelActivityDay{}
	days := make([]domain.ChannelActivityDay, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.ChannelActivityDay{Date: d.Format("2006-01-02")})
	}
	for i := range days {
		byDay[days[i].Date] = &days[i]
	}
	for _, r := range rows {
		day, ok := byDay[r.MessageDate.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		day.MessageCount++
		day.TotalViews += r.Views
		if r.ImagePath != nil && *r.ImagePath != "" {
			day.ImagesCount++
		}
	}
	for i := range days {
		if days[i].MessageCount > 0 {
			days[i].AvgViews = float64(days[i].TotalViews) / float64(days[i].MessageCount)
		}
	}
	return days, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

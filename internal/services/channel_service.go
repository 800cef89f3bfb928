// Package services – ChannelService
//
// ChannelService answers per-channel questions over the raw message table:
// a summary of every channel and the daily activity of one channel.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/repo"
)

const (
	defaultActivityDays = 30
	maxActivityDays     = 365
)

// DateRange is an inclusive range of calendar days (YYYY-MM-DD).
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ChannelActivity is the daily activity of one channel.
type ChannelActivity struct {
	ChannelName   string                      `json:"channel_name"`
	TotalMessages int                         `json:"total_messages"`
	DateRange     DateRange                   `json:"date_range"`
	DailyActivity []domain.ChannelActivityDay `json:"daily_activity"`
}

// ChannelService provides channel-level read operations.
type ChannelService struct {
	DB *gorm.DB
	// Now is the clock used to anchor activity windows; defaults to time.Now.
	Now func() time.Time
}

// NewChannelService constructs a ChannelService over db.
func NewChannelService(db *gorm.DB) *ChannelService {
	return &ChannelService{DB: db, Now: time.Now}
}

// Summaries returns one summary per channel, busiest first.
func (s *ChannelService) Summaries(ctx context.Context) ([]domain.ChannelSummary, error) {
	ctx, span := otel.Tracer("services/ChannelService").Start(ctx, "Summaries")
	defer span.End()
	return repo.ChannelSummaries(ctx, s.DB)
}

// Version returns the message count and latest scrape time of a channel.
// Handlers derive cache validators from it. ErrChannelNotFound is returned
// for a channel without messages.
func (s *ChannelService) Version(ctx context.Context, channel string) (int64, time.Time, error) {
	n, latest, err := repo.ChannelMessagesStats(ctx, s.DB, channel)
	if err != nil {
		return 0, time.Time{}, err
	}
	if n == 0 || latest == nil {
		return 0, time.Time{}, ErrChannelNotFound
	}
	return n, *latest, nil
}

// Activity returns the daily activity of channel for the last days days,
// today included. days is clamped to [1, 365]; zero means 30.
func (s *ChannelService) Activity(ctx context.Context, channel string, days int) (*ChannelActivity, error) {
	ctx, span := otel.Tracer("services/ChannelService").Start(ctx, "Activity",
		trace.WithAttributes(
			attribute.String("channel.name", channel),
			attribute.Int("days", days),
		),
	)
	defer span.End()

	switch {
	case days == 0:
		days = defaultActivityDays
	case days < 1:
		days = 1
	case days > maxActivityDays:
		days = maxActivityDays
	}
	if _, _, err := s.Version(ctx, channel); err != nil {
		return nil, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	end := now().UTC()
	start := end.AddDate(0, 0, -days)
	daily, err := repo.ChannelActivity(ctx, s.DB, channel, start, end)
	if err != nil {
		return nil, err
	}

	out := &ChannelActivity{
		ChannelName:   channel,
		DateRange:     DateRange{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")},
		DailyActivity: daily,
	}
	for _, d := range daily {
		out.TotalMessages += d.MessageCount
	}
	return out, nil
}

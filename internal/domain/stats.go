package domain

import "time"

// TableStats summarizes the raw message table.
type TableStats struct {
	TotalMessages     int64      `json:"total_messages"`
	UniqueChannels    int64      `json:"unique_channels"`
	EarliestMessage   *time.Time `json:"earliest_message,omitempty"`
	LatestMessage     *time.Time `json:"latest_message,omitempty"`
	MessagesWithMedia int64      `json:"messages_with_media"`
}

// ChannelSummary aggregates the persisted messages of one channel.
type ChannelSummary struct {
	ChannelName     string     `json:"channel_name"`
	TotalPosts      int64      `json:"total_posts"`
	AvgViews        float64    `json:"avg_views"`
	PostsWithMedia  int64      `json:"posts_with_media"`
	MediaPercentage float64    `json:"media_percentage"`
	FirstPostDate   *time.Time `json:"first_post_date,omitempty"`
	LastPostDate    *time.Time `json:"last_post_date,omitempty"`
}

// ChannelActivityDay is one day of a channel's activity.
type ChannelActivityDay struct {
	Date         string  `json:"date"`
	MessageCount int     `json:"message_count"`
	TotalViews   int64   `json:"total_views"`
	AvgViews     float64 `json:"avg_views"`
	ImagesCount  int     `json:"images_count"`
}

// ProductMention counts how often a product keyword appears in message texts.
type ProductMention struct {
	ProductName  string   `json:"product_name"`
	MentionCount int      `json:"mention_count"`
	AvgViews     float64  `json:"avg_views"`
	Channels     []string `json:"channels"`
}

// VisualCategoryStat describes one image category among persisted detections.
type VisualCategoryStat struct {
	Category   string   `json:"category"`
	Count      int64    `json:"count"`
	Percentage float64  `json:"percentage"`
	AvgViews   float64  `json:"avg_views"`
	TopObjects []string `json:"top_objects"`
}

// VisualContentStats summarizes persisted image detections.
type VisualContentStats struct {
	TotalImages          int64                `json:"total_images"`
	ImagesWithDetections int64                `json:"images_with_detections"`
	TotalDetections      int64                `json:"total_detections"`
	Categories           []VisualCategoryStat `json:"categories"`
	TopDetectedClasses   map[string]int64     `json:"top_detected_classes"`
}

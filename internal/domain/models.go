// Package domain defines the persistence models for scraped channel messages,
// image detections, and loader runs. These types are mapped with GORM and form
// the core data layer of the warehouse.
package domain

import (
	"time"
)

// RawRecord is one semi-structured message record as written by the scraper
// into the lake. Fields are left untyped so that missing or malformed values
// can be detected before persistence.
type RawRecord map[string]any

// Message is one persisted row of the raw message table. MessageID is the
// provider-issued natural key; uniqueness on it is the single source of truth
// for "already ingested".
//
// Fields:
//   - MessageID: provider message id (primary key, never auto-generated).
//   - ChannelName: source channel; indexed for per-channel queries.
//   - MessageDate: when the message was posted (required).
//   - MessageText: body text, may be empty.
//   - HasMedia / MediaType / ImagePath: attachment metadata; ImagePath points
//     into the lake's image area.
//   - Views / Forwards / Replies: non-negative engagement counters.
//   - ScrapedAt: when the scraper fetched the message (defaults to load time).
//   - CreatedAt: row insertion time, managed by GORM.
type Message struct {
	MessageID   int64      `json:"message_id"             gorm:"primaryKey;autoIncrement:false"`
	ChannelName string     `json:"channel_name"           gorm:"type:varchar(255);not null;index:idx_raw_channel_name"`
	ChannelID   *int64     `json:"channel_id,omitempty"`
	MessageDate time.Time  `json:"message_date"           gorm:"not null;index:idx_raw_message_date"`
	MessageText string     `json:"message_text"           gorm:"type:text"`
	HasMedia    bool       `json:"has_media"              gorm:"not null"`
	MediaType   *string    `json:"media_type,omitempty"   gorm:"type:varchar(50)"`
	ImagePath   *string    `json:"image_path,omitempty"   gorm:"type:text"`
	Views       int64      `json:"views"                  gorm:"not null"`
	Forwards    int64      `json:"forwards"               gorm:"not null"`
	Replies     int64      `json:"replies"                gorm:"not null"`
	EditDate    *time.Time `json:"edit_date,omitempty"`
	PostAuthor  *string    `json:"post_author,omitempty"  gorm:"type:varchar(255)"`
	ScrapedAt   time.Time  `json:"scraped_at"             gorm:"not null;index:idx_raw_scraped_at"`
	CreatedAt   time.Time  `json:"created_at"             gorm:"autoCreateTime"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "raw_messages" }

// ImageDetection is one persisted detection row. Images without any detection
// are stored as a single placeholder row with a nil DetectedClass so that the
// image still counts towards totals.
type ImageDetection struct {
	ID            uint      `json:"id"                       gorm:"primaryKey"`
	MessageID     int64     `json:"message_id"               gorm:"not null;index:idx_det_message"`
	ChannelName   string    `json:"channel_name"             gorm:"type:varchar(255);not null;index:idx_det_channel"`
	ImagePath     string    `json:"image_path"               gorm:"type:text;not null;index:idx_det_image"`
	DetectedClass *string   `json:"detected_class,omitempty" gorm:"type:varchar(64);index:idx_det_class"`
	Confidence    *float64  `json:"confidence,omitempty"`
	BBoxX1        *float64  `json:"bbox_x1,omitempty"`
	BBoxY1        *float64  `json:"bbox_y1,omitempty"`
	BBoxX2        *float64  `json:"bbox_x2,omitempty"`
	BBoxY2        *float64  `json:"bbox_y2,omitempty"`
	TotalObjects  int       `json:"total_objects"            gorm:"not null"`
	ImageCategory string    `json:"image_category"           gorm:"type:varchar(32);not null;index:idx_det_category"`
	ProcessedAt   time.Time `json:"processed_at"             gorm:"not null"`
}

// TableName returns the database table name for ImageDetection.
func (ImageDetection) TableName() string { return "image_detections" }

package domain

import "time"

// Load run statuses.
const (
	LoadRunRunning   = "running"
	LoadRunSucceeded = "succeeded"
	LoadRunFailed    = "failed"
)

// LoadRun records one lake-to-store load with its accounting. When the load
// was requested with an idempotency key, the key is unique among runs so a
// retried request can be answered from the stored result until ExpiresAt.
type LoadRun struct {
	ID             string     `json:"id"                        gorm:"type:char(36);primaryKey"`
	IdempotencyKey *string    `json:"idempotency_key,omitempty" gorm:"type:varchar(200);uniqueIndex:ux_load_runs_key"`
	Path           string     `json:"path"                      gorm:"type:text;not null"`
	Status         string     `json:"status"                    gorm:"type:varchar(16);not null;index"`
	Sources        int        `json:"sources"`
	SkippedSources int        `json:"skipped_sources"`
	Received       int        `json:"received"`
	Invalid        int        `json:"invalid"`
	Duplicates     int        `json:"duplicates"`
	Inserted       int        `json:"inserted"`
	Error          string     `json:"error,omitempty"           gorm:"type:text"`
	StartedAt      time.Time  `json:"started_at"                gorm:"not null"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	ExpiresAt      time.Time  `json:"-"                         gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (LoadRun) TableName() string { return "load_runs" }

// Package services – DetectionService
//
// DetectionService classifies detector output, reports batch statistics and,
// on request, persists per-detection rows and writes tabular and structured
// exports.
package services

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/repo"
	"github.com/tbourn/telegram-warehouse/internal/vision"
)

// DetectionReport summarizes one batch of detector output.
type DetectionReport struct {
	Statistics domain.BatchStatistics         `json:"statistics"`
	Categories map[string]domain.CategoryStat `json:"categories"`
	Persisted  int                            `json:"persisted_rows"`
}

// DetectionService processes detector output.
type DetectionService struct {
	DB  *gorm.DB
	Log zerolog.Logger
	Now func() time.Time
}

// NewDetectionService constructs a DetectionService over db. db may be nil
// when results are never persisted.
func NewDetectionService(db *gorm.DB) *DetectionService {
	return &DetectionService{DB: db, Log: log.Logger, Now: time.Now}
}

func (s *DetectionService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Process classifies results and, when persist is set, replaces the stored
// detections of every image in results.
func (s *DetectionService) Process(ctx context.Context, results []domain.ImageDetections, persist bool) (*DetectionReport, error) {
	rep := &DetectionReport{
		Statistics: vision.Statistics(results),
		Categories: vision.CategoryStatistics(results),
	}
	for cat, st := range rep.Categories {
		imagesClassified.WithLabelValues(cat).Add(float64(st.Count))
	}
	s.Log.Info().
		Int("images", rep.Statistics.TotalImages).
		Int("detections", rep.Statistics.TotalDetections).
		Msg("classified detector output")
	if !persist {
		return rep, nil
	}
	rows := vision.ToRows(results, s.now())
	if err := repo.ReplaceImageDetections(ctx, s.DB, rows); err != nil {
		return nil, err
	}
	rep.Persisted = len(rows)
	s.Log.Info().Int("rows", len(rows)).Msg("stored image detections")
	return rep, nil
}

// ExportCSV writes the tabular export of results to w.
func (s *DetectionService) ExportCSV(w io.Writer, results []domain.ImageDetections) error {
	return vision.WriteCSV(w, results, s.now())
}

// ExportJSON writes the structured export of results to w.
func (s *DetectionService) ExportJSON(w io.Writer, results []domain.ImageDetections) error {
	return vision.WriteJSON(w, results, s.now())
}

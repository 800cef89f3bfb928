// Package repo implements the data persistence layer for the warehouse,
// backed by GORM. This file provides repository functions for the
// image_detections table.
package repo

import (
	"context"
	"math"
	"sort"

	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

const topDetectedClasses = 10

// ReplaceImageDetections stores rows, first deleting every existing row of
// the images they cover. Results for an image are therefore replaced
// wholesale, never merged. Runs in one transaction.
func ReplaceImageDetections(ctx context.Context, db *gorm.DB, rows []domain.ImageDetection) error {
	if len(rows) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	paths := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ImagePath]; ok {
			continue
		}
		seen[r.ImagePath] = struct{}{}
		paths = append(paths, r.ImagePath)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(paths); i += lookupChunk {
			end := min(i+lookupChunk, len(paths))
			if err := tx.Where("image_path IN ?", paths[i:end]).Delete(&domain.ImageDetection{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(&rows, insertChunk).Error
	})
}

// VisualContentStats summarizes persisted detections, optionally for one
// channel. Percentages are rounded to one decimal.
func VisualContentStats(ctx context.Context, db *gorm.DB, channel string) (domain.VisualContentStats, error) {
	out := domain.VisualContentStats{
		Categories:         []domain.VisualCategoryStat{},
		TopDetectedClasses: map[string]int64{},
	}
	scoped := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&domain.ImageDetection{})
		if channel != "" {
			q = q.Where("channel_name = ?", channel)
		}
		return q
	}

	var totals struct {
		TotalImages          int64
		ImagesWithDetections int64
		TotalDetections      int64
	}
	err := scoped().Select(
		"COUNT(DISTINCT image_path) AS total_images, " +
			"COUNT(DISTINCT CASE WHEN detected_class IS NOT NULL THEN image_path END) AS images_with_detections, " +
			"COUNT(detected_class) AS total_detections",
	).Scan(&totals).Error
	if err != nil {
		return out, err
	}
	out.TotalImages = totals.TotalImages
	out.ImagesWithDetections = totals.ImagesWithDetections
	out.TotalDetections = totals.TotalDetections
	if out.TotalImages == 0 {
		return out, nil
	}

	var cats []struct {
		ImageCategory string
		Images        int64
	}
	err = scoped().
		Select("image_category, COUNT(DISTINCT image_path) AS images").
		Group("image_category").
		Scan(&cats).Error
	if err != nil {
		return out, err
	}
	for _, c := range cats {
		st := domain.VisualCategoryStat{
			Category:   c.ImageCategory,
			Count:      c.Images,
			Percentage: math.Round(float64(c.Images)/float64(out.TotalImages)*1000) / 10,
			TopObjects: []string{},
		}

		var avg struct{ AvgViews float64 }
		sub := scoped().Select("message_id").Where("image_category = ?", c.ImageCategory)
		err := db.WithContext(ctx).Model(&domain.Message{}).
			Select("COALESCE(AVG(views), 0) AS avg_views").
			Where("message_id IN (?)", sub).
			Scan(&avg).Error
		if err != nil {
			return out, err
		}
		st.AvgViews = avg.AvgViews

		err = scoped().
			Where("image_category = ? AND detected_class IS NOT NULL", c.ImageCategory).
			Group("detected_class").
			Order("COUNT(*) DESC, detected_class ASC").
			Limit(5).
			Pluck("detected_class", &st.TopObjects).Error
		if err != nil {
			return out, err
		}
		out.Categories = append(out.Categories, st)
	}
	sort.SliceStable(out.Categories, func(i, j int) bool {
		if out.Categories[i].Count != out.Categories[j].Count {
			return out.Categories[i].Count > out.Categories[j].Count
		}
		return out.Categories[i].Category < out.Categories[j].Category
	})

	var classes []struct {
		DetectedClass string
		N             int64
	}
	err = scoped().
		Select("detected_class, COUNT(*) AS n").
		Where("detected_class IS NOT NULL").
		Group("detected_class").
		Order("n DESC, detected_class ASC").
		Limit(topDetectedClasses).
		Scan(&classes).Error
	if err != nil {
		return out, err
	}
	for _, c := range classes {
		out.TopDetectedClasses[c.DetectedClass] = c.N
	}
	return out, nil
}

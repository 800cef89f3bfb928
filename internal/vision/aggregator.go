package vision

import "github.com/tbourn/telegram-warehouse/internal/domain"

// Statistics folds a batch of per-image results. An empty batch yields an
// all-zero result.
func Statistics(batch []domain.ImageDetections) domain.BatchStatistics {
	st := domain.BatchStatistics{
		TotalImages: len(batch),
		ClassCounts: map[string]int{},
	}
	var confSum float64
	for _, img := range batch {
		if len(img.Detections) > 0 {
			st.ImagesWithDetections++
		}
		for _, d := range img.Detections {
			st.TotalDetections++
			st.ClassCounts[d.Class]++
			confSum += d.Confidence
		}
	}
	st.ImagesWithoutDetections = st.TotalImages - st.ImagesWithDetections
	st.UniqueClasses = len(st.ClassCounts)
	if st.TotalImages > 0 {
		st.AvgDetectionsPerImage = float64(st.TotalDetections) / float64(st.TotalImages)
	}
	if st.TotalDetections > 0 {
		st.AvgConfidence = confSum / float64(st.TotalDetections)
	}
	return st
}

// CategoryStatistics classifies every image and reports count and share per
// category. Percentages are relative to len(batch), so images sharing a path
// are counted separately. Only categories that occur are present.
func CategoryStatistics(batch []domain.ImageDetections) map[string]domain.CategoryStat {
	counts := map[string]int{}
	for _, img := range batch {
		counts[Classify(img.Detections)]++
	}
	total := len(batch)
	out := make(map[string]domain.CategoryStat, len(counts))
	for cat, n := range counts {
		out[cat] = domain.CategoryStat{Count: n, Percentage: float64(n) / float64(total) * 100}
	}
	return out
}

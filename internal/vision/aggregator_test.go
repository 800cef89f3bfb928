package vision

import (
	"math"
	"reflect"
	"testing"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

func TestStatistics_Empty(t *testing.T) {
	st := Statistics(nil)
	if st.TotalImages != 0 || st.TotalDetections != 0 || st.AvgConfidence != 0 || st.AvgDetectionsPerImage != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if st.ClassCounts == nil || len(st.ClassCounts) != 0 {
		t.Fatalf("class counts = %v", st.ClassCounts)
	}
}

func TestStatistics(t *testing.T) {
	batch := []domain.ImageDetections{
		{ImageRef: domain.ImageRef{Path: "a/1.jpg"}, Detections: []domain.Detection{d("person", 0.9), d("bottle", 0.7)}},
		{ImageRef: domain.ImageRef{Path: "a/2.jpg"}, Detections: []domain.Detection{d("bottle", 0.5)}},
		{ImageRef: domain.ImageRef{Path: "a/3.jpg"}},
	}
	st := Statistics(batch)
	if st.TotalImages != 3 || st.ImagesWithDetections != 2 || st.ImagesWithoutDetections != 1 || st.TotalDetections != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if st.UniqueClasses != 2 || !reflect.DeepEqual(st.ClassCounts, map[string]int{"person": 1, "bottle": 2}) {
		t.Fatalf("classes = %d %v", st.UniqueClasses, st.ClassCounts)
	}
	if math.Abs(st.AvgConfidence-0.7) > 1e-9 || st.AvgDetectionsPerImage != 1 {
		t.Fatalf("averages = %v / %v", st.AvgConfidence, st.AvgDetectionsPerImage)
	}
}

func TestCategoryStatistics(t *testing.T) {
	if got := CategoryStatistics(nil); len(got) != 0 {
		t.Fatalf("empty = %v", got)
	}
	batch := []domain.ImageDetections{
		{ImageRef: domain.ImageRef{Path: "a/1.jpg"}, Detections: []domain.Detection{d("bottle", 0.7)}},
		{ImageRef: domain.ImageRef{Path: "a/2.jpg"}, Detections: []domain.Detection{d("cup", 0.5)}},
		{ImageRef: domain.ImageRef{Path: "a/3.jpg"}, Detections: []domain.Detection{d("person", 0.5)}},
		{ImageRef: domain.ImageRef{Path: "a/4.jpg"}},
	}
	want := map[string]domain.CategoryStat{
		domain.CategoryProductDisplay: {Count: 2, Percentage: 50},
		domain.CategoryLifestyle:      {Count: 1, Percentage: 25},
		domain.CategoryOther:          {Count: 1, Percentage: 25},
	}
	if got := CategoryStatistics(batch); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v; want %v", got, want)
	}
}

func TestCategoryStatistics_CountsEveryEntry(t *testing.T) {
	batch := []domain.ImageDetections{
		{ImageRef: domain.ImageRef{Path: "a/1.jpg"}, Detections: []domain.Detection{d("bottle", 0.7)}},
		{ImageRef: domain.ImageRef{Path: "a/1.jpg"}, Detections: []domain.Detection{d("person", 0.8)}},
	}
	want := map[string]domain.CategoryStat{
		domain.CategoryProductDisplay: {Count: 1, Percentage: 50},
		domain.CategoryLifestyle:      {Count: 1, Percentage: 50},
	}
	if got := CategoryStatistics(batch); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v; want %v", got, want)
	}
}

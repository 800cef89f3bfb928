package domain

// Image categories derived from detections.
const (
	CategoryPromotional    = "promotional"
	CategoryProductDisplay = "product_display"
	CategoryLifestyle      = "lifestyle"
	CategoryOther          = "other"
)

// Categories lists every category in a stable order.
var Categories = []string{CategoryPromotional, CategoryProductDisplay, CategoryLifestyle, CategoryOther}

// Detection is one labelled region found in an image by the detector.
// Confidence is in [0, 1]; BBox is (x1, y1, x2, y2).
type Detection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
	ClassID    *int       `json:"class_id,omitempty"`
}

// ImageRef locates one image in the lake and carries its owning message.
type ImageRef struct {
	Path        string `json:"image_path"`
	ChannelName string `json:"channel_name"`
	MessageID   int64  `json:"message_id"`
}

// ImageDetections is the detector output for one image. Channel and message id
// travel with the detections; the path only locates the binary.
type ImageDetections struct {
	ImageRef
	Detections []Detection `json:"detections"`
}

// DominantObject is a (class, confidence) pair used in classification summaries.
type DominantObject struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Classification is the derived, never-stored summary of one image.
type Classification struct {
	Category        string           `json:"category"`
	Confidence      float64          `json:"confidence"`
	DominantObjects []DominantObject `json:"dominant_objects"`
	HasPerson       bool             `json:"has_person"`
	HasProduct      bool             `json:"has_product"`
	TotalObjects    int              `json:"total_objects"`
	UniqueClasses   []string         `json:"unique_classes"`
}

// BatchStatistics folds all detections of one batch of images.
type BatchStatistics struct {
	TotalImages             int            `json:"total_images"`
	ImagesWithDetections    int            `json:"images_with_detections"`
	ImagesWithoutDetections int            `json:"images_without_detections"`
	TotalDetections         int            `json:"total_detections"`
	AvgDetectionsPerImage   float64        `json:"avg_detections_per_image"`
	UniqueClasses           int            `json:"unique_classes"`
	ClassCounts             map[string]int `json:"class_counts"`
	AvgConfidence           float64        `json:"avg_confidence"`
}

// CategoryStat is the count and share of one category within a batch.
type CategoryStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Package vision turns object-detector output into image categories and
// batch statistics for reporting. Every function here is pure and
// deterministic: the same detections always produce the same answer, and no
// state is shared between images.
package vision

import (
	"sort"

	"golang.org/x/text/cases"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// DefaultTopN is the number of dominant objects reported by Describe.
const DefaultTopN = 3

var (
	personClasses  = map[string]struct{}{"person": {}}
	productClasses = map[string]struct{}{
		"bottle":       {},
		"cup":          {},
		"bowl":         {},
		"vase":         {},
		"potted plant": {},
	}
)

// foldClass normalizes a detector label for set membership. A Caser is not
// safe for concurrent use, so one is built per call.
func foldClass(s string) string { return cases.Fold().String(s) }

func isPerson(class string) bool {
	_, ok := personClasses[foldClass(class)]
	return ok
}

func isProduct(class string) bool {
	_, ok := productClasses[foldClass(class)]
	return ok
}

func presence(dets []domain.Detection) (person, product bool) {
	for _, d := range dets {
		if isPerson(d.Class) {
			person = true
		}
		if isProduct(d.Class) {
			product = true
		}
	}
	return person, product
}

// Classify maps one image's detections to exactly one category:
// person and product is promotional, product alone is product_display,
// person alone is lifestyle, anything else (including nothing) is other.
func Classify(dets []domain.Detection) string {
	person, product := presence(dets)
	switch {
	case person && product:
		return domain.CategoryPromotional
	case product:
		return domain.CategoryProductDisplay
	case person:
		return domain.CategoryLifestyle
	default:
		return domain.CategoryOther
	}
}

// DominantObjects returns the topN most confident detections. Ties keep
// their input order. dets is not modified.
func DominantObjects(dets []domain.Detection, topN int) []domain.Detection {
	if len(dets) == 0 || topN <= 0 {
		return []domain.Detection{}
	}
	sorted := make([]domain.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })
	return sorted[:min(topN, len(sorted))]
}

// ClassificationConfidence averages the confidence of person and product
// detections, falling back to all detections when none of them is relevant.
func ClassificationConfidence(dets []domain.Detection) float64 {
	if len(dets) == 0 {
		return 0
	}
	var relevant, all float64
	n := 0
	for _, d := range dets {
		all += d.Confidence
		if isPerson(d.Class) || isProduct(d.Class) {
			relevant += d.Confidence
			n++
		}
	}
	if n == 0 {
		return all / float64(len(dets))
	}
	return relevant / float64(n)
}

// ClassifyBatch classifies every image independently, keyed by image path.
func ClassifyBatch(batch []domain.ImageDetections) map[string]string {
	out := make(map[string]string, len(batch))
	for _, img := range batch {
		out[img.Path] = Classify(img.Detections)
	}
	return out
}

// Describe is the detailed form of Classify.
func Describe(dets []domain.Detection) domain.Classification {
	person, product := presence(dets)
	dominant := DominantObjects(dets, DefaultTopN)
	objs := make([]domain.DominantObject, len(dominant))
	for i, d := range dominant {
		objs[i] = domain.DominantObject{Class: d.Class, Confidence: d.Confidence}
	}

	seen := map[string]struct{}{}
	classes := []string{}
	for _, d := range dets {
		c := foldClass(d.Class)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		classes = append(classes, c)
	}
	sort.Strings(classes)

	return domain.Classification{
		Category:        Classify(dets),
		Confidence:      ClassificationConfidence(dets),
		DominantObjects: objs,
		HasPerson:       person,
		HasProduct:      product,
		TotalObjects:    len(dets),
		UniqueClasses:   classes,
	}
}

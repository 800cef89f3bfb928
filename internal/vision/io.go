package vision

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

var (
	// ErrInvalidDetection is returned for detector output that cannot be used:
	// confidence outside [0, 1], a bounding box without four coordinates, an
	// empty class, or a duplicated image.
	ErrInvalidDetection = errors.New("invalid detection")
	// ErrInvalidImagePath is returned when an image path does not follow the
	// <channel>/<message_id>.<ext> layout.
	ErrInvalidImagePath = errors.New("invalid image path")
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"image_path", "channel_name", "message_id", "detected_class", "confidence",
	"bbox_x1", "bbox_y1", "bbox_x2", "bbox_y2", "total_objects", "image_category", "timestamp",
}

// ParseImageRef derives channel and message id from a lake image path. It is
// only used for the legacy detector format, which keys results by path.
func ParseImageRef(p string) (domain.ImageRef, error) {
	slashed := filepath.ToSlash(strings.TrimSpace(p))
	base := path.Base(slashed)
	stem := strings.TrimSuffix(base, path.Ext(base))
	id, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("%w: %q: stem is not a message id", ErrInvalidImagePath, p)
	}
	channel := path.Base(path.Dir(slashed))
	if channel == "." || channel == "/" || channel == "" {
		return domain.ImageRef{}, fmt.Errorf("%w: %q: no channel directory", ErrInvalidImagePath, p)
	}
	return domain.ImageRef{Path: p, ChannelName: channel, MessageID: id}, nil
}

// wireDetection accepts any bbox length so that short boxes are reported
// instead of being zero-filled.
type wireDetection struct {
	Class      string    `json:"class"`
	Confidence *float64  `json:"confidence"`
	BBox       []float64 `json:"bbox"`
	ClassID    *int      `json:"class_id,omitempty"`
}

func (w wireDetection) toDetection() (domain.Detection, error) {
	var d domain.Detection
	if strings.TrimSpace(w.Class) == "" {
		return d, fmt.Errorf("%w: empty class", ErrInvalidDetection)
	}
	if w.Confidence == nil || *w.Confidence < 0 || *w.Confidence > 1 {
		return d, fmt.Errorf("%w: %s: confidence must be in [0, 1]", ErrInvalidDetection, w.Class)
	}
	if len(w.BBox) != 4 {
		return d, fmt.Errorf("%w: %s: bbox has %d coordinates, want 4", ErrInvalidDetection, w.Class, len(w.BBox))
	}
	d.Class = w.Class
	d.Confidence = *w.Confidence
	copy(d.BBox[:], w.BBox)
	d.ClassID = w.ClassID
	return d, nil
}

type wireImage struct {
	domain.ImageRef
	Detections []wireDetection `json:"detections"`
}

func convert(ws []wireDetection) ([]domain.Detection, error) {
	out := make([]domain.Detection, 0, len(ws))
	for _, w := range ws {
		d, err := w.toDetection()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ReadResultsFile reads detector output from a file. See ReadResults.
func ReadResultsFile(name string) ([]domain.ImageDetections, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadResults(f)
}

// ReadResults decodes detector output in any of its forms:
//
//   - an array of images, each carrying image_path, channel_name, message_id
//     and detections
//   - an object whose "results" field is such an array (the WriteJSON form)
//   - the legacy object whose "results" field maps image path to detections
//
// Legacy identities are parsed from the path here and nowhere else. The
// result is sorted by image path.
func ReadResults(r io.Reader) ([]domain.ImageDetections, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDetection)
	}

	var images []wireImage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &images); err != nil {
			return nil, fmt.Errorf("decode detections: %w", err)
		}
	case '{':
		var doc struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode detections: %w", err)
		}
		res := bytes.TrimSpace(doc.Results)
		switch {
		case len(res) == 0 || bytes.Equal(res, []byte("null")):
			images = nil
		case res[0] == '[':
			if err := json.Unmarshal(res, &images); err != nil {
				return nil, fmt.Errorf("decode detections: %w", err)
			}
		default:
			images, err = decodeLegacy(res)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: top-level value must be an object or an array", ErrInvalidDetection)
	}

	out := make([]domain.ImageDetections, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if strings.TrimSpace(img.Path) == "" {
			return nil, fmt.Errorf("%w: image without image_path", ErrInvalidDetection)
		}
		if _, dup := seen[img.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate image %q", ErrInvalidDetection, img.Path)
		}
		seen[img.Path] = struct{}{}
		dets, err := convert(img.Detections)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", img.Path, err)
		}
		out = append(out, domain.ImageDetections{ImageRef: img.ImageRef, Detections: dets})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func decodeLegacy(res []byte) ([]wireImage, error) {
	var byPath map[string][]wireDetection
	if err := json.Unmarshal(res, &byPath); err != nil {
		return nil, fmt.Errorf("decode legacy detections: %w", err)
	}
	images := make([]wireImage, 0, len(byPath))
	for p, dets := range byPath {
		ref, err := ParseImageRef(p)
		if err != nil {
			return nil, err
		}
		images = append(images, wireImage{ImageRef: ref, Detections: dets})
	}
	return images, nil
}

// ToRows flattens results into storable rows: one per detection, or a single
// placeholder row with no class for an image without detections.
func ToRows(results []domain.ImageDetections, now time.Time) []domain.ImageDetection {
	rows := make([]domain.ImageDetection, 0, len(results))
	for _, img := range results {
		base := domain.ImageDetection{
			MessageID:     img.MessageID,
			ChannelName:   img.ChannelName,
			ImagePath:     img.Path,
			TotalObjects:  len(img.Detections),
			ImageCategory: Classify(img.Detections),
			ProcessedAt:   now.UTC(),
		}
		if len(img.Detections) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, d := range img.Detections {
			row := base
			class, conf := d.Class, d.Confidence
			x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
			row.DetectedClass = &class
			row.Confidence = &conf
			row.BBoxX1, row.BBoxY1, row.BBoxX2, row.BBoxY2 = &x1, &y1, &x2, &y2
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes the tabular export with CSVHeader columns. Placeholder rows
// leave class, confidence and box empty.
func WriteCSV(w io.Writer, results []domain.ImageDetections, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	ts := now.UTC().Format(time.RFC3339)
	for _, row := range ToRows(results, now) {
		rec := []string{
			row.ImagePath,
			row.ChannelName,
			strconv.FormatInt(row.MessageID, 10),
			optStr(row.DetectedClass),
			optFloat(row.Confidence),
			optFloat(row.BBoxX1),
			optFloat(row.BBoxY1),
			optFloat(row.BBoxX2),
			optFloat(row.BBoxY2),
			strconv.Itoa(row.TotalObjects),
			row.ImageCategory,
			ts,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportMetadata heads the JSON export.
type ExportMetadata struct {
	Timestamp       time.Time `json:"timestamp"`
	TotalImages     int       `json:"total_images"`
	TotalDetections int       `json:"total_detections"`
}

// Export is the structured export written by WriteJSON and read back by
// ReadResults.
type Export struct {
	Metadata ExportMetadata           `json:"metadata"`
	Results  []domain.ImageDetections `json:"results"`
}

// WriteJSON writes the structured export.
func WriteJSON(w io.Writer, results []domain.ImageDetections, now time.Time) error {
	exp := Export{
		Metadata: ExportMetadata{Timestamp: now.UTC(), TotalImages: len(results)},
		Results:  results,
	}
	if exp.Results == nil {
		exp.Results = []domain.ImageDetections{}
	}
	for _, img := range results {
		exp.Metadata.TotalDetections += len(img.Detections)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

func optStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

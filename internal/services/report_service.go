// Package services – ReportService
//
// ReportService builds the analytical reports of the query API: table
// statistics, product keyword mentions, and visual content statistics from
// persisted detections.
package services

import (
	"context"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/repo"
)

// ProductKeywords are the product names reported by TopProducts.
var ProductKeywords = []string{
	"paracetamol", "ibuprofen", "aspirin", "amoxicillin", "vitamin",
	"cream", "serum", "lotion", "oil", "soap", "shampoo",
	"medicine", "tablet", "capsule", "syrup",
}

// TopicKeywords are the broader health terms reported by Keywords.
var TopicKeywords = []string{
	"paracetamol", "ibuprofen", "aspirin", "amoxicillin", "medicine", "tablet",
	"capsule", "syrup", "cream", "lotion", "serum", "oil", "vitamin",
	"supplement", "drug", "pharmacy", "prescription", "treatment", "therapy",
	"diagnosis", "health", "wellness", "care", "medical", "clinical",
	"doctor", "patient",
}

// KeywordCount is the number of messages mentioning one keyword.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// ReportService provides read-only analytical reports.
type ReportService struct {
	DB *gorm.DB

	// Products and Topics override ProductKeywords and TopicKeywords.
	Products []string
	Topics   []string
}

// NewReportService constructs a ReportService with the default keyword lists.
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{DB: db, Products: ProductKeywords, Topics: TopicKeywords}
}

// MessageStats returns summary figures of the raw message table.
func (s *ReportService) MessageStats(ctx context.Context) (domain.TableStats, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "MessageStats")
	defer span.End()
	return repo.MessageTableStats(ctx, s.DB)
}

// TopProducts returns up to limit products with at least one mention, most
// mentioned first. Ties keep keyword order.
func (s *ReportService) TopProducts(ctx context.Context, limit int) ([]domain.ProductMention, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "TopProducts",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	out := []domain.ProductMention{}
	for _, kw := range s.products() {
		pm, err := repo.KeywordMention(ctx, s.DB, kw)
		if err != nil {
			return nil, err
		}
		if pm.MentionCount > 0 {
			out = append(out, pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MentionCount > out[j].MentionCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Keywords returns up to limit topic keywords with at least one matching
// message, most frequent first.
func (s *ReportService) Keywords(ctx context.Context, limit int) ([]KeywordCount, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "Keywords")
	defer span.End()

	topics := s.Topics
	if len(topics) == 0 {
		topics = TopicKeywords
	}
	out := []KeywordCount{}
	for _, kw := range topics {
		n, err := repo.CountMessages(ctx, s.DB, repo.MessageFilter{Query: kw})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			out = append(out, KeywordCount{Keyword: kw, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// VisualContent summarizes persisted detections, optionally for one channel.
func (s *ReportService) VisualContent(ctx context.Context, channel string) (domain.VisualContentStats, error) {
	ctx, span := otel.Tracer("services/ReportService").Start(ctx, "VisualContent",
		trace.WithAttributes(attribute.String("channel.name", channel)),
	)
	defer span.End()
	return repo.VisualContentStats(ctx, s.DB, strings.TrimSpace(channel))
}

func (s *ReportService) products() []string {
	if len(s.Products) == 0 {
		return ProductKeywords
	}
	return s.Products
}

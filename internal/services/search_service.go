// Package services – SearchService
//
// SearchService answers keyword queries over message text. The store
// narrows the corpus with a case-insensitive substring match (most viewed
// first); the candidates are then re-ranked by token overlap with the query
// using the search package, and finally paginated.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/repo"
	"github.com/tbourn/telegram-warehouse/internal/search"
	"github.com/tbourn/telegram-warehouse/internal/utils"
)

// SearchQuery is one search request.
type SearchQuery struct {
	Query    string
	Channel  string
	HasImage *bool
	Page     int
	PageSize int
}

// SearchHit is a matching message with its relevance score and a display
// snippet of its text.
type SearchHit struct {
	domain.Message
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// SearchResult is one page of hits. TotalMatches counts every matching
// message, including those beyond the candidate cap.
type SearchResult struct {
	Query        string      `json:"query"`
	TotalMatches int64       `json:"total_matches"`
	Messages     []SearchHit `json:"messages"`
}

// SearchService coordinates store filtering and in-memory ranking.
type SearchService struct {
	DB *gorm.DB

	// MaxCandidates caps the rows pulled from the store per query.
	MaxCandidates int
	// MaxQueryRunes rejects longer queries when positive.
	MaxQueryRunes int
	// Stopwords are ignored when scoring.
	Stopwords []string
}

// NewSearchService constructs a SearchService with sane defaults.
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{DB: db, MaxCandidates: 500, MaxQueryRunes: 200}
}

// Search runs q and returns the requested page.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	ctx, span := otel.Tracer("services/SearchService").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("query", q.Query),
			attribute.String("channel.name", q.Channel),
			attribute.Int("page", q.Page),
			attribute.Int("page_size", q.PageSize),
		),
	)
	defer span.End()

	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return nil, ErrEmptyQuery
	}
	if s.MaxQueryRunes > 0 && utf8.RuneCountInString(q.Query) > s.MaxQueryRunes {
		return nil, ErrQueryTooLong
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	filter := repo.MessageFilter{Query: q.Query, Channel: strings.TrimSpace(q.Channel), HasImage: q.HasImage}
	total, err := repo.CountMessages(ctx, s.DB, filter)
	if err != nil {
		return nil, err
	}
	out := &SearchResult{Query: q.Query, TotalMatches: total, Messages: []SearchHit{}}
	if total == 0 {
		return out, nil
	}

	filter.Limit = s.MaxCandidates
	candidates, err := repo.SearchMessages(ctx, s.DB, filter)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Message, len(candidates))
	docs := make([]search.Document, len(candidates))
	for i, m := range candidates {
		byID[m.MessageID] = m
		docs[i] = search.Document{ID: m.MessageID, Text: m.MessageText}
	}
	var opts []search.Option
	if len(s.Stopwords) > 0 {
		opts = append(opts, search.WithStopwords(s.Stopwords))
	}
	ranked := search.New(docs, opts...).Rank(q.Query)

	if offset, ok := utils.Offset(q.Page, q.PageSize); ok {
		for _, r := range utils.Page(ranked, offset, q.PageSize) {
			out.Messages = append(out.Messages, SearchHit{Message: byID[r.ID], Snippet: r.Snippet, Score: r.Score})
		}
	}
	span.SetAttributes(attribute.Int64("total_matches", total))
	return out, nil
}

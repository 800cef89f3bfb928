// Warehouse HTTP handlers.
//
// Handlers are transport-thin: they parse and bound query parameters, call
// the application services and translate results and sentinel errors into
// HTTP responses. Every read endpoint is served from the warehouse store;
// only POST /loads writes.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/services"
	"github.com/tbourn/telegram-warehouse/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChannelService serves per-channel views of the raw messages.
type ChannelService interface {
	Summaries(ctx context.Context) ([]domain.ChannelSummary, error)
	// Version returns the message count and latest scrape time of channel,
	// or services.ErrChannelNotFound.
	Version(ctx context.Context, channel string) (int64, time.Time, error)
	Activity(ctx context.Context, channel string, days int) (*services.ChannelActivity, error)
}

// ReportService serves table-wide statistics and reports.
type ReportService interface {
	MessageStats(ctx context.Context) (domain.TableStats, error)
	TopProducts(ctx context.Context, limit int) ([]domain.ProductMention, error)
	Keywords(ctx context.Context, limit int) ([]services.KeywordCount, error)
	VisualContent(ctx context.Context, channel string) (domain.VisualContentStats, error)
}

// SearchService runs keyword searches over message text.
type SearchService interface {
	Search(ctx context.Context, q services.SearchQuery) (*services.SearchResult, error)
}

// LoadService executes and lists recorded loads.
type LoadService interface {
	Run(ctx context.Context, req services.LoadRequest) (*domain.LoadRun, bool, error)
	Get(ctx context.Context, id string) (*domain.LoadRun, error)
	List(ctx context.Context, limit int) ([]domain.LoadRun, error)
}

// LakeReader exposes partition listings of the data lake. *lake.Store
// satisfies it.
type LakeReader interface {
	ListPartitionDates() ([]string, error)
	ReadManifest(date string) (*domain.Manifest, error)
}

//
// Handler wiring
//

// Handlers groups the warehouse endpoints.
type Handlers struct {
	channels ChannelService
	reports  ReportService
	search   SearchService
	loads    LoadService
	lake     LakeReader
}

// New constructs a Handlers bound to the given services.
func New(channels ChannelService, reports ReportService, search SearchService, loads LoadService, lake LakeReader) *Handlers {
	return &Handlers{channels: channels, reports: reports, search: search, loads: loads, lake: lake}
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		maxPage         = 100_000
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.IntInRange(c.Query("page"), defaultPage, 1, maxPage)
	pageSize = utils.IntInRange(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return
}

// clampLimit reads the "limit" query parameter bounded to [1, max].
func clampLimit(c *gin.Context, def, max int) int {
	return utils.IntInRange(c.Query("limit"), def, 1, max)
}

// parseBool accepts the usual spellings; valid is false for anything else.
func parseBool(s string) (v, valid bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

// clock is swapped in tests.
var clock = time.Now

func todayUTC() string { return clock().UTC().Format("2006-01-02") }

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// TopProductsResponse lists product keywords by mention count.
type TopProductsResponse struct {
	Products []domain.ProductMention `json:"products"`
}

// KeywordsResponse lists topic keywords by mention count.
type KeywordsResponse struct {
	Keywords []services.KeywordCount `json:"keywords"`
}

// TopProducts godoc
// @ID          topProducts
// @Summary     Most mentioned products
// @Description Counts messages mentioning each known product keyword; keywords never mentioned are omitted.
// @Tags        Reports
// @Produce     json
// @Param       limit  query  int  false  "Maximum rows"  minimum(1) maximum(100) default(10)
// @Success     200  {object}  handlers.TopProductsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reports/top-products [get]
func (h *Handlers) TopProducts(c *gin.Context) {
	items, err := h.reports.TopProducts(c.Request.Context(), clampLimit(c, 10, 100))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.ProductMention{}
	}
	ok(c, http.StatusOK, TopProductsResponse{Products: items})
}

// Keywords godoc
// @ID          keywords
// @Summary     Topic keyword mentions
// @Tags        Reports
// @Produce     json
// @Param       limit  query  int  false  "Maximum rows"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.KeywordsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reports/keywords [get]
func (h *Handlers) Keywords(c *gin.Context) {
	items, err := h.reports.Keywords(c.Request.Context(), clampLimit(c, 20, 100))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	if items == nil {
		items = []services.KeywordCount{}
	}
	ok(c, http.StatusOK, KeywordsResponse{Keywords: items})
}

// VisualContent godoc
// @ID          visualContent
// @Summary     Image detection report
// @Description Image category shares, average views per category and the most detected classes.
// @Tags        Reports
// @Produce     json
// @Param       channel  query  string  false  "Restrict to one channel"
// @Success     200  {object}  domain.VisualContentStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /reports/visual-content [get]
func (h *Handlers) VisualContent(c *gin.Context) {
	st, err := h.reports.VisualContent(c.Request.Context(), strings.TrimSpace(c.Query("channel")))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

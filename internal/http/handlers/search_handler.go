package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/services"
)

// SearchMessagesResponse is one page of ranked hits.
type SearchMessagesResponse struct {
	Query      string               `json:"query"`
	Messages   []services.SearchHit `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Keyword search over message text
// @Description Case-insensitive substring match, ranked by token overlap with the query.
// @Tags        Search
// @Produce     json
//
// @Param       query      query  string  true  "Search keywords"  example(paracetamol)
// @Param       channel    query  string  false "Restrict to one channel"
// @Param       has_image  query  bool    false "Only messages with (true) or without (false) an image"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.SearchMessagesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /search/messages [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	page, pageSize := clampPagination(c)
	q := services.SearchQuery{
		Query:    c.Query("query"),
		Channel:  c.Query("channel"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("has_image"); raw != "" {
		v, valid := parseBool(raw)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "has_image must be a boolean")
			return
		}
		q.HasImage = &v
	}

	res, err := h.search.Search(c.Request.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuery):
			fail(c, http.StatusBadRequest, ErrCodeInvalidQuery, "query is required")
		case errors.Is(err, services.ErrQueryTooLong):
			fail(c, http.StatusBadRequest, ErrCodeInvalidQuery, "query is too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		}
		return
	}

	hits := res.Messages
	if hits == nil {
		hits = []services.SearchHit{}
	}
	ok(c, http.StatusOK, SearchMessagesResponse{
		Query:      res.Query,
		Messages:   hits,
		Pagination: newPagination(page, pageSize, res.TotalMatches),
	})
}

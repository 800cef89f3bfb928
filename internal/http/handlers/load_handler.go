// Load HTTP handlers.
//
// POST /loads runs a lake load synchronously and returns the recorded run.
//
// Idempotency:
// When the client sends an Idempotency-Key and a run recorded under that key
// is still live, the stored run is returned with 200 and
// `Idempotency-Replayed: true`; nothing is loaded again. New runs return 201.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/http/middleware"
	"github.com/tbourn/telegram-warehouse/internal/ingest"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// PostLoadRequest names exactly one source to load.
type PostLoadRequest struct {
	// Path relative to the lake root; a file or a directory of channel files.
	Path string `json:"path,omitempty" example:"raw/messages/2024-01-10/lobelia4cosmetics.json"`
	// Date selects one partition (YYYY-MM-DD).
	Date string `json:"date,omitempty" example:"2024-01-10"`
	// All loads every partition.
	All bool `json:"all,omitempty"`
	// BatchSize overrides the configured insert batch size.
	BatchSize int `json:"batch_size,omitempty" example:"1000"`
}

// ListLoadsResponse lists recorded runs, newest first.
type ListLoadsResponse struct {
	Loads []domain.LoadRun `json:"loads"`
}

// PostLoad godoc
// @ID          postLoad
// @Summary     Load lake data into the warehouse
// @Description Validates, de-duplicates and inserts the records of one file, one partition or the whole lake.
// @Description Supports idempotency via the Idempotency-Key header (same key → same run).
// @Tags        Loads
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                     false  "Idempotency key for safe retries"  example(load-2024-01-10)
// @Param       body             body    handlers.PostLoadRequest   true   "Load source"
//
// @Success     200  {object}  domain.LoadRun          "Replayed run"
// @Success     201  {object}  domain.LoadRun          "New run"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Load path not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Load failed"
// @Router      /loads [post]
func (h *Handlers) PostLoad(c *gin.Context) {
	var body PostLoadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if body.BatchSize < 0 {
		fail(c, http.StatusBadRequest, ErrCodeInvalidLoad, "batch_size must not be negative")
		return
	}
	req := services.LoadRequest{
		Path:      strings.TrimSpace(body.Path),
		Date:      strings.TrimSpace(body.Date),
		All:       body.All,
		BatchSize: body.BatchSize,
	}
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		req.IdempotencyKey = key
	}

	run, replayed, err := h.loads.Run(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidLoadRequest), errors.Is(err, ingest.ErrInvalidPath):
			fail(c, http.StatusBadRequest, ErrCodeInvalidLoad, err.Error())
		case errors.Is(err, ingest.ErrNotFound):
			fail(c, http.StatusNotFound, ErrCodeLoadPathNotFound, "load path not found")
		default:
			if run != nil {
				c.Header("X-Load-Run-ID", run.ID)
			}
			fail(c, http.StatusInternalServerError, ErrCodeLoadFailed, err.Error())
		}
		return
	}

	c.Header("X-Load-Run-ID", run.ID)
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, run)
		return
	}
	ok(c, http.StatusCreated, run)
}

// ListLoads godoc
// @ID          listLoads
// @Summary     Recent load runs
// @Tags        Loads
// @Produce     json
// @Param       limit  query  int  false  "Maximum rows"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListLoadsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /loads [get]
func (h *Handlers) ListLoads(c *gin.Context) {
	runs, err := h.loads.List(c.Request.Context(), clampLimit(c, 20, 100))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.LoadRun{}
	}
	ok(c, http.StatusOK, ListLoadsResponse{Loads: runs})
}

// GetLoad godoc
// @ID          getLoad
// @Summary     One load run
// @Tags        Loads
// @Produce     json
// @Param       id  path  string  true  "Load run ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.LoadRun
// @Failure     404  {object}  handlers.ErrorResponse  "Load run not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /loads/{id} [get]
func (h *Handlers) GetLoad(c *gin.Context) {
	run, err := h.loads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrLoadRunNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "load run not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, run)
}

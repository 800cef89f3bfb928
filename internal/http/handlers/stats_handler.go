package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/domain"
	"github.com/tbourn/telegram-warehouse/internal/services"
)

// ListChannelsResponse wraps the per-channel summaries.
type ListChannelsResponse struct {
	Channels []domain.ChannelSummary `json:"channels"`
}

// MessageStats godoc
// @ID          messageStats
// @Summary     Raw message table statistics
// @Description Totals over the loaded messages: count, distinct channels, first and last post and posts with media.
// @Tags        Stats
// @Produce     json
// @Success     200  {object}  domain.TableStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/messages [get]
func (h *Handlers) MessageStats(c *gin.Context) {
	st, err := h.reports.MessageStats(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// ListChannels godoc
// @ID          listChannels
// @Summary     Per-channel summaries
// @Description Posts, average views, media share and first/last post per channel, ordered by post count.
// @Tags        Channels
// @Produce     json
// @Success     200  {object}  handlers.ListChannelsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /channels [get]
func (h *Handlers) ListChannels(c *gin.Context) {
	items, err := h.channels.Summaries(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.ChannelSummary{}
	}
	ok(c, http.StatusOK, ListChannelsResponse{Channels: items})
}

// ChannelActivity godoc
// @ID          channelActivity
// @Summary     Daily activity of a channel
// @Description Zero-filled daily message counts, views and images for the last `days` days (today included).
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Channels
// @Produce     json
//
// @Param       name  path   string  true  "Channel name"  example(lobelia4cosmetics)
// @Param       days  query  int     false "Window in days" minimum(1) maximum(365) default(30)
//
// @Success     200  {object}  services.ChannelActivity
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Channel not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /channels/{name}/activity [get]
func (h *Handlers) ChannelActivity(c *gin.Context) {
	ctx := c.Request.Context()
	channel := strings.TrimSpace(c.Param("name"))
	if channel == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel name is required")
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	count, latest, err := h.channels.Version(ctx, channel)
	if err != nil {
		h.channelError(c, err)
		return
	}
	// The window slides daily, so the ETag carries the current date too.
	etag := fmt.Sprintf(`W/"activity:%s:%d:%d:%d:%s"`, channel, count, latest.Unix(), days, todayUTC())
	if notModified(c, etag) {
		return
	}

	act, err := h.channels.Activity(ctx, channel, days)
	if err != nil {
		h.channelError(c, err)
		return
	}
	ok(c, http.StatusOK, act)
}

func (h *Handlers) channelError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrChannelNotFound) {
		fail(c, http.StatusNotFound, ErrCodeChannelNotFound, "channel has no loaded messages")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
}

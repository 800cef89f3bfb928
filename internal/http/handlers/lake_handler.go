package handlers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/telegram-warehouse/internal/domain"
)

// Partition is one lake partition with its manifest, when written.
type Partition struct {
	Date     string           `json:"date" example:"2024-01-10"`
	Manifest *domain.Manifest `json:"manifest"`
	// ManifestError is set when a manifest exists but cannot be decoded.
	ManifestError string `json:"manifest_error,omitempty"`
}

// ListPartitionsResponse lists the lake partitions in ascending date order.
type ListPartitionsResponse struct {
	Partitions []Partition `json:"partitions"`
}

// ListPartitions godoc
// @ID          listPartitions
// @Summary     Lake partitions
// @Description Partition dates under raw/messages with their manifests (null while a partition has none).
// @Tags        Lake
// @Produce     json
// @Success     200  {object}  handlers.ListPartitionsResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Lake unavailable"
// @Router      /lake/partitions [get]
func (h *Handlers) ListPartitions(c *gin.Context) {
	dates, err := h.lake.ListPartitionDates()
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeLakeUnavailable, err.Error())
		return
	}
	out := ListPartitionsResponse{Partitions: make([]Partition, 0, len(dates))}
	for _, d := range dates {
		p := Partition{Date: d}
		m, err := h.lake.ReadManifest(d)
		switch {
		case err == nil:
			p.Manifest = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			p.ManifestError = err.Error()
		}
		out.Partitions = append(out.Partitions, p)
	}
	ok(c, http.StatusOK, out)
}

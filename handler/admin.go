package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	store *service.Store
}

func NewAdminHandler(store *service.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// Stats returns the dashboard totals
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Export downloads matching submissions as an XLSX workbook
func (h *AdminHandler) Export(c *gin.Context) {
	filter, err := submissionFilter(c)
	if err != nil {
		respondError(c, err, "")
		return
	}

	submissions, err := h.store.ListSubmissions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "")
		return
	}

	data, err := service.ExportSubmissions(submissions)
	if err != nil {
		respondError(c, err, "")
		return
	}

	filename := fmt.Sprintf("submissions-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// DatabaseHealth reports whether the database answers queries
func (h *AdminHandler) DatabaseHealth(c *gin.Context) {
	n, err := h.store.CountUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "Database unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "users": n})
}

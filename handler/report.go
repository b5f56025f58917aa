package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/service"
)

type ReportHandler struct {
	reports *service.ReportService
}

func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Generate renders and stores the PDF report for a submission
func (h *ReportHandler) Generate(c *gin.Context) {
	report, err := h.reports.Generate(c.Request.Context(), c.Param("submissionId"))
	if err != nil {
		respondError(c, err, "Submission not found")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       report.ID,
		"filename": report.Filename,
	})
}

// Download returns a report by id or by its .pdf filename
func (h *ReportHandler) Download(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err, "Report not found")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, "application/pdf", report.Content)
}

// List returns report metadata, optionally for one submission
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.reports.List(c.Request.Context(), c.Query("submissionId"))
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

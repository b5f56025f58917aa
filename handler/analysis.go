package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/middleware"
	"github.com/kleurijkwonen/inspections/service"
)

type AnalysisHandler struct {
	analysis *service.AnalysisService
}

func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

type AnalyzeRequest struct {
	Text         string  `json:"text"`
	SubmissionID *string `json:"submissionId"`
}

// Analyze asks the model to assess a defect description
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.analysis.Analyze(c.Request.Context(), middleware.GetUserID(c), req.Text, req.SubmissionID)
	if err != nil {
		respondError(c, err, "Submission not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       result.ID,
		"analysis": json.RawMessage(result.Result),
	})
}

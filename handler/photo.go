package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/service"
)

type PhotoHandler struct {
	quality   *service.PhotoQualityService
	maxUpload int64
}

func NewPhotoHandler(quality *service.PhotoQualityService, maxUpload int64) *PhotoHandler {
	return &PhotoHandler{quality: quality, maxUpload: maxUpload}
}

// Compare judges the captured photo (image) against the reference (image_comp)
func (h *PhotoHandler) Compare(c *gin.Context) {
	if !limitBody(c, h.maxUpload) {
		return
	}

	captured, err := formPhoto(c, "image")
	if err != nil {
		respondError(c, err, "")
		return
	}
	reference, err := formPhoto(c, "image_comp")
	if err != nil {
		respondError(c, err, "")
		return
	}
	if captured == nil || reference == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image or image_comp"})
		return
	}

	result, err := h.quality.Compare(c.Request.Context(), captured, reference)
	if err != nil {
		respondError(c, err, "")
		return
	}

	if result.Remote != nil {
		c.Data(http.StatusOK, "application/json", result.Remote)
		return
	}
	c.JSON(http.StatusOK, result.Local)
}

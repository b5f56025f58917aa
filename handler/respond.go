package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/pkg/logger"
	"github.com/kleurijkwonen/inspections/service"
)

// respondError writes the JSON error body for err. notFound is the message
// used when err is service.ErrNotFound.
func respondError(c *gin.Context, err error, notFound string) {
	var verr *service.ValidationError
	var remote *service.RemoteError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Error()}
		if len(verr.Missing) > 0 {
			body["missing"] = verr.Missing
		}
		if len(verr.Invalid) > 0 {
			body["invalid"] = verr.Invalid
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &remote):
		c.JSON(remote.StatusCode, gin.H{"error": remote.Error()})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, service.ErrPhotoTooDark):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo is too dark"})
	case errors.Is(err, service.ErrInvalidFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service not configured"})
	default:
		logger.Error(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"error", err,
		)
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

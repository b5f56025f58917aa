package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/middleware"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/service"
)

type SubmissionHandler struct {
	submissions *service.SubmissionService
	analyses    *service.AnalysisService
	maxUpload   int64
}

// NewSubmissionHandler creates the handler. maxUpload bounds multipart
// request bodies in bytes.
func NewSubmissionHandler(submissions *service.SubmissionService, analyses *service.AnalysisService, maxUpload int64) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, analyses: analyses, maxUpload: maxUpload}
}

// Create stores a multipart submission with its photo
func (h *SubmissionHandler) Create(c *gin.Context) {
	if !limitBody(c, h.maxUpload) {
		return
	}

	photo, err := formPhoto(c, "photo")
	if err != nil {
		respondError(c, err, "")
		return
	}

	// Tenants and employees always submit as their own role.
	typ := c.PostForm("type")
	if role := middleware.GetRole(c); model.ValidType(role) {
		typ = role
	}

	in := service.SubmissionInput{
		Type:              typ,
		StreetName:        c.PostForm("streetName"),
		ApartmentNumber:   c.PostForm("apartmentNumber"),
		City:              c.PostForm("city"),
		StructuralDefects: c.PostForm("structuralDefects"),
		DecayMagnitude:    c.PostForm("decayMagnitude"),
		DefectIntensity:   c.PostForm("defectIntensity"),
		Description:       c.PostForm("description"),
		SubmittedBy:       middleware.GetEmail(c),
		Latitude:          c.PostForm("latitude"),
		Longitude:         c.PostForm("longitude"),
		UserID:            middleware.GetUserID(c),
		Photo:             photo,
	}

	sub, err := h.submissions.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// List returns submissions filtered by q, type and order. Tenants only see
// their own.
func (h *SubmissionHandler) List(c *gin.Context) {
	filter, err := submissionFilter(c)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if middleware.GetRole(c) == model.RoleTenant {
		filter.UserID = middleware.GetUserID(c)
	}

	submissions, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// submissionFilter parses the q, type, order and limit query parameters.
func submissionFilter(c *gin.Context) (service.SubmissionFilter, error) {
	filter := service.SubmissionFilter{
		Query: c.Query("q"),
		Type:  c.Query("type"),
	}
	switch c.DefaultQuery("order", "desc") {
	case "asc":
		filter.Ascending = true
	case "desc":
	default:
		return filter, &service.ValidationError{Message: "order must be asc or desc"}
	}
	if filter.Type != "" && !model.ValidType(filter.Type) {
		return filter, &service.ValidationError{Message: "Invalid type"}
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return filter, &service.ValidationError{Message: "Invalid limit"}
		}
		filter.Limit = n
	}
	return filter, nil
}

// Get returns a single submission
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Photo streams the stored photo of a submission
func (h *SubmissionHandler) Photo(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}

	data, err := h.submissions.Photo(c.Request.Context(), sub)
	if err != nil {
		respondError(c, err, "Photo not found")
		return
	}

	contentType := sub.PhotoContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	c.Data(http.StatusOK, contentType, data)
}

// Analyses lists the AI analyses stored for a submission
func (h *SubmissionHandler) Analyses(c *gin.Context) {
	sub, ok := h.load(c)
	if !ok {
		return
	}

	analyses, err := h.analyses.List(c.Request.Context(), sub.ID)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, analyses)
}

// load fetches the :id submission, hiding other users' rows from tenants.
func (h *SubmissionHandler) load(c *gin.Context) (*model.Submission, bool) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err == nil && middleware.GetRole(c) == model.RoleTenant &&
		(sub.UserID == nil || *sub.UserID != middleware.GetUserID(c)) {
		err = service.ErrNotFound
	}
	if err != nil {
		respondError(c, err, "Submission not found")
		return nil, false
	}
	return sub, true
}

// limitBody caps the request body at limit bytes (0 means no cap). A declared
// Content-Length above the cap is answered with 413 before any parsing.
func limitBody(c *gin.Context, limit int64) bool {
	if limit <= 0 {
		return true
	}
	if c.Request.ContentLength > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

// formPhoto reads an optional image file field. A missing field yields nil.
func formPhoto(c *gin.Context, field string) (*service.PhotoUpload, error) {
	file, header, err := c.Request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, formError(c, err)
	}
	defer file.Close()

	return readPhoto(file, header)
}

// formError classifies a multipart parse failure. The parser can report a
// truncated body as a malformed header, so an exhausted byte limit is checked
// on the body itself.
func formError(c *gin.Context, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	if _, rerr := c.Request.Body.Read(make([]byte, 1)); errors.As(rerr, &tooLarge) {
		return rerr
	}
	return &service.ValidationError{Message: "Malformed multipart form"}
}

func readPhoto(file multipart.File, header *multipart.FileHeader) (*service.PhotoUpload, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &service.PhotoUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/pkg/logger"
	"github.com/kleurijkwonen/inspections/service"
	"github.com/kleurijkwonen/inspections/session"
	"github.com/kleurijkwonen/inspections/wizard"
)

// WizardHandler drives server-side wizard sessions. Each request restores
// the session's machine from the store, applies one action and saves the
// resulting snapshot.
type WizardHandler struct {
	sessions    session.Store
	auth        *service.AuthService
	store       *service.Store
	submissions *service.SubmissionService
	maxUpload   int64
}

func NewWizardHandler(sessions session.Store, auth *service.AuthService, store *service.Store, submissions *service.SubmissionService, maxUpload int64) *WizardHandler {
	return &WizardHandler{
		sessions:    sessions,
		auth:        auth,
		store:       store,
		submissions: submissions,
		maxUpload:   maxUpload,
	}
}

type WizardView struct {
	ID                 string            `json:"id"`
	Screen             wizard.Screen     `json:"screen"`
	Flow               []wizard.ScreenID `json:"flow"`
	Terminal           bool              `json:"terminal"`
	User               string            `json:"user,omitempty"`
	Draft              DraftView         `json:"draft"`
	Missing            []string          `json:"missing"`
	Submitted          int               `json:"submitted"`
	Reward             string            `json:"reward,omitempty"`
	LastReceipt        *wizard.Receipt   `json:"lastReceipt,omitempty"`
	SelectedSubmission string            `json:"selectedSubmission,omitempty"`
}

// DraftView is the draft without photo bytes.
type DraftView struct {
	Address           wizard.Address `json:"address"`
	HasPhoto          bool           `json:"hasPhoto"`
	PhotoFilename     string         `json:"photoFilename,omitempty"`
	StructuralDefects int            `json:"structuralDefects"`
	DecayMagnitude    int            `json:"decayMagnitude"`
	DefectIntensity   int            `json:"defectIntensity"`
	Description       string         `json:"description"`
	Latitude          *float64       `json:"latitude,omitempty"`
	Longitude         *float64       `json:"longitude,omitempty"`
	Similarity        *float64       `json:"similarity,omitempty"`
	Mean              float64        `json:"mean"`
	FinalScore        int            `json:"finalScore"`
}

// DraftFields is a partial draft update; nil fields are left as they are.
type DraftFields struct {
	StreetName        *string  `json:"streetName"`
	ApartmentNumber   *string  `json:"apartmentNumber"`
	City              *string  `json:"city"`
	StructuralDefects *int     `json:"structuralDefects"`
	DecayMagnitude    *int     `json:"decayMagnitude"`
	DefectIntensity   *int     `json:"defectIntensity"`
	Description       *string  `json:"description"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Similarity        *float64 `json:"similarity"`
}

func newWizardView(id string, m *wizard.Machine) WizardView {
	screen := m.Screen()
	d := m.Draft()
	v := WizardView{
		ID:       id,
		Screen:   screen,
		Flow:     wizard.Flow(screen.Role),
		Terminal: screen.IsTerminal(),
		User:     m.User(),
		Draft: DraftView{
			Address:           d.Address,
			HasPhoto:          d.Photo != nil && len(d.Photo.Data) > 0,
			StructuralDefects: d.StructuralDefects,
			DecayMagnitude:    d.DecayMagnitude,
			DefectIntensity:   d.DefectIntensity,
			Description:       d.Description,
			Latitude:          d.Latitude,
			Longitude:         d.Longitude,
			Similarity:        d.Similarity,
			Mean:              d.Mean(),
			FinalScore:        d.FinalScore(),
		},
		Missing:            d.Missing(),
		Submitted:          m.Submitted(),
		LastReceipt:        m.LastReceipt(),
		SelectedSubmission: m.SelectedSubmission(),
	}
	if d.Photo != nil {
		v.Draft.PhotoFilename = d.Photo.Filename
	}
	if v.Missing == nil {
		v.Missing = []string{}
	}
	if screen.Role == wizard.RoleTenant {
		v.Reward = wizard.RewardLevel(v.Submitted)
	}
	return v
}

// Create starts a new session on the login screen
func (h *WizardHandler) Create(c *gin.Context) {
	id := session.NewID()
	m := wizard.New(accountAuthenticator{auth: h.auth}, h.submitter(""))

	if err := h.sessions.Save(c.Request.Context(), id, m.Snapshot()); err != nil {
		respondError(c, err, "")
		return
	}

	logger.Info(context.WithValue(c.Request.Context(), logger.SessionIDKey, id), "wizard session started")
	c.JSON(http.StatusCreated, newWizardView(id, m))
}

// Get returns the current state of a session
func (h *WizardHandler) Get(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error { return nil })
}

// Delete ends a session
func (h *WizardHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Login(ctx, req.Email, req.Password)
	})
}

func (h *WizardHandler) Logout(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		m.Logout()
		return nil
	})
}

// UpdateDraft applies a partial update. Either every field is applied or,
// on an invalid rating or coordinate, none is.
func (h *WizardHandler) UpdateDraft(c *gin.Context) {
	var req DraftFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be set together"})
		return
	}

	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Update(func(d *wizard.Draft) error {
			next := d.Clone()
			if err := req.applyTo(next); err != nil {
				return err
			}
			*d = *next
			return nil
		})
	})
}

func (f DraftFields) applyTo(d *wizard.Draft) error {
	addr := d.Address
	if f.StreetName != nil {
		addr.StreetName = *f.StreetName
	}
	if f.ApartmentNumber != nil {
		addr.ApartmentNumber = *f.ApartmentNumber
	}
	if f.City != nil {
		addr.City = *f.City
	}
	d.SetAddress(addr)

	ratings := []struct {
		name  wizard.Rating
		value *int
	}{
		{wizard.StructuralDefects, f.StructuralDefects},
		{wizard.DecayMagnitude, f.DecayMagnitude},
		{wizard.DefectIntensity, f.DefectIntensity},
	}
	for _, r := range ratings {
		if r.value == nil {
			continue
		}
		if err := d.SetRating(r.name, *r.value); err != nil {
			return err
		}
	}

	if f.Description != nil {
		d.SetDescription(*f.Description)
	}
	if f.Latitude != nil && f.Longitude != nil {
		if *f.Latitude < -90 || *f.Latitude > 90 || *f.Longitude < -180 || *f.Longitude > 180 {
			return errInvalidLocation
		}
		d.SetLocation(*f.Latitude, *f.Longitude)
	}
	if f.Similarity != nil {
		d.SetSimilarity(*f.Similarity)
	}
	return nil
}

var errInvalidLocation = errors.New("latitude or longitude out of range")

// UploadPhoto selects the uploaded photo on the capture screen
func (h *WizardHandler) UploadPhoto(c *gin.Context) {
	if !limitBody(c, h.maxUpload) {
		return
	}
	photo, err := formPhoto(c, "photo")
	if err != nil {
		respondError(c, err, "")
		return
	}
	if photo == nil || len(photo.Data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field(s): photo"})
		return
	}
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.SelectPhoto(ctx, uploadSource{photo: photo})
	})
}

func (h *WizardHandler) Next(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Next()
	})
}

func (h *WizardHandler) Back(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		m.Back()
		return nil
	})
}

func (h *WizardHandler) Submit(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Submit(ctx)
	})
}

func (h *WizardHandler) Restart(c *gin.Context) {
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		return m.Restart()
	})
}

type selectRequest struct {
	SubmissionID string `json:"submissionId" binding:"required"`
}

// Select picks the submission an admin session inspects
func (h *WizardHandler) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.apply(c, func(ctx context.Context, m *wizard.Machine) error {
		if _, err := h.store.GetSubmission(ctx, req.SubmissionID); err != nil {
			return err
		}
		return m.SelectSubmission(req.SubmissionID)
	})
}

func (h *WizardHandler) submitter(email string) accountSubmitter {
	return accountSubmitter{store: h.store, submissions: h.submissions, email: email}
}

// apply restores the :id session, runs fn and saves the result. A failed
// action leaves the stored session untouched.
func (h *WizardHandler) apply(c *gin.Context, fn func(ctx context.Context, m *wizard.Machine) error) {
	id := c.Param("id")
	ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, id)
	c.Request = c.Request.WithContext(ctx)

	snap, err := h.sessions.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		respondError(c, err, "")
		return
	}

	m, err := wizard.Restore(snap, accountAuthenticator{auth: h.auth}, h.submitter(snap.User))
	if err != nil {
		logger.Warn(ctx, "discarding unreadable wizard session", "error", err)
		_ = h.sessions.Delete(ctx, id)
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	defer m.Close()

	if err := fn(ctx, m); err != nil {
		respondWizardError(c, err)
		return
	}

	if err := h.sessions.Save(ctx, id, m.Snapshot()); err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, newWizardView(id, m))
}

func respondWizardError(c *gin.Context, err error) {
	var step *wizard.StepError
	switch {
	case errors.As(err, &step):
		body := gin.H{"error": step.Error(), "screen": step.Screen}
		if len(step.Missing) > 0 {
			body["missing"] = step.Missing
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, wizard.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, wizard.ErrRatingOutOfRange), errors.Is(err, wizard.ErrUnknownRating),
		errors.Is(err, errInvalidLocation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wizard.ErrNotAllowed), errors.Is(err, wizard.ErrEndOfFlow),
		errors.Is(err, wizard.ErrCameraUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		respondError(c, err, "Submission not found")
	}
}

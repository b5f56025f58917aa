package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Authenticator resolves credentials to a role.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Role, error)
}

// Submitter persists a complete draft.
type Submitter interface {
	Submit(ctx context.Context, d *Draft) (*Receipt, error)
}

// Receipt identifies a persisted submission.
type Receipt struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

type Option func(*Machine)

// WithCamera attaches the capture device used on the photo-capture screen.
func WithCamera(c Camera) Option {
	return func(m *Machine) { m.camera = c }
}

// Machine is one user's wizard session. It is safe for concurrent use.
type Machine struct {
	mu         sync.Mutex
	auth       Authenticator
	submitter  Submitter
	camera     Camera
	cameraHeld bool

	screen    Screen
	draft     *Draft
	user      string
	selected  string
	submitted int
	last      *Receipt
}

func New(auth Authenticator, submitter Submitter, opts ...Option) *Machine {
	m := &Machine{
		auth:      auth,
		submitter: submitter,
		screen:    LoginScreen,
		draft:     NewDraft(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

func (m *Machine) Role() Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen.Role
}

// Draft returns a copy of the live draft.
func (m *Machine) Draft() *Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft.Clone()
}

// User is the email of the logged-in user.
func (m *Machine) User() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Submitted counts successful submits since login.
func (m *Machine) Submitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

// LastReceipt is the result of the latest successful submit.
func (m *Machine) LastReceipt() *Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// SelectedSubmission is the submission an admin is inspecting.
func (m *Machine) SelectedSubmission() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Login authenticates on the login screen and moves to the role's first
// screen. On failure nothing changes.
func (m *Machine) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen != LoginScreen {
		return ErrNotAllowed
	}
	role, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	start, ok := StartScreen(role)
	if !ok {
		return fmt.Errorf("no flow for role %q", role)
	}

	m.user = email
	m.draft = NewDraft()
	m.selected = ""
	m.submitted = 0
	m.last = nil
	m.moveTo(start)
	return nil
}

// Logout returns to login and discards the draft.
func (m *Machine) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.moveTo(LoginScreen)
	m.user = ""
	m.draft = NewDraft()
	m.selected = ""
	m.submitted = 0
	m.last = nil
}

// Next advances when the current screen's requirements are met.
func (m *Machine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen == LoginScreen {
		return ErrNotAllowed
	}
	if err := m.validate(); err != nil {
		return err
	}
	if m.screen.ID == ScreenDescription {
		// The terminal screen is only reached by submitting.
		return &StepError{Screen: m.screen, Reason: "submit the draft to continue"}
	}
	next, ok := m.screen.next()
	if !ok {
		return ErrEndOfFlow
	}
	m.moveTo(next)
	return nil
}

// Back moves to the previous screen. It is a no-op on a role's first screen
// and on login.
func (m *Machine) Back() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.screen.prev(); ok {
		m.moveTo(prev)
	}
}

// Submit sends a complete draft from the description screen. On success it
// moves to the terminal screen and starts a new draft for the same address;
// on failure the screen and draft are kept.
func (m *Machine) Submit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen.ID != ScreenDescription {
		return ErrNotAllowed
	}
	if missing := m.draft.Missing(); len(missing) > 0 {
		return &StepError{Screen: m.screen, Missing: missing}
	}
	receipt, err := m.submitter.Submit(ctx, m.draft.Clone())
	if err != nil {
		return err
	}
	terminal, _ := m.screen.next()

	address := m.draft.Address
	m.draft = NewDraft()
	m.draft.Address = address
	m.submitted++
	m.last = receipt
	m.moveTo(terminal)
	return nil
}

// Restart leaves a terminal screen to submit another assessment.
func (m *Machine) Restart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.screen.IsTerminal() {
		return ErrNotAllowed
	}
	m.moveTo(Screen{Role: m.screen.Role, ID: restartAt[m.screen.Role]})
	return nil
}

// SelectSubmission picks the submission shown on the admin detail screen.
func (m *Machine) SelectSubmission(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen.Role != RoleAdmin || m.screen.ID == ScreenReport {
		return ErrNotAllowed
	}
	m.selected = id
	return nil
}

// Update applies fn to the live draft. Draft fields may only change once
// logged in as a submitting role.
func (m *Machine) Update(fn func(d *Draft) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen.Role != RoleTenant && m.screen.Role != RoleEmployee {
		return ErrNotAllowed
	}
	return fn(m.draft)
}

// Capture takes a photo with the camera on the capture screen. The camera is
// acquired on first use; a denied acquisition is not retried.
func (m *Machine) Capture(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen.ID != ScreenPhotoCapture {
		return ErrNotAllowed
	}
	if m.camera == nil {
		return ErrCameraUnavailable
	}
	if !m.cameraHeld {
		if err := m.camera.Acquire(ctx); err != nil {
			if errors.Is(err, ErrCameraUnavailable) {
				return ErrCameraUnavailable
			}
			return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
		}
		m.cameraHeld = true
	}
	photo, err := m.camera.Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture photo: %w", err)
	}
	m.draft.SetPhoto(photo)
	return nil
}

// SelectPhoto takes the photo from src on the capture screen.
func (m *Machine) SelectPhoto(ctx context.Context, src PhotoSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.screen.ID != ScreenPhotoCapture {
		return ErrNotAllowed
	}
	photo, err := src.Select(ctx)
	if err != nil {
		return err
	}
	m.draft.SetPhoto(photo)
	return nil
}

// Close releases the camera if held.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCamera()
}

func (m *Machine) validate() error {
	var missing []string
	switch m.screen.ID {
	case ScreenAddress:
		missing = m.draft.missingAddress()
	case ScreenPhotoCapture:
		missing = m.draft.missingPhoto()
	case ScreenAssessment:
		missing = m.draft.missingRatings()
	case ScreenDashboard:
		if m.screen.Role == RoleAdmin && m.selected == "" {
			missing = []string{"submission"}
		}
	}
	if len(missing) > 0 {
		return &StepError{Screen: m.screen, Missing: missing}
	}
	return nil
}

func (m *Machine) moveTo(s Screen) {
	if m.screen.ID == ScreenPhotoCapture && s != m.screen {
		if err := m.releaseCamera(); err != nil {
			slog.Warn("failed to release camera", "error", err)
		}
	}
	m.screen = s
}

func (m *Machine) releaseCamera() error {
	if m.camera == nil || !m.cameraHeld {
		return nil
	}
	m.cameraHeld = false
	return m.camera.Release()
}

// Package client talks to the inspections HTTP API. It implements
// wizard.Authenticator and wizard.Submitter so a local wizard can submit
// straight to a server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/wizard"
)

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets a bearer token obtained earlier.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the API rooted at baseURL, e.g.
// "https://inspections.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response. Message is the server's error text.
type APIError struct {
	StatusCode int
	Message    string
	Missing    []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Session is the result of logging in or registering.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type ReportRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type Analysis struct {
	ID       string          `json:"id"`
	Analysis json.RawMessage `json:"analysis"`
}

// ListOptions filters ListSubmissions.
type ListOptions struct {
	Query     string
	Type      string
	Ascending bool
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

// Register creates an account and keeps its token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var s Session
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &s); err != nil {
		return nil, err
	}
	c.setToken(s.Token)
	return &s, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate implements wizard.Authenticator.
func (c *Client) Authenticate(ctx context.Context, email, password string) (wizard.Role, error) {
	s, err := c.Login(ctx, email, password)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return wizard.RoleNone, wizard.ErrInvalidCredentials
		}
		return wizard.RoleNone, err
	}
	return wizard.Role(s.User.Role), nil
}

// Submit implements wizard.Submitter. The server derives the submission
// type from the logged-in role.
func (c *Client) Submit(ctx context.Context, d *wizard.Draft) (*wizard.Receipt, error) {
	sub, err := c.CreateSubmission(ctx, "", d)
	if err != nil {
		return nil, err
	}
	return &wizard.Receipt{ID: sub.ID, Date: sub.Date}, nil
}

// CreateSubmission posts the draft and its photo as multipart form data.
// typ may be empty for tenant and employee accounts.
func (c *Client) CreateSubmission(ctx context.Context, typ string, d *wizard.Draft) (*model.Submission, error) {
	body, contentType, err := encodeDraft(typ, d)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/submissions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var sub model.Submission
	if err := c.do(req, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) ListSubmissions(ctx context.Context, opts ListOptions) ([]model.Submission, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Ascending {
		q.Set("order", "asc")
	}
	path := "/api/submissions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var subs []model.Submission
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *Client) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := c.doJSON(ctx, http.MethodGet, "/api/submissions/"+url.PathEscape(id), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GenerateReport renders a PDF report for a submission. Admin only.
func (c *Client) GenerateReport(ctx context.Context, submissionID string) (*ReportRef, error) {
	var ref ReportRef
	if err := c.doJSON(ctx, http.MethodPost, "/api/reports/"+url.PathEscape(submissionID), nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// DownloadReport fetches PDF bytes by report id or filename.
func (c *Client) DownloadReport(ctx context.Context, ref string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// ComparePhotos sends a captured photo and its reference to compare-photos
// and returns the judgment as sent by the server.
func (c *Client) ComparePhotos(ctx context.Context, captured, reference wizard.Photo) (json.RawMessage, error) {
	body, contentType, err := encodePhotos(map[string]wizard.Photo{
		"image":      captured,
		"image_comp": reference,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/compare-photos", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var result json.RawMessage
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Analyze asks the server for an AI assessment of a description.
func (c *Client) Analyze(ctx context.Context, text string, submissionID string) (*Analysis, error) {
	body := map[string]interface{}{"text": text}
	if submissionID != "" {
		body["submissionId"] = submissionID
	}
	var a Analysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/analyze", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	return nil
}

func decodeError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Missing = payload.Missing
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

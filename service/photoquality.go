package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/imaging"
)

// PhotoQualityService compares a captured photo with a reference photo. It
// forwards both to the external photo-quality API when one is configured
// and measures locally otherwise.
type PhotoQualityService struct {
	config     *config.PhotoQualityConfig
	httpClient *http.Client
}

// PhotoComparison is either the external service's JSON verbatim or the
// local measurement.
type PhotoComparison struct {
	Remote json.RawMessage
	Local  *LocalComparison
}

type LocalComparison struct {
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
	Brightness float64 `json:"brightness"`
	IsBright   bool    `json:"isBright"`
}

// RemoteError is a non-2xx answer from the photo-quality API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("API error: %s", e.Body)
}

func NewPhotoQualityService(cfg *config.PhotoQualityConfig) *PhotoQualityService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &PhotoQualityService{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Compare judges captured (form field image) against reference (image_comp).
func (s *PhotoQualityService) Compare(ctx context.Context, captured, reference *PhotoUpload) (*PhotoComparison, error) {
	verr := &ValidationError{}
	if captured == nil || len(captured.Data) == 0 {
		verr.Missing = append(verr.Missing, "image")
	}
	if reference == nil || len(reference.Data) == 0 {
		verr.Missing = append(verr.Missing, "image_comp")
	}
	if len(verr.Missing) > 0 {
		return nil, verr
	}

	if s.config.APIURL == "" {
		local, err := compareLocally(captured, reference)
		if err != nil {
			return nil, err
		}
		return &PhotoComparison{Local: local}, nil
	}

	remote, err := s.compareRemote(ctx, captured, reference)
	if err != nil {
		return nil, err
	}
	return &PhotoComparison{Remote: remote}, nil
}

func (s *PhotoQualityService) compareRemote(ctx context.Context, captured, reference *PhotoUpload) (json.RawMessage, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := writeFilePart(w, "image", captured); err != nil {
		return nil, err
	}
	if err := writeFilePart(w, "image_comp", reference); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON, body: %s", string(respBody))
	}
	return json.RawMessage(respBody), nil
}

func writeFilePart(w *multipart.Writer, field string, photo *PhotoUpload) error {
	filename := photo.Filename
	if filename == "" {
		filename = field
	}
	contentType := photo.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(photo.Data)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(photo.Data); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}

func compareLocally(captured, reference *PhotoUpload) (*LocalComparison, error) {
	verr := &ValidationError{}
	a, err := imaging.DecodeBytes(captured.Data)
	if err != nil {
		verr.Invalid = append(verr.Invalid, "image")
	}
	b, err := imaging.DecodeBytes(reference.Data)
	if err != nil {
		verr.Invalid = append(verr.Invalid, "image_comp")
	}
	if len(verr.Invalid) > 0 {
		return nil, verr
	}

	brightness := imaging.Brightness(a)
	return &LocalComparison{
		Source:     "local",
		Similarity: imaging.Similarity(a, b),
		Brightness: brightness,
		IsBright:   brightness > imaging.DefaultBrightnessThreshold,
	}, nil
}

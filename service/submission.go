package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kleurijkwonen/inspections/imaging"
	"github.com/kleurijkwonen/inspections/model"
)

// PhotoUpload is an uploaded image file.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmissionInput carries raw multipart form values. Ratings and
// coordinates are parsed and validated by SubmissionService.Create.
type SubmissionInput struct {
	Type              string
	StreetName        string
	ApartmentNumber   string
	City              string
	StructuralDefects string
	DecayMagnitude    string
	DefectIntensity   string
	Description       string
	SubmittedBy       string
	Latitude          string
	Longitude         string
	UserID            string
	Photo             *PhotoUpload
}

type SubmissionService struct {
	store         *Store
	blobs         BlobStore
	minBrightness float64
}

// NewSubmissionService creates the service. minBrightness of zero disables
// the dark photo check.
func NewSubmissionService(store *Store, blobs BlobStore, minBrightness float64) *SubmissionService {
	return &SubmissionService{store: store, blobs: blobs, minBrightness: minBrightness}
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func (s *SubmissionService) Create(ctx context.Context, in SubmissionInput) (*model.Submission, error) {
	sub, photo, err := parseSubmission(in)
	if err != nil {
		return nil, err
	}

	if s.minBrightness > 0 {
		img, err := imaging.DecodeBytes(photo.Data)
		if err != nil {
			return nil, &ValidationError{Invalid: []string{"photo"}}
		}
		if !imaging.IsBright(img, s.minBrightness) {
			return nil, ErrPhotoTooDark
		}
	}

	sub.ID = uuid.New().String()
	key := fmt.Sprintf("submissions/%s%s", sub.ID, photoExtensions[photo.ContentType])
	if err := s.blobs.Put(ctx, key, bytes.NewReader(photo.Data), int64(len(photo.Data)), photo.ContentType); err != nil {
		return nil, err
	}
	sub.PhotoKey = key
	sub.PhotoURL = PhotoPath(sub.ID)
	sub.PhotoContentType = photo.ContentType

	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			slog.Warn("failed to remove orphaned photo", "key", key, "error", derr)
		}
		return nil, err
	}
	return sub, nil
}

// PhotoPath is the API route serving a submission's photo. Blob storage
// may be private, so submissions never point at the object itself.
func PhotoPath(submissionID string) string {
	return "/api/submissions/" + submissionID + "/photo"
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

func (s *SubmissionService) List(ctx context.Context, f SubmissionFilter) ([]model.Submission, error) {
	return s.store.ListSubmissions(ctx, f)
}

// Photo loads the stored photo bytes of a submission.
func (s *SubmissionService) Photo(ctx context.Context, sub *model.Submission) ([]byte, error) {
	if sub.PhotoKey == "" {
		return nil, ErrNotFound
	}
	rc, err := s.blobs.Get(ctx, sub.PhotoKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return buf.Bytes(), nil
}

func parseSubmission(in SubmissionInput) (*model.Submission, *PhotoUpload, error) {
	verr := &ValidationError{}
	required := func(name, value string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			verr.Missing = append(verr.Missing, name)
		}
		return value
	}
	rating := func(name, value string) int {
		value = required(name, value)
		if value == "" {
			return 0
		}
		n, err := strconv.Atoi(value)
		if err != nil || !model.ValidRating(n) {
			verr.Invalid = append(verr.Invalid, name)
			return 0
		}
		return n
	}
	coordinate := func(name, value string, limit float64) *float64 {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < -limit || f > limit {
			verr.Invalid = append(verr.Invalid, name)
			return nil
		}
		return &f
	}

	sub := &model.Submission{
		Type:              strings.TrimSpace(in.Type),
		StreetName:        required("streetName", in.StreetName),
		ApartmentNumber:   required("apartmentNumber", in.ApartmentNumber),
		City:              required("city", in.City),
		StructuralDefects: rating("structuralDefects", in.StructuralDefects),
		DecayMagnitude:    rating("decayMagnitude", in.DecayMagnitude),
		DefectIntensity:   rating("defectIntensity", in.DefectIntensity),
		Description:       strings.TrimSpace(in.Description),
		SubmittedBy:       strings.TrimSpace(in.SubmittedBy),
		Latitude:          coordinate("latitude", in.Latitude, 90),
		Longitude:         coordinate("longitude", in.Longitude, 180),
	}
	if in.UserID != "" {
		uid := in.UserID
		sub.UserID = &uid
	}
	if !model.ValidType(sub.Type) {
		verr.Invalid = append(verr.Invalid, "type")
	}

	photo := in.Photo
	if photo == nil || len(photo.Data) == 0 {
		verr.Missing = append(verr.Missing, "photo")
	} else {
		ct, _, _ := mime.ParseMediaType(photo.ContentType)
		if ct == "image/jpg" {
			ct = "image/jpeg"
		}
		if ct == "" || ct == "application/octet-stream" {
			ct = http.DetectContentType(photo.Data)
		}
		if _, ok := photoExtensions[ct]; !ok {
			verr.Invalid = append(verr.Invalid, "photo")
		}
		photo = &PhotoUpload{Filename: photo.Filename, ContentType: ct, Data: photo.Data}
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return nil, nil, verr
	}
	return sub, photo, nil
}

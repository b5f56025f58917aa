package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "secret123"

var testAuthConfig = &config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 24}

type testEnv struct {
	store       *service.Store
	blobs       *service.MemoryBlobStore
	auth        *service.AuthService
	submissions *service.SubmissionService
	reports     *service.ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := service.OpenDatabase("file:" + uuid.New().String() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := service.NewStore(db)
	blobs := service.NewMemoryBlobStore()
	submissions := service.NewSubmissionService(store, blobs, 0)
	return &testEnv{
		store:       store,
		blobs:       blobs,
		auth:        service.NewAuthService(store),
		submissions: submissions,
		reports:     service.NewReportService(store, submissions),
	}
}

// user creates an account with testPassword.
func (e *testEnv) user(t *testing.T, email, role string) *model.User {
	t.Helper()
	hash, err := service.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	u := &model.User{Name: role + " user", Email: email, PasswordHash: hash, Role: role}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// submission stores a submission owned by u.
func (e *testEnv) submission(t *testing.T, u *model.User, street string) *model.Submission {
	t.Helper()
	sub, err := e.submissions.Create(context.Background(), service.SubmissionInput{
		Type:              u.Role,
		StreetName:        street,
		ApartmentNumber:   "1",
		City:              "Utrecht",
		StructuralDefects: "2",
		DecayMagnitude:    "3",
		DefectIntensity:   "4",
		UserID:            u.ID,
		SubmittedBy:       u.Email,
		Photo:             &service.PhotoUpload{Filename: "p.png", Data: pngBytes(t, color.Gray{Y: 200})},
	})
	if err != nil {
		t.Fatalf("Create submission failed: %v", err)
	}
	return sub
}

// as runs h with u's identity in the gin context, the way AuthMiddleware
// leaves it.
func as(u *model.User, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", u.ID)
		c.Set("email", u.Email)
		c.Set("role", u.Role)
		h(c)
	}
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST with form fields and file parts.
func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	for field, data := range files {
		part, err := w.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v interface{}) *http.Request {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

package handler

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/service"
	"github.com/kleurijkwonen/inspections/session"
	"github.com/kleurijkwonen/inspections/wizard"
)

func newWizardRouter(env *testEnv) *gin.Engine {
	h := NewWizardHandler(session.NewMemoryStore(time.Hour), env.auth, env.store, env.submissions, 1<<20)
	router := gin.New()
	g := router.Group("/wizard")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/login", h.Login)
	g.POST("/:id/logout", h.Logout)
	g.PATCH("/:id/draft", h.UpdateDraft)
	g.POST("/:id/photo", h.UploadPhoto)
	g.POST("/:id/next", h.Next)
	g.POST("/:id/back", h.Back)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/restart", h.Restart)
	g.POST("/:id/select", h.Select)
	return router
}

type wizardClient struct {
	t      *testing.T
	router *gin.Engine
	id     string
}

func startWizard(t *testing.T, router *gin.Engine) *wizardClient {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/wizard", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var view WizardView
	decode(t, w, &view)
	if view.Screen != wizard.LoginScreen {
		t.Fatalf("Expected login screen, got %s", view.Screen)
	}
	return &wizardClient{t: t, router: router, id: view.ID}
}

// do sends req and expects code; on 200 it returns the session view.
func (c *wizardClient) do(req *http.Request, code int) WizardView {
	c.t.Helper()
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	if w.Code != code {
		c.t.Fatalf("%s %s: expected status %d, got %d: %s", req.Method, req.URL.Path, code, w.Code, w.Body.String())
	}
	var view WizardView
	if code == http.StatusOK {
		decode(c.t, w, &view)
	}
	return view
}

func (c *wizardClient) post(action string, body interface{}, code int) WizardView {
	c.t.Helper()
	path := "/wizard/" + c.id + "/" + action
	if body == nil {
		return c.do(httptest.NewRequest("POST", path, nil), code)
	}
	return c.do(jsonRequest("POST", path, body), code)
}

func (c *wizardClient) draft(fields map[string]interface{}, code int) WizardView {
	c.t.Helper()
	return c.do(jsonRequest("PATCH", "/wizard/"+c.id+"/draft", fields), code)
}

func (c *wizardClient) get() WizardView {
	c.t.Helper()
	return c.do(httptest.NewRequest("GET", "/wizard/"+c.id, nil), http.StatusOK)
}

func TestWizardTenantFlow(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.user(t, "anna@example.com", model.RoleTenant)
	c := startWizard(t, newWizardRouter(env))

	c.post("login", map[string]string{"email": "anna@example.com", "password": "wrong-password"}, http.StatusUnauthorized)
	if view := c.get(); view.Screen != wizard.LoginScreen {
		t.Fatalf("Expected to stay on login, got %s", view.Screen)
	}

	view := c.post("login", map[string]string{"email": "anna@example.com", "password": testPassword}, http.StatusOK)
	if view.Screen != (wizard.Screen{Role: wizard.RoleTenant, ID: wizard.ScreenAddress}) {
		t.Fatalf("Expected tenant/address, got %s", view.Screen)
	}

	c.post("next", nil, http.StatusUnprocessableEntity)
	c.draft(map[string]interface{}{"streetName": "Main St", "apartmentNumber": "12A", "city": "Amsterdam"}, http.StatusOK)
	c.post("next", nil, http.StatusOK) // instructions
	c.post("next", nil, http.StatusOK) // example photo
	view = c.post("next", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenPhotoCapture {
		t.Fatalf("Expected photo-capture, got %s", view.Screen)
	}
	c.post("next", nil, http.StatusUnprocessableEntity)

	view = c.do(multipartRequest(t, "/wizard/"+c.id+"/photo", nil, map[string][]byte{
		"photo": pngBytes(t, color.Gray{Y: 200}),
	}), http.StatusOK)
	if !view.Draft.HasPhoto {
		t.Fatal("Expected photo in draft")
	}
	c.post("next", nil, http.StatusOK) // comparison
	view = c.post("next", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenAssessment {
		t.Fatalf("Expected assessment, got %s", view.Screen)
	}

	c.draft(map[string]interface{}{"structuralDefects": 4, "decayMagnitude": 3, "defectIntensity": 7}, http.StatusBadRequest)
	if view = c.get(); view.Draft.StructuralDefects != 0 {
		t.Errorf("Expected a rejected update to change nothing, got %+v", view.Draft)
	}
	view = c.draft(map[string]interface{}{"structuralDefects": 4, "decayMagnitude": 3, "defectIntensity": 5}, http.StatusOK)
	if view.Draft.Mean != 4 || view.Draft.FinalScore != 4 {
		t.Errorf("Expected mean 4 and score 4, got %v %d", view.Draft.Mean, view.Draft.FinalScore)
	}
	c.post("next", nil, http.StatusOK) // description
	c.draft(map[string]interface{}{"description": "Crack above the window"}, http.StatusOK)
	c.post("next", nil, http.StatusUnprocessableEntity)

	view = c.post("submit", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenThankYou || !view.Terminal {
		t.Fatalf("Expected thank-you, got %s", view.Screen)
	}
	if view.Reward != "Bronze" || view.Submitted != 1 {
		t.Errorf("Expected Bronze after one submission, got %q (%d)", view.Reward, view.Submitted)
	}
	if view.LastReceipt == nil || view.LastReceipt.ID == "" {
		t.Fatal("Expected a receipt")
	}
	if view.Draft.Address.StreetName != "Main St" || view.Draft.HasPhoto {
		t.Errorf("Expected a fresh draft for the same address, got %+v", view.Draft)
	}

	sub, err := env.store.GetSubmission(context.Background(), view.LastReceipt.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if sub.Type != model.TypeTenant || sub.UserID == nil || *sub.UserID != tenant.ID {
		t.Errorf("Unexpected stored submission %+v", sub)
	}
	if sub.StructuralDefects != 4 || sub.DecayMagnitude != 3 || sub.DefectIntensity != 5 {
		t.Errorf("Unexpected stored ratings %+v", sub)
	}

	view = c.post("restart", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenExamplePhoto {
		t.Errorf("Expected restart at example-photo, got %s", view.Screen)
	}

	view = c.post("logout", nil, http.StatusOK)
	if view.Screen != wizard.LoginScreen || view.Draft.Address.StreetName != "" {
		t.Errorf("Expected login with an empty draft, got %s %+v", view.Screen, view.Draft)
	}
}

func TestWizardSubmitFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "piet@example.com", model.RoleEmployee)
	// reject every photo as too dark
	env.submissions = service.NewSubmissionService(env.store, env.blobs, 0.99)
	c := startWizard(t, newWizardRouter(env))

	c.post("login", map[string]string{"email": "piet@example.com", "password": testPassword}, http.StatusOK)
	c.post("next", nil, http.StatusOK) // address
	c.draft(map[string]interface{}{"streetName": "Dorpsweg", "apartmentNumber": "3", "city": "Utrecht"}, http.StatusOK)
	c.post("next", nil, http.StatusOK) // capture
	c.do(multipartRequest(t, "/wizard/"+c.id+"/photo", nil, map[string][]byte{
		"photo": pngBytes(t, color.Gray{Y: 20}),
	}), http.StatusOK)
	c.post("next", nil, http.StatusOK) // assessment
	c.draft(map[string]interface{}{"structuralDefects": 1, "decayMagnitude": 2, "defectIntensity": 2}, http.StatusOK)
	c.post("next", nil, http.StatusOK) // description

	c.post("submit", nil, http.StatusBadRequest)

	view := c.get()
	if view.Screen != (wizard.Screen{Role: wizard.RoleEmployee, ID: wizard.ScreenDescription}) {
		t.Errorf("Expected to stay on description, got %s", view.Screen)
	}
	if !view.Draft.HasPhoto || view.Draft.DefectIntensity != 2 {
		t.Errorf("Expected draft to be kept, got %+v", view.Draft)
	}
}

func TestWizardAdminSelect(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "admin@example.com", model.RoleAdmin)
	employee := env.user(t, "piet@example.com", model.RoleEmployee)
	sub := env.submission(t, employee, "Dorpsweg")
	c := startWizard(t, newWizardRouter(env))

	c.post("login", map[string]string{"email": "admin@example.com", "password": testPassword}, http.StatusOK)
	c.draft(map[string]interface{}{"city": "Utrecht"}, http.StatusConflict)
	c.post("next", nil, http.StatusUnprocessableEntity)
	c.post("select", map[string]string{"submissionId": "missing"}, http.StatusNotFound)

	c.post("select", map[string]string{"submissionId": sub.ID}, http.StatusOK)
	view := c.post("next", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenSubmissionDetail || view.SelectedSubmission != sub.ID {
		t.Errorf("Unexpected admin view %s %s", view.Screen, view.SelectedSubmission)
	}
	view = c.post("next", nil, http.StatusOK)
	if view.Screen.ID != wizard.ScreenReport {
		t.Errorf("Expected report screen, got %s", view.Screen)
	}
	c.post("next", nil, http.StatusConflict)
}

func TestWizardUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	router := newWizardRouter(env)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/wizard/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	c := startWizard(t, router)
	c.do(httptest.NewRequest("DELETE", "/wizard/"+c.id, nil), http.StatusNoContent)
	c.do(httptest.NewRequest("GET", "/wizard/"+c.id, nil), http.StatusNotFound)
}

package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/bootstrap"
	"propertycare-backend/internal/extract/pdftest"
	"propertycare-backend/internal/shared/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type docBody struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	PropertyID       *string `json:"propertyId"`
	MaintenanceLogID *string `json:"maintenanceLogId"`
	Extracted        struct {
		Vendor          *string  `json:"vendor"`
		Amount          *float64 `json:"amount"`
		Date            *string  `json:"date"`
		Category        string   `json:"category"`
		TitleSuggestion *string  `json:"titleSuggestion"`
	} `json:"extracted"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:               "0",
		Env:                "test",
		CORSAllowOrigin:    []string{"http://localhost:5173"},
		LocalStoreDir:      t.TempDir(),
		ObjectStoreType:    "local",
		JWTSecret:          "test-secret",
		MaxUploadMB:        1,
		ExtractConcurrency: 2,
		CleanupDefaultDays: 30,
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	token, err := app.Verifier.Sign("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return &testServer{t: t, router: app.Router, token: token}
}

func (s *testServer) do(method, path string, body []byte, contentType string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)

	var env envelope
	if resp.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("decode envelope: %v (%s)", err, resp.Body.String())
		}
	}
	return resp, env
}

func (s *testServer) doJSON(method, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
	}
	return s.do(method, path, body, "application/json")
}

func (s *testServer) upload(name string, data []byte) docBody {
	s.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		s.t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		s.t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		s.t.Fatalf("close writer: %v", err)
	}

	resp, env := s.do(http.MethodPost, "/api/documents/receipts", body.Bytes(), writer.FormDataContentType())
	if resp.Code != http.StatusCreated {
		s.t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc docBody
	decode(s.t, env.Data, &doc)
	return doc
}

func (s *testServer) propertyAndLog() (string, string) {
	s.t.Helper()
	resp, env := s.doJSON(http.MethodPost, "/api/properties", map[string]any{"name": "Main house"})
	if resp.Code != http.StatusCreated {
		s.t.Fatalf("create property: %d %s", resp.Code, resp.Body.String())
	}
	var prop struct {
		ID string `json:"id"`
	}
	decode(s.t, env.Data, &prop)

	resp, env = s.doJSON(http.MethodPost, "/api/properties/"+prop.ID+"/logs", map[string]any{
		"title":       "Paint",
		"serviceDate": "2024-05-01",
	})
	if resp.Code != http.StatusCreated {
		s.t.Fatalf("create log: %d %s", resp.Code, resp.Body.String())
	}
	var log struct {
		ID string `json:"id"`
	}
	decode(s.t, env.Data, &log)
	return prop.ID, log.ID
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, raw)
	}
}

func TestUploadExtractsReceiptFields(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload("rona.pdf", pdftest.Build("RONA", "123 Main St", "Total: $45.67", "2024-06-01"))

	if doc.ID == "" || doc.Status != "unattached" {
		t.Fatalf("unexpected document %+v", doc)
	}
	ex := doc.Extracted
	if ex.Vendor == nil || *ex.Vendor != "Rona" || ex.Amount == nil || *ex.Amount != 45.67 {
		t.Fatalf("unexpected extracted %+v", ex)
	}
	if ex.Date == nil || *ex.Date != "2024-06-01T00:00:00Z" || ex.Category != "General" {
		t.Fatalf("unexpected date/category %+v", ex)
	}
	if ex.TitleSuggestion == nil || *ex.TitleSuggestion != "Rona • $45.67" {
		t.Fatalf("unexpected title %v", ex.TitleSuggestion)
	}
}

func TestUploadWithoutFileIsInvalid(t *testing.T) {
	s := newTestServer(t)
	resp, env := s.do(http.MethodPost, "/api/documents/receipts", nil, "application/json")
	if resp.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "invalid_input" {
		t.Fatalf("expected invalid_input 400, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestRequiresBearerToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/documents/receipts", nil)
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	health := httptest.NewRecorder()
	s.router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("expected public healthz, got %d", health.Code)
	}
}

func TestAttachFlowAndConflict(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload("rona.pdf", pdftest.Build("RONA", "Total: $45.67"))
	propID, logID := s.propertyAndLog()

	resp, env := s.doJSON(http.MethodPost, "/api/documents/receipts/"+doc.ID+"/attach", map[string]string{
		"propertyId": propID,
		"logId":      logID,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("attach: %d %s", resp.Code, resp.Body.String())
	}
	var attached docBody
	decode(t, env.Data, &attached)
	if attached.Status != "attached" || *attached.PropertyID != propID || *attached.MaintenanceLogID != logID {
		t.Fatalf("unexpected attached doc %+v", attached)
	}

	resp, env = s.doJSON(http.MethodPost, "/api/documents/receipts/"+doc.ID+"/attach", map[string]string{
		"propertyId": propID,
		"logId":      logID,
	})
	if resp.Code != http.StatusConflict || env.Error.Code != "already_attached" {
		t.Fatalf("expected 409 already_attached, got %d %s", resp.Code, resp.Body.String())
	}

	resp, _ = s.doJSON(http.MethodGet, "/api/documents/receipts?status=attached&propertyId="+propID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list attached: %d", resp.Code)
	}
}

func TestAttachMissingLogIsInvalid(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload("rona.pdf", pdftest.Build("RONA"))
	propID, _ := s.propertyAndLog()

	resp, env := s.doJSON(http.MethodPost, "/api/documents/receipts/"+doc.ID+"/attach", map[string]string{"propertyId": propID})
	if resp.Code != http.StatusBadRequest || env.Error.Code != "invalid_input" {
		t.Fatalf("expected 400 invalid_input, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestCreateLogFromReceipt(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload("rona.pdf", pdftest.Build("RONA", "Total: $45.67", "2024-06-01"))
	propID, _ := s.propertyAndLog()

	resp, env := s.doJSON(http.MethodPost, "/api/documents/receipts/"+doc.ID+"/create-log", map[string]any{
		"propertyId": propID,
		"overrides":  map[string]any{"notes": "Paint for the deck", "cost": "50.00"},
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create-log: %d %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Document docBody `json:"document"`
		Log      struct {
			ID    string  `json:"id"`
			Title string  `json:"title"`
			Cost  float64 `json:"cost"`
			Notes *string `json:"notes"`
		} `json:"log"`
	}
	decode(t, env.Data, &out)
	if out.Log.Title != "Rona • $45.67" || out.Log.Cost != 50 || out.Log.Notes == nil {
		t.Fatalf("unexpected log %+v", out.Log)
	}
	if out.Document.Status != "attached" || *out.Document.MaintenanceLogID != out.Log.ID {
		t.Fatalf("document not attached %+v", out.Document)
	}

	resp, _ = s.doJSON(http.MethodGet, "/api/maintenance-logs/"+out.Log.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("fetch created log: %d", resp.Code)
	}
}

func TestPatchOnlyChangesSentFields(t *testing.T) {
	s := newTestServer(t)
	doc := s.upload("rona.pdf", pdftest.Build("RONA", "Total: $45.67", "2024-06-01"))

	resp, env := s.doJSON(http.MethodPatch, "/api/documents/receipts/"+doc.ID, map[string]any{"vendor": "X"})
	if resp.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.Code, resp.Body.String())
	}
	var patched docBody
	decode(t, env.Data, &patched)
	if *patched.Extracted.Vendor != "X" || *patched.Extracted.Amount != 45.67 || *patched.Extracted.TitleSuggestion != "Rona • $45.67" {
		t.Fatalf("unexpected patch result %+v", patched.Extracted)
	}

	resp, env = s.doJSON(http.MethodPatch, "/api/documents/receipts/"+doc.ID, map[string]any{"amount": "", "date": "not a date"})
	if resp.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.Code, resp.Body.String())
	}
	decode(t, env.Data, &patched)
	if patched.Extracted.Amount != nil || patched.Extracted.Date != nil || *patched.Extracted.Vendor != "X" {
		t.Fatalf("expected cleared amount/date, got %+v", patched.Extracted)
	}
}

func TestDownloadAndDelete(t *testing.T) {
	s := newTestServer(t)
	data := pdftest.Build("RONA")
	doc := s.upload("März receipt.pdf", data)

	resp, _ := s.do(http.MethodGet, "/api/documents/receipts/"+doc.ID+"/download", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("download: %d %s", resp.Code, resp.Body.String())
	}
	if !bytes.Equal(resp.Body.Bytes(), data) {
		t.Fatalf("downloaded bytes differ")
	}
	if resp.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", resp.Header().Get("Content-Type"))
	}
	if cd := resp.Header().Get("Content-Disposition"); cd != "attachment; filename*=utf-8''M%C3%A4rz%20receipt.pdf" {
		t.Fatalf("unexpected content disposition %q", cd)
	}

	resp, _ = s.doJSON(http.MethodDelete, "/api/documents/receipts/"+doc.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete: %d", resp.Code)
	}
	resp, env := s.doJSON(http.MethodGet, "/api/documents/receipts/"+doc.ID, nil)
	if resp.Code != http.StatusNotFound || env.Error.Code != "not_found" {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestCleanupEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.upload("rona.pdf", pdftest.Build("RONA"))

	resp, env := s.doJSON(http.MethodDelete, "/api/documents/receipts/unattached?days=0", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("cleanup: %d %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	decode(t, env.Data, &out)
	if out.Deleted != 0 && out.Deleted != 1 {
		t.Fatalf("unexpected deleted count %d", out.Deleted)
	}

	resp, env = s.doJSON(http.MethodDelete, "/api/documents/receipts/unattached?days=-3", nil)
	if resp.Code != http.StatusBadRequest || env.Error.Code != "invalid_input" {
		t.Fatalf("expected 400 for negative days, got %d", resp.Code)
	}
}

func TestListRespectsPaging(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.upload("rona.pdf", pdftest.Build("RONA"))
	}
	resp, env := s.doJSON(http.MethodGet, "/api/documents/receipts?limit=2&skip=0", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: %d", resp.Code)
	}
	var page struct {
		Items []docBody `json:"items"`
		Total int       `json:"total"`
		Limit int       `json:"limit"`
	}
	decode(t, env.Data, &page)
	if page.Total != 3 || len(page.Items) != 2 || page.Limit != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}

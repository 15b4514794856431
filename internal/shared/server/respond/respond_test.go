package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestEnvelopeShapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { OK(c, gin.H{"id": "doc-1"}) })
	r.GET("/fail", func(c *gin.Context) {
		Error(c, http.StatusConflict, "already_attached", "receipt already attached", nil)
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var ok struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Error   *ErrorBody        `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		t.Fatalf("decode ok: %v", err)
	}
	if !ok.Success || ok.Data["id"] != "doc-1" || ok.Error != nil {
		t.Fatalf("unexpected ok envelope: %+v", ok)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var fail Envelope
	if err := json.NewDecoder(resp.Body).Decode(&fail); err != nil {
		t.Fatalf("decode fail: %v", err)
	}
	if fail.Success || fail.Error == nil || fail.Error.Code != "already_attached" {
		t.Fatalf("unexpected error envelope: %+v", fail)
	}
}

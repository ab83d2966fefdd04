package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"deepspear/internal/server/config"
	"deepspear/internal/server/database"
	"deepspear/internal/server/ml"
	"deepspear/internal/server/service"
	"deepspear/internal/server/storage"

	"github.com/labstack/echo/v4"
)

// memStore is an in-memory record store for handler tests.
type memStore struct {
	results []*database.DetectionResult
	nextID  int64
}

func (m *memStore) Insert(_ context.Context, r *database.DetectionResult) error {
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now().UTC()
	stored := *r
	m.results = append(m.results, &stored)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*database.DetectionResult, error) {
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, database.ErrResultNotFound
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]*database.DetectionResult, error) {
	var out []*database.DetectionResult
	for i := len(m.results) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

func (m *memStore) Count(_ context.Context) (int64, error) {
	return int64(len(m.results)), nil
}

type fixedClassifier struct {
	verdict ml.Verdict
}

func (f fixedClassifier) Classify(_ context.Context, _ string) ml.Verdict {
	return f.verdict
}

func newTestHandler(t *testing.T, verdict ml.Verdict) (*Handler, *memStore) {
	t.Helper()
	cfg := &config.Config{
		UploadDir:         t.TempDir(),
		MaxUploadSize:     50 * 1024 * 1024,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "bmp", "webp"},
		APIPrefix:         "/api/v1",
	}
	records := &memStore{}
	files := storage.NewFileSystemStore(cfg.UploadDir, cfg.AllowedExtensions)
	svc := service.NewDetectionService(records, files, fixedClassifier{verdict: verdict}, cfg)
	return NewHandler(svc, nil), records
}

// multipartBody builds a multipart form with a file field and optional extra
// string fields.
func multipartBody(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create file part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("failed to write field %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doDetect(t *testing.T, h *Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.HandleDetect(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return out
}

func TestHandleDetect(t *testing.T) {
	jpegBytes := bytes.Repeat([]byte{0xFF, 0xD8, 0xFF, 0xE0}, 512) // ~2KB

	t.Run("valid upload returns the recorded outcome", func(t *testing.T) {
		h, records := newTestHandler(t, ml.Verdict{
			IsFake:     false,
			Confidence: 0.72,
			Details:    `{"model_version":"v1.0"}`,
		})

		body, ct := multipartBody(t, "holiday.jpg", "image/jpeg", jpegBytes, map[string]string{
			"user_label": "real",
		})
		rec := doDetect(t, h, body, ct)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		resp := decodeJSON(t, rec)
		if _, ok := resp["is_fake"].(bool); !ok {
			t.Error("expected boolean is_fake field")
		}
		conf, ok := resp["confidence"].(float64)
		if !ok || conf < 0.0 || conf > 1.0 {
			t.Errorf("expected confidence in [0,1], got %v", resp["confidence"])
		}
		if resp["filename"] != "holiday.jpg" {
			t.Errorf("expected declared filename, got %v", resp["filename"])
		}
		if _, ok := resp["file_id"].(float64); !ok {
			t.Error("expected numeric file_id")
		}
		if _, ok := resp["message"].(string); !ok {
			t.Error("expected message field")
		}

		if len(records.results) != 1 {
			t.Fatalf("expected one persisted record, got %d", len(records.results))
		}
		stored := records.results[0]
		if stored.UserIsFake == nil || *stored.UserIsFake {
			t.Errorf("expected user_is_fake false for label 'real', got %v", stored.UserIsFake)
		}
	})

	t.Run("missing file yields 400", func(t *testing.T) {
		h, _ := newTestHandler(t, ml.Verdict{})

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		w.WriteField("user_label", "fake")
		w.Close()

		rec := doDetect(t, h, &buf, w.FormDataContentType())
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		resp := decodeJSON(t, rec)
		if resp["detail"] != "no file provided" {
			t.Errorf("expected 'no file provided' detail, got %v", resp["detail"])
		}
	})

	t.Run("disallowed mime type yields 400 with reason", func(t *testing.T) {
		h, _ := newTestHandler(t, ml.Verdict{})

		body, ct := multipartBody(t, "doc.pdf", "application/pdf", []byte("%PDF"), nil)
		rec := doDetect(t, h, body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		resp := decodeJSON(t, rec)
		detail, _ := resp["detail"].(string)
		if detail == "" {
			t.Error("expected a validation reason in detail")
		}
	})

	t.Run("absent user_label persists null", func(t *testing.T) {
		h, records := newTestHandler(t, ml.Verdict{Details: "{}"})

		body, ct := multipartBody(t, "pic.png", "image/png", jpegBytes, nil)
		rec := doDetect(t, h, body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if records.results[0].UserIsFake != nil {
			t.Errorf("expected nil user_is_fake, got %v", *records.results[0].UserIsFake)
		}
	})

	t.Run("detect then lookup returns the same verdict", func(t *testing.T) {
		h, _ := newTestHandler(t, ml.Verdict{IsFake: true, Confidence: 0.93, Details: "{}"})

		body, ct := multipartBody(t, "pic.jpg", "image/jpeg", jpegBytes, map[string]string{
			"user_label": "real",
		})
		rec := doDetect(t, h, body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		detectResp := decodeJSON(t, rec)

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/result/1", nil)
		lookupRec := httptest.NewRecorder()
		c := e.NewContext(req, lookupRec)
		c.SetPath("/api/v1/result/:id")
		c.SetParamNames("id")
		c.SetParamValues("1")
		if err := h.HandleResult(c); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if lookupRec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", lookupRec.Code)
		}

		lookupResp := decodeJSON(t, lookupRec)
		if lookupResp["is_fake"] != detectResp["is_fake"] {
			t.Error("expected lookup is_fake to match detect response")
		}
		if lookupResp["confidence"] != detectResp["confidence"] {
			t.Error("expected lookup confidence to match detect response")
		}
		if v, ok := lookupResp["user_is_fake"].(bool); !ok || v {
			t.Errorf("expected user_is_fake false, got %v", lookupResp["user_is_fake"])
		}
	})
}

func TestHandleHistory(t *testing.T) {
	h, _ := newTestHandler(t, ml.Verdict{Details: "{}"})
	jpegBytes := []byte("jpeg")

	for i := 0; i < 15; i++ {
		body, ct := multipartBody(t, "pic.jpg", "image/jpeg", jpegBytes, nil)
		rec := doDetect(t, h, body, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	t.Run("defaults to limit 10", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		rec := httptest.NewRecorder()
		if err := h.HandleHistory(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}

		resp := decodeJSON(t, rec)
		results := resp["results"].([]any)
		if len(results) != 10 {
			t.Errorf("expected 10 results, got %d", len(results))
		}
		if resp["total"].(float64) != 15 {
			t.Errorf("expected total 15, got %v", resp["total"])
		}
	})

	t.Run("respects limit and offset", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=3&offset=12", nil)
		rec := httptest.NewRecorder()
		if err := h.HandleHistory(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}

		resp := decodeJSON(t, rec)
		results := resp["results"].([]any)
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
		if resp["total"].(float64) != 15 {
			t.Errorf("expected total 15 regardless of pagination, got %v", resp["total"])
		}
	})

	t.Run("empty history returns empty array", func(t *testing.T) {
		emptyHandler, _ := newTestHandler(t, ml.Verdict{})

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		rec := httptest.NewRecorder()
		if err := emptyHandler.HandleHistory(e.NewContext(req, rec)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}

		resp := decodeJSON(t, rec)
		if results, ok := resp["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("expected empty results array, got %v", resp["results"])
		}
	})
}

func TestHandleResult_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, ml.Verdict{})

	for _, id := range []string{"999", "not-a-number"} {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/result/"+id, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/v1/result/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		if err := h.HandleResult(c); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for id %q, got %d", id, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t, ml.Verdict{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	if err := h.HandleHealth(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec)
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", resp["status"])
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{0.123456, 0.123},
		{0.9995, 1.0},
		{0, 0},
		{2.0004, 2.0},
	}
	for _, tt := range tests {
		if got := round3(tt.in); got != tt.expected {
			t.Errorf("round3(%v) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

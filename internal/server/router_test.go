package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ochse/webwatch/internal/store/sqlite"
	"github.com/ochse/webwatch/internal/worker"
)

type stubRunner struct {
	sum  worker.Summary
	err  error
	runs int
}

func (s *stubRunner) RunOnce(context.Context, string) (worker.Summary, error) {
	s.runs++
	return s.sum, s.err
}

func setupRouter(t *testing.T, secret string, runner BatchRunner) (http.Handler, *sqlite.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if runner == nil {
		runner = &stubRunner{}
	}
	return NewRouter(db, runner, secret, "").Handler(), db
}

func doReq(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createMonitor(t *testing.T, h http.Handler, key string) int64 {
	t.Helper()
	rec := doReq(t, h, http.MethodPost, "/monitors", map[string]string{
		"url":          "https://example.com/page",
		"css_selector": "#price",
		"owner_email":  "a@example.com",
		"owner_key":    key,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.ID
}

func TestCreateAndListScopedByOwner(t *testing.T) {
	h, _ := setupRouter(t, "s", nil)
	createMonitor(t, h, "key-a")
	createMonitor(t, h, "key-a")
	createMonitor(t, h, "key-b")

	rec := doReq(t, h, http.MethodGet, "/monitors?owner_key=key-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
		Data  []struct {
			LastContent *string `json:"last_content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("expected 2 records for key-a, got %+v", resp)
	}
	if resp.Data[0].LastContent != nil {
		t.Fatalf("fresh monitor must expose null last_content")
	}
}

func TestListRequiresOwnerKey(t *testing.T) {
	h, _ := setupRouter(t, "s", nil)
	if rec := doReq(t, h, http.MethodGet, "/monitors", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	h, _ := setupRouter(t, "s", nil)
	cases := []map[string]string{
		{},
		{"url": "https://x.com", "css_selector": "p", "owner_email": "a@x"},  // missing key
		{"url": "ftp://x.com/f", "css_selector": "p", "owner_email": "a@x", "owner_key": "k"}, // bad scheme
		{"url": "not a url", "css_selector": "p", "owner_email": "a@x", "owner_key": "k"},
	}
	for i, body := range cases {
		if rec := doReq(t, h, http.MethodPost, "/monitors", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestDeleteOwnership(t *testing.T) {
	h, _ := setupRouter(t, "s", nil)
	id := createMonitor(t, h, "owner")

	wrong := doReq(t, h, http.MethodDelete, "/monitors/"+itoa(id)+"?owner_key=intruder", nil)
	missing := doReq(t, h, http.MethodDelete, "/monitors/99999?owner_key=owner", nil)
	if wrong.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("wrong key (%d) and missing id (%d) must both be 404", wrong.Code, missing.Code)
	}
	if wrong.Body.String() != missing.Body.String() {
		t.Fatalf("404 bodies must be indistinguishable: %s vs %s", wrong.Body.String(), missing.Body.String())
	}

	ok := doReq(t, h, http.MethodDelete, "/monitors/"+itoa(id)+"?owner_key=owner", nil)
	if ok.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", ok.Code)
	}
	// gone now
	again := doReq(t, h, http.MethodDelete, "/monitors/"+itoa(id)+"?owner_key=owner", nil)
	if again.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: expected 404, got %d", again.Code)
	}
}

func TestRunTrigger(t *testing.T) {
	runner := &stubRunner{sum: worker.Summary{Checked: 3, Changed: 1, Unchanged: 2}}
	h, _ := setupRouter(t, "topsecret", runner)

	if rec := doReq(t, h, http.MethodPost, "/worker/run?secret=wrong", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("mismatch: expected 403, got %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodPost, "/worker/run", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("absent secret: expected 403, got %d", rec.Code)
	}
	if runner.runs != 0 {
		t.Fatalf("runner must not fire on rejected triggers")
	}

	rec := doReq(t, h, http.MethodPost, "/worker/run?secret=topsecret", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Checked int `json:"checked"`
		Changed int `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checked != 3 || resp.Changed != 1 {
		t.Fatalf("unexpected summary %+v", resp)
	}
}

func TestRunWithoutConfiguredSecret(t *testing.T) {
	h, _ := setupRouter(t, "", nil)
	// even a "correct" guess is rejected when nothing is configured
	if rec := doReq(t, h, http.MethodPost, "/worker/run?secret=", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRunBatchInProgress(t *testing.T) {
	runner := &stubRunner{err: worker.ErrBatchInProgress}
	h, _ := setupRouter(t, "s", runner)
	if rec := doReq(t, h, http.MethodPost, "/worker/run?secret=s", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRunFailure(t *testing.T) {
	runner := &stubRunner{err: errors.New("store exploded")}
	h, _ := setupRouter(t, "s", runner)
	if rec := doReq(t, h, http.MethodPost, "/worker/run?secret=s", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := setupRouter(t, "s", nil)
	if rec := doReq(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBasePath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	_ = db.EnsureSchema(context.Background())
	h := NewRouter(db, &stubRunner{}, "s", "api/").Handler()
	if rec := doReq(t, h, http.MethodGet, "/api/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under base path, got %d", rec.Code)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

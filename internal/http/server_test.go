package http

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"workdash/internal/core"
	"workdash/internal/services"
	"workdash/internal/session"
	"workdash/internal/sheets/memory"
)

const uploadCSV = `itemID,projectName,workDate,duration,rateApplied,payout,payType,status
A1,Alpha,"Mar 4, 2024",1h 30m,$20.00/hr,$30.00,prepay,pending
A2,Alpha,"Mar 4, 2024",30m,$30.00/hr,$15.00,overtimePay,processed
A3,Beta,"Mar 6, 2024",2h,$20.00/hr,$40.00,prepay,processed
`

// client replays the session cookie across requests.
type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newTestServer(t *testing.T) (*client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(10, time.Hour)
	sample := memory.New("sample_records.csv", &core.RawTable{
		Header: core.RequiredColumns,
		Rows: [][]string{
			{"S1", "Sample", "Jan 2, 2024", "1h", "$25.00/hr", "$25.00", "prepay", "processed"},
		},
	})
	srv := NewServer(":0", Dependencies{
		Imports:        services.NewImportService(store, nil, core.Lenient),
		Dashboard:      services.NewDashboardService(7, 10, time.Minute),
		Sessions:       store,
		Sample:         sample,
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &client{t: t, srv: srv}, store
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rr
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) upload(filename, content string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func TestIndexAndHealth(t *testing.T) {
	c, _ := newTestServer(t)

	rr := c.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Work Dashboard") || !strings.Contains(rr.Body.String(), "No data yet") {
		t.Fatalf("index body missing heading or empty state")
	}
	if c.cookie == nil || !session.ValidID(c.cookie.Value) {
		t.Fatalf("expected a session cookie, got %v", c.cookie)
	}
	if !c.cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request ID header")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := c.get(path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
			t.Errorf("%s content type = %q", path, rr.Header().Get("Content-Type"))
		}
	}

	rr = c.get("/static/app.js")
	if rr.Code != http.StatusOK {
		t.Errorf("static asset status=%d", rr.Code)
	}
}

func TestAPIWithoutData(t *testing.T) {
	c, _ := newTestServer(t)

	rr := c.get("/api/daily")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before import, got %d", rr.Code)
	}
	var body map[string]string
	if err := sonic.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Fatalf("expected JSON error body, got %q", rr.Body.String())
	}

	if rr := c.get("/download.csv"); rr.Code != http.StatusNotFound {
		t.Errorf("download before import: expected 404, got %d", rr.Code)
	}
	if rr := c.get("/ui/overview"); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "No data yet") {
		t.Errorf("partial before import: status=%d", rr.Code)
	}
	if rr := c.postForm("/session/window", url.Values{"preset": {"all"}}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("window before import: expected 422, got %d", rr.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	c, store := newTestServer(t)
	c.get("/")

	// Wrong method
	if rr := c.get("/upload"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	tests := []struct {
		name     string
		filename string
		content  string
		want     string
	}{
		{"missing columns", "records.csv", "itemID,projectName\nA1,Alpha\n", "Missing required columns"},
		{"unsupported extension", "records.txt", uploadCSV, "Unsupported file type"},
		{"empty file", "records.csv", "", "no records"},
		{"not a workbook", "records.xlsx", "plain text", "could not be read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := c.upload(tt.filename, tt.content)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %q does not mention %q", rr.Body.String(), tt.want)
			}
		})
	}

	if store.Size() != 0 {
		t.Errorf("failed uploads must not store a session, got %d", store.Size())
	}
}

func TestUploadAndViews(t *testing.T) {
	c, _ := newTestServer(t)
	c.get("/")

	rr := c.upload("records.csv", uploadCSV)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Loaded 3 records from records.csv") {
		t.Errorf("unexpected upload body: %s", rr.Body.String())
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, "data:loaded") {
		t.Errorf("missing data:loaded trigger: %s", trig)
	}

	// Gap-filled daily series over the full range
	rr = c.get("/api/daily")
	if rr.Code != http.StatusOK {
		t.Fatalf("daily status=%d body=%s", rr.Code, rr.Body.String())
	}
	var daily []map[string]any
	if err := sonic.Unmarshal(rr.Body.Bytes(), &daily); err != nil {
		t.Fatalf("decode daily: %v", err)
	}
	if len(daily) != 3 {
		t.Errorf("daily rows = %d, want 3", len(daily))
	}

	// Query parameters narrow a single request
	rr = c.get("/api/weekdays?start=2024-03-06&end=2024-03-06")
	var weekdays []map[string]any
	if err := sonic.Unmarshal(rr.Body.Bytes(), &weekdays); err != nil {
		t.Fatalf("decode weekdays: %v", err)
	}
	if len(weekdays) != 7 || weekdays[0]["day"] != "Monday" {
		t.Errorf("weekdays = %v", weekdays)
	}

	if rr := c.get("/api/daily?start=2024-03-06&end=2024-03-01"); rr.Code != http.StatusBadRequest {
		t.Errorf("inverted window: expected 400, got %d", rr.Code)
	}
	if rr := c.get("/api/daily?start=0001-01-01&end=9999-12-31"); rr.Code != http.StatusBadRequest {
		t.Errorf("oversized window: expected 400, got %d", rr.Code)
	}
	if rr := c.get("/api/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown view: expected 404, got %d", rr.Code)
	}

	rr = c.get("/api/range")
	var info map[string]any
	if err := sonic.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode range: %v", err)
	}
	if info["min_date"] != "2024-03-04" || info["max_date"] != "2024-03-06" || info["source"] != "records.csv" {
		t.Errorf("range = %v", info)
	}

	for _, view := range []string{"dashboard", "overview", "breakdown", "hours", "timeline", "calendar", "data"} {
		rr := c.get("/ui/" + view)
		if rr.Code != http.StatusOK {
			t.Errorf("/ui/%s status=%d body=%s", view, rr.Code, rr.Body.String())
		}
	}
	if rr := c.get("/ui/calendar"); !strings.Contains(rr.Body.String(), "March 2024") {
		t.Error("calendar should default to the month of the latest record")
	}
	if rr := c.get("/ui/unknown"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown partial: expected 404, got %d", rr.Code)
	}

	rr = c.get("/ui/data?q=beta")
	if !strings.Contains(rr.Body.String(), "A3") || strings.Contains(rr.Body.String(), ">A1<") {
		t.Errorf("search did not filter the data view")
	}
}

func TestDownload(t *testing.T) {
	c, _ := newTestServer(t)
	c.get("/")
	if rr := c.upload("records.csv", uploadCSV); rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d", rr.Code)
	}

	rr := c.get("/download.csv?start=2024-03-04&end=2024-03-04")
	if rr.Code != http.StatusOK {
		t.Fatalf("download status=%d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, DownloadFilename) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", cc)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "itemID,projectName") || !strings.Contains(lines[0], "duration_seconds") {
		t.Errorf("header = %q", lines[0])
	}

	rr = c.get("/download.csv?q=beta")
	lines = strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "A3,") {
		t.Errorf("search download = %q", rr.Body.String())
	}

	if rr := c.get("/metrics"); !strings.Contains(rr.Body.String(), "downloads_total 2") {
		t.Errorf("metrics did not count downloads:\n%s", rr.Body.String())
	}
}

func TestSessionEndpoints(t *testing.T) {
	c, store := newTestServer(t)
	c.get("/")

	// Theme toggles without data
	rr := c.postForm("/session/theme", url.Values{})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("theme status=%d", rr.Code)
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, `"theme":"light"`) {
		t.Errorf("theme trigger = %s", trig)
	}
	if rr := c.postForm("/session/theme", url.Values{"theme": {"neon"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown theme: expected 400, got %d", rr.Code)
	}

	if rr := c.postForm("/import/sample", nil); rr.Code != http.StatusOK {
		t.Fatalf("sample import status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := c.postForm("/import/sheets", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unconfigured sheets: expected 404, got %d", rr.Code)
	}
	if rr := c.upload("records.csv", uploadCSV); rr.Code != http.StatusOK {
		t.Fatalf("upload status=%d", rr.Code)
	}

	rr = c.postForm("/session/window", url.Values{"start": {"2024-03-05"}, "end": {"2024-03-06"}, "q": {"alpha"}})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("window status=%d body=%s", rr.Code, rr.Body.String())
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, "window:changed") {
		t.Errorf("window trigger = %s", trig)
	}

	sess, err := store.Get(context.Background(), c.cookie.Value)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if sess.Window.Start != core.NewDate(2024, 3, 5) || sess.Search != "alpha" || sess.Theme != session.ThemeLight {
		t.Errorf("session = window %s, search %q, theme %q", sess.Window, sess.Search, sess.Theme)
	}
	if sess.Source != "records.csv" {
		t.Errorf("source = %q, want the latest import", sess.Source)
	}

	// Stored window drives the chart endpoints
	var daily []map[string]any
	_ = sonic.Unmarshal(c.get("/api/daily").Body.Bytes(), &daily)
	if len(daily) != 2 {
		t.Errorf("daily rows after window change = %d, want 2", len(daily))
	}

	if rr := c.postForm("/session/window", url.Values{"preset": {"yesterday"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown preset: expected 400, got %d", rr.Code)
	}

	rr = c.postForm("/session/reset", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if rr := c.get("/api/daily"); rr.Code != http.StatusNotFound {
		t.Errorf("after reset: expected 404, got %d", rr.Code)
	}
	sess, _ = store.Get(context.Background(), c.cookie.Value)
	if sess.HasData() || sess.Theme != session.ThemeLight {
		t.Errorf("reset should drop data and keep the theme, got %+v", sess)
	}
}

func TestUnknownCookieStartsFreshSession(t *testing.T) {
	c, _ := newTestServer(t)
	c.cookie = &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"}

	rr := c.get("/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if c.cookie.Value == "not-a-uuid" || !session.ValidID(c.cookie.Value) {
		t.Errorf("expected a fresh session ID, got %q", c.cookie.Value)
	}
}

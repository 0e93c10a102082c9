package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"spotlight/app/internal/data/database"
	"spotlight/app/internal/domain/discovery"
)

func TestCreateDiscoveryReturnsRecord(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{record: sampleRecord()}
	srv := newTestServer(t, service, nil)

	body := `{"fieldOfTopic":"space exploration","keywords":"mars colonization risks","maxTokens":4000,"temperature":0.7}`
	rec := serve(srv, "POST", "/discoveries", body)

	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var view discoveryView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if view.ID != "discovery-1" || view.AnalysisText != "Is Mars colonization doomed?" {
		t.Fatalf("unexpected discovery view %#v", view)
	}
	if view.InputTokens != 120 || view.OutputTokens != 45 {
		t.Fatalf("expected usage 120/45, got %d/%d", view.InputTokens, view.OutputTokens)
	}

	got := service.lastRequest
	if got.FieldOfTopic != "space exploration" || got.Keywords != "mars colonization risks" {
		t.Fatalf("expected request fields to be forwarded, got %#v", got)
	}
	if got.EffectiveMaxTokens() != 4000 || got.EffectiveTemperature() != 0.7 {
		t.Fatalf("expected generation settings to be forwarded, got %#v", got)
	}

	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header to be set")
	}
}

func TestCreateDiscoveryLeavesOptionalSettingsUnset(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{record: sampleRecord()}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "POST", "/discoveries", `{"fieldOfTopic":"ocean","keywords":"plastic"}`)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	if service.lastRequest.MaxTokens != nil || service.lastRequest.Temperature != nil {
		t.Fatalf("expected unset generation settings, got %#v", service.lastRequest)
	}
}

func TestCreateDiscoveryRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{err: eris.Wrap(discovery.ErrInvalidRequest, "keywords are required")}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "POST", "/discoveries", `{"fieldOfTopic":"ocean","keywords":""}`)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("expected status 400, got %d (%s)", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), "keywords are required") {
		t.Fatalf("expected validation reason in body, got %q", rec.Body.String())
	}
}

func TestCreateDiscoveryMapsModelFailureToBadGateway(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{err: eris.Wrap(eris.New("upstream timeout"), "running interest discovery")}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "POST", "/discoveries", `{"fieldOfTopic":"ocean","keywords":"plastic"}`)
	if rec.Code != stdhttp.StatusBadGateway {
		t.Fatalf("expected status 502, got %d (%s)", rec.Code, rec.Body.String())
	}

	if strings.Contains(rec.Body.String(), "upstream timeout") {
		t.Fatalf("expected upstream error details to stay out of the response, got %q", rec.Body.String())
	}
}

func TestGetDiscoveryReturns404WhenMissing(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{getErr: eris.Wrap(discovery.ErrNotFound, "retrieving discovery: missing")}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/discoveries/missing", "")
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestGetDiscoveryReturnsRecord(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{record: sampleRecord()}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/discoveries/discovery-1", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var view discoveryView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if view.FieldOfTopic != "space exploration" {
		t.Fatalf("expected field of topic in body, got %#v", view)
	}
	if service.lastID != "discovery-1" {
		t.Fatalf("expected id discovery-1 to be requested, got %q", service.lastID)
	}
}

func TestListDiscoveriesForwardsLimit(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{list: []discovery.Record{*sampleRecord()}}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/discoveries?limit=5", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if service.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", service.lastLimit)
	}

	var payload struct {
		Discoveries []discoveryView `json:"discoveries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(payload.Discoveries) != 1 || payload.Discoveries[0].ID != "discovery-1" {
		t.Fatalf("unexpected discoveries %#v", payload.Discoveries)
	}
}

func TestReportRouteRendersHTML(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{record: sampleRecord()}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/discoveries/discovery-1/report", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Is Mars colonization doomed?") {
		t.Fatalf("expected analysis in report, got %q", body)
	}
	if !strings.Contains(body, "<title>space exploration • Spotlight</title>") {
		t.Fatalf("expected report title, got %q", body)
	}
}

func TestReportRouteRendersNotFoundPage(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{getErr: eris.Wrap(discovery.ErrNotFound, "retrieving discovery: missing")}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/discoveries/missing/report", "")
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "We couldn&#39;t find that discovery.") {
		t.Fatalf("expected not found message, got %q", rec.Body.String())
	}
}

func TestUsageRouteReportsTotals(t *testing.T) {
	t.Parallel()

	service := &stubDiscoveryService{usage: discovery.Usage{Discoveries: 3, InputTokens: 360, OutputTokens: 135}}
	srv := newTestServer(t, service, nil)

	rec := serve(srv, "GET", "/usage", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload struct {
		Discoveries  int64 `json:"discoveries"`
		InputTokens  int64 `json:"inputTokens"`
		OutputTokens int64 `json:"outputTokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if payload.Discoveries != 3 || payload.InputTokens != 360 || payload.OutputTokens != 135 {
		t.Fatalf("unexpected usage %#v", payload)
	}
}

func TestRateLimiterMiddlewareCapsRequests(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubDiscoveryService{}, nil)

	current := time.Unix(0, 0)
	srv.rateLimiter.now = func() time.Time {
		return current
	}

	for i := 0; i < 3; i++ {
		rec := serve(srv, "GET", "/usage", "")
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("expected request %d to be allowed, got status %d", i+1, rec.Code)
		}
	}

	limited := serve(srv, "GET", "/usage", "")
	if limited.Code != stdhttp.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", stdhttp.StatusTooManyRequests, limited.Code)
	}
	if header := limited.Header().Get("Retry-After"); header != "1" {
		t.Fatalf("expected Retry-After header to be 1, got %q", header)
	}
	if body := limited.Body.String(); !strings.Contains(body, "Too Many Requests") || !strings.Contains(body, "Please wait a moment") {
		t.Fatalf("expected rate limit message in body, got %q", body)
	}

	current = current.Add(time.Second)

	if rec := serve(srv, "GET", "/usage", ""); rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status %d after refill, got %d", stdhttp.StatusOK, rec.Code)
	}
}

func TestRequestIDMiddlewareKeepsValidInboundID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubDiscoveryService{}, nil)

	const inbound = "3f0c8a52-2c41-4a0e-9c3e-1f3f1b7f9a10"
	req := httptest.NewRequest("GET", "/usage", nil)
	req.Header.Set(requestIDHeader, inbound)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != inbound {
		t.Fatalf("expected request id %q, got %q", inbound, got)
	}

	req = httptest.NewRequest("GET", "/usage", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got == "" || got == "not-a-uuid" {
		t.Fatalf("expected a generated request id, got %q", got)
	}
}

func TestHealthRouteReportsOK(t *testing.T) {
	t.Parallel()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "health.db")})
	if err != nil {
		t.Fatalf("database.Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	srv := newTestServer(t, &stubDiscoveryService{}, db)

	rec := serve(srv, "GET", "/healthz", "")
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestHealthRouteReportsDegradedWithoutDatabase(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubDiscoveryService{}, nil)

	rec := serve(srv, "GET", "/healthz", "")
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"degraded"`) {
		t.Fatalf("expected degraded status in body, got %q", rec.Body.String())
	}
}

// helper utilities

func newTestServer(t *testing.T, svc discovery.Service, db *gorm.DB) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, err := NewServer(Options{
		DiscoveryService: svc,
		DB:               db,
		Logger:           logger,
		RateLimiter: RateLimiterSettings{
			Burst:             3,
			RequestsPerSecond: 3,
			ClientTTL:         time.Minute,
		},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	t.Cleanup(srv.Close)

	return srv
}

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sampleRecord() *discovery.Record {
	return &discovery.Record{
		ID: "discovery-1",
		Result: discovery.Result{
			FieldOfTopic: "space exploration",
			Keywords:     "mars colonization risks",
			AnalysisText: "Is Mars colonization doomed?",
			InputTokens:  120,
			OutputTokens: 45,
		},
		MaxTokens:   4000,
		Temperature: 0.7,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

// stubs

type stubDiscoveryService struct {
	record      *discovery.Record
	err         error
	getErr      error
	list        []discovery.Record
	usage       discovery.Usage
	lastRequest discovery.Request
	lastID      string
	lastLimit   int
}

var _ discovery.Service = (*stubDiscoveryService)(nil)

func (s *stubDiscoveryService) Discover(_ context.Context, req discovery.Request) (*discovery.Record, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubDiscoveryService) Get(_ context.Context, id string) (*discovery.Record, error) {
	s.lastID = id
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.record, nil
}

func (s *stubDiscoveryService) List(_ context.Context, limit int) ([]discovery.Record, error) {
	s.lastLimit = limit
	return s.list, nil
}

func (s *stubDiscoveryService) Usage(_ context.Context) (discovery.Usage, error) {
	return s.usage, nil
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/export"
	"github.com/Veraticus/tradewinds/internal/model"
)

type fakeService struct {
	err          error
	session      *analysis.Session
	analyzeReqs  []analysis.AnalyzeRequest
	recalcReqs   []analysis.RecalculateRequest
	sessionCount int
}

func (f *fakeService) Analyze(_ context.Context, req analysis.AnalyzeRequest) (*analysis.Session, error) {
	f.analyzeReqs = append(f.analyzeReqs, req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeService) Recalculate(_ context.Context, req analysis.RecalculateRequest) (*analysis.Session, error) {
	f.recalcReqs = append(f.recalcReqs, req)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeService) Report(_ context.Context, id string) (*analysis.Report, error) {
	if id != f.session.ID {
		return nil, analysis.ErrAnalysisNotFound
	}
	return &analysis.Report{AnalysisID: id, HSCode: f.session.HSCode, Summary: "summary"}, nil
}

func (f *fakeService) Session(_ context.Context, id string) (*analysis.Session, error) {
	if id != f.session.ID {
		return nil, analysis.ErrAnalysisNotFound
	}
	return f.session, nil
}

func (f *fakeService) SessionCount(context.Context) (int, error) {
	return f.sessionCount, nil
}

func testSession() *analysis.Session {
	return &analysis.Session{
		CreatedAt:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ID:                   "abc-123",
		ProductName:          "Motor",
		HSCode:               "8501.10",
		ManufacturingCountry: "CN",
		DestinationCountry:   "US",
		Materials: []model.Material{
			{ID: "mat-1", Name: "Copper", OriginCountry: "CL", Stage: "raw_material", Percentage: 100},
		},
		DeclaredValue: 1000,
		RiskScore:     45,
	}
}

func setupTestServer(t *testing.T, svc *fakeService, origins ...string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := New(Config{CORSOrigins: origins}, svc, nopLogger())
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	assert.Error(t, err)
}

func TestRootAndHealth(t *testing.T) {
	s := setupTestServer(t, &fakeService{session: testSession(), sessionCount: 3})

	w := doRequest(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env["success"])
	assert.Nil(t, env["error"])
	data := env["data"].(map[string]any)
	assert.Equal(t, rootMessage, data["message"])
	assert.Equal(t, APIVersion, data["version"])

	w = doRequest(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.InDelta(t, 3, data["sessions"], 0)
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       `{"product_name":"Motor","description":"Small AC motor","manufacturing_country":"cn","destination_country":"us","declared_value":1000}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "short product name",
			body:       `{"product_name":"M","description":"Small AC motor","manufacturing_country":"CN","destination_country":"US","declared_value":1000}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   CodeValidation,
		},
		{
			name:       "malformed body",
			body:       `{"product_name":`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   CodeValidation,
		},
		{
			name:       "missing api key",
			body:       `{"product_name":"Motor","description":"Small AC motor","manufacturing_country":"CN","destination_country":"US","declared_value":1000}`,
			err:        common.NewUserError("API key missing. Set GROQ_API_KEY.", common.ErrMissingConfig),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeConfiguration,
		},
		{
			name:       "invalid ai output",
			body:       `{"product_name":"Motor","description":"Small AC motor","manufacturing_country":"CN","destination_country":"US","declared_value":1000}`,
			err:        classify.ErrInvalidAIOutput,
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeAIOutput,
		},
		{
			name:       "unexpected failure",
			body:       `{"product_name":"Motor","description":"Small AC motor","manufacturing_country":"CN","destination_country":"US","declared_value":1000}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{session: testSession(), err: tt.err}
			s := setupTestServer(t, svc)

			w := doRequest(s, http.MethodPost, "/analyze", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			env := decodeEnvelope(t, w)
			if tt.wantCode == "" {
				assert.Equal(t, true, env["success"])
				data := env["data"].(map[string]any)
				assert.Equal(t, "abc-123", data["analysis_id"])
				return
			}
			assert.Equal(t, false, env["success"])
			assert.Nil(t, env["data"])
			errBody := env["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, errBody["code"])
			assert.NotEmpty(t, errBody["message"])
		})
	}
}

func TestAnalyze_UserMessageAndKeyAlias(t *testing.T) {
	svc := &fakeService{
		session: testSession(),
		err:     common.NewUserError("API key missing.", common.ErrMissingConfig),
	}
	s := setupTestServer(t, svc)

	w := doRequest(s, http.MethodPost, "/analyze",
		`{"product_name":"Motor","description":"Small AC motor","manufacturing_country":"CN","destination_country":"US","declared_value":10,"api_key":"k-1"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "API key missing.", decodeEnvelope(t, w)["error"].(map[string]any)["message"])

	require.Len(t, svc.analyzeReqs, 1)
	assert.Equal(t, "k-1", svc.analyzeReqs[0].APIKey)
}

func TestRecalculate(t *testing.T) {
	svc := &fakeService{session: testSession()}
	s := setupTestServer(t, svc)

	w := doRequest(s, http.MethodPost, "/recalculate",
		`{"analysis_id":"abc-123","destination_country":"de","materials":[{"name":"Steel","percentage":100,"origin_country":"cn","stage":"raw_material"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, svc.recalcReqs, 1)
	assert.Equal(t, "Steel", svc.recalcReqs[0].Materials[0].Name)

	w = doRequest(s, http.MethodPost, "/recalculate",
		`{"analysis_id":"abc-123","materials":[{"name":"Steel","percentage":0,"origin_country":"CN","stage":"raw_material"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	svc.err = fmt.Errorf("load: %w", analysis.ErrAnalysisNotFound)
	w = doRequest(s, http.MethodPost, "/recalculate", `{"analysis_id":"missing"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]any)
	assert.Equal(t, CodeNotFound, errBody["code"])
}

func TestGenerateReport(t *testing.T) {
	s := setupTestServer(t, &fakeService{session: testSession()})

	w := doRequest(s, http.MethodPost, "/generate-report", `{"analysis_id":"abc-123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "8501.10", data["hs_code"])

	w = doRequest(s, http.MethodPost, "/generate-report", `{"analysis_id":"nope"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]any)
	assert.Equal(t, "Analysis ID not found.", errBody["message"])
}

func TestWorkbookDownload(t *testing.T) {
	s := setupTestServer(t, &fakeService{session: testSession()})

	w := doRequest(s, http.MethodGet, "/generate-report/abc-123/xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.WorkbookContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "analysis-abc-123.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	hs, err := f.GetCellValue(export.SheetSummary, "D2")
	require.NoError(t, err)
	assert.Equal(t, "8501.10", hs)

	w = doRequest(s, http.MethodGet, "/generate-report/other/xlsx", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := setupTestServer(t, &fakeService{session: testSession()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))

	w = doRequest(s, http.MethodGet, "/", "")
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "http://a.example", wantHeader: "*"},
		{name: "default is wildcard", origin: "http://a.example", wantHeader: "*"},
		{name: "listed origin", origins: []string{"http://a.example"}, origin: "http://a.example", wantHeader: "http://a.example"},
		{name: "unlisted origin", origins: []string{"http://a.example"}, origin: "http://b.example", wantHeader: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t, &fakeService{session: testSession()}, tt.origins...)

			req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.wantHeader, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), RecoveryMiddleware(nopLogger()))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, CodeInternal, env["error"].(map[string]any)["code"])
}

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8000", Config{Host: "0.0.0.0", Port: 8000}.Addr())
	assert.Equal(t, ":9000", Config{Port: 9000}.Addr())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := New(Config{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, &fakeService{session: testSession()}, nopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

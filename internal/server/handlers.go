package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/export"
)

const (
	rootMessage = "AI Global Trade Intelligence Backend Running"
	// APIVersion is reported by GET /.
	APIVersion = "1.0.0"
)

// Service is the analysis API the handlers call.
type Service interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.Session, error)
	Recalculate(ctx context.Context, req analysis.RecalculateRequest) (*analysis.Session, error)
	Report(ctx context.Context, analysisID string) (*analysis.Report, error)
	Session(ctx context.Context, analysisID string) (*analysis.Session, error)
	SessionCount(ctx context.Context) (int, error)
}

// analyzeBody accepts api_key as an alias for groq_api_key.
type analyzeBody struct {
	analysis.AnalyzeRequest
	APIKeyAlias string `json:"api_key,omitempty"`
}

type reportBody struct {
	AnalysisID string `json:"analysis_id"`
}

func (s *Server) routes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/analyze", s.handleAnalyze)
	s.router.POST("/recalculate", s.handleRecalculate)
	s.router.POST("/generate-report", s.handleReport)
	s.router.GET("/generate-report/:id/xlsx", s.handleWorkbook)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, success(gin.H{
		"message": rootMessage,
		"version": APIVersion,
	}))
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.service.SessionCount(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(gin.H{
		"status":   "ok",
		"sessions": count,
	}))
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeBody
	if err := bindJSON(c, &body); err != nil {
		s.respondError(c, err)
		return
	}

	req := body.AnalyzeRequest
	if strings.TrimSpace(req.APIKey) == "" {
		req.APIKey = body.APIKeyAlias
	}

	session, err := s.service.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(session))
}

func (s *Server) handleRecalculate(c *gin.Context) {
	var req analysis.RecalculateRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	session, err := s.service.Recalculate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(session))
}

func (s *Server) handleReport(c *gin.Context) {
	var req reportBody
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	report, err := s.service.Report(c.Request.Context(), req.AnalysisID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(report))
}

func (s *Server) handleWorkbook(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	session, err := s.service.Session(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, []*analysis.Session{session}); err != nil {
		s.respondError(c, fmt.Errorf("failed to build workbook: %w", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.xlsx"`, session.ID))
	c.Data(http.StatusOK, export.WorkbookContentType, buf.Bytes())
}

// bindJSON decodes the request body, reporting malformed input as a
// validation failure.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return &analysis.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

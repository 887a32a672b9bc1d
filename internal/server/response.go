package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/common"
)

// Error codes returned in the response envelope.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeAIOutput      = "AI_OUTPUT_INVALID"
	CodeInternal      = "INTERNAL_SERVER_ERROR"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error"`
	Success bool       `json:"success"`
}

// ErrorBody is the error half of a failed Envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func failure(code, message string) Envelope {
	return Envelope{Error: &ErrorBody{Code: code, Message: message}}
}

// classifyError maps an error to its HTTP status and envelope code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrValidation):
		return http.StatusUnprocessableEntity, CodeValidation
	case errors.Is(err, analysis.ErrAnalysisNotFound), errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, common.ErrMissingConfig), errors.Is(err, classify.ErrAIDisabled):
		return http.StatusServiceUnavailable, CodeConfiguration
	case errors.Is(err, classify.ErrInvalidAIOutput):
		return http.StatusBadGateway, CodeAIOutput
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classifyError(err)

	attrs := []any{
		"request_id", RequestID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"code", code,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", attrs...)
	} else {
		s.logger.Warn("Request failed", attrs...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, failure(code, common.UserMessage(err)))
}

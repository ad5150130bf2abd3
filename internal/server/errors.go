package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	analyticsdomain "github.com/yabtel/telemetria/internal/analytics/domain"
	"github.com/yabtel/telemetria/internal/cv"
	mergedomain "github.com/yabtel/telemetria/internal/merge/domain"
	telemetrydomain "github.com/yabtel/telemetria/internal/telemetry/domain"
	"github.com/yabtel/telemetria/pkg/db"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors attached to the gin context
// into one consistent JSON error shape. Handlers never write error
// bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, telemetrydomain.ErrInvalidRecordID),
		errors.Is(err, telemetrydomain.ErrInvalidActionID),
		errors.Is(err, analyticsdomain.ErrInvalidDays):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}
	case errors.Is(err, cv.ErrAuth):
		return http.StatusBadRequest, errorPayload{Type: "upstream_auth_error", Message: err.Error()}
	case errors.Is(err, telemetrydomain.ErrDuplicateBatch):
		return http.StatusConflict, errorPayload{Type: "duplicate", Message: "batch contains already ingested records"}
	case errors.Is(err, mergedomain.ErrMergeLocked):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "merge already running"}
	case errors.Is(err, mergedomain.ErrUnknownType):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "duplicate record"}
	case errors.Is(err, cv.ErrUpstream), errors.Is(err, cv.ErrDecode):
		return http.StatusBadGateway, errorPayload{Type: "upstream_error", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: err.Error()}
	}
}

package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/platform/apierr"
)

// StatusFor maps an error to an HTTP status and a stable error code.
// Explicit apierr values win; otherwise the aggregate code decides.
func StatusFor(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status, ae.Code
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, string(domainagg.CodeValidation)
	case domainagg.CodeNotFound:
		return http.StatusNotFound, string(domainagg.CodeNotFound)
	case domainagg.CodeConflict:
		return http.StatusConflict, string(domainagg.CodeConflict)
	case domainagg.CodePreconditionFailed:
		return http.StatusUnprocessableEntity, string(domainagg.CodePreconditionFailed)
	case domainagg.CodeInvariantViolation:
		return http.StatusUnprocessableEntity, string(domainagg.CodeInvariantViolation)
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, string(domainagg.CodeRetryable)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, string(domainagg.CodeRetryable)
	}
	return http.StatusInternalServerError, string(domainagg.CodeInternal)
}

// RespondFromError writes the error envelope. Internal errors keep their
// detail out of the response body.
func RespondFromError(c *gin.Context, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, err)
}

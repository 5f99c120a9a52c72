package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/workshop-backend/internal/domain/aggregates"
	"github.com/yungbote/workshop-backend/internal/platform/apierr"
)

func TestStatusFor(t *testing.T) {
	conflict := &domainagg.Error{Code: domainagg.CodeConflict, Message: "optimistic lock conflict"}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing user")), http.StatusUnauthorized, "unauthorized"},
		{"validation", domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), http.StatusBadRequest, "validation"},
		{"not found", domainagg.NewError(domainagg.CodeNotFound, "op", "gone", nil), http.StatusNotFound, "not_found"},
		{"wrapped conflict", fmt.Errorf("%w: %w", conflict, errors.New("lost race")), http.StatusConflict, "conflict"},
		{"precondition", domainagg.NewError(domainagg.CodePreconditionFailed, "op", "no credits", nil), http.StatusUnprocessableEntity, "precondition_failed"},
		{"invariant", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "incomplete", nil), http.StatusUnprocessableEntity, "invariant_violation"},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "op", "busy", nil), http.StatusServiceUnavailable, "retryable"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := StatusFor(tc.err)
			if status != tc.status || code != tc.code {
				t.Fatalf("want=%d/%s got=%d/%s", tc.status, tc.code, status, code)
			}
		})
	}
}

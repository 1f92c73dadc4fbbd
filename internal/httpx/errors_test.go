package httpx

import (
	"net/http"
	"testing"

	"github.com/ayiooo/shortlink/internal/errx"
)

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		kind       errx.Kind
		wantStatus int
		wantCode   string
	}{
		{errx.NotFound, http.StatusNotFound, "not_found"},
		{errx.Conflict, http.StatusConflict, "conflict"},
		{errx.Invalid, http.StatusBadRequest, "invalid_input"},
		{errx.Unauthorized, http.StatusUnauthorized, "unauthorized"},
		{errx.Forbidden, http.StatusForbidden, "forbidden"},
		{errx.Unavailable, http.StatusServiceUnavailable, "unavailable"},
		{errx.Exhausted, http.StatusServiceUnavailable, "exhausted"},
		{errx.Internal, http.StatusInternalServerError, "internal_error"},
		{errx.Unknown, http.StatusInternalServerError, "internal_error"},
		{errx.Kind(99), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := ErrorKindToStatus(tt.kind); got != tt.wantStatus {
				t.Errorf("ErrorKindToStatus(%v) = %d, want %d", tt.kind, got, tt.wantStatus)
			}
			if got := ErrorKindToCode(tt.kind); got != tt.wantCode {
				t.Errorf("ErrorKindToCode(%v) = %q, want %q", tt.kind, got, tt.wantCode)
			}
		})
	}
}

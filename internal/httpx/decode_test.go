package httpx

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

type linkPayload struct {
	URL  string  `json:"url"`
	Slug *string `json:"slug,omitempty"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		errContains string
		validate    func(*testing.T, linkPayload)
	}{
		{
			name: "url only",
			body: `{"url":"https://example.com"}`,
			validate: func(t *testing.T, p linkPayload) {
				if p.URL != "https://example.com" || p.Slug != nil {
					t.Errorf("payload = %+v", p)
				}
			},
		},
		{
			name: "url and slug",
			body: `{"url":"https://example.com","slug":"promo"}`,
			validate: func(t *testing.T, p linkPayload) {
				if p.Slug == nil || *p.Slug != "promo" {
					t.Errorf("slug = %v, want promo", p.Slug)
				}
			},
		},
		{name: "empty body", body: "", errContains: "request body is empty"},
		{name: "truncated body", body: `{"url":"https://exa`, errContains: "truncated"},
		{name: "malformed", body: `{"url":"https://example.com",}`, errContains: "malformed JSON"},
		{name: "unknown field", body: `{"url":"https://example.com","owner":"me"}`, errContains: `unknown field "owner"`},
		{name: "wrong type", body: `{"url":42}`, errContains: `invalid value for field "url"`},
		{name: "multiple objects", body: `{"url":"a"}{"url":"b"}`, errContains: "multiple JSON objects"},
		{name: "trailing garbage", body: `{"url":"a"}extra`, errContains: "multiple JSON objects"},
		{
			name:        "body too large",
			body:        `{"url":"https://example.com/` + strings.Repeat("x", MaxRequestBodySize) + `"}`,
			errContains: "request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/links", strings.NewReader(tt.body))

			got, err := DecodeJSON[linkPayload](req)

			if tt.errContains != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errContains)
				}
				if got.URL != "" || got.Slug != nil {
					t.Errorf("expected zero value on error, got %+v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, got)
		})
	}
}

func TestDecodeJSON_ClosesBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"url":"https://example.com"}`)}
	req := httptest.NewRequest("POST", "/api/links", body)

	if _, err := DecodeJSON[linkPayload](req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !body.closed {
		t.Error("expected body to be closed")
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

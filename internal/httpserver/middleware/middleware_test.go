package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfHandler(t *testing.T) http.Handler {
	t.Helper()
	return CSRF(CSRFConfig{CookieName: "csrf"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CSRFTokenFromContext(r.Context()) == "" {
			t.Fatalf("expected token in context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCSRFIssuesCookieOnSafeMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "csrf" || cookies[0].Value == "" {
		t.Fatalf("expected csrf cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("csrf cookie must be HttpOnly")
	}
}

func TestCSRFValidatesUnsafeMethods(t *testing.T) {
	handler := csrfHandler(t)
	cookie := &http.Cookie{Name: "csrf", Value: "token-123"}

	tests := []struct {
		name   string
		build  func() *http.Request
		expect int
	}{
		{
			name: "missing token",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/status", nil)
			},
			expect: http.StatusForbidden,
		},
		{
			name: "header matches",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPut, "/api/v1/status", nil)
				req.Header.Set("X-CSRF-Token", "token-123")
				return req
			},
			expect: http.StatusNoContent,
		},
		{
			name: "form field matches",
			build: func() *http.Request {
				form := url.Values{CSRFFormField: {"token-123"}}
				req := httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			expect: http.StatusNoContent,
		},
		{
			name: "mismatch",
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/status", nil)
				req.Header.Set("X-CSRF-Token", "other")
				return req
			},
			expect: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.build()
			req.AddCookie(cookie)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.expect {
				t.Fatalf("expected %d, got %d", tc.expect, rr.Code)
			}
		})
	}
}

func TestNoStoreSetsHeaders(t *testing.T) {
	handler := NoStore()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store, got %q", got)
	}
}

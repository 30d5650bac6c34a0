package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/council-portal/internal/application"
	"github.com/example/council-portal/internal/telemetry"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			cookie         *http.Cookie
			header         string
			validatorErr   error
			expectedStatus int
			expectedCode   string
		}{
			{
				name:           "missing credentials",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   codeUnauthenticated,
			},
			{
				name:           "malformed authorization header",
				header:         "Basic dXNlcjpwYXNz",
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   codeUnauthenticated,
			},
			{
				name:           "tampered token",
				cookie:         &http.Cookie{Name: TokenCookieName, Value: "tampered"},
				validatorErr:   application.ErrUnauthenticated,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   codeUnauthenticated,
			},
			{
				name:           "expired token",
				header:         "Bearer expired",
				validatorErr:   application.ErrTokenExpired,
				expectedStatus: http.StatusUnauthorized,
				expectedCode:   codeTokenExpired,
			},
			{
				name:           "store failure",
				cookie:         &http.Cookie{Name: TokenCookieName, Value: "valid"},
				validatorErr:   errors.New("database is locked"),
				expectedStatus: http.StatusInternalServerError,
				expectedCode:   codeInternal,
			},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookie != nil {
					req.AddCookie(tc.cookie)
				}
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				rec := httptest.NewRecorder()

				validator := &fakeSessionValidator{err: tc.validatorErr}
				handler := RequireSession(validator, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(rec, req)

				if rec.Code != tc.expectedStatus {
					t.Fatalf("expected status %d, got %d", tc.expectedStatus, rec.Code)
				}
				body := decodeError(t, rec)
				if body.ErrorCode != tc.expectedCode {
					t.Fatalf("expected error code %q, got %q", tc.expectedCode, body.ErrorCode)
				}
				if body.Message == "" {
					t.Fatalf("expected a localized message")
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		principal := application.Principal{MemberID: 7, Role: application.RoleAdmin}
		validator := &fakeSessionValidator{principal: principal}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")
		rec := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured != principal {
			t.Fatalf("expected principal %+v, got %+v", principal, captured)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "header-token" {
			t.Fatalf("expected the bearer header to win over the cookie, got %v", validator.tokens)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
		if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
			t.Fatalf("expected uuid request id, got %q", rec.Header().Get("X-Request-ID"))
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"status":418`)) {
			t.Fatalf("expected completion log with status, got %s", buf.String())
		}
	})

	t.Run("keeps a valid incoming request id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("X-Request-ID", id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Header().Get("X-Request-ID") != id {
			t.Fatalf("expected request id %q to be echoed, got %q", id, rec.Header().Get("X-Request-ID"))
		}
	})
}

func TestRouteTemplate(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/sessions":                      "/sessions",
		"/sessions/12":                   "/sessions/{id}",
		"/sessions/12/convocations/send": "/sessions/{id}/convocations/send",
		"/convocations/4/read":           "/convocations/{id}/read",
		"/uploads/members/3.png":         "/uploads/*",
		"/members/not-a-number":          "/members/not-a-number",
	}
	for path, want := range tests {
		if got := routeTemplate(path); got != want {
			t.Fatalf("routeTemplate(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	counter := telemetry.HTTPRequestsTotal.WithLabelValues(http.MethodDelete, "/minutes/{id}", "404")
	before := testutil.ToFloat64(counter)

	handler := Metrics()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/minutes/99", nil))

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, got)
	}
}

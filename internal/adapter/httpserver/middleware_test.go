package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/observability"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

func noContent(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func Test_SecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(noContent)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	h := rec.Result().Header
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.NotEmpty(t, h.Get("Content-Security-Policy"))
}

func Test_RequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Result().Header.Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-Request-Id", "caller-id")
	h.ServeHTTP(rec, r)
	assert.Equal(t, "caller-id", seen)
	assert.Equal(t, "caller-id", rec.Result().Header.Get("X-Request-Id"))
}

func Test_Recoverer_HandlesPanic(t *testing.T) {
	rec := httptest.NewRecorder()
	Recoverer()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) { panic("boom") })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func Test_TimeoutMiddleware_GatewayTimeout(t *testing.T) {
	rec := httptest.NewRecorder()
	TimeoutMiddleware(5*time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		time.Sleep(20 * time.Millisecond)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func Test_TraceMiddleware_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	TraceMiddleware(http.HandlerFunc(noContent)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_AcceptJSON(t *testing.T) {
	h := AcceptJSON(http.HandlerFunc(noContent))
	for accept, want := range map[string]int{
		"":                     http.StatusNoContent,
		"*/*":                  http.StatusNoContent,
		"application/json":     http.StatusNoContent,
		"text/html, */*;q=0.8": http.StatusNoContent,
		"text/html":            http.StatusNotAcceptable,
		"application/xml":      http.StatusNotAcceptable,
	} {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		if accept != "" {
			r.Header.Set("Accept", accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, want, rec.Code, accept)
	}
}

func Test_RequireAccessCode(t *testing.T) {
	var got domain.AccessContext
	h := RequireAccessCode(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AccessFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set(AccessCodeHeader, "hod-ece")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.AccessContext{Role: domain.RoleHOD, Department: domain.DeptECE}, got)

	for _, code := range []string{"", "   ", "HOD-", "9CSE", "12ABC"} {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.Header.Set(AccessCodeHeader, code)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, code)
	}
}

func Test_AccessFrom_Missing(t *testing.T) {
	_, ok := AccessFrom(context.Background())
	assert.False(t, ok)
}

func Test_newReqID_Unique(t *testing.T) {
	id1, id2 := newReqID(), newReqID()
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func Test_AccessLog_PassesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func Test_writeError_Mapping(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidArgument: http.StatusBadRequest,
		domain.ErrUnauthorized:    http.StatusUnauthorized,
		domain.ErrForbidden:       http.StatusForbidden,
		domain.ErrNotFound:        http.StatusNotFound,
		domain.ErrConflict:        http.StatusConflict,
		domain.ErrRateLimited:     http.StatusTooManyRequests,
		domain.ErrInternal:        http.StatusInternalServerError,
	}
	for err, want := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), err, nil)
		assert.Equal(t, want, rec.Code, err.Error())
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	}
}

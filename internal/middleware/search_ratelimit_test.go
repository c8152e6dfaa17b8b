package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchTestHandler() http.Handler {
	return SearchRateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestSearchRateLimit_OnlyGuardsDonorReads(t *testing.T) {
	h := searchTestHandler()

	// Far more requests than any burst allows; none of these paths are
	// rate limited.
	for i := 0; i < 50; i++ {
		for _, tc := range []struct{ method, path string }{
			{"POST", "/api/donors"},
			{"GET", "/api/requests"},
			{"GET", "/health"},
		} {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(tc.method, tc.path, nil)
			r.RemoteAddr = "198.51.100.50:1000"
			h.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusNoContent, rec.Code, "%s %s", tc.method, tc.path)
		}
	}
}

func TestSearchRateLimit_AnonymousBurst(t *testing.T) {
	h := searchTestHandler()

	// Dedicated IP so other tests cannot have drained the bucket.
	const addr = "198.51.100.61:2000"

	for i := 0; i < searchAnonBurst; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/donors?blood_group=O-", nil)
		r.RemoteAddr = addr
		h.ServeHTTP(rec, r)
		require.Equal(t, http.StatusNoContent, rec.Code, "request %d within burst", i+1)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/donors?blood_group=O-", nil)
	r.RemoteAddr = addr
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"success":false,"message":"Too many search requests. Please slow down."}`, rec.Body.String())
}

func TestSearchRateLimit_AuthenticatedBurstIsLarger(t *testing.T) {
	h := searchTestHandler()
	const addr = "198.51.100.62:3000"

	// The limiter keys on the presence of a bearer token, not its
	// validity; the handler behind it still authenticates.
	for i := 0; i < searchAuthBurst; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/donors", nil)
		r.RemoteAddr = addr
		r.Header.Set("Authorization", "Bearer some.jwt.token")
		h.ServeHTTP(rec, r)
		require.Equal(t, http.StatusNoContent, rec.Code, "request %d within burst", i+1)
		assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/donors", nil)
	r.RemoteAddr = addr
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSearchRateLimit_BucketsAreIndependent(t *testing.T) {
	h := searchTestHandler()

	// Drain the anonymous bucket for one IP.
	for i := 0; i <= searchAnonBurst; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/donors", nil)
		r.RemoteAddr = "198.51.100.63:4000"
		h.ServeHTTP(rec, r)
	}

	// A different IP is unaffected.
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/donors", nil)
	r.RemoteAddr = "198.51.100.64:4000"
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// So is the same IP with a token: auth and anon are separate buckets.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api/donors", nil)
	r.RemoteAddr = "198.51.100.63:4000"
	r.Header.Set("Authorization", "Bearer some.jwt.token")
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHasBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.False(t, hasBearerToken(r))

	r.Header.Set("Authorization", "Bearer ")
	assert.False(t, hasBearerToken(r))

	r.Header.Set("Authorization", "Bearer x")
	assert.True(t, hasBearerToken(r))
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/roktolink/roktolink-backend/pkg/clientip"
)

// Donor directory rate limit: per-IP, different limits for auth vs
// anonymous. Auth: 30 req/min, burst 20. Anonymous: 10 req/min, burst 5.
// The directory search is the most expensive public read, and the one
// worth scraping.

const (
	searchAuthRPS     = 0.5  // 30/min
	searchAuthBurst   = 20
	searchAnonRPS     = 0.17 // ~10/min
	searchAnonBurst   = 5
	searchCleanupMin  = 5 * time.Minute
	searchLimiterTTL  = 30 * time.Minute
)

type searchLimiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

var (
	searchEntries   = make(map[string]*searchLimiterEntry)
	searchEntriesMu sync.Mutex
	searchCleanup   bool
)

func getSearchLimiter(ip string, authenticated bool) *rate.Limiter {
	key := "anon:" + ip
	if authenticated {
		key = "auth:" + ip
	}

	searchEntriesMu.Lock()
	defer searchEntriesMu.Unlock()
	startSearchCleanupOnce()

	e, ok := searchEntries[key]
	if !ok {
		if authenticated {
			e = &searchLimiterEntry{
				limiter: rate.NewLimiter(rate.Limit(searchAuthRPS), searchAuthBurst),
				lastUse: time.Now(),
			}
		} else {
			e = &searchLimiterEntry{
				limiter: rate.NewLimiter(rate.Limit(searchAnonRPS), searchAnonBurst),
				lastUse: time.Now(),
			}
		}
		searchEntries[key] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startSearchCleanupOnce() {
	if searchCleanup {
		return
	}
	searchCleanup = true
	go func() {
		ticker := time.NewTicker(searchCleanupMin)
		defer ticker.Stop()
		for range ticker.C {
			searchEntriesMu.Lock()
			now := time.Now()
			for k, e := range searchEntries {
				if now.Sub(e.lastUse) > searchLimiterTTL {
					delete(searchEntries, k)
				}
			}
			searchEntriesMu.Unlock()
		}
	}()
}

func hasBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && len(strings.TrimPrefix(auth, "Bearer ")) > 0
}

// SearchRateLimit applies rate limiting only to GET /api/donors paths.
// Auth: 30/min burst 20. Anonymous: 10/min burst 5. Returns 429 with
// headers when exceeded.
func SearchRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/donors") {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientip.ForwardedClientIP(r)
		auth := hasBearerToken(r)
		limiter := getSearchLimiter(ip, auth)

		limit := searchAnonBurst
		if auth {
			limit = searchAuthBurst
		}

		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many search requests. Please slow down."}`))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		next.ServeHTTP(w, r)
	})
}

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

// Message send rate limit: per-IP across chat sends and donor contact.
// 20 msg/min with burst 10. The Redis contact guard throttles thread
// creation per donor; this throttles raw message volume per sender.

const (
	sendRPS        = 0.33 // ~20/min
	sendBurst      = 10
	sendCleanupMin = 5 * time.Minute
	sendLimiterTTL = 30 * time.Minute
)

type sendLimiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

var (
	sendEntries   = make(map[string]*sendLimiterEntry)
	sendEntriesMu sync.Mutex
	sendCleanup   bool
)

func getSendLimiter(ip string) *rate.Limiter {
	sendEntriesMu.Lock()
	defer sendEntriesMu.Unlock()
	startSendCleanupOnce()

	e, ok := sendEntries[ip]
	if !ok {
		e = &sendLimiterEntry{
			limiter: rate.NewLimiter(rate.Limit(sendRPS), sendBurst),
			lastUse: time.Now(),
		}
		sendEntries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func startSendCleanupOnce() {
	if sendCleanup {
		return
	}
	sendCleanup = true
	go func() {
		ticker := time.NewTicker(sendCleanupMin)
		defer ticker.Stop()
		for range ticker.C {
			sendEntriesMu.Lock()
			now := time.Now()
			for k, e := range sendEntries {
				if now.Sub(e.lastUse) > sendLimiterTTL {
					delete(sendEntries, k)
				}
			}
			sendEntriesMu.Unlock()
		}
	}()
}

func messageSendPath(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/chats/send") ||
		strings.HasPrefix(r.URL.Path, "/api/contact")
}

// MessageRateLimit applies rate limiting to message-producing writes:
// POST /api/chats/send and POST /api/contact. Returns 429 with headers
// when exceeded.
func MessageRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !messageSendPath(r) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientip.ForwardedClientIP(r)
		limiter := getSendLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(sendBurst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many messages. Please slow down."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

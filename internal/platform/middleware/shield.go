// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
)

// # Per-IP Shield

type shieldClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Shield limits total requests per IP using the token bucket algorithm.
//
// It sits in front of every route and protects the process from floods;
// per-route fixed-window limits are applied later by the auth dispatcher.
type Shield struct {
	mu      sync.Mutex
	clients map[string]*shieldClient

	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

// NewShield builds a shield that allows rps requests per second with the given burst.
func NewShield(rps float64, burst int) *Shield {
	if rps <= 0 {
		rps = constants.DefaultShieldRPS
	}
	if burst <= 0 {
		burst = constants.DefaultShieldBurst
	}
	return &Shield{
		clients: make(map[string]*shieldClient),
		limit:   rate.Limit(rps),
		burst:   burst,
		ttl:     constants.RateLimitClientTTL,
		now:     time.Now,
	}
}

// Run removes idle clients every interval until ctx is cancelled.
func (shield *Shield) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			shield.Sweep()
		case <-ctx.Done():
			// Stop the goroutine when the application shuts down
			return
		}
	}
}

// Sweep deletes clients that have been idle for longer than the client TTL.
func (shield *Shield) Sweep() int {
	shield.mu.Lock()
	defer shield.mu.Unlock()

	removed := 0
	now := shield.now()
	for ip, clientInfo := range shield.clients {
		if now.Sub(clientInfo.lastSeen) > shield.ttl {
			delete(shield.clients, ip)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked clients.
func (shield *Shield) Len() int {
	shield.mu.Lock()
	defer shield.mu.Unlock()
	return len(shield.clients)
}

func (shield *Shield) allow(clientIP string) bool {
	shield.mu.Lock()
	defer shield.mu.Unlock()

	clientInfo, found := shield.clients[clientIP]

	// Initialize a new limiter if this is a fresh IP
	if !found {
		clientInfo = &shieldClient{limiter: rate.NewLimiter(shield.limit, shield.burst)}
		shield.clients[clientIP] = clientInfo
	}

	now := shield.now()
	clientInfo.lastSeen = now
	return clientInfo.limiter.AllowN(now, 1)
}

// Handler returns the middleware.
func (shield *Shield) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !shield.allow(ClientKey(request)) {
				writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(1))
				respond.Error(writer, request, apperr.RateLimited(1))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

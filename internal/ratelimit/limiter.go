// Package ratelimit provides per-tool token bucket rate limiting for the
// vcdq MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a token bucket keyed by arbitrary strings. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // bucket capacity and initial token count
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling at rate tokens/sec up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n calls per minute with the given burst.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// Allow reports whether a call for key may proceed, consuming one token.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// Tool names limited by NewToolLimiters.
const (
	ToolListSignals   = "list_signals"
	ToolSearchSignals = "search_signals"
	ToolSignalValues  = "signal_values"
)

// NewToolLimiters returns limiters for the vcdq tools. Listing is cheap,
// tabulation re-parses the whole trace, so it gets the tighter budget.
// A perMinute of zero or less disables limiting.
func NewToolLimiters(perMinute float64, burst int) ToolLimiters {
	if perMinute <= 0 {
		return ToolLimiters{}
	}
	return ToolLimiters{
		ToolListSignals:   PerMinute(perMinute*2, burst*2),
		ToolSearchSignals: PerMinute(perMinute*2, burst*2),
		ToolSignalValues:  PerMinute(perMinute, burst),
	}
}

// CheckLimit returns an error if toolName is over its limit. Tools without a
// limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}
	return nil
}

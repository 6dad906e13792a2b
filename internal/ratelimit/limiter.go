// Package ratelimit throttles booking and payment initiation per actor and
// per client IP, and meters webhook deliveries with a global token bucket.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Action names a throttled operation. Each action has its own counters.
type Action string

const (
	ActionBooking Action = "booking"
	ActionPayment Action = "payment"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	// Cooldown is the minimum gap between two accepted requests of one actor.
	Cooldown     time.Duration
	MaxPerHour   int
	MaxIPPerHour int

	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		Cooldown:     2 * time.Second,
		MaxPerHour:   30,
		MaxIPPerHour: 120,
	}
}

type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

type entry struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

// Limiter keeps fixed one-hour windows per actor and per IP, plus a cooldown
// per actor. A zero limit disables that layer.
type Limiter struct {
	config  *Config
	clock   Clock
	mu      sync.RWMutex
	byActor map[string]*entry
	byIP    map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		byActor:       make(map[string]*entry),
		byIP:          make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Check reports whether actorID may start action from ip. It does not count
// the request; call Record once the request has been accepted. An actorID of
// zero is anonymous and only the per-IP limit applies.
func (l *Limiter) Check(action Action, actorID int64, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if e := l.byActor[actorKey(action, actorID)]; actorID != 0 && e != nil {
		if elapsed := now.Sub(e.lastAt); elapsed < l.config.Cooldown {
			return LimitResult{RetryAfter: l.config.Cooldown - elapsed, Reason: "cooldown"}
		}
		if l.config.MaxPerHour > 0 && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(e.firstAt), Reason: "hourly_limit"}
		}
	}
	if e := l.byIP[ipKey(action, ip)]; e != nil {
		if l.config.MaxIPPerHour > 0 && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxIPPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(e.firstAt), Reason: "ip_hourly_limit"}
		}
	}
	return LimitResult{Allowed: true}
}

func (l *Limiter) Record(action Action, actorID int64, ip string) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if actorID != 0 {
		bump(l.byActor, actorKey(action, actorID), now)
	}
	bump(l.byIP, ipKey(action, ip), now)
}

func bump(entries map[string]*entry, key string, now time.Time) {
	e := entries[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

func actorKey(action Action, actorID int64) string {
	return string(action) + ":actor:" + strconv.FormatInt(actorID, 10)
}

func ipKey(action Action, ip string) string {
	return string(action) + ":ip:" + ip
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.byActor {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byActor, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

// NewBucket returns a token bucket refilled at perSecond with room for burst.
// A non-positive rate yields an unlimited bucket.
func NewBucket(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func LogRateLimitExceeded(action Action, actorID int64, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("action", string(action)).
		Int64("actor_id", actorID).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Rate limit exceeded")
}

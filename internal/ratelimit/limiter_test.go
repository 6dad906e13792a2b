package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckCooldown(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Cooldown: 10 * time.Second, MaxPerHour: 5, MaxIPPerHour: 20, Clock: clock})
	defer limiter.Close()

	if result := limiter.Check(ActionBooking, 7, "203.0.113.1"); !result.Allowed {
		t.Fatalf("first request blocked: %+v", result)
	}
	limiter.Record(ActionBooking, 7, "203.0.113.1")

	result := limiter.Check(ActionBooking, 7, "203.0.113.1")
	if result.Allowed || result.Reason != "cooldown" || result.RetryAfter != 10*time.Second {
		t.Fatalf("result = %+v, want cooldown for 10s", result)
	}
	if other := limiter.Check(ActionPayment, 7, "203.0.113.1"); !other.Allowed {
		t.Fatalf("payment throttled by booking cooldown: %+v", other)
	}

	clock.Advance(10 * time.Second)
	if result := limiter.Check(ActionBooking, 7, "203.0.113.1"); !result.Allowed {
		t.Fatalf("request after cooldown blocked: %+v", result)
	}
}

func TestAnonymousRequestsOnlyCountPerIP(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Cooldown: time.Minute, MaxIPPerHour: 2, Clock: clock})
	defer limiter.Close()

	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		if result := limiter.Check(ActionPayment, 0, ip); !result.Allowed {
			t.Fatalf("anonymous request from %s blocked: %+v", ip, result)
		}
		limiter.Record(ActionPayment, 0, ip)
	}
	limiter.Record(ActionPayment, 0, "203.0.113.1")
	if result := limiter.Check(ActionPayment, 0, "203.0.113.1"); result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("result = %+v, want ip_hourly_limit", result)
	}
}

func TestCheckHourlyLimits(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		actorFor   func(i int) int64
		actorID    int64
		wantReason string
	}{
		{
			name:       "per actor",
			config:     Config{MaxPerHour: 3, MaxIPPerHour: 100},
			actorFor:   func(int) int64 { return 7 },
			actorID:    7,
			wantReason: "hourly_limit",
		},
		{
			name:       "per ip",
			config:     Config{MaxPerHour: 100, MaxIPPerHour: 3},
			actorFor:   func(i int) int64 { return int64(i + 1) },
			actorID:    99,
			wantReason: "ip_hourly_limit",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := newMockClock()
			tc.config.Clock = clock
			limiter := New(&tc.config)
			defer limiter.Close()

			for i := 0; i < 3; i++ {
				if result := limiter.Check(ActionPayment, tc.actorFor(i), "198.51.100.9"); !result.Allowed {
					t.Fatalf("request %d blocked: %+v", i, result)
				}
				limiter.Record(ActionPayment, tc.actorFor(i), "198.51.100.9")
				clock.Advance(time.Minute)
			}
			result := limiter.Check(ActionPayment, tc.actorID, "198.51.100.9")
			if result.Allowed || result.Reason != tc.wantReason {
				t.Fatalf("result = %+v, want %s", result, tc.wantReason)
			}
			if result.RetryAfter != 57*time.Minute {
				t.Fatalf("retry after = %s, want 57m", result.RetryAfter)
			}

			clock.Advance(time.Hour)
			if result := limiter.Check(ActionPayment, tc.actorID, "198.51.100.9"); !result.Allowed {
				t.Fatalf("window did not reset: %+v", result)
			}
		})
	}
}

func TestNewBucket(t *testing.T) {
	bucket := NewBucket(1, 2)
	if !bucket.Allow() || !bucket.Allow() {
		t.Fatalf("burst of 2 not honoured")
	}
	if bucket.Allow() {
		t.Fatalf("third immediate request allowed")
	}

	unlimited := NewBucket(0, 0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatalf("unlimited bucket refused request %d", i)
		}
	}
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "TrustProxy=true, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50",
		},
		{
			name:       "TrustProxy=true, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1",
		},
		{
			name:       "TrustProxy=true, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "TrustProxy=false, ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "TrustProxy=false, ignores X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "No headers, RemoteAddr only",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got := GetClientIP(r, tt.trustProxy)
			if got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetClientIP_SpoofingPrevention(t *testing.T) {
	// Attacker sends fake X-Forwarded-For header
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4") // Attacker-supplied
	r.RemoteAddr = "192.168.1.100:54321"       // Real connection

	// With TrustProxy=false, the fake header is ignored
	got := GetClientIP(r, false)
	if got != "192.168.1.100" {
		t.Errorf("Should ignore X-Forwarded-For when TrustProxy=false, got %q", got)
	}
}

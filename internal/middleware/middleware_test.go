package middleware

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{name: "forwarded header ignored", xff: "203.0.113.7, 10.0.0.1", remote: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "bad forwarded header ignored", xff: "garbage", remote: "192.0.2.4:5555", want: "192.0.2.4"},
		{name: "remote addr", remote: "192.0.2.9:80", want: "192.0.2.9"},
		{name: "bare ip", remote: "192.0.2.10", want: "192.0.2.10"},
		{name: "unknown", remote: "pipe", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := ClientIP(r); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	l := NewRateLimiter(60, 2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatalf("third request inside the same second should be rejected")
	}
	if !l.Allow("b") {
		t.Fatalf("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("one token refills per second at 60/min")
	}
}

func TestNilRateLimiterAllows(t *testing.T) {
	var l *RateLimiter
	if NewRateLimiter(0, 3) != nil {
		t.Fatalf("zero rate should disable the limiter")
	}
	if !l.Allow("x") {
		t.Fatalf("nil limiter must allow")
	}
}

func TestLimitMiddleware(t *testing.T) {
	l := NewRateLimiter(1, 1)
	rejected := 0
	h := l.Limit(func(*http.Request) { rejected++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func() int {
		r := httptest.NewRequest(http.MethodPost, "/submit", nil)
		r.RemoteAddr = "198.51.100.1:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	if code := do(); code != http.StatusNoContent {
		t.Fatalf("first request status = %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
	if rejected != 1 {
		t.Fatalf("onReject called %d times, want 1", rejected)
	}
}

func TestLimitIgnoresRotatingForwardedFor(t *testing.T) {
	l := NewRateLimiter(6, 3)
	h := l.Limit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	allowed := 0
	for i := 0; i < 50; i++ {
		r := httptest.NewRequest(http.MethodPost, "/submit", nil)
		r.RemoteAddr = "203.0.113.7:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed %d of 50 requests from one peer, want the burst of 3", allowed)
	}
}

func TestRequestLogger(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("no access log written")
	}
	if entry.Level != logrus.WarnLevel {
		t.Fatalf("level = %v, want warn for 404", entry.Level)
	}
	if entry.Data["status"] != http.StatusNotFound || entry.Data["path"] != "/missing" {
		t.Fatalf("unexpected fields: %v", entry.Data)
	}
}

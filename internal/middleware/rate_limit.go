package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	last    time.Time
}

// IPごとのトークンバケット
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
	limiters sync.Map // map[string]*ipLimiter
	now      func() time.Time
}

func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (l *RateLimiter) get(ip string) *ipLimiter {
	if v, ok := l.limiters.Load(ip); ok {
		return v.(*ipLimiter)
	}
	lim := &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst), last: l.now()}
	actual, _ := l.limiters.LoadOrStore(ip, lim)
	return actual.(*ipLimiter)
}

// Allow はipの1リクエスト分を消費する
func (l *RateLimiter) Allow(ip string) bool {
	lim := l.get(ip)
	lim.mu.Lock()
	lim.last = l.now()
	lim.mu.Unlock()
	return lim.limiter.Allow()
}

// しばらく来ていないIPを消す
func (l *RateLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)
	l.limiters.Range(func(key, val any) bool {
		lim := val.(*ipLimiter)
		lim.mu.Lock()
		idle := lim.last.Before(cutoff)
		lim.mu.Unlock()
		if idle {
			l.limiters.Delete(key)
		}
		return true
	})
}

// Run はdoneが閉じるまで定期的にCleanupする
func (l *RateLimiter) Run(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// 決済系エンドポイント用
func RateLimit(l *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, errorJSON("rate limit exceeded"))
			}
			return next(c)
		}
	}
}

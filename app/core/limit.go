package core

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow() bool
}

type LimitConfig struct {
	Limit int
	Range time.Duration
}

type LimitOption func(l *LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Range = r
	}
}

var (
	limiterMu sync.Mutex
	limiters  = make(map[string]*rate.Limiter)
)

// UseLimiter returns a token bucket for the given key, default 60
// requests per minute with burst 2x.
func (s *Core) UseLimiter(key string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: 60,
		Range: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiterMu.Lock()
	defer limiterMu.Unlock()

	l, exist := limiters[key]
	if !exist {
		limit := rate.Every(cfg.Range / time.Duration(cfg.Limit))
		l = rate.NewLimiter(limit, cfg.Limit*2)
		limiters[key] = l
	}
	return l
}

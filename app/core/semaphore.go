package core

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedSemaphore limits concurrency across all service instances
// through a shared Redis counter.
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

func (s *DistributedSemaphore) TryAcquire() bool {
	ctx := context.Background()

	script := `
		local key = KEYS[1]
		local max_permits = tonumber(ARGV[1])
		local timeout = tonumber(ARGV[2])

		local current = tonumber(redis.call('GET', key) or '0')

		if current < max_permits then
			redis.call('INCR', key)
			redis.call('EXPIRE', key, timeout)
			return 1
		else
			return 0
		end
	`

	result, err := s.redis.Eval(ctx, script, []string{s.key}, s.maxPermits, int(s.timeout.Seconds())).Int()
	if err != nil {
		return false
	}

	return result == 1
}

func (s *DistributedSemaphore) Release() {
	ctx := context.Background()

	script := `
		local key = KEYS[1]
		local current = tonumber(redis.call('GET', key) or '0')

		if current > 0 then
			redis.call('DECR', key)
			return 1
		else
			return 0
		end
	`

	s.redis.Eval(ctx, script, []string{s.key})
}

func (s *DistributedSemaphore) GetCurrent() int {
	ctx := context.Background()
	result, err := s.redis.Get(ctx, s.key).Int()
	if err != nil {
		return 0
	}
	return result
}

type SemaphoreManager struct {
	core       *Core
	ingest     *DistributedSemaphore
	ingestOnce sync.Once
}

func NewSemaphoreManager(core *Core) *SemaphoreManager {
	return &SemaphoreManager{
		core: core,
	}
}

// Ingest gates how many pipeline runs may be in flight at once across
// the deployment.
func (m *SemaphoreManager) Ingest() *DistributedSemaphore {
	m.ingestOnce.Do(func() {
		maxConcurrency := 10
		if m.core.cfg.Semaphore.Ingest.MaxConcurrency > 0 {
			maxConcurrency = m.core.cfg.Semaphore.Ingest.MaxConcurrency
		}

		m.ingest = NewDistributedSemaphore(
			m.core.Redis(),
			m.core.cfg.Redis.KeyPrefix+"semaphore:ingest",
			maxConcurrency,
			time.Minute*10,
		)
	})
	return m.ingest
}

package monitoring

import (
	"context"
	"sync"
	"time"

	"cinesync/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// CheckFunc probes one dependency. It should respect ctx's deadline.
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name    string
	check   CheckFunc
	timeout time.Duration
}

// HealthChecker aggregates dependency probes for the readiness endpoint.
type HealthChecker struct {
	mu     sync.RWMutex
	checks []namedCheck
}

// HealthStatus is the readiness report: overall verdict plus one line per
// probe.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

func (h *HealthChecker) AddCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check, timeout: timeout})
}

// AddRedisCheck probes the presence/chat store.
func (h *HealthChecker) AddRedisCheck(client *redis.Client, timeout time.Duration) {
	h.AddCheck("redis", timeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// AddRoomCatalogCheck probes the durable room catalog with a cheap read.
func (h *HealthChecker) AddRoomCatalogCheck(repo ports.RoomRepository, timeout time.Duration) {
	h.AddCheck("room_catalog", timeout, func(ctx context.Context) error {
		_, err := repo.ListActive(ctx)
		return err
	})
}

// CheckAll runs every probe and reports per-probe results. Overall status is
// unhealthy if any probe fails.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.check(checkCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Checks[c.name] = err.Error()
			continue
		}
		status.Checks[c.name] = "healthy"
	}

	return status
}

// IsReady reports whether every probe passes.
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == "healthy"
}

// Package health runs preflight checks against the report's dependencies
// before any role is processed.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status represents the health status of a dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// DefaultTimeout bounds each check.
const DefaultTimeout = 10 * time.Second

// CheckFunc checks one dependency. The detail string is shown to the
// operator next to the status.
type CheckFunc func(ctx context.Context) (Status, string)

// Result is the outcome of one named check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Checker manages preflight checks.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  zerolog.Logger
}

// NewChecker creates a new checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: DefaultTimeout,
		logger:  logger.With().Str("component", "health").Logger(),
	}
}

// SetTimeout overrides DefaultTimeout.
func (c *Checker) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.timeout = d
	}
}

// Register adds a named check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes all checks concurrently and returns results sorted by name.
func (c *Checker) RunAll(ctx context.Context) []Result {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	timeout := c.timeout
	c.mu.RUnlock()

	results := make([]Result, 0, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			s, detail := f(checkCtx)
			if checkCtx.Err() != nil && s == StatusOK {
				s, detail = StatusDown, checkCtx.Err().Error()
			}
			mu.Lock()
			results = append(results, Result{Name: n, Status: s, Detail: detail})
			mu.Unlock()
		}(name, fn)
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	for _, r := range results {
		ev := c.logger.Debug()
		if r.Status != StatusOK {
			ev = c.logger.Warn()
		}
		ev.Str("check", r.Name).Str("status", string(r.Status)).Str("detail", r.Detail).Msg("preflight check")
	}
	return results
}

// Ready reports whether no result is down. Degraded checks do not block.
func Ready(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusDown {
			return false
		}
	}
	return true
}

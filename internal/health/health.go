// Package health checks the collaborators a client depends on: the ledger, the
// content store, the signer and the gateway circuit breaker.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hengadev/medlock/internal/types"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// Check is one named health check.
type Check struct {
	Name      string
	CheckFunc func(context.Context) (Status, error)
	Timeout   time.Duration
	Critical  bool
}

// Result is the outcome of one check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// Report is the outcome of every registered check.
type Report struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Results   []Result  `json:"results"`
}

// Checker runs registered checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	version string
	timeout time.Duration
}

// NewChecker creates a checker whose checks default to a 10 second timeout.
func NewChecker(version string) *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		version: version,
		timeout: 10 * time.Second,
	}
}

// Register adds or replaces a check.
func (c *Checker) Register(check Check) error {
	if check.Name == "" {
		return fmt.Errorf("health check name cannot be empty")
	}
	if check.CheckFunc == nil {
		return fmt.Errorf("health check function cannot be nil")
	}
	if check.Timeout == 0 {
		check.Timeout = c.timeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name] = check
	return nil
}

// Run executes every check and aggregates the results. Results are sorted by name.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		checks = append(checks, check)
	}
	c.mu.RUnlock()

	results := make([]Result, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = execute(ctx, check)
		}(i, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return Report{
		Status:    overall(results),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
		Results:   results,
	}
}

func execute(ctx context.Context, check Check) Result {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	status, err := check.CheckFunc(checkCtx)
	res := Result{Name: check.Name, Status: status, Duration: time.Since(start), Critical: check.Critical}
	if err != nil {
		res.Error = err.Error()
		if res.Status == StatusHealthy {
			res.Status = StatusUnhealthy
		}
	}
	return res
}

// overall is unhealthy when a critical check is not healthy, degraded when any
// other check is not healthy.
func overall(results []Result) Status {
	if len(results) == 0 {
		return StatusUnknown
	}
	status := StatusHealthy
	for _, r := range results {
		if r.Status == StatusHealthy {
			continue
		}
		if r.Critical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

// AccountReader is the read half of a ledger.
type AccountReader interface {
	ReadAccount(ctx context.Context, addr types.Address) ([]byte, error)
}

// LedgerCheck reads target. A missing account still proves the ledger answers.
func LedgerCheck(ledger AccountReader, target types.Address) Check {
	return Check{
		Name:     "ledger",
		Critical: true,
		CheckFunc: func(ctx context.Context) (Status, error) {
			_, err := ledger.ReadAccount(ctx, target)
			if err == nil || errors.Is(err, types.ErrNotFound) {
				return StatusHealthy, nil
			}
			return StatusUnhealthy, err
		},
	}
}

// BlobStore is the content store surface the store check needs.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (types.ContentID, error)
	Get(ctx context.Context, id types.ContentID) ([]byte, error)
}

// StoreCheck writes a fixed sample blob and reads it back. The sample is the same
// on every run, so repeated checks store nothing new.
func StoreCheck(store BlobStore) Check {
	sample := []byte("medlock health check")
	return Check{
		Name:     "content_store",
		Critical: true,
		CheckFunc: func(ctx context.Context) (Status, error) {
			id, err := store.Put(ctx, sample)
			if err != nil {
				return StatusUnhealthy, err
			}
			if _, err := store.Get(ctx, id); err != nil {
				return StatusUnhealthy, err
			}
			return StatusHealthy, nil
		},
	}
}

// SignerCheck reports a disconnected signer as degraded: reads of public state still work.
func SignerCheck(connected func() bool) Check {
	return Check{
		Name:    "signer",
		Timeout: time.Second,
		CheckFunc: func(context.Context) (Status, error) {
			if connected() {
				return StatusHealthy, nil
			}
			return StatusDegraded, types.ErrSigningUnavailable
		},
	}
}

// BreakerCheck reports an open circuit breaker as degraded.
func BreakerCheck(name string, open func() bool) Check {
	return Check{
		Name:    name,
		Timeout: time.Second,
		CheckFunc: func(context.Context) (Status, error) {
			if open() {
				return StatusDegraded, fmt.Errorf("circuit breaker is open")
			}
			return StatusHealthy, nil
		},
	}
}

// Package reaper implements the TTL Reaper of spec.md §4.6: a background
// coordinator that periodically asks its Target to drop expired partial
// solutions and subscriptions. The ticker/context/WaitGroup shutdown
// discipline is modeled on EdgeComet-engine's filesystem cleanup worker
// (internal/edge/cleanup/worker.go), repointed at the matching engine's
// expiry rules instead of cache-directory age.
package reaper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/pkg/metrics"
)

// Target is implemented by the index. Reap performs one exclusive reap pass
// at the given time and reports how much it reclaimed, for metrics and
// logging. The reaper never touches the pattern store, partial-solution
// graph, or subscription table directly — only the index may mutate them
// (spec.md §5).
type Target interface {
	Reap(now int64) (partialSolutionsEvicted int, subscriptionsEvicted int)
}

// Clock returns the current time as unix seconds; injectable for tests.
type Clock func() int64

// Reaper wakes up on a ticker, consults its CleanupPolicy, and calls
// Target.Reap when the policy says to.
//
// Reaping never runs concurrently with ingestion: the Target's Reap method
// is expected to take the index's single-writer lock for its duration.
type Reaper struct {
	target Target
	policy CleanupPolicy
	clock  Clock

	metrics *metrics.Metrics
	logger  *zap.Logger

	tickInterval time.Duration

	mu              sync.Mutex
	lastRun         int64
	queriesAdded    int
	statementsAdded int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Reaper. A nil policy defaults to DefaultCleanupPolicy(); a
// nil logger defaults to zap.NewNop(); tickInterval governs how often the
// background goroutine consults the policy (the policy's own 30s default
// threshold is independent of the tick rate).
func New(target Target, policy CleanupPolicy, clock Clock, m *metrics.Metrics, logger *zap.Logger, tickInterval time.Duration) *Reaper {
	if policy == nil {
		policy = DefaultCleanupPolicy()
	}
	if clock == nil {
		clock = func() int64 { return time.Now().Unix() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Reaper{
		target:       target,
		policy:       policy,
		clock:        clock,
		metrics:      m,
		logger:       logger,
		tickInterval: tickInterval,
	}
}

// SetPolicy replaces the cleanup policy; safe to call before or after Start.
func (r *Reaper) SetPolicy(policy CleanupPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if policy == nil {
		policy = DefaultCleanupPolicy()
	}
	r.policy = policy
}

// NoteQueryAdded records that a query was admitted, for policies that key
// off activity volume rather than elapsed time alone.
func (r *Reaper) NoteQueryAdded() {
	r.mu.Lock()
	r.queriesAdded++
	r.mu.Unlock()
}

// NoteStatementsAdded records that n triples were ingested.
func (r *Reaper) NoteStatementsAdded(n int) {
	r.mu.Lock()
	r.statementsAdded += n
	r.mu.Unlock()
}

// Start launches the background ticker goroutine and restarts the policy's
// elapsed-time count from the current clock reading. Calling Start twice
// without an intervening Shutdown leaks a goroutine; callers own that
// discipline, same as EdgeComet-engine's cleanup worker.
func (r *Reaper) Start() {
	r.mu.Lock()
	r.lastRun = r.clock()
	r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(context.Background())
	ticker := time.NewTicker(r.tickInterval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.maybeRun()
			case <-r.ctx.Done():
				r.logger.Info("reaper shutting down")
				return
			}
		}
	}()
}

// Shutdown deactivates the ticker goroutine and waits for it to exit,
// releasing any in-flight reap pass first.
func (r *Reaper) Shutdown() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

// RunNow runs a reap cycle unconditionally, bypassing the cleanup policy.
// Used by tests and by Index.ShutDown to guarantee a final reclaim.
func (r *Reaper) RunNow() {
	r.run(r.clock())
}

func (r *Reaper) maybeRun() {
	now := r.clock()

	r.mu.Lock()
	secondsSinceLast := now - r.lastRun
	shouldRun := r.policy(secondsSinceLast, r.queriesAdded, r.statementsAdded)
	r.mu.Unlock()

	if !shouldRun {
		if r.metrics != nil {
			r.metrics.RecordReapRun("skipped")
		}
		return
	}
	r.run(now)
}

func (r *Reaper) run(now int64) {
	start := time.Now()
	partialSolutionsEvicted, subscriptionsEvicted := r.target.Reap(now)
	duration := time.Since(start)

	r.mu.Lock()
	r.lastRun = now
	r.queriesAdded = 0
	r.statementsAdded = 0
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordReapRun("ok")
		r.metrics.RecordReapDuration(duration.Seconds())
		r.metrics.RecordPartialSolutionsEvicted(partialSolutionsEvicted)
		r.metrics.RecordSubscriptionsEvicted(subscriptionsEvicted)
	}

	r.logger.Info("reap cycle finished",
		zap.Int("partial_solutions_evicted", partialSolutionsEvicted),
		zap.Int("subscriptions_evicted", subscriptionsEvicted),
		zap.Duration("duration", duration))
}

package password

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent hash and verify operations. Both are CPU
// and memory heavy; unbounded fan-out under a login burst starves the process.
type Pool struct {
	m   *Manager
	sem *semaphore.Weighted
}

// NewPool wraps m with a limit of workers concurrent operations. workers <= 0
// selects runtime.NumCPU().
func NewPool(m *Manager, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{m: m, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash waits for a slot or ctx cancellation, then hashes.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.m.Hash(password)
}

// Verify waits for a slot or ctx cancellation, then verifies.
func (p *Pool) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.m.Verify(password, encodedHash)
}

// NeedsUpgrade only parses the hash and does not take a slot.
func (p *Pool) NeedsUpgrade(encodedHash string) (bool, error) {
	return p.m.NeedsUpgrade(encodedHash)
}

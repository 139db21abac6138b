package services

import (
	"context"
	"sync"
	"time"

	"giveaway/internal/metrics"
	"giveaway/internal/models"

	"github.com/google/logger"
)

// Gateway loads and saves the lottery snapshot. Implementations live in internal/store.
type Gateway interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
}

// persister writes snapshots behind the caller's back, one at a time and in version order.
// Bursts collapse into a single write of the newest snapshot.
type persister struct {
	gw      Gateway
	timeout time.Duration

	mu      sync.Mutex
	pending *models.Snapshot
	queued  uint64
	written uint64
	waiters []persistWaiter
	closed  bool

	kick chan struct{}
	done chan struct{}
}

type persistWaiter struct {
	version uint64
	ch      chan struct{}
}

func newPersister(gw Gateway, timeout time.Duration) *persister {
	p := &persister{
		gw:      gw,
		timeout: timeout,
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue schedules snap for writing and returns its version.
func (p *persister) enqueue(snap models.Snapshot) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		logger.Warningf("%v: snapshot dropped after shutdown", ErrPersistenceUnavailable)
		return p.queued
	}
	p.queued++
	p.pending = &snap
	select {
	case p.kick <- struct{}{}:
	default:
	}
	return p.queued
}

// wait blocks until the given version has been handed to the gateway, successfully or not.
func (p *persister) wait(ctx context.Context, version uint64) error {
	p.mu.Lock()
	if p.written >= version || p.closed {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, persistWaiter{version: version, ch: ch})
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) run() {
	defer close(p.done)
	for range p.kick {
		p.flush()
	}
	p.flush()
}

func (p *persister) flush() {
	p.mu.Lock()
	snap, version := p.pending, p.queued
	p.pending = nil
	p.mu.Unlock()

	if snap != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.gw.Save(ctx, *snap)
		cancel()
		if err != nil {
			metrics.PersistenceFailure("save")
			logger.Errorf("%v: save snapshot (lottery %q, active=%t): %v", ErrPersistenceUnavailable, snap.ID, snap.Active, err)
		}
	}

	p.mu.Lock()
	if version > p.written {
		p.written = version
	}
	remaining := p.waiters[:0]
	for _, w := range p.waiters {
		if w.version <= p.written {
			close(w.ch)
			continue
		}
		remaining = append(remaining, w)
	}
	p.waiters = remaining
	p.mu.Unlock()
}

// close stops accepting snapshots and waits for the last one to be written.
func (p *persister) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.kick)
	}
	p.mu.Unlock()
	<-p.done

	p.mu.Lock()
	for _, w := range p.waiters {
		close(w.ch)
	}
	p.waiters = nil
	p.mu.Unlock()
}

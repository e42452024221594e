package pool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gomariadb/gomariadb"
)

// pooledConn wraps a Session with the bookkeeping the sweeper and the
// validation check on checkout need (spec.md §5 "Connection pool").
type pooledConn struct {
	session  *gomariadb.Session
	lastUsed time.Time
}

// waiter is a one-shot channel handed to a single blocked Get call, giving
// the pool wait-queue FIFO fairness instead of a thundering-herd wakeup on
// a shared condition variable (SPEC_FULL.md §6).
type waiter chan *pooledConn

// Pool is a bounded, LIFO-idle connection pool keyed to one DSN (spec.md
// §5). Idle connections are kept on a stack so the most recently returned
// connection — the one most likely to still have a warm OS-level socket
// buffer — is handed out first.
type Pool struct {
	id  string
	cfg *gomariadb.Config

	mu      sync.Mutex
	idle    []*pooledConn
	waiters []waiter
	total   int
	closed  bool

	metrics *metrics
	sweeper *sweeper
}

// New opens a pool against cfg, pre-warming it to MinPoolSize connections.
func New(cfg *gomariadb.Config) (*Pool, error) {
	p := &Pool{
		id:  uuid.NewString(),
		cfg: cfg,
	}
	p.metrics = newMetrics(p.id)
	registerPool(p)

	for i := 0; i < cfg.MinPoolSize; i++ {
		s, err := gomariadb.Connect(cfg)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.idle = append(p.idle, &pooledConn{session: s, lastUsed: time.Now()})
		p.total++
		p.metrics.created.Inc()
	}
	p.metrics.idle.Set(float64(len(p.idle)))
	p.metrics.total.Set(float64(p.total))

	p.sweeper = newSweeper(p, time.Duration(cfg.MaxIdleTimeSecs)*time.Second/2)
	p.sweeper.start()

	return p, nil
}

// ID is the pool's process-unique identifier, used as a Prometheus label
// and as the key into the process-wide registry (registry.go).
func (p *Pool) ID() string { return p.id }

// Get checks out a Session, blocking on the wait-queue until one is idle
// or a new one can be opened, or ctx is done (spec.md §5 "Get").
func (p *Pool) Get(ctx context.Context) (*gomariadb.Session, error) {
	start := time.Now()
	defer func() { p.metrics.waitTime.Observe(time.Since(start).Seconds()) }()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, gomariadb.NewError(gomariadb.ErrPoolClosed)
	}

	if n := len(p.idle); n > 0 {
		pc := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.metrics.idle.Set(float64(len(p.idle)))
		p.mu.Unlock()
		return p.validate(ctx, pc)
	}

	if p.total < p.cfg.MaxPoolSize {
		p.total++
		p.mu.Unlock()
		s, err := gomariadb.Connect(p.cfg)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, err
		}
		p.metrics.created.Inc()
		p.metrics.total.Set(float64(p.total))
		return s, nil
	}

	w := make(waiter, 1)
	p.waiters = append(p.waiters, w)
	p.metrics.waiters.Set(float64(len(p.waiters)))
	p.mu.Unlock()

	select {
	case pc := <-w:
		return p.validate(ctx, pc)
	case <-ctx.Done():
		p.removeWaiter(w)
		return nil, gomariadb.NewError(gomariadb.ErrNoConnection)
	}
}

func (p *Pool) removeWaiter(w waiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ww := range p.waiters {
		if ww == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			break
		}
	}
	p.metrics.waiters.Set(float64(len(p.waiters)))
}

// validate pings a connection pulled from the idle stack before handing it
// out, discarding and replacing it on failure rather than returning a dead
// socket to the caller (spec.md §5's dead-socket checkout race).
func (p *Pool) validate(ctx context.Context, pc *pooledConn) (*gomariadb.Session, error) {
	if err := pc.session.Ping(); err != nil {
		pc.session.Close()
		p.metrics.closed.Inc()

		s, err := gomariadb.Connect(p.cfg)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.metrics.total.Set(float64(p.total))
			p.mu.Unlock()
			return nil, err
		}
		return s, nil
	}
	return pc.session, nil
}

// Put returns a Session to the pool, handing it directly to a waiting
// caller if one is queued, otherwise pushing it onto the idle stack.
func (p *Pool) Put(s *gomariadb.Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.Close()
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.metrics.waiters.Set(float64(len(p.waiters)))
		p.mu.Unlock()
		w <- &pooledConn{session: s, lastUsed: time.Now()}
		return
	}

	p.idle = append(p.idle, &pooledConn{session: s, lastUsed: time.Now()})
	p.metrics.idle.Set(float64(len(p.idle)))
	p.mu.Unlock()
}

// Close stops the sweeper and closes every idle connection. Connections
// still checked out close themselves when their caller calls Put after
// Close; a copy of the idle slice is taken under the lock so Close doesn't
// hold it while calling out to each Session.Close (spec.md §9 Open
// Question, decided in DESIGN.md: drain-then-close, not swap-then-drain).
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	if p.sweeper != nil {
		p.sweeper.stop()
	}
	for _, pc := range idle {
		pc.session.Close()
		p.metrics.closed.Inc()
	}
	p.metrics.unregister()
	unregisterPool(p.id)
	return nil
}

func (p *Pool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// sweepIdle closes idle connections that have sat unused past
// MaxIdleTimeSecs, keeping at least MinPoolSize connections warm.
func (p *Pool) sweepIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(p.cfg.MaxIdleTimeSecs) * time.Second)
	kept := p.idle[:0]
	for _, pc := range p.idle {
		if pc.lastUsed.Before(cutoff) && p.total > p.cfg.MinPoolSize {
			pc.session.Close()
			p.total--
			p.metrics.closed.Inc()
			continue
		}
		kept = append(kept, pc)
	}
	p.idle = kept
	p.metrics.idle.Set(float64(len(p.idle)))
	p.metrics.total.Set(float64(p.total))
}

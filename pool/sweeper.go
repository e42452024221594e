package pool

import "time"

// sweeper periodically evicts idle connections that have aged past the
// pool's MaxIdleTimeSecs, keeping the idle stack from accumulating
// long-dead sockets a firewall or proxy has silently closed (spec.md §5).
type sweeper struct {
	pool   *Pool
	period time.Duration
	stopCh chan struct{}
	doneCh chan struct{}
}

func newSweeper(p *Pool, period time.Duration) *sweeper {
	if period <= 0 {
		period = 30 * time.Second
	}
	return &sweeper{
		pool:   p,
		period: period,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (s *sweeper) start() {
	go s.run()
}

func (s *sweeper) run() {
	defer close(s.doneCh)
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.pool.sweepIdle()
		case <-s.stopCh:
			return
		}
	}
}

func (s *sweeper) stop() {
	close(s.stopCh)
	<-s.doneCh
}

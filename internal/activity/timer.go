package activity

import (
	"time"

	"github.com/benbjohnson/clock"
)

// timeKeeper fires a callback on a fixed interval while running. It is
// owned by the activity executor; fire runs on the ticker goroutine and
// must only submit work.
type timeKeeper struct {
	clock    clock.Clock
	interval time.Duration
	fire     func()

	ticker *clock.Ticker
	stop   chan struct{}
}

func newTimeKeeper(c clock.Clock, interval time.Duration, fire func()) *timeKeeper {
	return &timeKeeper{clock: c, interval: interval, fire: fire}
}

func (t *timeKeeper) start() {
	if t.ticker != nil {
		return
	}
	ticker := t.clock.Ticker(t.interval)
	stop := make(chan struct{})
	t.ticker = ticker
	t.stop = stop

	go func() {
		for {
			select {
			case <-ticker.C:
				t.fire()
			case <-stop:
				return
			}
		}
	}()
}

func (t *timeKeeper) pause() {
	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.stop)
	t.ticker = nil
	t.stop = nil
}

func (t *timeKeeper) running() bool {
	return t.ticker != nil
}

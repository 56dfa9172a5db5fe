package capture

import (
	"fmt"
	"sync"
	"time"
)

// Ticker is the tick source used by Timer. NewTicker wraps time.Ticker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

func NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Timer counts whole seconds of capture. Each tick adds exactly one.
type Timer struct {
	interval  time.Duration
	newTicker TickerFunc
	onTick    func(elapsed int)

	mu      sync.Mutex
	elapsed int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

type TimerOption func(*Timer)

func WithInterval(d time.Duration) TimerOption {
	return func(t *Timer) { t.interval = d }
}

func WithTicker(fn TickerFunc) TimerOption {
	return func(t *Timer) { t.newTicker = fn }
}

// OnTick registers fn to be called with the new elapsed value after every tick
// and after Reset. It must not call back into the Timer.
func OnTick(fn func(elapsed int)) TimerOption {
	return func(t *Timer) { t.onTick = fn }
}

func NewTimer(opts ...TimerOption) *Timer {
	t := &Timer{interval: time.Second, newTicker: NewTicker}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start resets elapsed to zero and begins ticking. A running timer is
// restarted.
func (t *Timer) Start() {
	t.Stop()

	t.mu.Lock()
	t.elapsed = 0
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	ticker := t.newTicker(t.interval)
	go t.loop(ticker, t.stop, t.done)
	t.mu.Unlock()

	t.notify(0)
}

func (t *Timer) loop(ticker Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			t.mu.Lock()
			select {
			case <-stop:
				t.mu.Unlock()
				return
			default:
			}
			t.elapsed++
			n := t.elapsed
			t.mu.Unlock()
			t.notify(n)
		}
	}
}

// Stop halts ticking and keeps the last value. It returns once the tick
// goroutine has exited.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stop)
	done := t.done
	t.mu.Unlock()
	<-done
}

// Reset shows zero without starting.
func (t *Timer) Reset() {
	t.Stop()
	t.mu.Lock()
	t.elapsed = 0
	t.mu.Unlock()
	t.notify(0)
}

func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) notify(n int) {
	if t.onTick != nil {
		t.onTick(n)
	}
}

// FormatElapsed renders seconds as mm:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Cancel stops a scheduled callback. Calling it more than once is safe.
type Cancel func()

// Scheduler runs callbacks on the engine's single logical thread
type Scheduler interface {
	// Every runs fn each period until cancelled.
	Every(period time.Duration, fn func()) Cancel
	// After runs fn once after delay unless cancelled first.
	After(delay time.Duration, fn func()) Cancel
}

// Loop is a Scheduler backed by wall-clock timers. Every callback, including
// closures passed to Do and Post, runs on one goroutine owned by the Loop.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.done:
			return
		}
	}
}

// Post queues fn without waiting. It reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
// It must not be called from the loop goroutine itself.
func (l *Loop) Do(fn func()) {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return
	}
	select {
	case <-finished:
	case <-l.done:
	}
}

// Close stops the loop. Pending timers fire into a closed loop and are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Loop) Every(period time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	ticker := time.NewTicker(period)
	stop := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					// a tick already queued when Cancel ran must not fire
					if !cancelled.Load() {
						fn()
					}
				})
			case <-stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		cancelled.Store(true)
		once.Do(func() { close(stop) })
	}
}

func (l *Loop) After(delay time.Duration, fn func()) Cancel {
	var cancelled atomic.Bool
	timer := time.AfterFunc(delay, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// ManualScheduler is a Scheduler driven by an explicit clock, for tests and
// offline rendering. Callbacks run synchronously inside Advance.
type ManualScheduler struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Duration
	period    time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManualScheduler returns a scheduler with its clock at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Every(period time.Duration, fn func()) Cancel {
	return m.add(period, period, fn)
}

func (m *ManualScheduler) After(delay time.Duration, fn func()) Cancel {
	return m.add(delay, 0, fn)
}

func (m *ManualScheduler) add(delay, period time.Duration, fn func()) Cancel {
	m.seq++
	t := &manualTimer{at: m.now + delay, period: period, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.cancelled = true }
}

// Now returns the scheduler's clock.
func (m *ManualScheduler) Now() time.Duration {
	return m.now
}

// Pending returns how many live timers remain.
func (m *ManualScheduler) Pending() int {
	m.prune()
	return len(m.timers)
}

// Advance moves the clock forward by d, running every callback that falls due
// in time order. Callbacks scheduled during Advance run too if they are due.
func (m *ManualScheduler) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.next(target)
		if t == nil {
			break
		}
		m.now = t.at
		if t.period > 0 {
			m.seq++
			t.at += t.period
			t.seq = m.seq
		} else {
			t.cancelled = true
		}
		t.fn()
	}
	m.now = target
}

func (m *ManualScheduler) next(limit time.Duration) *manualTimer {
	m.prune()
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at != m.timers[j].at {
			return m.timers[i].at < m.timers[j].at
		}
		return m.timers[i].seq < m.timers[j].seq
	})
	if m.timers[0].at > limit {
		return nil
	}
	return m.timers[0]
}

func (m *ManualScheduler) prune() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = live
}

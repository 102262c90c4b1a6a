package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs deferred work on the goroutine that owns the render tree.
// The binder uses it for follow-up updates of awaited handlers and for
// transition timeouts.
type Scheduler interface {
	// Post queues fn to run on the scheduler's goroutine
	Post(fn func())
	// AfterFunc posts fn once d has elapsed. cancel stops a pending call.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// ErrNotRunning is returned by Loop.Do when the loop is stopped
var ErrNotRunning = errors.New("scheduler: loop not running")

// ErrorHandler handles a panic raised by a task
type ErrorHandler func(err any, stack []byte)

// Queue holds posted tasks until the owner runs them with Drain. Timers
// only enqueue their task, so nothing posted to a Queue runs on another
// goroutine. It is the binder's default scheduler.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Post queues fn until the next Drain. It is safe to call from any
// goroutine.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// AfterFunc posts fn once d has elapsed
func (q *Queue) AfterFunc(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		q.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Drain runs queued tasks on the caller's goroutine, including tasks they
// post, and returns the number run.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.tasks
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Len returns the number of queued tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Loop is a single-goroutine event loop. Every task posted to it runs on the
// loop goroutine in posting order, so tasks can touch the render tree
// without locking.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running atomic.Bool
	done    chan struct{}

	logger  *slog.Logger
	onError ErrorHandler
}

// NewLoop creates a stopped loop
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make([]func(), 0, 64),
		wake:   make(chan struct{}, 1), // buffered to avoid blocking
		logger: logger,
	}
}

// SetErrorHandler sets the handler for panicking tasks. By default panics
// are logged and the loop continues.
func (l *Loop) SetErrorHandler(handler ErrorHandler) {
	l.onError = handler
}

// Start begins the loop goroutine
func (l *Loop) Start() {
	if l.running.CompareAndSwap(false, true) {
		l.done = make(chan struct{})
		go l.loop(l.done)
	}
}

// Stop stops the loop after the batch in progress. Queued tasks are kept
// and run when the loop is started again. Stop must not be called from a
// task.
func (l *Loop) Stop() {
	if l.running.CompareAndSwap(true, false) {
		l.signal()
		<-l.done
	}
}

// IsRunning returns whether the loop is running
func (l *Loop) IsRunning() bool {
	return l.running.Load()
}

// Post queues fn
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// AfterFunc posts fn after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Do runs fn on the loop and waits for it to finish
func (l *Loop) Do(fn func()) error {
	if !l.running.Load() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	<-done
	return nil
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
		// a wake-up is already pending
	}
}

// loop is the main event loop
func (l *Loop) loop(done chan struct{}) {
	defer close(done)
	for l.running.Load() {
		l.mu.Lock()
		batch := l.queue
		l.queue = make([]func(), 0, cap(batch))
		l.mu.Unlock()

		if len(batch) == 0 {
			<-l.wake
			continue
		}
		for _, fn := range batch {
			l.run(fn)
		}
	}
}

// run executes a task with panic recovery
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if l.onError != nil {
				l.onError(r, stack)
				return
			}
			l.logger.Error("scheduled task panicked", "panic", fmt.Sprint(r), "stack", string(stack))
		}
	}()
	fn()
}

// Manual is a deterministic scheduler for tests and tools. Posted tasks wait
// for Flush and delayed tasks fire when Advance moves the virtual clock past
// their deadline.
type Manual struct {
	now    time.Duration
	seq    int
	queue  []func()
	timers []*manualTimer
}

type manualTimer struct {
	at        time.Duration
	seq       int
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

// Post queues fn until the next Flush
func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

// AfterFunc registers fn to run when the clock reaches now+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) func() {
	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.cancelled = true }
}

// Flush runs queued tasks, including tasks they post, until the queue is
// empty. It returns the number of tasks run.
func (m *Manual) Flush() int {
	n := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
		n++
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and flushing after each.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	m.Flush()
	for {
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].at != m.timers[j].at {
				return m.timers[i].at < m.timers[j].at
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].at > target {
			break
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.at
		if !t.cancelled {
			t.fn()
		}
		m.Flush()
	}
	m.now = target
}

// Now returns the virtual time elapsed since creation
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of queued tasks and live timers
func (m *Manual) Pending() (tasks, timers int) {
	for _, t := range m.timers {
		if !t.cancelled {
			timers++
		}
	}
	return len(m.queue), timers
}

package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoop_PostOrder(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	if err := loop.Do(func() {}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 100 {
		t.Fatalf("Expected 100 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Task %d ran at position %d", v, i)
		}
	}
}

func TestLoop_ErrorHandling(t *testing.T) {
	loop := NewLoop(nil)

	var recovered atomic.Value
	loop.SetErrorHandler(func(err any, stack []byte) {
		recovered.Store(err)
		if len(stack) == 0 {
			t.Error("Expected stack trace")
		}
	})
	loop.Start()
	defer loop.Stop()

	loop.Post(func() { panic("test panic") })

	// Loop keeps running after a panic
	ran := false
	if err := loop.Do(func() { ran = true }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !ran {
		t.Error("Task after panic did not run")
	}
	if recovered.Load() != "test panic" {
		t.Errorf("Recovered = %v, want test panic", recovered.Load())
	}
}

func TestLoop_ConcurrentPost(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	var count int // only touched on the loop goroutine
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				loop.Post(func() { count++ })
			}
		}()
	}
	wg.Wait()

	var got int
	if err := loop.Do(func() { got = count }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 1000 {
		t.Errorf("Expected 1000 tasks, got %d", got)
	}
}

func TestLoop_AfterFunc(t *testing.T) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	fired := make(chan struct{})
	loop.AfterFunc(10*time.Millisecond, func() { close(fired) })

	cancelled := make(chan struct{}, 1)
	cancel := loop.AfterFunc(10*time.Millisecond, func() { cancelled <- struct{}{} })
	cancel()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc did not fire")
	}
	time.Sleep(20 * time.Millisecond)
	select {
	case <-cancelled:
		t.Error("Cancelled AfterFunc fired")
	default:
	}
}

func TestLoop_StopStart(t *testing.T) {
	loop := NewLoop(nil)

	if loop.IsRunning() {
		t.Error("Loop should not be running initially")
	}
	if err := loop.Do(func() {}); err != ErrNotRunning {
		t.Errorf("Do() on stopped loop = %v, want ErrNotRunning", err)
	}

	loop.Start()
	if !loop.IsRunning() {
		t.Error("Loop should be running after Start")
	}
	loop.Stop()
	if loop.IsRunning() {
		t.Error("Loop should not be running after Stop")
	}

	// Tasks posted while stopped run after restart
	ran := make(chan struct{})
	loop.Post(func() { close(ran) })
	loop.Start()
	defer loop.Stop()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Queued task did not run after restart")
	}
}

func TestQueue_Drain(t *testing.T) {
	var s Scheduler = NewQueue()
	q := s.(*Queue)
	n := 0
	s.Post(func() {
		n++
		s.Post(func() { n++ })
	})
	if n != 0 {
		t.Fatal("Queue.Post ran a task before Drain")
	}
	if got := q.Drain(); got != 2 {
		t.Errorf("Drain() = %d, want 2", got)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after Drain, want 0", q.Len())
	}
}

func TestQueue_AfterFuncRunsOnDrain(t *testing.T) {
	q := NewQueue()
	fired := 0
	q.AfterFunc(time.Millisecond, func() { fired++ })
	cancel := q.AfterFunc(time.Millisecond, func() { fired += 10 })
	cancel()

	deadline := time.Now().Add(time.Second)
	for q.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fired != 0 {
		t.Fatal("timer task ran before Drain")
	}
	q.Drain()
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestQueue_ConcurrentPost(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Post(func() {})
			}
		}()
	}
	wg.Wait()
	if got := q.Drain(); got != 800 {
		t.Errorf("Drain() = %d, want 800", got)
	}
}

func TestManual_Advance(t *testing.T) {
	m := NewManual()
	var got []string

	m.AfterFunc(600*time.Millisecond, func() { got = append(got, "600ms") })
	m.AfterFunc(100*time.Millisecond, func() {
		got = append(got, "100ms")
		m.Post(func() { got = append(got, "posted") })
	})
	cancel := m.AfterFunc(200*time.Millisecond, func() { got = append(got, "cancelled") })
	cancel()

	m.Advance(599 * time.Millisecond)
	if tasks, timers := m.Pending(); tasks != 0 || timers != 1 {
		t.Errorf("Pending() = %d, %d, want 0, 1", tasks, timers)
	}
	m.Advance(time.Millisecond)

	want := []string{"100ms", "posted", "600ms"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if m.Now() != 600*time.Millisecond {
		t.Errorf("Now() = %v, want 600ms", m.Now())
	}
}

func TestManual_Flush(t *testing.T) {
	m := NewManual()
	n := 0
	m.Post(func() {
		n++
		m.Post(func() { n++ })
	})
	if n != 0 {
		t.Error("Post should not run before Flush")
	}
	if ran := m.Flush(); ran != 2 || n != 2 {
		t.Errorf("Flush() = %d (n=%d), want 2", ran, n)
	}
}

func BenchmarkLoop_Post(b *testing.B) {
	loop := NewLoop(nil)
	loop.Start()
	defer loop.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		loop.Post(func() {})
	}
	_ = loop.Do(func() {})
}

package async

import (
	"errors"
	"testing"
	"time"
)

func TestPromise_OnSettled(t *testing.T) {
	p := New()
	calls := 0
	p.OnSettled(func() { calls++ })

	if calls != 0 {
		t.Fatal("Continuation ran before settlement")
	}
	p.Resolve(42)
	p.Resolve(43)
	p.Reject(errors.New("late"))

	if calls != 1 {
		t.Errorf("Continuation ran %d times, want 1", calls)
	}
	v, err := p.Result()
	if v != 42 || err != nil {
		t.Errorf("Result() = %v, %v, want 42, nil", v, err)
	}

	// Registered after settlement runs immediately
	late := false
	p.OnSettled(func() { late = true })
	if !late {
		t.Error("Continuation registered after settlement did not run")
	}
}

func TestPromise_Reject(t *testing.T) {
	p := New()
	p.Reject(nil)
	if _, err := p.Result(); !errors.Is(err, ErrRejected) {
		t.Errorf("Result() error = %v, want ErrRejected", err)
	}
	if !p.Settled() {
		t.Error("Settled() = false after Reject")
	}
}

func TestGo(t *testing.T) {
	boom := errors.New("boom")
	p := Go(func() (any, error) { return nil, boom })
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("promise did not settle")
	}
	if _, err := p.Result(); !errors.Is(err, boom) {
		t.Errorf("Result() error = %v, want boom", err)
	}
}

func TestAfter(t *testing.T) {
	p := After(5*time.Millisecond, "ok")
	if v, _ := p.Result(); v != "ok" {
		t.Errorf("Result() = %v, want ok", v)
	}
	if v, _ := Resolved(1).Result(); v != 1 {
		t.Errorf("Resolved(1).Result() = %v, want 1", v)
	}
}

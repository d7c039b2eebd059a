package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolReserveRefusesWhenFull(t *testing.T) {
	p := newPool(1, 2)
	defer p.stop()

	block := make(chan struct{})
	started := make(chan struct{})
	first, err := p.reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	first.run(func() {
		close(started)
		<-block
	})
	<-started

	var held []ticket
	for i := 0; i < 2; i++ {
		tk, err := p.reserve()
		if err != nil {
			t.Fatalf("reserve #%d: %v", i+2, err)
		}
		held = append(held, tk)
	}
	if _, err := p.reserve(); !errors.Is(err, errPoolFull) {
		t.Fatalf("expected errPoolFull, got %v", err)
	}

	held[0].release()
	again, err := p.reserve()
	if err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
	again.release()
	held[1].release()
	close(block)
}

func TestPoolStopWaitsForOutstandingTickets(t *testing.T) {
	p := newPool(2, 2)
	tk, err := p.reserve()
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		p.stop()
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("stop returned while a ticket was outstanding")
	default:
	}

	var ran atomic.Bool
	tk.run(func() { ran.Store(true) })
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return")
	}
	if !ran.Load() {
		t.Fatal("reserved job must run before stop returns")
	}
	if _, err := p.reserve(); !errors.Is(err, errPoolClosed) {
		t.Fatalf("expected errPoolClosed, got %v", err)
	}
}

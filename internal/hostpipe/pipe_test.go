package hostpipe

import (
	"testing"
	"time"
)

func TestPipePushRead(t *testing.T) {
	p := New[int]()
	p.Push(1)
	p.Push(2)

	v, ok := p.Read()
	if !ok || v != 1 {
		t.Fatalf("Read() = %v, %v, want 1, true", v, ok)
	}
	v, ok = p.Read()
	if !ok || v != 2 {
		t.Fatalf("Read() = %v, %v, want 2, true", v, ok)
	}
}

func TestPipeTryReadEmpty(t *testing.T) {
	p := New[int]()
	_, ok, closed := p.TryRead()
	if ok || closed {
		t.Errorf("TryRead() = _, %v, %v, want false, false", ok, closed)
	}
}

func TestPipeTryReadAfterClose(t *testing.T) {
	p := New[int]()
	p.Push(5)
	p.Close()

	v, ok, closed := p.TryRead()
	if !ok || closed || v != 5 {
		t.Fatalf("TryRead() = %v, %v, %v, want 5, true, false", v, ok, closed)
	}

	_, ok, closed = p.TryRead()
	if ok || !closed {
		t.Errorf("TryRead() after drain = _, %v, %v, want false, true", ok, closed)
	}
}

func TestPipeReadUnblocksOnClose(t *testing.T) {
	p := New[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := p.Read(); ok {
			t.Error("Read() ok = true after Close with no items, want false")
		}
	}()

	p.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Read() did not unblock after Close")
	}
}

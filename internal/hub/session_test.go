package hub

import (
	"bytes"
	"testing"
	"time"
)

func TestWritePumpDrainsQueue(t *testing.T) {
	s, ft := testSession("c1", 1, 10)
	go s.writePump(time.Second)

	if !s.enqueue([]byte(`{"type":"pong"}`)) {
		t.Fatal("enqueue refused on an open session")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ft.mu.Lock()
		n := len(ft.frames)
		ft.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.frames) != 1 || !bytes.Equal(ft.frames[0], []byte(`{"type":"pong"}`)) {
		t.Fatalf("frames = %q, want the queued frame", ft.frames)
	}
}

func TestEnqueueAfterCloseRefused(t *testing.T) {
	s, ft := testSession("c1", 1, 10)
	s.close(1000, "bye")

	if s.enqueue([]byte("x")) {
		t.Error("enqueue accepted on a closed session")
	}
	if !s.closed() {
		t.Error("closed() = false after close")
	}
	if !ft.isClosed() {
		t.Error("transport left open")
	}

	// close is idempotent
	s.close(1000, "again")
}

func TestEnqueueFullQueueRefused(t *testing.T) {
	ft := &fakeTransport{}
	s := newSession("c1", 1, 10, ft, 1)

	if !s.enqueue([]byte("a")) {
		t.Fatal("first enqueue refused")
	}
	if s.enqueue([]byte("b")) {
		t.Error("enqueue accepted past queue capacity")
	}
}

func TestProbeClearsLiveness(t *testing.T) {
	s, _ := testSession("c1", 1, 10)

	if !s.probe() {
		t.Error("fresh session not alive")
	}
	if s.probe() {
		t.Error("second probe without refresh still alive")
	}
	s.refresh()
	if !s.probe() {
		t.Error("refresh did not restore liveness")
	}
}

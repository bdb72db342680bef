// internal/bridge/bridge_test.go
package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/serial"
)

// fakePort returns queued chunks, then serial.ErrTimeout.
type fakePort struct {
	mu      sync.Mutex
	reads   [][]byte
	readErr error
	written bytes.Buffer
	maxRead int
	closed  bool
	stalled bool // Write accepts nothing and reports no error
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.readErr != nil {
		err := f.readErr
		f.readErr = nil
		f.mu.Unlock()
		return 0, err
	}
	if len(f.reads) == 0 {
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
		return 0, serial.ErrTimeout
	}
	chunk := f.reads[0]
	f.reads = f.reads[1:]
	f.maxRead = len(p)
	f.mu.Unlock()
	return copy(p, chunk), nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stalled {
		return 0, nil
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.closed = true
	return nil
}

func testConfig() Config {
	return Config{Port: "/dev/null", ReadTimeout: 5 * time.Millisecond, BufferSize: DefaultBufferSize}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(testConfig(), nil, nil); err == nil {
		t.Fatalf("expected error for nil port")
	}

	cfg := testConfig()
	cfg.ReadTimeout = 0
	if _, err := New(cfg, &fakePort{}, nil); err == nil {
		t.Fatalf("expected error for zero read timeout")
	}

	cfg = testConfig()
	cfg.BufferSize = 1
	if _, err := New(cfg, &fakePort{}, nil); err == nil {
		t.Fatalf("expected error for tiny buffer")
	}
}

func TestRun_EmitsFrames(t *testing.T) {
	port := &fakePort{reads: [][]byte{[]byte("0123456789"), []byte("ab")}}
	b, err := New(testConfig(), port, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 4)
	go b.Run(ctx, out)

	for _, want := range []string{"0123456789", "ab"} {
		select {
		case got := <-out:
			if string(got) != want {
				t.Fatalf("frame=%q want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}

	if b.Frames() != 2 {
		t.Fatalf("Frames()=%d want 2", b.Frames())
	}

	port.mu.Lock()
	maxRead := port.maxRead
	port.mu.Unlock()
	if maxRead != DefaultBufferSize-1 {
		t.Fatalf("read size=%d want %d", maxRead, DefaultBufferSize-1)
	}
}

func TestRun_SurvivesReadError(t *testing.T) {
	port := &fakePort{readErr: errors.New("framing error"), reads: [][]byte{[]byte("x")}}
	b, err := New(testConfig(), port, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 1)
	go b.Run(ctx, out)

	select {
	case got := <-out:
		if string(got) != "x" {
			t.Fatalf("frame=%q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("reader did not recover")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	b, _ := New(testConfig(), &fakePort{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, make(chan []byte))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return")
	}
}

func TestSend(t *testing.T) {
	port := &fakePort{}
	b, _ := New(testConfig(), port, nil)

	if err := b.SendString("STATE:ONLINE\n"); err != nil {
		t.Fatalf("SendString err=%v", err)
	}
	if err := b.Send([]byte{0x00, 0xFF}); err != nil {
		t.Fatalf("Send err=%v", err)
	}

	want := append([]byte("STATE:ONLINE\n"), 0x00, 0xFF)
	if !bytes.Equal(port.written.Bytes(), want) {
		t.Fatalf("written=%q", port.written.Bytes())
	}
	if b.BytesSent() != uint64(len(want)) {
		t.Fatalf("BytesSent()=%d", b.BytesSent())
	}
}

func TestSend_StalledPort(t *testing.T) {
	port := &fakePort{stalled: true}
	b, err := New(testConfig(), port, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Send([]byte("STATE:ONLINE\n")) }()

	select {
	case err := <-done:
		if !errors.Is(err, io.ErrShortWrite) {
			t.Fatalf("expected short write, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("send did not return on a stalled port")
	}
	if b.BytesSent() != 0 {
		t.Fatalf("bytes sent = %d", b.BytesSent())
	}
}

func TestOpen_RequiresPort(t *testing.T) {
	if _, err := Open(Config{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestTCPTransport(t *testing.T) {
	tr, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer tr.Close()

	if tr.Kind() != "tcp" {
		t.Errorf("Kind() = %q, want tcp", tr.Kind())
	}

	type result struct {
		stream Stream
		err    error
	}
	opened := make(chan result, 1)
	go func() {
		s, err := tr.Open(context.Background())
		opened <- result{s, err}
	}()

	client, err := net.Dial("tcp", tr.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var res result
	select {
	case res = <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("Open never returned")
	}
	if res.err != nil {
		t.Fatalf("Open: %v", res.err)
	}
	defer res.stream.Close()

	// Bytes flow both ways
	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("client write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(res.stream, buf); err != nil {
		t.Fatalf("stream read: %v", err)
	}
	if !bytes.Equal(buf, []byte("ping")) {
		t.Errorf("stream read %q, want ping", buf)
	}
}

func TestTCPTransport_OpenCancel(t *testing.T) {
	tr, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tr.Open(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Open = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Open did not unblock on cancel")
	}
}

func TestTCPTransport_OpenAfterClose(t *testing.T) {
	tr, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	tr.Close()

	if _, err := tr.Open(context.Background()); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Open after Close = %v, want %v", err, ErrTransportClosed)
	}
}

type fakeStream struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (f *fakeStream) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeStream) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakeStream) Close() error                { return nil }

func TestWithStats(t *testing.T) {
	var stats Stats
	fake := &fakeStream{in: bytes.NewReader([]byte("twelve bytes"))}
	stream := WithStats(fake, &stats)

	buf := make([]byte, 32)
	n, _ := stream.Read(buf)
	if n != 12 {
		t.Fatalf("read %d bytes, want 12", n)
	}
	if _, err := stream.Write([]byte("pong")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// EOF is a normal session end, not a read error
	if _, err := stream.Read(buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}

	stats.Session()

	snap := stats.Snapshot()
	if snap.BytesRead != 12 {
		t.Errorf("BytesRead = %d, want 12", snap.BytesRead)
	}
	if snap.BytesWritten != 4 {
		t.Errorf("BytesWritten = %d, want 4", snap.BytesWritten)
	}
	if snap.ReadErrors != 0 {
		t.Errorf("ReadErrors = %d, want 0", snap.ReadErrors)
	}
	if snap.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", snap.Sessions)
	}
}

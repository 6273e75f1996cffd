package edgesource

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	serial "github.com/tarm/goserial"
	"go.uber.org/zap/zaptest"
)

type fakePort struct {
	io.Reader
	closed bool
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestWrapExtender(t *testing.T) {
	var w wrapExtender
	in := []uint64{4294966000, 4294967000, 200, 700, 650, 4294967100, 100, 1 << 40}
	want := []uint64{4294966000, 4294967000, 4294967496, 4294967996, 4294967946, 8589934396, 8589934692, 1 << 40}

	for i, ts := range in {
		if got := w.extend(ts); got != want[i] {
			t.Errorf("extend(%d) = %d, want %d", ts, got, want[i])
		}
	}
}

func TestSerialCapture(t *testing.T) {
	port := &fakePort{Reader: strings.NewReader("4294967000 1\n200 0\nnoise\n700 1\n")}

	s := NewSerialCapture("/dev/ttyUSB0", 115200, zaptest.NewLogger(t).Sugar())
	var gotConfig *serial.Config
	s.openPort = func(c *serial.Config) (io.ReadWriteCloser, error) {
		gotConfig = c
		return port, nil
	}

	q := NewQueue(8, nil)
	err := s.Capture(context.Background(), q)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Capture() = %v, want io.ErrUnexpectedEOF", err)
	}
	if gotConfig == nil || gotConfig.Name != "/dev/ttyUSB0" || gotConfig.Baud != 115200 {
		t.Errorf("port opened with %+v", gotConfig)
	}
	if !port.closed {
		t.Error("port was not closed")
	}

	q.Close(err)
	events, _ := drain(t, q)
	want := []uint64{4294967000, 4294967496, 4294967996}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i].Timestamp != want[i] {
			t.Errorf("event %d at %d, want %d", i, events[i].Timestamp, want[i])
		}
	}
}

func TestSerialCaptureOpenFails(t *testing.T) {
	s := NewSerialCapture("/dev/ttyUSB9", 9600, zaptest.NewLogger(t).Sugar())
	s.openPort = func(*serial.Config) (io.ReadWriteCloser, error) {
		return nil, errors.New("no such device")
	}

	if err := s.Capture(context.Background(), NewQueue(1, nil)); err == nil {
		t.Error("expected an error")
	}
}

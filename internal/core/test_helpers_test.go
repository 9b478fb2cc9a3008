package core

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func mustReceive(t *testing.T, ch <-chan Message) Message {
	t.Helper()

	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("events channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("expected message not received")
	}
	return Message{}
}

func mustBeEmpty(t *testing.T, ch <-chan Message) {
	t.Helper()

	select {
	case msg, ok := <-ch:
		if ok {
			t.Fatalf("unexpected message: %+v", msg)
		}
	default:
	}
}

var errFakeSend = errors.New("fake send failure")

// fakeConn records every message it is asked to send.
type fakeConn struct {
	id        string
	timetable string
	fail      bool

	mu     sync.Mutex
	sends  int
	got    []string
	opened bool
	closed bool
}

func newFakeConn(id, timetable string) *fakeConn {
	return &fakeConn{id: id, timetable: timetable}
}

func (f *fakeConn) ID() string        { return f.id }
func (f *fakeConn) Timetable() string { return f.timetable }

func (f *fakeConn) Send(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.fail {
		return errFakeSend
	}
	f.got = append(f.got, msg.Text())
	return nil
}

func (f *fakeConn) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClientClosed
	}
	f.opened = true
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

func (f *fakeConn) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

package hs321

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type nopCloser struct {
	io.ReadWriter

	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestSerialCloseIdle(t *testing.T) {
	port := &nopCloser{
		ReadWriter: &bytes.Buffer{},
	}
	s := serialPort{
		IdleTimeout: 100 * time.Millisecond,
	}
	s.port = port
	s.lastActivity = time.Now()
	s.startCloseTimer()

	time.Sleep(150 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !port.closed || s.port != nil {
		t.Fatalf("serial port is not closed when inactivity: %+v", port)
	}
}

func TestSerialConnectWithoutDevice(t *testing.T) {
	var s serialPort

	err := s.Connect()
	assert.ErrorContains(t, err, "no serial device")
}

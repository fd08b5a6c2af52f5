package hs321

import (
	"errors"
	"testing"
	"time"

	"github.com/grid-x/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptPort is an in-memory serial port. It replays a canned response
// after an optional initial silence, then stays silent; empty reads
// behave like a serial driver read timeout.
type scriptPort struct {
	response []byte
	silence  time.Duration // silence before the first response byte
	chunk    int           // max bytes per read, 0 for no limit

	start    time.Time
	pos      int
	writes   [][]byte
	writeErr error
	closed   bool
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if p.start.IsZero() {
		p.start = time.Now()
	}
	if time.Since(p.start) < p.silence || p.pos >= len(p.response) {
		time.Sleep(time.Millisecond)
		return 0, serial.ErrTimeout
	}
	avail := p.response[p.pos:]
	if p.chunk > 0 && len(avail) > p.chunk {
		avail = avail[:p.chunk]
	}
	n := copy(b, avail)
	p.pos += n
	return n, nil
}

func (p *scriptPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	p.start = time.Now()
	return len(b), nil
}

func (p *scriptPort) Close() error {
	p.closed = true
	return nil
}

// recordingLine records direction transitions.
type recordingLine struct {
	transitions []string
}

func (l *recordingLine) SetTransmit() error {
	l.transitions = append(l.transitions, "tx")
	return nil
}

func (l *recordingLine) SetReceive() error {
	l.transitions = append(l.transitions, "rx")
	return nil
}

func newTestTransporter(port *scriptPort) *rtuSerialTransporter {
	mb := &rtuSerialTransporter{
		Line:         NopLineDriver{},
		TotalTimeout: 200 * time.Millisecond,
	}
	mb.BaudRate = 9600
	mb.port = port
	return mb
}

func TestSendReceivesCompleteFrame(t *testing.T) {
	request := appendCRC([]byte{0x01, 0x03, 0x30, 0x00, 0x00, 0x01})
	response := appendCRC([]byte{0x01, 0x03, 0x02, 0x00, 0x64})
	port := &scriptPort{response: response}
	mb := newTestTransporter(port)

	got, err := mb.Send(request)
	require.NoError(t, err)
	assert.Equal(t, response, got)
	require.Len(t, port.writes, 1)
	assert.Equal(t, request, port.writes[0])
}

func TestSendSilentDevice(t *testing.T) {
	request := appendCRC([]byte{0x01, 0x03, 0x30, 0x00, 0x00, 0x01})
	port := &scriptPort{} // never answers
	mb := newTestTransporter(port)
	mb.TotalTimeout = 60 * time.Millisecond

	started := time.Now()
	_, err := mb.Send(request)
	elapsed := time.Since(started)

	assert.ErrorContains(t, err, "timed out")
	// not earlier than the configured window, and no hang
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestSendInterCharTimeout(t *testing.T) {
	request := appendCRC([]byte{0x01, 0x03, 0x30, 0x00, 0x00, 0x01})
	response := appendCRC([]byte{0x01, 0x03, 0x02, 0x00, 0x64})
	// first three bytes arrive, then the line goes dead
	port := &scriptPort{response: response[:3]}
	mb := newTestTransporter(port)

	started := time.Now()
	_, err := mb.Send(request)
	elapsed := time.Since(started)

	assert.ErrorContains(t, err, "inter-character")
	// the per-byte window is far shorter than the total timeout
	assert.Less(t, elapsed, mb.TotalTimeout)
}

func TestSendRestoresReceiveModeOnWriteError(t *testing.T) {
	request := appendCRC([]byte{0x01, 0x03, 0x30, 0x00, 0x00, 0x01})
	port := &scriptPort{writeErr: errors.New("write failed")}
	line := &recordingLine{}
	mb := newTestTransporter(port)
	mb.Line = line

	_, err := mb.Send(request)
	assert.ErrorContains(t, err, "write failed")
	assert.Equal(t, []string{"tx", "rx"}, line.transitions)
}

func TestSendTogglesLineAroundWrite(t *testing.T) {
	request := appendCRC([]byte{0x01, 0x06, 0x20, 0x00, 0x00, 0x05})
	port := &scriptPort{response: appendCRC([]byte{0x01, 0x06, 0x20, 0x00, 0x00, 0x05})}
	line := &recordingLine{}
	mb := newTestTransporter(port)
	mb.Line = line

	_, err := mb.Send(request)
	require.NoError(t, err)
	assert.Equal(t, []string{"tx", "rx"}, line.transitions)
}

func TestSendRejectsShortRequest(t *testing.T) {
	port := &scriptPort{}
	mb := newTestTransporter(port)

	_, err := mb.Send([]byte{0x01, 0x03})
	assert.Error(t, err)
	assert.Empty(t, port.writes)
}

func TestSendRejectsUnknownFunction(t *testing.T) {
	port := &scriptPort{}
	mb := newTestTransporter(port)

	_, err := mb.Send(appendCRC([]byte{0x01, 0x2B, 0x0E, 0x01, 0x00, 0x00}))
	assert.Error(t, err)
	assert.Empty(t, port.writes)
}

func TestReceiveZeroLength(t *testing.T) {
	mb := newTestTransporter(&scriptPort{})

	_, err := mb.receive(nil)
	assert.Error(t, err)
}

func TestReceiveChunkedFrame(t *testing.T) {
	response := appendCRC([]byte{0x01, 0x03, 0x06, 0x11, 0x11, 0x22, 0x22, 0x33, 0x33})
	port := &scriptPort{response: response, chunk: 2}
	mb := newTestTransporter(port)
	port.start = time.Now().Add(-time.Hour) // bytes available immediately

	buf := make([]byte, len(response))
	n, err := mb.receive(buf)
	require.NoError(t, err)
	assert.Equal(t, len(response), n)
	assert.Equal(t, response, buf)
}

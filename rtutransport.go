// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package hs321

import (
	"fmt"
	"time"

	"github.com/grid-x/serial"
)

// defaultTotalTimeout bounds a whole receive attempt. It is independent
// of the baud rate.
const defaultTotalTimeout = 2 * time.Second

// LineDriver switches an RS485 transceiver between its two directions.
// Exactly one of transmit and receive is active at any instant; the
// transporter drops back to receive mode after every transmission,
// including on error paths.
type LineDriver interface {
	SetTransmit() error
	SetReceive() error
}

// NopLineDriver is for transceivers with automatic direction control,
// or for ports where the serial driver toggles RTS itself (see the
// RS485 block of serial.Config).
type NopLineDriver struct{}

// SetTransmit implements LineDriver.
func (NopLineDriver) SetTransmit() error { return nil }

// SetReceive implements LineDriver.
func (NopLineDriver) SetReceive() error { return nil }

// LineDriverFunc adapts a pin-toggling function to the LineDriver
// interface. The argument is true for transmit, false for receive,
// matching the DE/RE input of MAX485-style modules (high = transmit).
type LineDriverFunc func(transmit bool) error

// SetTransmit implements LineDriver.
func (f LineDriverFunc) SetTransmit() error { return f(true) }

// SetReceive implements LineDriver.
func (f LineDriverFunc) SetReceive() error { return f(false) }

// RTUClientHandler implements Packager and Transporter interface.
type RTUClientHandler struct {
	rtuPackager
	rtuSerialTransporter
}

// NewRTUClientHandler allocates and initializes a RTUClientHandler for
// the given serial device. The port defaults to 9600 8N1, the framing
// the HS321 ships with.
func NewRTUClientHandler(address string) *RTUClientHandler {
	handler := &RTUClientHandler{}
	handler.Address = address
	handler.BaudRate = 9600
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.Timeout = serialTimeout
	handler.IdleTimeout = serialIdleTimeout
	handler.TotalTimeout = defaultTotalTimeout
	handler.Line = NopLineDriver{}
	return handler
}

// rtuSerialTransporter implements Transporter interface.
type rtuSerialTransporter struct {
	serialPort

	// Line switches the transceiver direction around every write.
	Line LineDriver
	// TotalTimeout aborts a receive when no byte has arrived for this
	// long (or ever, if the slave stays silent).
	TotalTimeout time.Duration
}

// Send transmits a request frame and assembles the slave's response,
// holding the port for the whole transaction. The expected response
// length is derived from the request; anything short of it within the
// timeout windows fails the transaction and discards the partial data.
func (mb *rtuSerialTransporter) Send(aduRequest []byte) (aduResponse []byte, err error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if len(aduRequest) < rtuMinSize {
		err = fmt.Errorf("hs321: request length '%v' does not meet minimum '%v'", len(aduRequest), rtuMinSize)
		return
	}
	bytesToRead, err := expectedResponseLength(aduRequest)
	if err != nil {
		return
	}

	// Make sure port is connected
	if err = mb.connect(); err != nil {
		return
	}
	// Start the timer to close when idle
	mb.lastActivity = time.Now()
	mb.startCloseTimer()

	mb.logf("hs321: send % x\n", aduRequest)
	if err = mb.transmit(aduRequest); err != nil {
		return
	}

	data := make([]byte, bytesToRead)
	read, err := mb.receive(data)
	if err != nil {
		mb.logf("hs321: recv failed with % x\n", data[:read])
		return nil, err
	}
	mb.logf("hs321: recv % x\n", data)
	aduResponse = data
	return
}

// transmit drives the line into transmit mode, writes the frame, lets
// the UART clock it out and drops back to receive mode. Receive mode is
// restored on every path: a transceiver stuck in transmit mode deafens
// the bus.
func (mb *rtuSerialTransporter) transmit(adu []byte) error {
	line := mb.Line
	if line == nil {
		line = NopLineDriver{}
	}
	if err := line.SetTransmit(); err != nil {
		return err
	}
	_, werr := mb.port.Write(adu)
	if werr == nil {
		// Write returns once the frame is buffered; hold the line for
		// the frame's wire time plus a 3.5 character gap.
		time.Sleep(mb.charDuration(len(adu)) + mb.frameDelay())
	}
	if rerr := line.SetReceive(); werr == nil {
		werr = rerr
	}
	return werr
}

// receive drains the port into buf until it is full or a timeout fires.
// Until the first byte arrives only TotalTimeout applies; after that
// each byte must follow the previous one within the inter-character
// window, scaled by the expected byte count.
func (mb *rtuSerialTransporter) receive(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, fmt.Errorf("hs321: expected response length must not be zero")
	}
	total := mb.TotalTimeout
	if total <= 0 {
		total = defaultTotalTimeout
	}
	interChar := time.Duration(len(buf)) * mb.frameDelay()

	var read int
	var started bool
	last := time.Now()
	for read < len(buf) {
		if time.Since(last) > total {
			return read, fmt.Errorf("hs321: receive timed out with %v of %v bytes", read, len(buf))
		}
		n, err := mb.port.Read(buf[read:])
		if n > 0 {
			read += n
			last = time.Now()
			started = true
			continue
		}
		if err != nil && err != serial.ErrTimeout {
			return read, err
		}
		if started && time.Since(last) > interChar {
			return read, fmt.Errorf("hs321: inter-character timeout with %v of %v bytes", read, len(buf))
		}
	}
	return read, nil
}

// frameDelay is the silent interval separating RTU frames: 3.5
// character times of 10 bits each, with the fixed 1750us value
// prescribed above 19200 baud.
// See MODBUS over Serial Line - Specification and Implementation Guide (page 13).
func (mb *rtuSerialTransporter) frameDelay() time.Duration {
	if mb.BaudRate <= 0 || mb.BaudRate > 19200 {
		return 1750 * time.Microsecond
	}
	return time.Duration(35000000/mb.BaudRate) * time.Microsecond
}

// charDuration is the wire time of n characters of 10 bits each.
func (mb *rtuSerialTransporter) charDuration(n int) time.Duration {
	if mb.BaudRate <= 0 {
		return 0
	}
	return time.Duration(n) * 10 * time.Second / time.Duration(mb.BaudRate)
}

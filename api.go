// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package hs321

// Client declares the register operations of the HS321 master
// regardless of the underlying transport stream. All values are 16-bit
// holding registers, big-endian on the wire.
type Client interface {
	// ReadRegisters reads from 1 to 125 contiguous holding registers
	// starting at address and returns their values in ascending
	// register order. On any failure the returned slice is nil.
	ReadRegisters(address, quantity uint16) (values []uint16, err error)
	// ReadRegister reads a single holding register.
	ReadRegister(address uint16) (value uint16, err error)
	// WriteRegisters writes 1 to 123 contiguous holding registers
	// starting at address. A single value goes out as function 0x06,
	// more than one as function 0x10. The slave's fixed-size
	// acknowledgement is validated but echoed register values are not
	// compared against the request.
	WriteRegisters(address uint16, values []uint16) (err error)
	// WriteRegister writes a single holding register.
	WriteRegister(address, value uint16) (err error)
}

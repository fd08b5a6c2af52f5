// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package hs321

import (
	"fmt"
)

const (
	rtuMinSize = 4
	rtuMaxSize = 256

	// Write acknowledgements for 0x06 and 0x10 are always 8 bytes:
	// address, function, 4 bytes of echoed fields, 2 bytes CRC.
	rtuWriteAckSize = 8
)

// rtuPackager implements Packager interface.
type rtuPackager struct {
	SlaveID byte
}

// SetSlave sets modbus slave id for the next client operations
func (mb *rtuPackager) SetSlave(slaveID byte) {
	mb.SlaveID = slaveID
}

// Encode encodes PDU in an RTU frame:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 0 up to 252 bytes
//	CRC             : 2 byte
func (mb *rtuPackager) Encode(pdu *ProtocolDataUnit) (adu []byte, err error) {
	length := len(pdu.Data) + 4
	if length > rtuMaxSize {
		err = fmt.Errorf("hs321: length of data '%v' must not be bigger than '%v'", length, rtuMaxSize)
		return
	}
	adu = make([]byte, length)

	adu[0] = mb.SlaveID
	adu[1] = pdu.FunctionCode
	copy(adu[2:], pdu.Data)

	// Append crc
	var crc crc
	crc.reset().pushBytes(adu[0 : length-2])
	checksum := crc.value()

	adu[length-1] = byte(checksum >> 8)
	adu[length-2] = byte(checksum)
	return
}

// Verify checks a response frame against the request that produced it:
// minimum length, echoed slave address, the exception marker (function
// code with the high bit set), the function code itself, and the CRC
// over everything but the trailing two bytes.
func (mb *rtuPackager) Verify(aduRequest []byte, aduResponse []byte) (err error) {
	length := len(aduResponse)
	// Minimum size (including address, function and CRC)
	if length < rtuMinSize {
		err = fmt.Errorf("hs321: response length '%v' does not meet minimum '%v'", length, rtuMinSize)
		return
	}
	// Slave address must match
	if aduResponse[0] != aduRequest[0] {
		err = fmt.Errorf("hs321: response slave id '%v' does not match request '%v'", aduResponse[0], aduRequest[0])
		return
	}
	// Exception response. The exception code in byte 2 is reported but
	// not acted upon beyond failing the transaction.
	if aduResponse[1] == aduRequest[1]|0x80 {
		mbError := &Error{FunctionCode: aduResponse[1]}
		if length > 2 {
			mbError.ExceptionCode = aduResponse[2]
		}
		err = mbError
		return
	}
	if aduResponse[1] != aduRequest[1] {
		err = fmt.Errorf("hs321: response function code '%v' does not match request '%v'", aduResponse[1], aduRequest[1])
		return
	}
	// Calculate checksum over everything but the CRC trailer
	var crc crc
	crc.reset().pushBytes(aduResponse[0 : length-2])
	checksum := uint16(aduResponse[length-1])<<8 | uint16(aduResponse[length-2])
	if checksum != crc.value() {
		err = fmt.Errorf("hs321: response crc '%v' does not match expected '%v'", checksum, crc.value())
		return
	}
	return
}

// Decode extracts PDU from a verified RTU frame.
func (mb *rtuPackager) Decode(adu []byte) (pdu *ProtocolDataUnit, err error) {
	length := len(adu)
	if length < rtuMinSize {
		err = fmt.Errorf("hs321: frame length '%v' does not meet minimum '%v'", length, rtuMinSize)
		return
	}
	pdu = &ProtocolDataUnit{}
	pdu.FunctionCode = adu[1]
	pdu.Data = adu[2 : length-2]
	return
}

// expectedResponseLength computes how many bytes the slave will send
// back for a given request frame. Reads answer with a 3-byte header
// plus two bytes per register plus CRC; writes answer with the fixed
// 8-byte acknowledgement.
func expectedResponseLength(aduRequest []byte) (int, error) {
	switch aduRequest[1] {
	case FuncCodeReadHoldingRegisters:
		if len(aduRequest) < 6 {
			return 0, fmt.Errorf("hs321: read request length '%v' has no register count", len(aduRequest))
		}
		count := int(aduRequest[4])<<8 | int(aduRequest[5])
		return 5 + count*2, nil
	case FuncCodeWriteSingleRegister, FuncCodeWriteMultipleRegisters:
		return rtuWriteAckSize, nil
	default:
		return 0, fmt.Errorf("hs321: function code not handled: %d", aduRequest[1])
	}
}

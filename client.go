// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package hs321

import (
	"encoding/binary"
	"fmt"
)

// logger is the interface to the required logging functions
type logger interface {
	Printf(format string, v ...interface{})
}

// ClientHandler is the interface that groups the Packager and Transporter methods.
type ClientHandler interface {
	Packager
	Transporter
	Connector
}

type client struct {
	packager    Packager
	transporter Transporter
}

// NewClient creates a new HS321 register client with given backend handler.
func NewClient(handler ClientHandler) Client {
	return &client{packager: handler, transporter: handler}
}

// NewClient2 creates a new HS321 register client with given backend packager and transporter.
func NewClient2(packager Packager, transporter Transporter) Client {
	return &client{packager: packager, transporter: transporter}
}

// Request:
//
//	Function code         : 1 byte (0x03)
//	Starting address      : 2 bytes
//	Quantity of registers : 2 bytes
//
// Response:
//
//	Function code         : 1 byte (0x03)
//	Byte count            : 1 byte
//	Register value        : Nx2 bytes
func (mb *client) ReadRegisters(address, quantity uint16) ([]uint16, error) {
	if quantity < 1 || quantity > MaxReadRegisters {
		return nil, fmt.Errorf("hs321: quantity '%v' must be between '%v' and '%v'", quantity, 1, MaxReadRegisters)
	}
	request := ProtocolDataUnit{
		FunctionCode: FuncCodeReadHoldingRegisters,
		Data:         dataBlock(address, quantity),
	}
	response, err := mb.send(&request)
	if err != nil {
		return nil, err
	}
	count := int(response.Data[0])
	if count != 2*int(quantity) {
		return nil, fmt.Errorf("hs321: response byte count '%v' does not match quantity '%v'", count, quantity)
	}
	if count != len(response.Data)-1 {
		return nil, fmt.Errorf("hs321: response data size '%v' does not match count '%v'", len(response.Data)-1, count)
	}
	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(response.Data[1+2*i:])
	}
	return values, nil
}

// ReadRegister reads one holding register.
func (mb *client) ReadRegister(address uint16) (uint16, error) {
	values, err := mb.ReadRegisters(address, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// Request (single, 0x06):
//
//	Function code         : 1 byte (0x06)
//	Register address      : 2 bytes
//	Register value        : 2 bytes
//
// Request (multiple, 0x10):
//
//	Function code         : 1 byte (0x10)
//	Starting address      : 2 bytes
//	Quantity of registers : 2 bytes
//	Byte count            : 1 byte
//	Registers value       : N*2 bytes
//
// Both acknowledgements carry 4 data bytes echoing request fields. The
// echo is not compared against the written values.
func (mb *client) WriteRegisters(address uint16, values []uint16) error {
	if len(values) == 0 {
		return fmt.Errorf("hs321: no values to write")
	}
	if len(values) > MaxWriteRegisters {
		return fmt.Errorf("hs321: quantity '%v' must be between '%v' and '%v'", len(values), 1, MaxWriteRegisters)
	}
	var request ProtocolDataUnit
	if len(values) == 1 {
		request = ProtocolDataUnit{
			FunctionCode: FuncCodeWriteSingleRegister,
			Data:         dataBlock(address, values[0]),
		}
	} else {
		request = ProtocolDataUnit{
			FunctionCode: FuncCodeWriteMultipleRegisters,
			Data:         dataBlockSuffix(registerBytes(values), address, uint16(len(values))),
		}
	}
	response, err := mb.send(&request)
	if err != nil {
		return err
	}
	// Fixed acknowledgement length for both function codes
	if len(response.Data) != 4 {
		return fmt.Errorf("hs321: response data size '%v' does not match expected '%v'", len(response.Data), 4)
	}
	return nil
}

// WriteRegister writes one holding register.
func (mb *client) WriteRegister(address, value uint16) error {
	return mb.WriteRegisters(address, []uint16{value})
}

// Helpers

// send runs one transaction: encode, transmit and receive, verify, decode.
func (mb *client) send(request *ProtocolDataUnit) (*ProtocolDataUnit, error) {
	aduRequest, err := mb.packager.Encode(request)
	if err != nil {
		return nil, err
	}
	aduResponse, err := mb.transporter.Send(aduRequest)
	if err != nil {
		return nil, err
	}
	if err := mb.packager.Verify(aduRequest, aduResponse); err != nil {
		return nil, err
	}
	response, err := mb.packager.Decode(aduResponse)
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		// Empty response
		return nil, fmt.Errorf("hs321: response data is empty")
	}
	return response, nil
}

// dataBlock creates a sequence of uint16 data.
func dataBlock(value ...uint16) []byte {
	data := make([]byte, 2*len(value))
	for i, v := range value {
		binary.BigEndian.PutUint16(data[i*2:], v)
	}
	return data
}

// dataBlockSuffix creates a sequence of uint16 data and append the suffix plus its length.
func dataBlockSuffix(suffix []byte, value ...uint16) []byte {
	length := 2 * len(value)
	data := make([]byte, length+1+len(suffix))
	for i, v := range value {
		binary.BigEndian.PutUint16(data[i*2:], v)
	}
	data[length] = uint8(len(suffix))
	copy(data[length+1:], suffix)
	return data
}

// registerBytes lays out register values big-endian, two bytes each.
func registerBytes(values []uint16) []byte {
	data := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(data[i*2:], v)
	}
	return data
}

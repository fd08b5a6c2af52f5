package hs321

import (
	"fmt"
)

// Group identifies a parameter group of the drive. The register address
// of a parameter is the group in the high byte and the in-group index
// in the low byte.
type Group uint16

const (
	// GroupF0 basic operating parameters
	GroupF0 Group = iota
	// GroupF1 V/F control parameters
	GroupF1
	// GroupF2 vector control parameters
	GroupF2
	// GroupF3 auxiliary running parameters 1
	GroupF3
	// GroupF4 auxiliary running parameters 2
	GroupF4
	// GroupF5 digital input/output terminal parameters
	GroupF5
	// GroupF6 analog input and output functions
	GroupF6
	// GroupF7 program operation (PLC) parameters
	GroupF7
	// GroupF8 PID regulator parameters
	GroupF8
	// GroupF9 motor parameters
	GroupF9
	// GroupFA protection parameters
	GroupFA
	// GroupFB display and special function parameters
	GroupFB
	// GroupFC RS485 communication parameters
	GroupFC
	// GroupFP factory parameters
	GroupFP
)

// GroupD holds the real-time monitoring registers. The drive pins this
// group at 0x70, leaving a gap after GroupFP.
const GroupD Group = 0x70

// ParamAddress builds the register address of a parameter from its
// group and in-group index.
func ParamAddress(group Group, index uint8) uint16 {
	return uint16(group)<<8 | uint16(index)
}

// ControlCommand is a motor control command, written to the control
// register.
type ControlCommand uint16

const (
	// ForwardRun starts the motor forward.
	ForwardRun ControlCommand = iota
	// ReverseRun starts the motor in reverse.
	ReverseRun
	// ForwardJog jogs the motor forward.
	ForwardJog
	// ReverseJog jogs the motor in reverse.
	ReverseJog
	// FreeStop lets the motor coast to a stop.
	FreeStop
	// DecelerateStop ramps the motor down to a stop.
	DecelerateStop
	// FaultReset clears a latched fault.
	FaultReset
)

// Dedicated registers outside the parameter groups.
const (
	controlRegister = 0x2000
	stateRegister   = 0x3000
	faultRegister   = 0x8000
)

// Model is an HS321 power rating.
type Model int

const (
	// Model0k4 0.4 kW
	Model0k4 Model = iota
	// Model0k75 0.75 kW
	Model0k75
	// Model1k5 1.5 kW
	Model1k5
	// Model2k2 2.2 kW
	Model2k2
	// Model3k0 3.0 kW
	Model3k0
	// Model4k0 4.0 kW
	Model4k0
	// Model5k5 5.5 kW
	Model5k5
	// Model7k5 7.5 kW
	Model7k5
	// Model11k0 11.0 kW
	Model11k0
)

var modelPowers = [...]int{400, 750, 1500, 2200, 3000, 4000, 5500, 7500, 11000}

// Power returns the rated power of the model in watts, or 0 for an
// unknown model.
func (m Model) Power() int {
	if m < 0 || int(m) >= len(modelPowers) {
		return 0
	}
	return modelPowers[m]
}

// CommSettings are the drive's RS485 link settings from group FC.
type CommSettings struct {
	BaudRateCode uint16 // FC.00, 3 = 9600
	DataFormat   uint16 // FC.01, 0 = 8N1
	Address      uint16 // FC.02, slave address on the bus
	Timeout      uint16 // FC.03, link supervision timeout in seconds
	ErrorAction  uint16 // FC.05, behavior on communication error
}

// Drive exposes the HS321-specific operations on top of a register
// client: control commands, state and fault registers, and
// group-relative parameter access.
type Drive struct {
	client Client
}

// NewDrive wraps a register client.
func NewDrive(client Client) *Drive {
	return &Drive{client: client}
}

// ReadRunningState reads the running state register (stopped, forward,
// reverse).
func (d *Drive) ReadRunningState() (uint16, error) {
	return d.client.ReadRegister(stateRegister)
}

// ReadFaultCode reads the code of the most recent fault.
func (d *Drive) ReadFaultCode() (uint16, error) {
	return d.client.ReadRegister(faultRegister)
}

// WriteControlCommand sends a motor control command.
func (d *Drive) WriteControlCommand(command ControlCommand) error {
	return d.client.WriteRegister(controlRegister, uint16(command))
}

// ReadParameter reads one parameter of a group.
func (d *Drive) ReadParameter(group Group, index uint8) (uint16, error) {
	return d.client.ReadRegister(ParamAddress(group, index))
}

// ReadParameters reads quantity consecutive parameters of a group
// starting at index.
func (d *Drive) ReadParameters(group Group, index uint8, quantity uint16) ([]uint16, error) {
	return d.client.ReadRegisters(ParamAddress(group, index), quantity)
}

// WriteParameter writes one parameter of a group.
func (d *Drive) WriteParameter(group Group, index uint8, value uint16) error {
	return d.client.WriteRegister(ParamAddress(group, index), value)
}

// WriteParameters writes consecutive parameters of a group starting at
// index.
func (d *Drive) WriteParameters(group Group, index uint8, values []uint16) error {
	return d.client.WriteRegisters(ParamAddress(group, index), values)
}

// CommSettings reads the drive's link configuration from group FC.
func (d *Drive) CommSettings() (CommSettings, error) {
	values, err := d.client.ReadRegisters(ParamAddress(GroupFC, 0), 6)
	if err != nil {
		return CommSettings{}, fmt.Errorf("hs321: reading communication settings: %w", err)
	}
	return CommSettings{
		BaudRateCode: values[0],
		DataFormat:   values[1],
		Address:      values[2],
		Timeout:      values[3],
		ErrorAction:  values[5],
	}, nil
}

// Command hs321-cli is a one-shot tool for reading and writing HS321
// registers over RS485.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/grid-x/serial"

	"github.com/vfdkit/hs321"
)

func main() {
	var opt option
	// general
	flag.StringVar(&opt.device, "device", "/dev/ttyUSB0", "Serial device the RS485 adapter is attached to")
	flag.IntVar(&opt.slaveID, "slaveID", 1, "Slave address of the drive on the bus, see FC.02")
	flag.DurationVar(&opt.timeout, "timeout", 2*time.Second, "Give up on a response after this long")
	// serial framing, drive defaults are 9600 8N1 (FC.00/FC.01)
	flag.IntVar(&opt.baudrate, "baudrate", 9600, "Symbol rate, e.g.: 1200, 2400, 4800, 9600, 19200, 38400")
	flag.IntVar(&opt.dataBits, "databits", 8, "5, 6, 7 or 8")
	flag.StringVar(&opt.parity, "parity", "N", "Parity: N - None, E - Even, O - Odd")
	flag.IntVar(&opt.stopBits, "stopbits", 1, "1 or 2")
	// rs485
	flag.BoolVar(&opt.rs485.enabled, "rs485-enable", false, "enables rs485 cfg")
	flag.DurationVar(&opt.rs485.delayRtsBeforeSend, "rs485-delayRtsBeforeSend", 0, "Delay rts before send")
	flag.DurationVar(&opt.rs485.delayRtsAfterSend, "rs485-delayRtsAfterSend", 0, "Delay rts after send")
	flag.BoolVar(&opt.rs485.rtsHighDuringSend, "rs485-rtsHighDuringSend", false, "Allow rts high during send")
	flag.BoolVar(&opt.rs485.rtsHighAfterSend, "rs485-rtsHighAfterSend", false, "Allow rts high after send")
	flag.BoolVar(&opt.rs485.rxDuringTx, "rs485-rxDuringTx", false, "Allow bidirectional rx during tx")

	var (
		register = flag.Int("register", -1, "register address to read or write")
		param    = flag.String("param", "", "parameter code instead of -register, e.g. F0.07 or d.02")
		quantity = flag.Int("quantity", 1, "number of registers to read")
		write    = flag.String("write", "", "comma separated values to write, e.g. 5000 or 1,0,3")
		command  = flag.String("command", "", "control command: "+commandNames())
		state    = flag.Bool("state", false, "read the running state register")
		fault    = flag.Bool("fault", false, "read the last fault code")
		logframe = flag.Bool("log-frame", false, "prints received and sent frames to stdout")
	)

	flag.Parse()

	if len(os.Args) == 1 {
		flag.PrintDefaults()
		return
	}

	logger := slog.Default()
	if *logframe {
		opt.logger = logger
	}

	handler := newHandler(opt)
	if err := handler.Connect(); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
	defer handler.Close()

	res, err := exec(hs321.NewClient(handler), runRequest{
		register: *register,
		param:    *param,
		quantity: *quantity,
		write:    *write,
		command:  *command,
		state:    *state,
		fault:    *fault,
	})
	if err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}

	logger.Info(res)
}

type option struct {
	device  string
	slaveID int
	timeout time.Duration

	logger *slog.Logger

	baudrate int
	dataBits int
	parity   string
	stopBits int

	rs485 struct {
		enabled            bool
		delayRtsBeforeSend time.Duration
		delayRtsAfterSend  time.Duration
		rtsHighDuringSend  bool
		rtsHighAfterSend   bool
		rxDuringTx         bool
	}
}

func newHandler(o option) *hs321.RTUClientHandler {
	h := hs321.NewRTUClientHandler(o.device)
	h.SetSlave(byte(o.slaveID))
	h.TotalTimeout = o.timeout
	h.BaudRate = o.baudrate
	h.DataBits = o.dataBits
	h.Parity = o.parity
	h.StopBits = o.stopBits
	h.RS485 = serial.RS485Config{
		Enabled:            o.rs485.enabled,
		DelayRtsBeforeSend: o.rs485.delayRtsBeforeSend,
		DelayRtsAfterSend:  o.rs485.delayRtsAfterSend,
		RtsHighDuringSend:  o.rs485.rtsHighDuringSend,
		RtsHighAfterSend:   o.rs485.rtsHighAfterSend,
		RxDuringTx:         o.rs485.rxDuringTx,
	}
	if o.logger != nil {
		h.Logger = &debugAdapter{o.logger}
	}
	return h
}

type runRequest struct {
	register int
	param    string
	quantity int
	write    string
	command  string
	state    bool
	fault    bool
}

func exec(client hs321.Client, req runRequest) (string, error) {
	drive := hs321.NewDrive(client)

	switch {
	case req.command != "":
		command, err := parseCommand(req.command)
		if err != nil {
			return "", err
		}
		if err := drive.WriteControlCommand(command); err != nil {
			return "", err
		}
		return req.command + " acknowledged", nil
	case req.state:
		state, err := drive.ReadRunningState()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("running state %d", state), nil
	case req.fault:
		fault, err := drive.ReadFaultCode()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("fault code %d", fault), nil
	}

	address, err := resolveAddress(req.register, req.param)
	if err != nil {
		return "", err
	}

	if req.write != "" {
		values, err := parseValues(req.write)
		if err != nil {
			return "", err
		}
		if err := client.WriteRegisters(address, values); err != nil {
			return "", err
		}
		return fmt.Sprintf("wrote %d register(s) at 0x%04X", len(values), address), nil
	}

	if req.quantity < 1 {
		return "", fmt.Errorf("invalid quantity %d", req.quantity)
	}
	values, err := client.ReadRegisters(address, uint16(req.quantity))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, v := range values {
		fmt.Fprintf(&sb, "0x%04X\t%d\t0x%04X\n", address+uint16(i), v, v)
	}
	return sb.String(), nil
}

func resolveAddress(register int, param string) (uint16, error) {
	if param != "" {
		if register >= 0 {
			return 0, fmt.Errorf("-register and -param are mutually exclusive")
		}
		group, index, err := parseParamCode(param)
		if err != nil {
			return 0, err
		}
		return hs321.ParamAddress(group, index), nil
	}
	if register < 0 || register > math.MaxUint16 {
		return 0, fmt.Errorf("invalid register value: %d", register)
	}
	return uint16(register), nil
}

// parseParamCode turns a panel designation like "F0.07", "FC.02" or
// "d.05" into a group and in-group index.
func parseParamCode(code string) (hs321.Group, uint8, error) {
	groupPart, indexPart, found := strings.Cut(code, ".")
	if !found {
		return 0, 0, fmt.Errorf("parameter code %q has no group separator", code)
	}

	var group hs321.Group
	switch strings.ToUpper(groupPart) {
	case "FA":
		group = hs321.GroupFA
	case "FB":
		group = hs321.GroupFB
	case "FC":
		group = hs321.GroupFC
	case "FP":
		group = hs321.GroupFP
	case "D":
		group = hs321.GroupD
	default:
		if len(groupPart) != 2 || (groupPart[0] != 'F' && groupPart[0] != 'f') {
			return 0, 0, fmt.Errorf("unknown parameter group %q", groupPart)
		}
		digit := groupPart[1] - '0'
		if digit > 9 {
			return 0, 0, fmt.Errorf("unknown parameter group %q", groupPart)
		}
		group = hs321.Group(digit)
	}

	index, err := strconv.ParseUint(indexPart, 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid parameter index %q", indexPart)
	}
	return group, uint8(index), nil
}

func parseValues(s string) ([]uint16, error) {
	parts := strings.Split(s, ",")
	values := make([]uint16, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid register value %q", part)
		}
		values = append(values, uint16(v))
	}
	return values, nil
}

var commands = map[string]hs321.ControlCommand{
	"forward-run": hs321.ForwardRun,
	"reverse-run": hs321.ReverseRun,
	"forward-jog": hs321.ForwardJog,
	"reverse-jog": hs321.ReverseJog,
	"free-stop":   hs321.FreeStop,
	"stop":        hs321.DecelerateStop,
	"fault-reset": hs321.FaultReset,
}

func parseCommand(s string) (hs321.ControlCommand, error) {
	command, ok := commands[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown control command %q, expected one of %s", s, commandNames())
	}
	return command, nil
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

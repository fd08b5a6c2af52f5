package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/vfdkit/hs321"
	"github.com/vfdkit/hs321/param"
)

// pointWriter is the slice of the InfluxDB write API the poller needs.
type pointWriter interface {
	WritePoint(point *write.Point)
}

// poller reads the drive's monitoring registers on a fixed cadence and
// hands each reading to the sink as one point.
type poller struct {
	drive       *hs321.Drive
	params      []param.Parameter
	writer      pointWriter
	measurement string
	slave       string
	log         *slog.Logger
}

func newPoller(client hs321.Client, table *param.Table, writer pointWriter, measurement string, slaveID int, log *slog.Logger) *poller {
	return &poller{
		drive:       hs321.NewDrive(client),
		params:      monitorParams(table),
		writer:      writer,
		measurement: measurement,
		slave:       strconv.Itoa(slaveID),
		log:         log,
	}
}

// monitorParams picks the real-time monitoring entries (group d) out of
// the parameter table, in register order.
func monitorParams(table *param.Table) []param.Parameter {
	var params []param.Parameter
	for _, p := range table.Parameters() {
		if p.Group == uint16(hs321.GroupD) {
			params = append(params, p)
		}
	}
	return params
}

// run polls until the context is cancelled. The first round happens
// immediately, not one interval in.
func (p *poller) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		p.poll(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll reads every monitoring parameter plus the state and fault
// registers. A failed read skips that point; the drive may answer again
// next round.
func (p *poller) poll(now time.Time) {
	for _, prm := range p.params {
		value, err := p.drive.ReadParameter(hs321.Group(prm.Group), prm.Index)
		if err != nil {
			p.log.Warn("reading monitoring parameter", "code", prm.Code(), "err", err)
			continue
		}
		p.writer.WritePoint(influxdb2.NewPoint(p.measurement,
			map[string]string{"slave": p.slave, "code": prm.Code(), "unit": prm.Unit},
			map[string]any{prm.Name: float64(value)}, now))
	}

	state, err := p.drive.ReadRunningState()
	if err != nil {
		p.log.Warn("reading running state", "err", err)
	} else {
		p.writer.WritePoint(influxdb2.NewPoint(p.measurement,
			map[string]string{"slave": p.slave},
			map[string]any{"running_state": int64(state)}, now))
	}

	fault, err := p.drive.ReadFaultCode()
	if err != nil {
		p.log.Warn("reading fault code", "err", err)
		return
	}
	p.writer.WritePoint(influxdb2.NewPoint(p.measurement,
		map[string]string{"slave": p.slave},
		map[string]any{"fault_code": int64(fault)}, now))
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfdkit/hs321/param"
)

const testTable = `
parameters:
  - {group: 0, index: 7, name: Preset frequency, unit: Hz}
  - {group: 0x70, index: 0, name: Output frequency, unit: Hz}
  - {group: 0x70, index: 2, name: Output current, unit: A}
`

// monitorClient replays canned register values and fails addresses
// listed in errors.
type monitorClient struct {
	values map[uint16]uint16
	errors map[uint16]error
}

func (c *monitorClient) ReadRegisters(address, quantity uint16) ([]uint16, error) {
	if err := c.errors[address]; err != nil {
		return nil, err
	}
	values := make([]uint16, quantity)
	values[0] = c.values[address]
	return values, nil
}

func (c *monitorClient) ReadRegister(address uint16) (uint16, error) {
	values, err := c.ReadRegisters(address, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

func (c *monitorClient) WriteRegisters(address uint16, values []uint16) error {
	return nil
}

func (c *monitorClient) WriteRegister(address, value uint16) error {
	return nil
}

type pointRecorder struct {
	points []*write.Point
}

func (r *pointRecorder) WritePoint(point *write.Point) {
	r.points = append(r.points, point)
}

func loadTestTable(t *testing.T) *param.Table {
	t.Helper()
	table, err := param.Load(strings.NewReader(testTable))
	require.NoError(t, err)
	return table
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fieldValue(point *write.Point, key string) (any, bool) {
	for _, f := range point.FieldList() {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func tagValue(point *write.Point, key string) string {
	for _, tag := range point.TagList() {
		if tag.Key == key {
			return tag.Value
		}
	}
	return ""
}

func TestMonitorParams(t *testing.T) {
	params := monitorParams(loadTestTable(t))

	require.Len(t, params, 2)
	assert.Equal(t, "d.00", params[0].Code())
	assert.Equal(t, "d.02", params[1].Code())
}

func TestPollWritesPoints(t *testing.T) {
	client := &monitorClient{values: map[uint16]uint16{
		0x7000: 5000,
		0x7002: 42,
		0x3000: 1,
		0x8000: 0,
	}}
	recorder := &pointRecorder{}
	p := newPoller(client, loadTestTable(t), recorder, "drive", 1, discardLogger())

	now := time.Now()
	p.poll(now)

	require.Len(t, recorder.points, 4)

	frequency := recorder.points[0]
	assert.Equal(t, "drive", frequency.Name())
	assert.Equal(t, "d.00", tagValue(frequency, "code"))
	assert.Equal(t, "Hz", tagValue(frequency, "unit"))
	assert.Equal(t, "1", tagValue(frequency, "slave"))
	value, ok := fieldValue(frequency, "Output frequency")
	require.True(t, ok)
	assert.Equal(t, float64(5000), value)

	state, ok := fieldValue(recorder.points[2], "running_state")
	require.True(t, ok)
	assert.Equal(t, int64(1), state)

	fault, ok := fieldValue(recorder.points[3], "fault_code")
	require.True(t, ok)
	assert.Equal(t, int64(0), fault)
}

func TestPollSkipsFailedReads(t *testing.T) {
	client := &monitorClient{
		values: map[uint16]uint16{0x7002: 42, 0x8000: 3},
		errors: map[uint16]error{
			0x7000: fmt.Errorf("hs321: receive timed out with 0 of 7 bytes"),
			0x3000: fmt.Errorf("hs321: receive timed out with 0 of 7 bytes"),
		},
	}
	recorder := &pointRecorder{}
	p := newPoller(client, loadTestTable(t), recorder, "drive", 1, discardLogger())

	p.poll(time.Now())

	// d.00 and the state register failed, d.02 and the fault register
	// still report
	require.Len(t, recorder.points, 2)
	assert.Equal(t, "d.02", tagValue(recorder.points[0], "code"))
	_, ok := fieldValue(recorder.points[1], "fault_code")
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &monitorClient{values: map[uint16]uint16{}}
	recorder := &pointRecorder{}
	p := newPoller(client, loadTestTable(t), recorder, "drive", 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		p.run(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop on cancel")
	}
	// the first round runs before the cancel check
	assert.NotEmpty(t, recorder.points)
}

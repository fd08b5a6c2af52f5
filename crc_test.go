package hs321

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCKnownVectors(t *testing.T) {
	var c crc

	// CRC-16/MODBUS catalog check value
	assert.Equal(t, uint16(0x4B37), c.reset().pushBytes([]byte("123456789")).value())

	// Read request 01 03 00 00 00 0A carries C5 CD on the wire,
	// low byte first
	request := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	assert.Equal(t, uint16(0xCDC5), c.reset().pushBytes(request).value())
}

func TestCRCEmptyInputSentinel(t *testing.T) {
	var c crc

	assert.Equal(t, uint16(0xFFFF), c.reset().value())
	assert.Equal(t, uint16(0xFFFF), c.reset().pushBytes(nil).value())
	assert.Equal(t, uint16(0xFFFF), c.reset().pushBytes([]byte{}).value())
}

func TestCRCIncremental(t *testing.T) {
	var whole, split crc

	data := []byte{0x01, 0x03, 0x02, 0x00, 0x64}
	whole.reset().pushBytes(data)
	split.reset().pushBytes(data[:2]).pushBytes(data[2:])

	assert.Equal(t, whole.value(), split.value())
}

func TestCRCBitFlipChangesValue(t *testing.T) {
	var c crc

	data := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	want := c.reset().pushBytes(data).value()

	for i := range data {
		for bit := uint(0); bit < 8; bit++ {
			flipped := append([]byte(nil), data...)
			flipped[i] ^= 1 << bit
			got := c.reset().pushBytes(flipped).value()
			assert.NotEqual(t, want, got, "byte %d bit %d", i, bit)
		}
	}
}

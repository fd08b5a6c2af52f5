package hs321

// crc accumulates the Modbus CRC16: seed 0xFFFF, reflected polynomial
// 0xA001. The low byte travels first on the wire. An accumulator that
// never sees a byte keeps the 0xFFFF seed, which callers use as the
// sentinel for an empty input.
type crc struct {
	sum uint16
}

func (c *crc) reset() *crc {
	c.sum = 0xFFFF
	return c
}

func (c *crc) pushBytes(bs []byte) *crc {
	for _, b := range bs {
		c.sum ^= uint16(b)
		for i := 0; i < 8; i++ {
			if c.sum&0x0001 != 0 {
				c.sum = (c.sum >> 1) ^ 0xA001
			} else {
				c.sum >>= 1
			}
		}
	}
	return c
}

func (c *crc) value() uint16 {
	return c.sum
}

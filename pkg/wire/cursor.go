package wire

// cobsSlack is the extra space reserved in encode buffers so the COBS
// pass never reallocates. The slack bytes stay zero and ride along at
// the end of the payload, devices ignore trailing zeros.
const cobsSlack = 3

// Cursor is a positioned reader/writer over a fixed message buffer.
// All multi-byte values are big-endian. The cursor does no bounds
// checking of its own: message codecs validate lengths up front and an
// out-of-range access is a programming error that should fail loudly.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a cursor over a fresh buffer for a message of
// payloadLen bytes, pre-sized with slack for the COBS pass.
func NewCursor(payloadLen int) *Cursor {
	return &Cursor{buf: make([]byte, payloadLen+cobsSlack)}
}

// NewReadCursor returns a cursor positioned at the start of an already
// unstuffed payload.
func NewReadCursor(payload []byte) *Cursor {
	return &Cursor{buf: payload}
}

// Len returns the number of bytes available from the start of the buffer.
func (c *Cursor) Len() int { return len(c.buf) }

// Remaining returns the number of bytes left after the cursor position.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

// Peek returns the byte at the cursor without advancing.
func (c *Cursor) Peek() byte { return c.buf[c.off] }

// Frame stuffs the full buffer, slack included, into a transmit-ready
// COBS frame.
func (c *Cursor) Frame() []byte { return EncodeCOBS(c.buf) }

func (c *Cursor) PutUint8(v byte) {
	c.buf[c.off] = v
	c.off++
}

func (c *Cursor) PutInt8(v int8) { c.PutUint8(byte(v)) }

func (c *Cursor) PutUint16(v uint16) {
	c.buf[c.off] = byte(v >> 8)
	c.buf[c.off+1] = byte(v)
	c.off += 2
}

func (c *Cursor) PutInt16(v int16) { c.PutUint16(uint16(v)) }

// PutUint24 writes the low 24 bits of v.
func (c *Cursor) PutUint24(v uint32) {
	c.buf[c.off] = byte(v >> 16)
	c.buf[c.off+1] = byte(v >> 8)
	c.buf[c.off+2] = byte(v)
	c.off += 3
}

func (c *Cursor) PutUint32(v uint32) {
	c.buf[c.off] = byte(v >> 24)
	c.buf[c.off+1] = byte(v >> 16)
	c.buf[c.off+2] = byte(v >> 8)
	c.buf[c.off+3] = byte(v)
	c.off += 4
}

func (c *Cursor) PutInt32(v int32) { c.PutUint32(uint32(v)) }

func (c *Cursor) PutUint64(v uint64) {
	c.PutUint32(uint32(v >> 32))
	c.PutUint32(uint32(v))
}

// PutBytes writes a one-byte length prefix followed by b.
func (c *Cursor) PutBytes(b []byte) {
	c.PutUint8(byte(len(b)))
	copy(c.buf[c.off:], b)
	c.off += len(b)
}

func (c *Cursor) Uint8() byte {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *Cursor) Int8() int8 { return int8(c.Uint8()) }

func (c *Cursor) Uint16() uint16 {
	v := uint16(c.buf[c.off])<<8 | uint16(c.buf[c.off+1])
	c.off += 2
	return v
}

func (c *Cursor) Int16() int16 { return int16(c.Uint16()) }

func (c *Cursor) Uint24() uint32 {
	v := uint32(c.buf[c.off])<<16 | uint32(c.buf[c.off+1])<<8 | uint32(c.buf[c.off+2])
	c.off += 3
	return v
}

func (c *Cursor) Uint32() uint32 {
	v := uint32(c.buf[c.off])<<24 | uint32(c.buf[c.off+1])<<16 |
		uint32(c.buf[c.off+2])<<8 | uint32(c.buf[c.off+3])
	c.off += 4
	return v
}

func (c *Cursor) Int32() int32 { return int32(c.Uint32()) }

func (c *Cursor) Uint64() uint64 {
	return uint64(c.Uint32())<<32 | uint64(c.Uint32())
}

// Bytes reads a one-byte length prefix followed by that many bytes.
func (c *Cursor) Bytes() []byte {
	n := int(c.Uint8())
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

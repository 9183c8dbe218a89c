// Package wire implements the binary protocol spoken by GATAS devices:
// COBS framed, big-endian, fixed-layout messages with quantized fields.
package wire

import (
	"errors"
	"fmt"
)

// Frames end in a single zero byte. COBS guarantees the stuffed payload
// itself contains no zeros, so frames can be concatenated into one
// datagram and split on the delimiter.
const FrameDelimiter byte = 0x00

var (
	// ErrTruncatedFrame is returned when a frame ends inside a COBS group.
	ErrTruncatedFrame = errors.New("wire: truncated frame")

	// ErrZeroInFrame is returned when a stuffed frame contains an
	// interior zero byte.
	ErrZeroInFrame = errors.New("wire: unexpected zero byte inside frame")
)

// EncodeCOBS stuffs src so it contains no zero bytes and appends the
// frame delimiter. The result is a complete frame ready to transmit.
func EncodeCOBS(src []byte) []byte {
	// Worst case one extra byte per 254, plus leading code and delimiter.
	out := make([]byte, 1, len(src)+len(src)/254+2)
	code := byte(1)
	codePos := 0

	finish := func() {
		out[codePos] = code
		codePos = len(out)
		out = append(out, 0)
		code = 1
	}

	for _, b := range src {
		if b == 0 {
			finish()
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			finish()
		}
	}
	out[codePos] = code
	out = append(out, FrameDelimiter)
	return out
}

// DecodeCOBS unstuffs a frame produced by EncodeCOBS. A trailing frame
// delimiter is tolerated and stripped, so both complete frames and
// frames already split on the delimiter decode the same way.
func DecodeCOBS(frame []byte) ([]byte, error) {
	if n := len(frame); n > 0 && frame[n-1] == FrameDelimiter {
		frame = frame[:n-1]
	}

	out := make([]byte, 0, len(frame))
	for i := 0; i < len(frame); {
		code := frame[i]
		if code == 0 {
			return nil, ErrZeroInFrame
		}
		i++
		n := int(code) - 1
		if i+n > len(frame) {
			return nil, fmt.Errorf("%w: group of %d bytes at offset %d", ErrTruncatedFrame, n, i)
		}
		for _, b := range frame[i : i+n] {
			if b == 0 {
				return nil, ErrZeroInFrame
			}
		}
		out = append(out, frame[i:i+n]...)
		i += n
		if code != 0xFF && i < len(frame) {
			out = append(out, 0)
		}
	}
	return out, nil
}

package wire

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeCOBSKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", []byte{}, []byte{0x01, 0x00}},
		{"single zero", []byte{0x00}, []byte{0x01, 0x01, 0x00}},
		{"two zeros", []byte{0x00, 0x00}, []byte{0x01, 0x01, 0x01, 0x00}},
		{"no zeros", []byte{0x11, 0x22, 0x33}, []byte{0x04, 0x11, 0x22, 0x33, 0x00}},
		{"zero in middle", []byte{0x11, 0x00, 0x22}, []byte{0x02, 0x11, 0x02, 0x22, 0x00}},
		{"trailing zero", []byte{0x11, 0x22, 0x00}, []byte{0x03, 0x11, 0x22, 0x01, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCOBS(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeCOBS(%x) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeCOBSNoInteriorZeros(t *testing.T) {
	in := make([]byte, 600)
	for i := range in {
		in[i] = byte(i % 7) // plenty of zeros
	}
	out := EncodeCOBS(in)

	if out[len(out)-1] != 0 {
		t.Fatalf("frame does not end in delimiter: %x", out[len(out)-1])
	}
	for i, b := range out[:len(out)-1] {
		if b == 0 {
			t.Fatalf("interior zero at offset %d", i)
		}
	}
}

func TestCOBSRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", []byte{}},
		{"all zeros", make([]byte, 16)},
		{"253 nonzero", nonZero(253)},
		{"254 nonzero", nonZero(254)},
		{"255 nonzero", nonZero(255)},
		{"509 nonzero", nonZero(509)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCOBS(EncodeCOBS(tt.in))
			if err != nil {
				t.Fatalf("DecodeCOBS() error: %v", err)
			}
			if !bytes.Equal(got, tt.in) {
				t.Errorf("round trip = %x, want %x", got, tt.in)
			}
		})
	}
}

func TestCOBSRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		in := make([]byte, rng.Intn(400))
		rng.Read(in)

		got, err := DecodeCOBS(EncodeCOBS(in))
		if err != nil {
			t.Fatalf("DecodeCOBS() error on input %x: %v", in, err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("round trip mismatch for input %x", in)
		}
	}
}

func TestDecodeCOBSWithoutDelimiter(t *testing.T) {
	// Frames arrive already split on the delimiter, so decode must
	// accept a frame with the trailing zero stripped.
	frame := EncodeCOBS([]byte{0x11, 0x00, 0x22})
	got, err := DecodeCOBS(frame[:len(frame)-1])
	if err != nil {
		t.Fatalf("DecodeCOBS() error: %v", err)
	}
	if !bytes.Equal(got, []byte{0x11, 0x00, 0x22}) {
		t.Errorf("DecodeCOBS() = %x, want 110022", got)
	}
}

func TestDecodeCOBSErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"truncated group", []byte{0x05, 0x11, 0x22}},
		{"interior zero", []byte{0x03, 0x00, 0x11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCOBS(tt.frame); err == nil {
				t.Errorf("DecodeCOBS(%x) succeeded, want error", tt.frame)
			}
		})
	}
}

func nonZero(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i%254) + 1
	}
	return b
}

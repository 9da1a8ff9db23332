package tmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	tests := []struct {
		name string
		f    Formatter
		v    uint32
		want string
	}{
		{"decimal", Formatter{}, 42, "42"},
		{"hex", Hex(), 0x21, "0x21"},
		{"signed negative", Signed(9), 0x1f0, "-16"},
		{"signed positive", Signed(9), 0x10, "16"},
		{"flag set", Flag("OvertempError!"), 1, "1(OvertempError!)"},
		{"flag clear", Flag("OvertempError!"), 0, ""},
		{"enum", Enum("a", "b"), 1, "1(b)"},
		{"enum out of range", Enum("a"), 3, "3"},
		{"microsteps", mresFormat, 4, "4(16usteps)"},
		{"microsteps full step", mresFormat, 8, "8(1usteps)"},
		{"microsteps reserved code", mresFormat, 9, "9(0usteps)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Format(tt.v))
		})
	}
}

func TestSignedEncoding(t *testing.T) {
	for _, v := range []int32{-64, -5, -1, 0, 1, 63} {
		assert.Equal(t, v, DecodeSigned(EncodeSigned(v, 7), 7))
	}
	assert.Equal(t, uint32(0x7b), EncodeSigned(-5, 7))
	assert.Equal(t, int32(-1), DecodeSigned(0xffffffff, 32))
}

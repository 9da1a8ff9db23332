package tmcuart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC8(t *testing.T) {
	assert.Equal(t, byte(0x00), CRC8(nil))
	assert.Equal(t, byte(0xc8), CRC8([]byte{0xf5, 0x00, 0x02}))
	assert.Equal(t, byte(0xe2), CRC8([]byte{0x05, 0xff, 0x02, 0, 0, 0, 0x07}))
}

func TestEncodeRead(t *testing.T) {
	frame := EncodeRead(HostSync, 0, 0x02)
	assert.Equal(t, []byte{0xea, 0x03, 0x48, 0x20, 0xe4}, frame)
	assert.Len(t, frame, ReadFrameLen)
}

func TestEncodeWrite(t *testing.T) {
	frame := EncodeWrite(HostSync, 0, 0x00|WriteFlag, 0x40)
	assert.Equal(t, []byte{0xea, 0x03, 0x08, 0x30, 0x80, 0x00, 0x02, 0x08, 0x28, 0xdf}, frame)
	assert.Len(t, frame, WriteFrameLen)
}

func TestSerialBitsRoundTrip(t *testing.T) {
	data := []byte{0x00, 0xff, 0x5a, 0xa5, 0x01, 0x80, 0x7e, 0x13}
	wire := AddSerialBits(data)
	assert.Len(t, wire, 10)

	out, ok := RemoveSerialBits(wire, len(data))
	require.True(t, ok)
	assert.Equal(t, data, out)

	_, ok = RemoveSerialBits(wire, len(data)+1)
	assert.False(t, ok, "too short")

	bad := append([]byte(nil), wire...)
	bad[0] |= 1 // start bit of the first unit
	_, ok = RemoveSerialBits(bad, len(data))
	assert.False(t, ok)
}

func TestDecodeRead(t *testing.T) {
	for _, v := range []uint32{0, 7, 0x12345678, 0xffffffff, 0x80000001} {
		reply := EncodeWrite(ReplySync, ReplyAddr, 0x6f, v)
		got, ok := DecodeRead(0x6f, reply)
		require.True(t, ok)
		assert.Equal(t, v, got)
	}

	reply := EncodeWrite(ReplySync, ReplyAddr, 0x02, 7)
	assert.Equal(t, []byte{0x0a, 0xfa, 0x4f, 0x20, 0x80, 0x00, 0x02, 0xe8, 0x20, 0xf1}, reply)

	_, ok := DecodeRead(0x03, reply)
	assert.False(t, ok, "wrong register")
	_, ok = DecodeRead(0x02, reply[:9])
	assert.False(t, ok, "short reply")
	_, ok = DecodeRead(0x02, EncodeWrite(HostSync, ReplyAddr, 0x02, 7))
	assert.False(t, ok, "wrong sync")
}

func TestDecodeReadRejectsBitFlips(t *testing.T) {
	reply := EncodeWrite(ReplySync, ReplyAddr, 0x6c, 0x10000053)
	for bit := 0; bit < len(reply)*8; bit++ {
		bad := append([]byte(nil), reply...)
		bad[bit/8] ^= 1 << (bit % 8)
		_, ok := DecodeRead(0x6c, bad)
		assert.False(t, ok, "bit %d", bit)
	}
}

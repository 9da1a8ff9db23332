// TMC single-wire UART framing - port of klippy/extras/tmc2208.py
//
// Copyright (C) 2018  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package tmcuart implements the single-wire UART protocol of the
// TMC2208/TMC2209 drivers: bit-stuffed frames with a CRC-8 trailer and
// write verification through the chip's interface transmission counter.
package tmcuart

const (
	// HostSync starts every frame sent by the host.
	HostSync = 0xf5
	// ReplySync starts every frame sent by a driver.
	ReplySync = 0x05
	// ReplyAddr is the address field of driver replies.
	ReplyAddr = 0xff
	// WriteFlag is or'ed into the register address of write frames.
	WriteFlag = 0x80

	// Wire sizes of bit-stuffed frames.
	ReadFrameLen  = 5
	WriteFrameLen = 10
	ReplyLen      = 10
)

// AddSerialBits frames each byte with a start bit (0) and a stop bit (1)
// and packs the resulting 10-bit units LSB first.
func AddSerialBits(data []byte) []byte {
	out := make([]byte, (len(data)*10+7)/8)
	pos := 0
	for _, d := range data {
		unit := uint16(d)<<1 | 0x200
		for i := 0; i < 10; i++ {
			if unit&(1<<i) != 0 {
				out[pos/8] |= 1 << (pos % 8)
			}
			pos++
		}
	}
	return out
}

func bitAt(data []byte, pos int) byte {
	return (data[pos/8] >> (pos % 8)) & 1
}

func byteAt(data []byte, pos int) byte {
	var b byte
	for i := 0; i < 8; i++ {
		b |= bitAt(data, pos+i) << i
	}
	return b
}

// RemoveSerialBits unpacks n 10-bit units from wire data. It fails when
// the data is too short or a start or stop bit is wrong.
func RemoveSerialBits(wire []byte, n int) ([]byte, bool) {
	if n < 0 || len(wire)*8 < n*10 {
		return nil, false
	}
	out := make([]byte, n)
	for i := range out {
		pos := i * 10
		if bitAt(wire, pos) != 0 || bitAt(wire, pos+9) != 1 {
			return nil, false
		}
		out[i] = byteAt(wire, pos+1)
	}
	return out, true
}

// EncodeRead builds the bit-stuffed frame that requests a register.
func EncodeRead(sync, addr, reg byte) []byte {
	msg := []byte{sync, addr, reg}
	msg = append(msg, CRC8(msg))
	return AddSerialBits(msg)
}

// EncodeWrite builds the bit-stuffed frame that carries a register value.
// Drivers reply to reads with the same layout.
func EncodeWrite(sync, addr, reg byte, val uint32) []byte {
	msg := []byte{sync, addr, reg,
		byte(val >> 24), byte(val >> 16), byte(val >> 8), byte(val)}
	msg = append(msg, CRC8(msg))
	return AddSerialBits(msg)
}

// DecodeRead extracts the register value from a driver reply. The reply is
// accepted only when re-encoding the value reproduces it byte for byte,
// which checks sync, address, register, framing bits and CRC at once.
func DecodeRead(reg byte, data []byte) (uint32, bool) {
	if len(data) != ReplyLen {
		return 0, false
	}
	val := uint32(byteAt(data, 31))<<24 | uint32(byteAt(data, 41))<<16 |
		uint32(byteAt(data, 51))<<8 | uint32(byteAt(data, 61))
	want := EncodeWrite(ReplySync, ReplyAddr, reg, val)
	for i := range want {
		if want[i] != data[i] {
			return 0, false
		}
	}
	return val, true
}

// TMC field value formatters - port of the field formatters in klippy/extras/tmc.py
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"
	"strconv"
)

// FormatKind selects how a field value is rendered in diagnostics.
type FormatKind uint8

const (
	// FormatDecimal prints the raw value in decimal.
	FormatDecimal FormatKind = iota
	// FormatHex prints the value as 0x-prefixed hex.
	FormatHex
	// FormatSigned decodes a two's complement value of Bits width.
	FormatSigned
	// FormatFlag prints "1(Message)" when set and nothing when clear.
	FormatFlag
	// FormatEnum prints "N(Labels[N])".
	FormatEnum
	// FormatMicrosteps prints an MRES code with its step resolution.
	FormatMicrosteps
)

// Formatter describes the presentation of one field. The zero value is
// plain decimal.
type Formatter struct {
	Kind    FormatKind
	Bits    uint
	Message string
	Labels  []string
}

// Hex formats a field as 0x-prefixed hex.
func Hex() Formatter { return Formatter{Kind: FormatHex} }

// Signed formats a field as a signed integer of the given width.
func Signed(width uint) Formatter { return Formatter{Kind: FormatSigned, Bits: width} }

// Flag formats a single-bit alarm or mode flag.
func Flag(message string) Formatter { return Formatter{Kind: FormatFlag, Message: message} }

// Enum formats a field with a label per value.
func Enum(labels ...string) Formatter { return Formatter{Kind: FormatEnum, Labels: labels} }

// Microsteps formats an MRES field as "N(256>>Nusteps)".
func Microsteps() Formatter { return Formatter{Kind: FormatMicrosteps} }

// Format renders v.
func (f Formatter) Format(v uint32) string {
	switch f.Kind {
	case FormatHex:
		return fmt.Sprintf("%#x", v)
	case FormatSigned:
		return strconv.Itoa(int(DecodeSigned(v, f.Bits)))
	case FormatFlag:
		if v == 0 {
			return ""
		}
		return fmt.Sprintf("%d(%s)", v, f.Message)
	case FormatEnum:
		if int(v) < len(f.Labels) {
			return fmt.Sprintf("%d(%s)", v, f.Labels[v])
		}
	case FormatMicrosteps:
		return fmt.Sprintf("%d(%dusteps)", v, uint32(0x100)>>v)
	}
	return strconv.FormatUint(uint64(v), 10)
}

// DecodeSigned interprets the low width bits of v as two's complement.
func DecodeSigned(v uint32, width uint) int32 {
	if width == 0 || width > 32 {
		return int32(v)
	}
	if (v>>(width-1))&1 != 0 {
		return int32(int64(v) - int64(1)<<width)
	}
	return int32(v)
}

// EncodeSigned returns the two's complement encoding of v in width bits.
func EncodeSigned(v int32, width uint) uint32 {
	return uint32(v) & (uint32(1)<<width - 1)
}

// TMC2209 register map - port of klippy/extras/tmc2209.py
//
// Copyright (C) 2019  Stephan Oelze <stephan.oelze@gmail.com>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

var tmc2209Defs = []RegisterDef{
	// The TMC2209 has no SEL_A pin, bit 8 reports SPREAD instead.
	{Name: "IOIN", Addr: 0x06, Fields: []Field{
		{Name: "ENN", Mask: 0x01},
		{Name: "MS1", Mask: 0x01 << 2},
		{Name: "MS2", Mask: 0x01 << 3},
		{Name: "DIAG", Mask: 0x01 << 4},
		{Name: "PDN_UART", Mask: 0x01 << 6},
		{Name: "STEP", Mask: 0x01 << 7},
		{Name: "SPREAD_EN", Mask: 0x01 << 8},
		{Name: "DIR", Mask: 0x01 << 9},
		{Name: "VERSION", Mask: 0xff << 24, Format: fmtVersion},
	}},
	{Name: "TCOOLTHRS", Addr: 0x14, Fields: []Field{{Name: "TCOOLTHRS", Mask: 0xfffff}}},
	{Name: "SGTHRS", Addr: 0x40, Fields: []Field{{Name: "SGTHRS", Mask: 0xff}}},
	{Name: "SG_RESULT", Addr: 0x41, Fields: []Field{{Name: "SG_RESULT", Mask: 0x3ff}}},
	{Name: "COOLCONF", Addr: 0x42, Fields: []Field{
		{Name: "semin", Mask: 0x0f},
		{Name: "seup", Mask: 0x03 << 5},
		{Name: "semax", Mask: 0x0f << 8},
		{Name: "sedn", Mask: 0x03 << 13},
		{Name: "seimin", Mask: 0x01 << 15},
	}},
}

var tmc2209ReadRegisters = append(append([]string(nil), tmc2208ReadRegisters...), "SG_RESULT")

// TMC2209Map is the TMC2208 map plus the StallGuard and CoolStep
// registers of the TMC2209.
var TMC2209Map = mustExtend(TMC2208Map, "tmc2209", tmc2209Defs, tmc2209ReadRegisters)

func mustExtend(m *RegisterMap, name string, defs []RegisterDef, readRegs []string) *RegisterMap {
	ext, err := m.Extend(name, defs, readRegs)
	if err != nil {
		panic(err)
	}
	return ext
}

// TMC2130 register map - port of klippy/extras/tmc2130.py
//
// Copyright (C) 2018  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

var mresFormat = Microsteps()

// Formatters shared by the TMC2130 and TMC22xx tables.
var (
	fmtVersion = Hex()
	fmtCur     = Signed(9)
	fmtOTPW    = Flag("OvertempWarning!")
	fmtOT      = Flag("OvertempError!")
	fmtS2GA    = Flag("ShortToGND_A!")
	fmtS2GB    = Flag("ShortToGND_B!")
	fmtOLA     = Flag("OpenLoad_A!")
	fmtOLB     = Flag("OpenLoad_B!")
)

var gstatFields = []Field{
	{Name: "reset", Mask: 1 << 0},
	{Name: "drv_err", Mask: 1 << 1, Format: Flag("ErrorShutdown!")},
	{Name: "uv_cp", Mask: 1 << 2, Format: Flag("Undervoltage!")},
}

// TMC2130Map is the register map of the TMC2130 (SPI).
var TMC2130Map = MustRegisterMap("tmc2130", []RegisterDef{
	{Name: "GCONF", Addr: 0x00, Fields: []Field{
		{Name: "I_scale_analog", Mask: 1 << 0, Format: Flag("ExtVREF")},
		{Name: "internal_Rsense", Mask: 1 << 1},
		{Name: "en_pwm_mode", Mask: 1 << 2},
		{Name: "enc_commutation", Mask: 1 << 3},
		{Name: "shaft", Mask: 1 << 4, Format: Flag("Reverse")},
		{Name: "diag0_error", Mask: 1 << 5},
		{Name: "diag0_otpw", Mask: 1 << 6},
		{Name: "diag0_stall", Mask: 1 << 7},
		{Name: "diag1_stall", Mask: 1 << 8},
		{Name: "diag1_index", Mask: 1 << 9},
		{Name: "diag1_onstate", Mask: 1 << 10},
		{Name: "diag1_steps_skipped", Mask: 1 << 11},
		{Name: "diag0_int_pushpull", Mask: 1 << 12},
		{Name: "diag1_pushpull", Mask: 1 << 13},
		{Name: "small_hysteresis", Mask: 1 << 14},
		{Name: "stop_enable", Mask: 1 << 15},
		{Name: "direct_mode", Mask: 1 << 16},
		{Name: "test_mode", Mask: 1 << 17},
	}},
	{Name: "GSTAT", Addr: 0x01, Fields: gstatFields},
	{Name: "IOIN", Addr: 0x04, Fields: []Field{
		{Name: "STEP", Mask: 1 << 0},
		{Name: "DIR", Mask: 1 << 1},
		{Name: "DCEN_CFG4", Mask: 1 << 2},
		{Name: "DCIN_CFG5", Mask: 1 << 3},
		{Name: "DRV_ENN_CFG6", Mask: 1 << 4},
		{Name: "DCO", Mask: 1 << 5},
		{Name: "VERSION", Mask: 0xff << 24, Format: fmtVersion},
	}},
	{Name: "IHOLD_IRUN", Addr: 0x10, Fields: []Field{
		{Name: "IHOLD", Mask: 0x1f << 0},
		{Name: "IRUN", Mask: 0x1f << 8},
		{Name: "IHOLDDELAY", Mask: 0x0f << 16},
	}},
	{Name: "TPOWERDOWN", Addr: 0x11, Fields: []Field{{Name: "TPOWERDOWN", Mask: 0xff}}},
	{Name: "TSTEP", Addr: 0x12, Fields: []Field{{Name: "TSTEP", Mask: 0xfffff}}},
	{Name: "TPWMTHRS", Addr: 0x13, Fields: []Field{{Name: "TPWMTHRS", Mask: 0xfffff}}},
	{Name: "TCOOLTHRS", Addr: 0x14, Fields: []Field{{Name: "TCOOLTHRS", Mask: 0xfffff}}},
	{Name: "THIGH", Addr: 0x15, Fields: []Field{{Name: "THIGH", Mask: 0xfffff}}},
	{Name: "XDIRECT", Addr: 0x2d},
	{Name: "MSLUT0", Addr: 0x60},
	{Name: "MSLUTSEL", Addr: 0x68},
	{Name: "MSLUTSTART", Addr: 0x69},
	{Name: "MSCNT", Addr: 0x6a, Fields: []Field{{Name: "MSCNT", Mask: 0x3ff}}},
	{Name: "MSCURACT", Addr: 0x6b, Fields: []Field{
		{Name: "CUR_A", Mask: 0x1ff, Format: fmtCur},
		{Name: "CUR_B", Mask: 0x1ff << 16, Format: fmtCur},
	}},
	{Name: "CHOPCONF", Addr: 0x6c, Fields: []Field{
		{Name: "toff", Mask: 0x0f},
		{Name: "hstrt", Mask: 0x07 << 4},
		{Name: "hend", Mask: 0x0f << 7},
		{Name: "fd3", Mask: 1 << 11},
		{Name: "disfdcc", Mask: 1 << 12},
		{Name: "rndtf", Mask: 1 << 13},
		{Name: "chm", Mask: 1 << 14},
		{Name: "TBL", Mask: 0x03 << 15},
		{Name: "vsense", Mask: 1 << 17},
		{Name: "vhighfs", Mask: 1 << 18},
		{Name: "vhighchm", Mask: 1 << 19},
		{Name: "sync", Mask: 0x0f << 20},
		{Name: "MRES", Mask: 0x0f << 24, Format: mresFormat},
		{Name: "intpol", Mask: 1 << 28},
		{Name: "dedge", Mask: 1 << 29},
		{Name: "diss2g", Mask: 1 << 30},
	}},
	{Name: "COOLCONF", Addr: 0x6d, Fields: []Field{
		{Name: "semin", Mask: 0x0f},
		{Name: "seup", Mask: 0x03 << 5},
		{Name: "semax", Mask: 0x0f << 8},
		{Name: "sedn", Mask: 0x03 << 13},
		{Name: "seimin", Mask: 1 << 15},
		{Name: "sgt", Mask: 0x7f << 16, Format: Signed(7)},
		{Name: "sfilt", Mask: 1 << 24},
	}},
	{Name: "DCCTRL", Addr: 0x6e},
	{Name: "DRV_STATUS", Addr: 0x6f, Fields: []Field{
		{Name: "SG_RESULT", Mask: 0x3ff},
		{Name: "fsactive", Mask: 1 << 15},
		{Name: "CS_ACTUAL", Mask: 0x1f << 16},
		{Name: "stallGuard", Mask: 1 << 24},
		{Name: "ot", Mask: 1 << 25, Format: fmtOT},
		{Name: "otpw", Mask: 1 << 26, Format: fmtOTPW},
		{Name: "s2ga", Mask: 1 << 27, Format: fmtS2GA},
		{Name: "s2gb", Mask: 1 << 28, Format: fmtS2GB},
		{Name: "ola", Mask: 1 << 29, Format: fmtOLA},
		{Name: "olb", Mask: 1 << 30, Format: fmtOLB},
		{Name: "stst", Mask: 1 << 31},
	}},
	{Name: "PWMCONF", Addr: 0x70, Fields: []Field{
		{Name: "PWM_AMPL", Mask: 0xff},
		{Name: "PWM_GRAD", Mask: 0xff << 8},
		{Name: "pwm_freq", Mask: 0x03 << 16},
		{Name: "pwm_autoscale", Mask: 1 << 18},
		{Name: "pwm_symmetric", Mask: 1 << 19},
		{Name: "freewheel", Mask: 0x03 << 20},
	}},
	{Name: "PWM_SCALE", Addr: 0x71, Fields: []Field{{Name: "PWM_SCALE", Mask: 0xff}}},
	{Name: "ENCM_CTRL", Addr: 0x72},
	{Name: "LOST_STEPS", Addr: 0x73, Fields: []Field{{Name: "LOST_STEPS", Mask: 0xfffff}}},
}, []string{
	"GCONF", "GSTAT", "IOIN", "TSTEP", "XDIRECT", "MSCNT", "MSCURACT",
	"CHOPCONF", "DRV_STATUS", "PWM_SCALE", "LOST_STEPS",
})

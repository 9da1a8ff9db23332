// TMC2208 register map - port of klippy/extras/tmc2208.py
//
// Copyright (C) 2018  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

// IOIN layout variants, selected by the SEL_A bit.
const (
	VariantTMC222x = "TMC222x"
	VariantTMC220x = "TMC220x"
)

var selAFormat = Enum(VariantTMC222x, VariantTMC220x)

var tmc2208Defs = []RegisterDef{
	{Name: "GCONF", Addr: 0x00, Fields: []Field{
		{Name: "I_scale_analog", Mask: 0x01, Format: Flag("ExtVREF")},
		{Name: "internal_Rsense", Mask: 0x01 << 1},
		{Name: "en_spreadCycle", Mask: 0x01 << 2},
		{Name: "shaft", Mask: 0x01 << 3, Format: Flag("Reverse")},
		{Name: "index_otpw", Mask: 0x01 << 4},
		{Name: "index_step", Mask: 0x01 << 5},
		{Name: "pdn_disable", Mask: 0x01 << 6},
		{Name: "mstep_reg_select", Mask: 0x01 << 7},
		{Name: "multistep_filt", Mask: 0x01 << 8},
		{Name: "test_mode", Mask: 0x01 << 9},
	}},
	{Name: "GSTAT", Addr: 0x01, Fields: gstatFields},
	{Name: "IFCNT", Addr: 0x02, Fields: []Field{{Name: "IFCNT", Mask: 0xff}}},
	{Name: "SLAVECONF", Addr: 0x03, Fields: []Field{{Name: "SENDDELAY", Mask: 0x0f << 8}}},
	{Name: "OTP_PROG", Addr: 0x04, Fields: []Field{
		{Name: "OTPBIT", Mask: 0x07},
		{Name: "OTPBYTE", Mask: 0x03 << 4},
		{Name: "OTPMAGIC", Mask: 0xff << 8},
	}},
	{Name: "OTP_READ", Addr: 0x05, Fields: []Field{
		{Name: "OTP_FCLKTRIM", Mask: 0x1f},
		{Name: "otp_OTTRIM", Mask: 0x01 << 5},
		{Name: "otp_internalRsense", Mask: 0x01 << 6},
		{Name: "otp_TBL", Mask: 0x01 << 7},
		{Name: "OTP_PWM_GRAD", Mask: 0x0f << 8},
		{Name: "otp_pwm_autograd", Mask: 0x01 << 12},
		{Name: "OTP_TPWMTHRS", Mask: 0x07 << 13},
		{Name: "otp_PWM_OFS", Mask: 0x01 << 16},
		{Name: "otp_PWM_REG", Mask: 0x01 << 17},
		{Name: "otp_PWM_FREQ", Mask: 0x01 << 18},
		{Name: "OTP_IHOLDDELAY", Mask: 0x03 << 19},
		{Name: "OTP_IHOLD", Mask: 0x03 << 21},
		{Name: "otp_en_spreadCycle", Mask: 0x01 << 23},
	}},
	// IOIN pin mapping depends on the driver type reported by SEL_A.
	{Name: "IOIN", Addr: 0x06,
		Selector: &Selector{Mask: 0x01 << 8, Variants: []string{VariantTMC222x, VariantTMC220x}},
		Variants: map[string][]Field{
			VariantTMC222x: {
				{Name: "PDN_UART", Mask: 0x01 << 1},
				{Name: "SPREAD", Mask: 0x01 << 2},
				{Name: "DIR", Mask: 0x01 << 3},
				{Name: "ENN", Mask: 0x01 << 4},
				{Name: "STEP", Mask: 0x01 << 5},
				{Name: "MS1", Mask: 0x01 << 6},
				{Name: "MS2", Mask: 0x01 << 7},
				{Name: "SEL_A", Mask: 0x01 << 8, Format: selAFormat},
				{Name: "VERSION", Mask: 0xff << 24, Format: fmtVersion},
			},
			VariantTMC220x: {
				{Name: "ENN", Mask: 0x01},
				{Name: "MS1", Mask: 0x01 << 2},
				{Name: "MS2", Mask: 0x01 << 3},
				{Name: "DIAG", Mask: 0x01 << 4},
				{Name: "PDN_UART", Mask: 0x01 << 6},
				{Name: "STEP", Mask: 0x01 << 7},
				{Name: "SEL_A", Mask: 0x01 << 8, Format: selAFormat},
				{Name: "DIR", Mask: 0x01 << 9},
				{Name: "VERSION", Mask: 0xff << 24, Format: fmtVersion},
			},
		}},
	{Name: "FACTORY_CONF", Addr: 0x07, Fields: []Field{
		{Name: "FCLKTRIM", Mask: 0x1f},
		{Name: "OTTRIM", Mask: 0x03 << 8},
	}},
	{Name: "IHOLD_IRUN", Addr: 0x10, Fields: []Field{
		{Name: "IHOLD", Mask: 0x1f},
		{Name: "IRUN", Mask: 0x1f << 8},
		{Name: "IHOLDDELAY", Mask: 0x0f << 16},
	}},
	{Name: "TPOWERDOWN", Addr: 0x11, Fields: []Field{{Name: "TPOWERDOWN", Mask: 0xff}}},
	{Name: "TSTEP", Addr: 0x12, Fields: []Field{{Name: "TSTEP", Mask: 0xfffff}}},
	{Name: "TPWMTHRS", Addr: 0x13, Fields: []Field{{Name: "TPWMTHRS", Mask: 0xfffff}}},
	{Name: "VACTUAL", Addr: 0x22, Fields: []Field{{Name: "VACTUAL", Mask: 0xffffff}}},
	{Name: "MSCNT", Addr: 0x6a, Fields: []Field{{Name: "MSCNT", Mask: 0x3ff}}},
	{Name: "MSCURACT", Addr: 0x6b, Fields: []Field{
		{Name: "CUR_A", Mask: 0x1ff, Format: fmtCur},
		{Name: "CUR_B", Mask: 0x1ff << 16, Format: fmtCur},
	}},
	{Name: "CHOPCONF", Addr: 0x6c, Fields: []Field{
		{Name: "toff", Mask: 0x0f},
		{Name: "hstrt", Mask: 0x07 << 4},
		{Name: "hend", Mask: 0x0f << 7},
		{Name: "TBL", Mask: 0x03 << 15},
		{Name: "vsense", Mask: 0x01 << 17},
		{Name: "MRES", Mask: 0x0f << 24, Format: mresFormat},
		{Name: "intpol", Mask: 0x01 << 28},
		{Name: "dedge", Mask: 0x01 << 29},
		{Name: "diss2g", Mask: 0x01 << 30},
		{Name: "diss2vs", Mask: 0x01 << 31},
	}},
	{Name: "DRV_STATUS", Addr: 0x6f, Fields: []Field{
		{Name: "otpw", Mask: 0x01, Format: fmtOTPW},
		{Name: "ot", Mask: 0x01 << 1, Format: fmtOT},
		{Name: "s2ga", Mask: 0x01 << 2, Format: fmtS2GA},
		{Name: "s2gb", Mask: 0x01 << 3, Format: fmtS2GB},
		{Name: "s2vsa", Mask: 0x01 << 4, Format: Flag("LowSideShort_A!")},
		{Name: "s2vsb", Mask: 0x01 << 5, Format: Flag("LowSideShort_B!")},
		{Name: "ola", Mask: 0x01 << 6, Format: fmtOLA},
		{Name: "olb", Mask: 0x01 << 7, Format: fmtOLB},
		{Name: "t120", Mask: 0x01 << 8},
		{Name: "t143", Mask: 0x01 << 9},
		{Name: "t150", Mask: 0x01 << 10},
		{Name: "t157", Mask: 0x01 << 11},
		{Name: "CS_ACTUAL", Mask: 0x1f << 16},
		{Name: "stealth", Mask: 0x01 << 30},
		{Name: "stst", Mask: 0x01 << 31},
	}},
	{Name: "PWMCONF", Addr: 0x70, Fields: []Field{
		{Name: "PWM_OFS", Mask: 0xff},
		{Name: "PWM_GRAD", Mask: 0xff << 8},
		{Name: "pwm_freq", Mask: 0x03 << 16},
		{Name: "pwm_autoscale", Mask: 0x01 << 18},
		{Name: "pwm_autograd", Mask: 0x01 << 19},
		{Name: "freewheel", Mask: 0x03 << 20},
		{Name: "PWM_REG", Mask: 0xf << 24},
		{Name: "PWM_LIM", Mask: 0xf << 28},
	}},
	{Name: "PWM_SCALE", Addr: 0x71, Fields: []Field{
		{Name: "PWM_SCALE_SUM", Mask: 0xff},
		{Name: "PWM_SCALE_AUTO", Mask: 0x1ff << 16, Format: Signed(9)},
	}},
	{Name: "PWM_AUTO", Addr: 0x72, Fields: []Field{
		{Name: "PWM_OFS_AUTO", Mask: 0xff},
		{Name: "PWM_GRAD_AUTO", Mask: 0xff << 16},
	}},
}

var tmc2208ReadRegisters = []string{
	"GCONF", "GSTAT", "IFCNT", "OTP_READ", "IOIN", "FACTORY_CONF", "TSTEP",
	"MSCNT", "MSCURACT", "CHOPCONF", "DRV_STATUS",
	"PWMCONF", "PWM_SCALE", "PWM_AUTO",
}

// TMC2208Map is the register map of the TMC2208/TMC2224 (single-wire UART).
var TMC2208Map = MustRegisterMap("tmc2208", tmc2208Defs, tmc2208ReadRegisters)

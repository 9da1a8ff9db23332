// TMC2208/TMC2209 UART driver configuration - port of klippy/extras/tmc2208.py
//
// Copyright (C) 2018-2019  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/tmcuart"
)

// uartIO moves registers over a single-wire UART session.
type uartIO struct {
	s *tmcuart.Session
}

func (u uartIO) ReadRegister(r Register) (uint32, error) {
	return u.s.ReadRegister(r.Name, r.Addr)
}

func (u uartIO) WriteRegister(r Register, v uint32) error {
	return u.s.WriteRegister(r.Name, r.Addr, v)
}

var tmc2208Config = []fieldDefault{
	{"toff", 3, ""},
	{"hstrt", 5, ""},
	{"hend", 0, ""},
	{"TBL", 2, "driver_BLANK_TIME_SELECT"},
	{"intpol", 1, "interpolate"},
	{"IHOLDDELAY", 8, ""},
	{"TPOWERDOWN", 20, ""},
	{"PWM_OFS", 36, ""},
	{"PWM_GRAD", 14, ""},
	{"pwm_freq", 1, ""},
	{"pwm_autoscale", 1, ""},
	{"pwm_autograd", 1, ""},
	{"PWM_REG", 8, ""},
	{"PWM_LIM", 12, ""},
}

// TMC2208 is a TMC2208 or TMC2209 driver on a single-wire UART.
type TMC2208 struct {
	*Driver
	session *tmcuart.Session
}

// NewTMC2208 configures a TMC2208 from the "[tmc2208 <stepper>]" section.
// Register values are only cached; call Connect to send them.
func NewTMC2208(cfg *config.Config, section string, link *tmcuart.Link, opts ...tmcuart.Option) (*TMC2208, error) {
	return newUARTDriver(TMC2208Map, cfg, section, link, opts)
}

func newUARTDriver(m *RegisterMap, cfg *config.Config, section string, link *tmcuart.Link, opts []tmcuart.Option) (*TMC2208, error) {
	sec, err := cfg.GetSection(section)
	if err != nil {
		return nil, err
	}
	lo, hi := 0, 3
	addr, err := sec.GetIntWithBounds("uart_address", &lo, &hi, 0)
	if err != nil {
		return nil, err
	}

	name := StepperName(section)
	session := link.Session(name, uint8(addr), opts...)
	d := &TMC2208{
		Driver:  newDriver(name, m, uartIO{session}),
		session: session,
	}
	fh := d.fields

	for _, f := range []string{"pdn_disable", "mstep_reg_select", "multistep_filt"} {
		if _, err := fh.SetField(f, 1, nil); err != nil {
			return nil, err
		}
	}
	if err := d.configCurrent(sec); err != nil {
		return nil, err
	}
	if err := ConfigMicrosteps(fh, sec); err != nil {
		return nil, err
	}
	if _, err := ConfigStealthchop(fh, cfg, sec, TMC2208Frequency, "en_spreadCycle", true); err != nil {
		return nil, err
	}
	if err := configFields(fh, sec, tmc2208Config); err != nil {
		return nil, err
	}
	return d, nil
}

// Session returns the UART session of the driver.
func (d *TMC2208) Session() *tmcuart.Session {
	return d.session
}

// TMC2209 adds StallGuard access to the TMC2208 driver.
type TMC2209 struct {
	*TMC2208
}

// NewTMC2209 configures a TMC2209 from the "[tmc2209 <stepper>]" section.
func NewTMC2209(cfg *config.Config, section string, link *tmcuart.Link, opts ...tmcuart.Option) (*TMC2209, error) {
	d, err := newUARTDriver(TMC2209Map, cfg, section, link, opts)
	if err != nil {
		return nil, err
	}
	sec, err := cfg.GetSection(section)
	if err != nil {
		return nil, err
	}
	if _, err := d.fields.SetConfigField(sec, "SGTHRS", 0, ""); err != nil {
		return nil, err
	}
	return &TMC2209{TMC2208: d}, nil
}

// StallResult reads the StallGuard load measurement.
func (d *TMC2209) StallResult() (uint32, error) {
	raw, err := d.GetRegister("SG_RESULT")
	if err != nil {
		return 0, err
	}
	return d.fields.GetField("SG_RESULT", &raw)
}

// SetStallThreshold writes the StallGuard threshold.
func (d *TMC2209) SetStallThreshold(threshold uint32) error {
	return d.SetFieldLive("SGTHRS", threshold)
}

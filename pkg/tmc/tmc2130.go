// TMC2130 SPI driver configuration - port of klippy/extras/tmc2130.py
//
// Copyright (C) 2018-2019  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"encoding/binary"
	"fmt"

	"tinygo.org/x/drivers"

	"klipper-tmc/pkg/config"
)

// spiIO moves registers over SPI. The TMC2130 answers a read request
// during the following transfer, so reads send the request twice.
type spiIO struct {
	bus drivers.SPI
}

func (s spiIO) ReadRegister(r Register) (uint32, error) {
	cmd := []byte{r.Addr, 0, 0, 0, 0}
	if err := s.bus.Tx(cmd, nil); err != nil {
		return 0, fmt.Errorf("tmc2130: read %s: %w", r.Name, err)
	}
	rx := make([]byte, len(cmd))
	if err := s.bus.Tx(cmd, rx); err != nil {
		return 0, fmt.Errorf("tmc2130: read %s: %w", r.Name, err)
	}
	return binary.BigEndian.Uint32(rx[1:]), nil
}

func (s spiIO) WriteRegister(r Register, v uint32) error {
	cmd := []byte{r.Addr | 0x80, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(cmd[1:], v)
	if err := s.bus.Tx(cmd, nil); err != nil {
		return fmt.Errorf("tmc2130: write %s: %w", r.Name, err)
	}
	return nil
}

var tmc2130Config = []fieldDefault{
	{"toff", 4, ""},
	{"hstrt", 0, ""},
	{"hend", 7, ""},
	{"TBL", 1, "driver_BLANK_TIME_SELECT"},
	{"intpol", 1, "interpolate"},
	{"IHOLDDELAY", 8, ""},
	{"TPOWERDOWN", 0, ""},
	{"PWM_AMPL", 128, ""},
	{"PWM_GRAD", 4, ""},
	{"pwm_freq", 1, ""},
	{"pwm_autoscale", 1, ""},
}

// TMC2130 is a TMC2130 driver on an SPI bus.
type TMC2130 struct {
	*Driver
	diagPin *config.Pin
}

// NewTMC2130 configures a TMC2130 from the "[tmc2130 <stepper>]" section.
// Register values are only cached; call Connect to send them.
func NewTMC2130(cfg *config.Config, section string, bus drivers.SPI) (*TMC2130, error) {
	sec, err := cfg.GetSection(section)
	if err != nil {
		return nil, err
	}
	diagPin, err := sec.GetPinOptional("diag1_pin", config.PinOptions{CanInvert: true, CanPullup: true})
	if err != nil {
		return nil, err
	}

	d := &TMC2130{
		Driver:  newDriver(StepperName(section), TMC2130Map, spiIO{bus}),
		diagPin: diagPin,
	}
	fh := d.fields

	if err := d.configCurrent(sec); err != nil {
		return nil, err
	}
	if err := ConfigMicrosteps(fh, sec); err != nil {
		return nil, err
	}
	if _, err := ConfigStealthchop(fh, cfg, sec, TMC2130Frequency, "en_pwm_mode", false); err != nil {
		return nil, err
	}
	if err := configFields(fh, sec, tmc2130Config); err != nil {
		return nil, err
	}

	lo, hi := -64, 63
	sgt, err := sec.GetIntWithBounds("driver_SGT", &lo, &hi, 0)
	if err != nil {
		return nil, err
	}
	if _, err := fh.SetField("sgt", EncodeSigned(int32(sgt), 7), nil); err != nil {
		return nil, err
	}
	return d, nil
}

// DiagPin returns the configured diag1_pin, or nil.
func (d *TMC2130) DiagPin() *config.Pin {
	return d.diagPin
}

// VirtualEndstop returns a sensorless homing endstop for the driver. It
// requires diag1_pin.
func (d *TMC2130) VirtualEndstop() (*VirtualEndstop, error) {
	if d.diagPin == nil {
		return nil, config.NewConfigError("tmc2130 "+d.name, "diag1_pin",
			"tmc virtual endstop requires diag1_pin")
	}
	return newVirtualEndstop(d.Driver, d.diagPin)
}

// TMC2130 sensorless homing - port of the virtual endstop in klippy/extras/tmc2130.py
//
// Copyright (C) 2018-2019  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"

	"klipper-tmc/pkg/config"
)

// Endstop is the homing hook a stepper calls around a homing move.
type Endstop interface {
	HomePrepare() error
	HomeFinalize() error
	QueryEndstop() (bool, error)
}

// PinQuerier reads the level of an MCU input pin.
type PinQuerier interface {
	QueryPin(pin config.Pin) (bool, error)
}

// VirtualEndstop routes StallGuard to the diag1 pin while homing.
type VirtualEndstop struct {
	d       *Driver
	pin     config.Pin
	querier PinQuerier

	// en_pwm_mode at configuration time, restored after homing
	enPWM uint32
}

var _ Endstop = (*VirtualEndstop)(nil)

func newVirtualEndstop(d *Driver, pin *config.Pin) (*VirtualEndstop, error) {
	enPWM, err := d.GetField("en_pwm_mode")
	if err != nil {
		return nil, err
	}
	return &VirtualEndstop{d: d, pin: *pin, enPWM: enPWM}, nil
}

// Pin returns the diag1 pin the endstop triggers on.
func (e *VirtualEndstop) Pin() config.Pin {
	return e.pin
}

// SetQuerier sets the reader used by QueryEndstop.
func (e *VirtualEndstop) SetQuerier(q PinQuerier) {
	e.querier = q
}

// HomePrepare switches to spreadCycle and enables the stall output.
func (e *VirtualEndstop) HomePrepare() error {
	if _, err := e.d.SetField("en_pwm_mode", 0); err != nil {
		return err
	}
	gconf, err := e.d.SetField("diag1_stall", 1)
	if err != nil {
		return err
	}
	if err := e.d.SetRegister("GCONF", gconf); err != nil {
		return err
	}
	return e.d.SetRegister("TCOOLTHRS", MaxThreshold)
}

// HomeFinalize restores the chopper mode and disables the stall output.
func (e *VirtualEndstop) HomeFinalize() error {
	if _, err := e.d.SetField("en_pwm_mode", e.enPWM); err != nil {
		return err
	}
	gconf, err := e.d.SetField("diag1_stall", 0)
	if err != nil {
		return err
	}
	if err := e.d.SetRegister("GCONF", gconf); err != nil {
		return err
	}
	return e.d.SetRegister("TCOOLTHRS", 0)
}

// QueryEndstop reads the diag1 pin.
func (e *VirtualEndstop) QueryEndstop() (bool, error) {
	if e.querier == nil {
		return false, fmt.Errorf("tmc: %s: no pin reader for %s", e.d.name, e.pin.FullName())
	}
	return e.querier.QueryPin(e.pin)
}

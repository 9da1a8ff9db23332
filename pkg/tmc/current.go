// TMC current scaling - port of the current helpers in klippy/extras/tmc2130.py
//
// Copyright (C) 2018  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import "math"

const (
	// MaxCurrent is the largest configurable RMS current in amps.
	MaxCurrent = 2.0

	// DefaultSenseResistor is used when sense_resistor is not configured.
	DefaultSenseResistor = 0.110

	// senseResistorOffset accounts for the internal path resistance.
	senseResistorOffset = 0.020

	vrefHighSense = 0.18
	vrefLowSense  = 0.32
)

// CurrentSetting is the quantized form of a run/hold current pair.
type CurrentSetting struct {
	VSense bool
	IRun   uint32
	IHold  uint32
}

func senseVref(vsense bool) float64 {
	if vsense {
		return vrefHighSense
	}
	return vrefLowSense
}

// CurrentBits returns the 5-bit current scale code for an RMS current.
// vsense selects the high sensitivity (low voltage) range.
func CurrentBits(current, senseResistor float64, vsense bool) uint32 {
	r := senseResistor + senseResistorOffset
	cs := math.Floor(32*current*r*math.Sqrt2/senseVref(vsense) - 1 + .5)
	if cs < 0 {
		return 0
	}
	if cs > 31 {
		return 31
	}
	return uint32(cs)
}

// BitsToCurrent returns the RMS current a scale code represents.
func BitsToCurrent(bits uint32, senseResistor float64, vsense bool) float64 {
	r := senseResistor + senseResistorOffset
	return float64(bits+1) * senseVref(vsense) / (32 * r * math.Sqrt2)
}

// QuantizeCurrent picks the sense range and scale codes for a run and hold
// current. The hold current is limited to the run current. The high
// sensitivity range is used when both codes fit in its lower half, which
// gives finer resolution for small currents.
func QuantizeCurrent(run, hold, senseResistor float64) CurrentSetting {
	hold = math.Min(hold, run)
	s := CurrentSetting{
		IRun:  CurrentBits(run, senseResistor, false),
		IHold: CurrentBits(hold, senseResistor, false),
	}
	if s.IRun < 16 && s.IHold < 16 {
		s.VSense = true
		s.IRun = CurrentBits(run, senseResistor, true)
		s.IHold = CurrentBits(hold, senseResistor, true)
	}
	return s
}

// RunCurrent returns the effective run current of the setting.
func (s CurrentSetting) RunCurrent(senseResistor float64) float64 {
	return BitsToCurrent(s.IRun, senseResistor, s.VSense)
}

// HoldCurrent returns the effective hold current of the setting.
func (s CurrentSetting) HoldCurrent(senseResistor float64) float64 {
	return BitsToCurrent(s.IHold, senseResistor, s.VSense)
}

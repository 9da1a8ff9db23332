// TMC config helpers - port of klippy/extras/tmc.py config handling
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"
	"strconv"
	"strings"

	"klipper-tmc/pkg/config"
)

// Chip clock frequencies used for velocity thresholds.
const (
	TMC2130Frequency = 13200000.
	TMC2208Frequency = 12000000.
)

// MaxThreshold is the largest value of the 20-bit velocity thresholds.
const MaxThreshold = 0xfffff

// MicrostepTable maps a microstep setting to its MRES code.
var MicrostepTable = map[int]uint32{
	256: 0,
	128: 1,
	64:  2,
	32:  3,
	16:  4,
	8:   5,
	4:   6,
	2:   7,
	1:   8,
}

var microstepChoices = []string{"256", "128", "64", "32", "16", "8", "4", "2", "1"}

// MicrostepsToMRES returns the MRES code for a microstep setting.
func MicrostepsToMRES(microsteps int) (uint32, error) {
	mres, ok := MicrostepTable[microsteps]
	if !ok {
		return 0, fmt.Errorf("tmc: invalid microsteps %d", microsteps)
	}
	return mres, nil
}

// StepperName returns the stepper a driver section controls: every word of
// the section name after the first ("tmc2208 stepper_x" -> "stepper_x").
func StepperName(section string) string {
	parts := strings.Fields(section)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

func floatPtr(v float64) *float64 { return &v }

// ConfigCurrent reads run_current, hold_current and sense_resistor and
// sets vsense, IRUN and IHOLD.
func ConfigCurrent(fh *FieldHelper, sec *config.Section) (CurrentSetting, float64, error) {
	run, err := sec.GetFloatWithBounds("run_current",
		config.FloatBounds{Above: floatPtr(0), MaxVal: floatPtr(MaxCurrent)})
	if err != nil {
		return CurrentSetting{}, 0, err
	}
	hold, err := sec.GetFloatWithBounds("hold_current",
		config.FloatBounds{Above: floatPtr(0), MaxVal: floatPtr(MaxCurrent)}, run)
	if err != nil {
		return CurrentSetting{}, 0, err
	}
	sense, err := sec.GetFloatWithBounds("sense_resistor",
		config.FloatBounds{Above: floatPtr(0)}, DefaultSenseResistor)
	if err != nil {
		return CurrentSetting{}, 0, err
	}
	s := QuantizeCurrent(run, hold, sense)
	var vsense uint32
	if s.VSense {
		vsense = 1
	}
	if _, err := fh.SetField("vsense", vsense, nil); err != nil {
		return CurrentSetting{}, 0, err
	}
	if _, err := fh.SetField("IHOLD", s.IHold, nil); err != nil {
		return CurrentSetting{}, 0, err
	}
	if _, err := fh.SetField("IRUN", s.IRun, nil); err != nil {
		return CurrentSetting{}, 0, err
	}
	return s, sense, nil
}

// ConfigMicrosteps reads the microsteps option and sets MRES.
func ConfigMicrosteps(fh *FieldHelper, sec *config.Section) error {
	choice, err := sec.GetChoice("microsteps", microstepChoices)
	if err != nil {
		return err
	}
	ms, err := strconv.Atoi(choice)
	if err != nil {
		return err
	}
	_, err = fh.SetField("MRES", MicrostepTable[ms], nil)
	return err
}

// StealthchopThreshold converts a velocity (mm/s) into a TSTEP threshold.
func StealthchopThreshold(freq, stepDist float64, mres uint32, velocity float64) uint32 {
	stepDist256 := stepDist / float64(uint32(1)<<mres)
	threshold := int64(freq*stepDist256/velocity + .5)
	if threshold < 0 {
		return 0
	}
	if threshold > MaxThreshold {
		return MaxThreshold
	}
	return uint32(threshold)
}

// stepDistance reads the step distance of a stepper section, either given
// directly or derived from rotation_distance.
func stepDistance(stepper *config.Section) (float64, error) {
	if stepper.HasOption("step_distance") {
		return stepper.GetFloatWithBounds("step_distance", config.FloatBounds{Above: floatPtr(0)})
	}
	rotation, err := stepper.GetFloatWithBounds("rotation_distance", config.FloatBounds{Above: floatPtr(0)})
	if err != nil {
		return 0, err
	}
	fullSteps, err := stepper.GetInt("full_steps_per_rotation", 200)
	if err != nil {
		return 0, err
	}
	microsteps, err := stepper.GetInt("microsteps", 1)
	if err != nil {
		return 0, err
	}
	if fullSteps <= 0 || microsteps <= 0 {
		return 0, config.NewConfigError(stepper.GetName(), "full_steps_per_rotation", "must be positive")
	}
	return rotation / float64(fullSteps*microsteps), nil
}

// ConfigStealthchop reads stealthchop_threshold, sets the chip's mode bit
// and then TPWMTHRS. modeField is set to 1 when stealthchop is enabled, or
// to 0 when spreadCycle is true (the mode bit selects spreadCycle instead).
// MRES must already be set. It reports whether stealthchop is enabled.
func ConfigStealthchop(fh *FieldHelper, cfg *config.Config, sec *config.Section, freq float64,
	modeField string, spreadCycle bool) (bool, error) {
	velocity, err := sec.GetFloatWithBounds("stealthchop_threshold",
		config.FloatBounds{MinVal: floatPtr(0)}, 0)
	if err != nil {
		return false, err
	}
	var threshold uint32
	if velocity > 0 {
		stepper, err := cfg.GetSection(StepperName(sec.GetName()))
		if err != nil {
			return false, err
		}
		dist, err := stepDistance(stepper)
		if err != nil {
			return false, err
		}
		mres, err := fh.GetField("MRES", nil)
		if err != nil {
			return false, err
		}
		threshold = StealthchopThreshold(freq, dist, mres, velocity)
	}
	enabled := velocity > 0
	mode := uint32(0)
	if enabled != spreadCycle {
		mode = 1
	}
	if _, err := fh.SetField(modeField, mode, nil); err != nil {
		return false, err
	}
	if _, err := fh.SetField("TPWMTHRS", threshold, nil); err != nil {
		return false, err
	}
	return enabled, nil
}

// fieldDefault is one configurable field with its power-on default.
type fieldDefault struct {
	field  string
	def    uint32
	option string
}

func configFields(fh *FieldHelper, sec *config.Section, defaults []fieldDefault) error {
	for _, d := range defaults {
		if _, err := fh.SetConfigField(sec, d.field, d.def, d.option); err != nil {
			return err
		}
	}
	return nil
}

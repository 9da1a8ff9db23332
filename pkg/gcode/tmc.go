// TMC driver commands - port of the command handlers in klippy/extras/tmc.py
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"fmt"
	"sort"
	"strings"

	"klipper-tmc/pkg/log"
	"klipper-tmc/pkg/tmc"
)

// TMCDriver is the driver API the TMC commands need.
type TMCDriver interface {
	Name() string
	Fields() *tmc.FieldHelper
	Connect() error
	DumpRegister(name string) (string, error)
	SetFieldLive(field string, value uint32) error
	GetCurrent() (run, hold float64, err error)
	RequestedHoldCurrent() float64
	SetCurrent(run, hold float64) (tmc.CurrentSetting, error)
}

// TMCCommands implements DUMP_TMC, SET_TMC_FIELD, SET_TMC_CURRENT and
// INIT_TMC for a set of drivers selected by the STEPPER argument.
type TMCCommands struct {
	drivers map[string]TMCDriver
	logger  *log.Logger
}

// NewTMCCommands creates the command set.
func NewTMCCommands() *TMCCommands {
	return &TMCCommands{
		drivers: make(map[string]TMCDriver),
		logger:  log.GetLogger("gcode"),
	}
}

// Add makes a driver selectable by its stepper name.
func (t *TMCCommands) Add(d TMCDriver) {
	t.drivers[d.Name()] = d
}

// Register adds the TMC commands to a dispatcher.
func (t *TMCCommands) Register(d *Dispatcher) error {
	for _, c := range []struct {
		name string
		fn   Handler
		help string
	}{
		{"DUMP_TMC", t.cmdDumpTMC, "Read and display TMC stepper driver registers"},
		{"SET_TMC_FIELD", t.cmdSetTMCField, "Set a register field of a TMC driver"},
		{"SET_TMC_CURRENT", t.cmdSetTMCCurrent, "Set the current of a TMC driver"},
		{"INIT_TMC", t.cmdInitTMC, "Initialize TMC stepper driver registers"},
	} {
		if err := d.Register(c.name, c.fn, c.help); err != nil {
			return err
		}
	}
	return nil
}

func (t *TMCCommands) driver(cmd *Command) (TMCDriver, error) {
	name, err := cmd.Get("STEPPER")
	if err != nil {
		return nil, err
	}
	d, ok := t.drivers[name]
	if !ok {
		return nil, cmd.errorf("The value '%s' is not valid for STEPPER", name)
	}
	return d, nil
}

func isReadRegister(fh *tmc.FieldHelper, name string) bool {
	for _, r := range fh.Map().ReadRegisters() {
		if r == name {
			return true
		}
	}
	return false
}

func (t *TMCCommands) cmdDumpTMC(cmd *Command) ([]string, error) {
	d, err := t.driver(cmd)
	if err != nil {
		return nil, err
	}
	t.logger.Info("DUMP_TMC %s", d.Name())
	fh := d.Fields()
	if cmd.Has("REGISTER") {
		reg, _ := cmd.Get("REGISTER")
		reg = strings.ToUpper(reg)
		if _, cached := fh.Registers.Get(reg); !cached && !isReadRegister(fh, reg) {
			return nil, cmd.errorf("Unknown register name '%s'", reg)
		}
		line, err := d.DumpRegister(reg)
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}

	out := []string{"========== Write-only registers =========="}
	for _, reg := range fh.Registers.Names() {
		if isReadRegister(fh, reg) {
			continue
		}
		v, _ := fh.Registers.Get(reg)
		out = append(out, fh.PrettyFormat(reg, v))
	}
	out = append(out, "========== Queried registers ==========")
	for _, reg := range fh.Map().ReadRegisters() {
		line, err := d.DumpRegister(reg)
		if err != nil {
			return out, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (t *TMCCommands) cmdSetTMCField(cmd *Command) ([]string, error) {
	d, err := t.driver(cmd)
	if err != nil {
		return nil, err
	}
	field, err := cmd.Get("FIELD")
	if err != nil {
		return nil, err
	}
	if _, err := d.Fields().LookupRegister(field); err != nil {
		return nil, cmd.errorf("Unknown field name '%s'", field)
	}
	value, err := cmd.GetInt("VALUE")
	if err != nil {
		return nil, err
	}
	if value < 0 {
		return nil, cmd.errorf("VALUE must not be negative")
	}
	return nil, d.SetFieldLive(field, uint32(value))
}

func (t *TMCCommands) cmdSetTMCCurrent(cmd *Command) ([]string, error) {
	d, err := t.driver(cmd)
	if err != nil {
		return nil, err
	}
	run, hold, err := d.GetCurrent()
	if err != nil {
		return nil, err
	}
	if cmd.Has("CURRENT") || cmd.Has("HOLDCURRENT") {
		if run, err = cmd.GetFloat("CURRENT", 0, tmc.MaxCurrent, run); err != nil {
			return nil, err
		}
		if hold, err = cmd.GetFloat("HOLDCURRENT", 0, tmc.MaxCurrent, d.RequestedHoldCurrent()); err != nil {
			return nil, err
		}
		if _, err := d.SetCurrent(run, hold); err != nil {
			return nil, err
		}
		if run, hold, err = d.GetCurrent(); err != nil {
			return nil, err
		}
	}
	return []string{fmt.Sprintf("Run Current: %0.2fA Hold Current: %0.2fA", run, hold)}, nil
}

func (t *TMCCommands) cmdInitTMC(cmd *Command) ([]string, error) {
	d, err := t.driver(cmd)
	if err != nil {
		return nil, err
	}
	t.logger.Info("INIT_TMC %s", d.Name())
	return nil, d.Connect()
}

// Steppers returns the selectable stepper names, sorted.
func (t *TMCCommands) Steppers() []string {
	names := make([]string, 0, len(t.drivers))
	for name := range t.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TMC driver core shared by the SPI and UART chips
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/errors"
	"klipper-tmc/pkg/log"
)

// RegisterIO moves whole register values to and from a chip.
type RegisterIO interface {
	ReadRegister(reg Register) (uint32, error)
	WriteRegister(reg Register, value uint32) error
}

// Driver binds a register map, its shadow cache and a register transport
// to one chip instance.
type Driver struct {
	name   string
	fields *FieldHelper
	io     RegisterIO
	logger *log.Logger

	// sense resistor in ohms, set by configCurrent
	sense float64
	// hold current as requested, before limiting to the run current
	reqHold float64
}

func newDriver(name string, m *RegisterMap, io RegisterIO) *Driver {
	return &Driver{
		name:   name,
		fields: NewFieldHelper(m, nil),
		io:     io,
		logger: log.GetLogger(m.Name() + " " + name),
	}
}

// Name returns the stepper name the driver is attached to.
func (d *Driver) Name() string {
	return d.name
}

// Fields returns the driver's field helper and shadow cache.
func (d *Driver) Fields() *FieldHelper {
	return d.fields
}

func (d *Driver) register(name string) (Register, error) {
	reg, ok := d.fields.Map().Register(name)
	if !ok {
		return Register{}, errors.UnknownRegisterError(name, "is not defined").SetSection(d.name)
	}
	return reg, nil
}

// GetRegister reads a register from the chip.
func (d *Driver) GetRegister(name string) (uint32, error) {
	reg, err := d.register(name)
	if err != nil {
		return 0, err
	}
	return d.io.ReadRegister(reg)
}

// SetRegister stores a register value in the cache and writes it to the
// chip.
func (d *Driver) SetRegister(name string, value uint32) error {
	reg, err := d.register(name)
	if err != nil {
		return err
	}
	d.fields.Registers.Set(name, value)
	return d.io.WriteRegister(reg, value)
}

// GetField returns a field from the cached register value.
func (d *Driver) GetField(field string) (uint32, error) {
	return d.fields.GetField(field, nil)
}

// SetField updates a field in the cache without touching the chip.
func (d *Driver) SetField(field string, value uint32) (uint32, error) {
	return d.fields.SetField(field, value, nil)
}

// SetFieldLive updates a field and writes its register to the chip.
func (d *Driver) SetFieldLive(field string, value uint32) error {
	reg, err := d.fields.LookupRegister(field)
	if err != nil {
		return err
	}
	v, err := d.fields.SetField(field, value, nil)
	if err != nil {
		return err
	}
	d.logger.WithFields(log.Fields{"field": field, "value": value}).
		Debugf("set %s=%08x", reg, v)
	return d.SetRegister(reg, v)
}

// Connect writes every cached register once, in the order the registers
// were first configured.
func (d *Driver) Connect() error {
	for _, name := range d.fields.Registers.Names() {
		v, _ := d.fields.Registers.Get(name)
		if err := d.SetRegister(name, v); err != nil {
			d.logger.WithError(err).Warnf("initial write of %s failed", name)
			return err
		}
	}
	d.logger.Debug("wrote %d registers", d.fields.Registers.Len())
	return nil
}

func (d *Driver) configCurrent(sec *config.Section) error {
	_, sense, err := ConfigCurrent(d.fields, sec)
	if err != nil {
		return err
	}
	d.sense = sense
	run, _ := sec.GetFloat("run_current")
	d.reqHold, _ = sec.GetFloat("hold_current", run)
	return nil
}

// RequestedHoldCurrent returns the hold current last asked for. It can be
// above the programmed hold current when the run current is lower.
func (d *Driver) RequestedHoldCurrent() float64 {
	return d.reqHold
}

// GetCurrent returns the run and hold currents in amps as programmed in
// the cache.
func (d *Driver) GetCurrent() (run, hold float64, err error) {
	var s CurrentSetting
	vsense, err := d.GetField("vsense")
	if err != nil {
		return 0, 0, err
	}
	s.VSense = vsense != 0
	if s.IRun, err = d.GetField("IRUN"); err != nil {
		return 0, 0, err
	}
	if s.IHold, err = d.GetField("IHOLD"); err != nil {
		return 0, 0, err
	}
	return s.RunCurrent(d.sense), s.HoldCurrent(d.sense), nil
}

// SetCurrent programs new run and hold currents. CHOPCONF is only written
// when the sense range changes.
func (d *Driver) SetCurrent(run, hold float64) (CurrentSetting, error) {
	if run <= 0 || run > MaxCurrent || hold <= 0 || hold > MaxCurrent {
		return CurrentSetting{}, fmt.Errorf("tmc: %s: current out of range (0, %.1f]", d.name, MaxCurrent)
	}
	s := QuantizeCurrent(run, hold, d.sense)
	d.reqHold = hold
	var vsense uint32
	if s.VSense {
		vsense = 1
	}
	if cur, err := d.GetField("vsense"); err != nil || cur != vsense {
		if err := d.SetFieldLive("vsense", vsense); err != nil {
			return CurrentSetting{}, err
		}
	}
	if _, err := d.SetField("IHOLD", s.IHold); err != nil {
		return CurrentSetting{}, err
	}
	if err := d.SetFieldLive("IRUN", s.IRun); err != nil {
		return CurrentSetting{}, err
	}
	return s, nil
}

// GetMicrosteps returns the configured microstep resolution.
func (d *Driver) GetMicrosteps() (int, error) {
	mres, err := d.GetField("MRES")
	if err != nil {
		return 0, err
	}
	return 256 >> mres, nil
}

// GetPhase returns the current microstep position reported by the chip in
// units of the configured resolution.
func (d *Driver) GetPhase() (int, error) {
	raw, err := d.GetRegister("MSCNT")
	if err != nil {
		return 0, err
	}
	mscnt, err := d.fields.GetField("MSCNT", &raw)
	if err != nil {
		return 0, err
	}
	mres, err := d.GetField("MRES")
	if err != nil {
		return 0, err
	}
	return int(mscnt >> mres), nil
}

// ReadLayout reads a register and returns its value with the field layout
// that value selects.
func (d *Driver) ReadLayout(name string) (Layout, uint32, error) {
	v, err := d.GetRegister(name)
	if err != nil {
		return Layout{}, 0, err
	}
	return d.fields.Map().Resolve(name, v), v, nil
}

// DumpRegister formats one register. Registers in the chip's dump list are
// read back, any other register is shown from the cache.
func (d *Driver) DumpRegister(name string) (string, error) {
	for _, r := range d.fields.Map().ReadRegisters() {
		if r != name {
			continue
		}
		l, v, err := d.ReadLayout(name)
		if err != nil {
			return "", err
		}
		return d.fields.PrettyFormatLayout(l, v), nil
	}
	if _, err := d.register(name); err != nil {
		return "", err
	}
	v, ok := d.fields.Registers.Get(name)
	if !ok {
		return "", errors.UnknownRegisterError(name, "has no cached value").SetSection(d.name)
	}
	return d.fields.PrettyFormat(name, v), nil
}

// Dump reads every register of the chip's dump list and returns one
// formatted line per register.
func (d *Driver) Dump() ([]string, error) {
	d.logger.Info("DUMP_TMC %s", d.name)
	regs := d.fields.Map().ReadRegisters()
	lines := make([]string, 0, len(regs))
	for _, name := range regs {
		l, v, err := d.ReadLayout(name)
		if err != nil {
			return lines, err
		}
		msg := d.fields.PrettyFormatLayout(l, v)
		d.logger.Info(msg)
		lines = append(lines, msg)
	}
	return lines, nil
}

// DriverStatus summarises the DRV_STATUS flags common to all chips.
type DriverStatus struct {
	Raw             uint32
	CurrentScale    uint32
	OverTemp        bool
	OverTempPreWarn bool
	ShortToGndA     bool
	ShortToGndB     bool
	OpenLoadA       bool
	OpenLoadB       bool
	StandStill      bool
}

// DriverError reports a condition that shuts the output stage down.
func (s DriverStatus) DriverError() bool {
	return s.OverTemp || s.ShortToGndA || s.ShortToGndB
}

// Status reads DRV_STATUS and decodes it.
func (d *Driver) Status() (DriverStatus, error) {
	l, v, err := d.ReadLayout("DRV_STATUS")
	if err != nil {
		return DriverStatus{}, err
	}
	f := d.fields.FieldValues(l, v)
	return DriverStatus{
		Raw:             v,
		CurrentScale:    f["CS_ACTUAL"],
		OverTemp:        f["ot"] != 0,
		OverTempPreWarn: f["otpw"] != 0,
		ShortToGndA:     f["s2ga"] != 0,
		ShortToGndB:     f["s2gb"] != 0,
		OpenLoadA:       f["ola"] != 0,
		OpenLoadB:       f["olb"] != 0,
		StandStill:      f["stst"] != 0,
	}, nil
}

// TMC register field access - port of the FieldHelper in klippy/extras/tmc.py
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"
	"strings"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/errors"
)

// Registers is the shadow copy of a driver's register values. Names are
// remembered in the order they were first stored, which is the order
// registers are sent to the chip on connect.
type Registers struct {
	values map[string]uint32
	order  []string
}

// NewRegisters creates an empty shadow cache.
func NewRegisters() *Registers {
	return &Registers{values: make(map[string]uint32)}
}

// Get returns the cached value of a register.
func (r *Registers) Get(name string) (uint32, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Set stores a register value.
func (r *Registers) Set(name string, v uint32) {
	if _, ok := r.values[name]; !ok {
		r.order = append(r.order, name)
	}
	r.values[name] = v
}

// Names returns the cached register names in insertion order.
func (r *Registers) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of cached registers.
func (r *Registers) Len() int {
	return len(r.order)
}

// FieldHelper reads and writes named fields against a register map and a
// shadow cache. It never talks to hardware.
type FieldHelper struct {
	regMap    *RegisterMap
	Registers *Registers
}

// NewFieldHelper creates a field helper. A nil regs gets a fresh cache.
func NewFieldHelper(m *RegisterMap, regs *Registers) *FieldHelper {
	if regs == nil {
		regs = NewRegisters()
	}
	return &FieldHelper{regMap: m, Registers: regs}
}

// Map returns the register map the helper works on.
func (fh *FieldHelper) Map() *RegisterMap {
	return fh.regMap
}

// LookupRegister returns the register owning a field.
func (fh *FieldHelper) LookupRegister(field string) (string, error) {
	reg, ok := fh.regMap.LookupRegister(field)
	if !ok {
		return "", errors.UnknownFieldError(field)
	}
	return reg, nil
}

func (fh *FieldHelper) resolveField(reg, field string, value uint32) (Field, error) {
	f, ok := fh.regMap.Field(fh.regMap.Resolve(reg, value), field)
	if !ok {
		// Defined on the register, but not in the layout this value selects.
		return Field{}, errors.UnknownFieldError(field)
	}
	return f, nil
}

// GetField returns the value of a field. With a nil regValue the cached
// register value is used.
func (fh *FieldHelper) GetField(field string, regValue *uint32) (uint32, error) {
	reg, err := fh.LookupRegister(field)
	if err != nil {
		return 0, err
	}
	var value uint32
	if regValue != nil {
		value = *regValue
	} else {
		v, ok := fh.Registers.Get(reg)
		if !ok {
			return 0, errors.UnknownRegisterError(reg, "has no cached value")
		}
		value = v
	}
	f, err := fh.resolveField(reg, field, value)
	if err != nil {
		return 0, err
	}
	return f.Extract(value), nil
}

// GetFieldIn extracts a field from value using an explicit layout.
func (fh *FieldHelper) GetFieldIn(l Layout, field string, value uint32) (uint32, error) {
	f, ok := fh.regMap.Field(l, field)
	if !ok {
		return 0, errors.UnknownFieldError(field)
	}
	return f.Extract(value), nil
}

// SetField replaces a field in a register value and stores the result in
// the cache. The base value is regValue when given, else the cached value,
// else zero. Bits of v beyond the field width are dropped.
func (fh *FieldHelper) SetField(field string, v uint32, regValue *uint32) (uint32, error) {
	reg, err := fh.LookupRegister(field)
	if err != nil {
		return 0, err
	}
	var base uint32
	if regValue != nil {
		base = *regValue
	} else if cached, ok := fh.Registers.Get(reg); ok {
		base = cached
	}
	f, err := fh.resolveField(reg, field, base)
	if err != nil {
		return 0, err
	}
	value := f.Insert(base, v)
	fh.Registers.Set(reg, value)
	return value, nil
}

// SetConfigField sets a field from a config option. Single bit fields are
// read as booleans, wider fields as integers limited to the field width.
// An empty option defaults to "driver_<FIELD>".
func (fh *FieldHelper) SetConfigField(sec *config.Section, field string, def uint32, option string) (uint32, error) {
	reg, err := fh.LookupRegister(field)
	if err != nil {
		return 0, err
	}
	cached, _ := fh.Registers.Get(reg)
	f, err := fh.resolveField(reg, field, cached)
	if err != nil {
		return 0, err
	}
	if option == "" {
		option = "driver_" + strings.ToUpper(field)
	}
	var v uint32
	if f.Max() == 1 {
		b, err := sec.GetBool(option, def != 0)
		if err != nil {
			return 0, err
		}
		if b {
			v = 1
		}
	} else {
		i, err := sec.GetInt(option, int(def))
		if err != nil {
			return 0, err
		}
		if i < 0 || uint64(i) > uint64(f.Max()) {
			return 0, errors.ConfigRangeError(sec.GetName(), option, field, i, 0, int(f.Max()))
		}
		v = uint32(i)
	}
	return fh.SetField(field, v, nil)
}

// PrettyFormat renders a register value for diagnostics, resolving the
// field layout from the value itself.
func (fh *FieldHelper) PrettyFormat(reg string, value uint32) string {
	if _, ok := fh.regMap.Register(reg); !ok {
		return fmt.Sprintf("%-11s %08x", reg+":", value)
	}
	return fh.PrettyFormatLayout(fh.regMap.Resolve(reg, value), value)
}

// PrettyFormatLayout renders a register value with an explicit layout.
// Fields appear in ascending mask order and are left out when they format
// as "" or "0". Variant layouts are labelled "REG@Variant".
func (fh *FieldHelper) PrettyFormatLayout(l Layout, value uint32) string {
	var sb strings.Builder
	for _, f := range fh.regMap.Fields(l) {
		s := f.Format.Format(f.Extract(value))
		if s == "" || s == "0" {
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(f.Name)
		sb.WriteString("=")
		sb.WriteString(s)
	}
	return fmt.Sprintf("%-11s %08x%s", l.String()+":", value, sb.String())
}

// FieldValues returns every field of a layout decoded from value.
func (fh *FieldHelper) FieldValues(l Layout, value uint32) map[string]uint32 {
	fields := fh.regMap.Fields(l)
	out := make(map[string]uint32, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Extract(value)
	}
	return out
}

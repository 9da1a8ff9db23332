// TMC register maps
//
// Copyright (C) 2018-2020  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmc

import (
	"fmt"
	"math/bits"
	"sort"
)

// Register is an addressable 32-bit word on a driver chip.
type Register struct {
	Name string
	Addr uint8
}

// Field is a named bit range within one register layout.
type Field struct {
	Name   string
	Mask   uint32
	Format Formatter
}

// Shift returns the position of the lowest bit of the field.
func (f Field) Shift() uint {
	return uint(bits.TrailingZeros32(f.Mask))
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return f.Mask >> f.Shift()
}

// Extract returns the field value held in a register value.
func (f Field) Extract(regValue uint32) uint32 {
	return (regValue & f.Mask) >> f.Shift()
}

// Insert returns regValue with the field bits replaced by v.
func (f Field) Insert(regValue, v uint32) uint32 {
	return (regValue &^ f.Mask) | ((v << f.Shift()) & f.Mask)
}

// Layout names one concrete field layout of a register. Variant is empty
// for registers with a single layout.
type Layout struct {
	Register string
	Variant  string
}

func (l Layout) String() string {
	if l.Variant == "" {
		return l.Register
	}
	return l.Register + "@" + l.Variant
}

// Selector chooses between mutually exclusive layouts of one register.
// The discriminator bits, shifted down, index Variants.
type Selector struct {
	Mask     uint32
	Variants []string
}

// RegisterDef describes one register of a chip family. Exactly one of
// Fields or (Selector, Variants) is used.
type RegisterDef struct {
	Name     string
	Addr     uint8
	Fields   []Field
	Selector *Selector
	Variants map[string][]Field
}

type layoutFields struct {
	byName map[string]Field
	sorted []Field
}

// RegisterMap is the immutable register and field table of a chip family.
type RegisterMap struct {
	name      string
	defs      []RegisterDef
	regs      map[string]Register
	layouts   map[Layout]*layoutFields
	selectors map[string]Selector
	fieldReg  map[string]string
	readRegs  []string
}

func contiguous(mask uint32) bool {
	if mask == 0 {
		return false
	}
	m := mask >> bits.TrailingZeros32(mask)
	return m&(m+1) == 0
}

// NewRegisterMap validates defs and builds a register map. readRegs lists
// the registers shown by a diagnostic dump, in display order.
func NewRegisterMap(name string, defs []RegisterDef, readRegs []string) (*RegisterMap, error) {
	m := &RegisterMap{
		name:      name,
		defs:      defs,
		regs:      make(map[string]Register, len(defs)),
		layouts:   make(map[Layout]*layoutFields),
		selectors: make(map[string]Selector),
		fieldReg:  make(map[string]string),
	}
	addrs := make(map[uint8]string)
	for _, def := range defs {
		if _, dup := m.regs[def.Name]; dup {
			return nil, fmt.Errorf("tmc: %s: duplicate register %s", name, def.Name)
		}
		if def.Addr > 0x7f {
			return nil, fmt.Errorf("tmc: %s: register %s address %#x exceeds 7 bits", name, def.Name, def.Addr)
		}
		if other, dup := addrs[def.Addr]; dup {
			return nil, fmt.Errorf("tmc: %s: registers %s and %s share address %#x", name, other, def.Name, def.Addr)
		}
		addrs[def.Addr] = def.Name
		m.regs[def.Name] = Register{Name: def.Name, Addr: def.Addr}

		if def.Selector == nil {
			if err := m.addLayout(Layout{Register: def.Name}, def.Fields); err != nil {
				return nil, err
			}
			continue
		}
		sel := *def.Selector
		if !contiguous(sel.Mask) {
			return nil, fmt.Errorf("tmc: %s: register %s selector mask %#x is not contiguous", name, def.Name, sel.Mask)
		}
		width := bits.OnesCount32(sel.Mask)
		if len(sel.Variants) != 1<<width {
			return nil, fmt.Errorf("tmc: %s: register %s selector needs %d variants, has %d",
				name, def.Name, 1<<width, len(sel.Variants))
		}
		for _, variant := range sel.Variants {
			fields, ok := def.Variants[variant]
			if !ok {
				return nil, fmt.Errorf("tmc: %s: register %s missing layout for variant %s", name, def.Name, variant)
			}
			if err := m.addLayout(Layout{Register: def.Name, Variant: variant}, fields); err != nil {
				return nil, err
			}
		}
		m.selectors[def.Name] = sel
	}
	for _, r := range readRegs {
		if _, ok := m.regs[r]; !ok {
			return nil, fmt.Errorf("tmc: %s: read register %s is not defined", name, r)
		}
	}
	m.readRegs = append([]string(nil), readRegs...)
	return m, nil
}

func (m *RegisterMap) addLayout(l Layout, fields []Field) error {
	lf := &layoutFields{byName: make(map[string]Field, len(fields))}
	var used uint32
	for _, f := range fields {
		if !contiguous(f.Mask) {
			return fmt.Errorf("tmc: %s: field %s mask %#x is not contiguous", m.name, f.Name, f.Mask)
		}
		if _, dup := lf.byName[f.Name]; dup {
			return fmt.Errorf("tmc: %s: duplicate field %s in %s", m.name, f.Name, l)
		}
		if used&f.Mask != 0 {
			return fmt.Errorf("tmc: %s: field %s overlaps another field in %s", m.name, f.Name, l)
		}
		if owner, ok := m.fieldReg[f.Name]; ok && owner != l.Register {
			return fmt.Errorf("tmc: %s: field %s defined in both %s and %s", m.name, f.Name, owner, l.Register)
		}
		used |= f.Mask
		lf.byName[f.Name] = f
		lf.sorted = append(lf.sorted, f)
		m.fieldReg[f.Name] = l.Register
	}
	sort.Slice(lf.sorted, func(i, j int) bool {
		return lf.sorted[i].Mask < lf.sorted[j].Mask
	})
	m.layouts[l] = lf
	return nil
}

// MustRegisterMap is like NewRegisterMap but panics on an invalid table.
// It is meant for package-level chip tables.
func MustRegisterMap(name string, defs []RegisterDef, readRegs []string) *RegisterMap {
	m, err := NewRegisterMap(name, defs, readRegs)
	if err != nil {
		panic(err)
	}
	return m
}

// Extend returns a new map with defs added. A def whose name matches an
// existing register replaces it.
func (m *RegisterMap) Extend(name string, defs []RegisterDef, readRegs []string) (*RegisterMap, error) {
	merged := make([]RegisterDef, 0, len(m.defs)+len(defs))
	replace := make(map[string]RegisterDef, len(defs))
	for _, d := range defs {
		replace[d.Name] = d
	}
	for _, d := range m.defs {
		if r, ok := replace[d.Name]; ok {
			merged = append(merged, r)
			delete(replace, d.Name)
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range defs {
		if _, ok := replace[d.Name]; ok {
			merged = append(merged, d)
		}
	}
	return NewRegisterMap(name, merged, readRegs)
}

// Name returns the chip family name.
func (m *RegisterMap) Name() string {
	return m.name
}

// Register looks up a register by name.
func (m *RegisterMap) Register(name string) (Register, bool) {
	r, ok := m.regs[name]
	return r, ok
}

// ReadRegisters returns the registers shown by a diagnostic dump.
func (m *RegisterMap) ReadRegisters() []string {
	return append([]string(nil), m.readRegs...)
}

// LookupRegister returns the register owning a field.
func (m *RegisterMap) LookupRegister(field string) (string, bool) {
	r, ok := m.fieldReg[field]
	return r, ok
}

// HasSelector reports whether a register's layout depends on its value.
func (m *RegisterMap) HasSelector(reg string) bool {
	_, ok := m.selectors[reg]
	return ok
}

// Resolve returns the layout that applies to reg holding value.
func (m *RegisterMap) Resolve(reg string, value uint32) Layout {
	sel, ok := m.selectors[reg]
	if !ok {
		return Layout{Register: reg}
	}
	idx := (value & sel.Mask) >> bits.TrailingZeros32(sel.Mask)
	return Layout{Register: reg, Variant: sel.Variants[idx]}
}

// Field returns a field of a layout.
func (m *RegisterMap) Field(l Layout, name string) (Field, bool) {
	lf, ok := m.layouts[l]
	if !ok {
		return Field{}, false
	}
	f, ok := lf.byName[name]
	return f, ok
}

// Fields returns the fields of a layout in ascending mask order.
func (m *RegisterMap) Fields(l Layout) []Field {
	lf, ok := m.layouts[l]
	if !ok {
		return nil
	}
	return append([]Field(nil), lf.sorted...)
}

package config

import (
	"strings"
)

// Pin is a parsed pin option such as "^!PA5" or "ebb:PB7".
type Pin struct {
	Name   string
	Chip   string // MCU name, "mcu" unless given
	Invert bool   // '!' prefix
	Pullup int    // 1 for '^', -1 for '~'
}

// FullName returns the pin name with its chip prefix when not on "mcu".
func (p Pin) FullName() string {
	if p.Chip != "" && p.Chip != "mcu" {
		return p.Chip + ":" + p.Name
	}
	return p.Name
}

// PinOptions selects which pin prefixes are accepted.
type PinOptions struct {
	CanInvert bool
	CanPullup bool
}

// ParsePin parses "[^|~][!][chip:]name".
func ParsePin(desc string, opts PinOptions) (Pin, error) {
	d := strings.TrimSpace(desc)
	if d == "" {
		return Pin{}, NewConfigError("", "", "empty pin specification")
	}

	p := Pin{Chip: "mcu"}
	if opts.CanPullup {
		switch d[0] {
		case '^':
			p.Pullup = 1
			d = strings.TrimSpace(d[1:])
		case '~':
			p.Pullup = -1
			d = strings.TrimSpace(d[1:])
		}
	}
	if opts.CanInvert && strings.HasPrefix(d, "!") {
		p.Invert = true
		d = strings.TrimSpace(d[1:])
	}
	if chip, name, ok := strings.Cut(d, ":"); ok {
		p.Chip = strings.TrimSpace(chip)
		d = strings.TrimSpace(name)
	}

	if d == "" {
		return Pin{}, NewConfigError("", "", "empty pin name in specification: "+desc)
	}
	if strings.ContainsAny(d, "^~!:") {
		return Pin{}, NewConfigError("", "", "invalid characters in pin name: "+desc)
	}
	p.Name = d
	return p, nil
}

// GetPinOptional returns a pin option, or nil if the option is absent.
func (s *Section) GetPinOptional(option string, opts PinOptions) (*Pin, error) {
	v, ok := s.lookup(option, false)
	if !ok {
		return nil, nil
	}
	pin, err := ParsePin(v, opts)
	if err != nil {
		return nil, WrapError(s.name, option, err)
	}
	return &pin, nil
}

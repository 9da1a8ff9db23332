// Command line parsing for extended G-code commands
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package gcode parses Klipper style extended commands such as
// "DUMP_TMC STEPPER=stepper_x REGISTER=IOIN" and dispatches them to
// registered handlers.
package gcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"klipper-tmc/pkg/pool"
)

// Command is one parsed command line. Argument names are upper case.
type Command struct {
	Name string
	Args map[string]string
	Raw  string
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// Parse parses a command line. It returns nil for blank and comment-only
// lines. Arguments are KEY=VALUE pairs or classic letter parameters
// ("X10").
func Parse(line string) *Command {
	ln := strings.TrimSpace(line)
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = ln[:idx]
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	fields := strings.Fields(ln)
	if len(fields) == 0 {
		return nil
	}

	args := pool.GetArgsMap()
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok {
			k = strings.ToUpper(strings.TrimSpace(k))
			if k != "" {
				args[k] = strings.TrimSpace(v)
			}
			continue
		}
		// Single-letter flags like "X" have no value.
		args[strings.ToUpper(f[:1])] = strings.TrimSpace(f[1:])
	}
	return &Command{Name: strings.ToUpper(fields[0]), Args: args, Raw: line}
}

// Release returns the argument map to the pool. The command must not be
// used afterwards.
func (c *Command) Release() {
	pool.PutArgsMap(c.Args)
	c.Args = nil
}

// Has reports whether an argument was given.
func (c *Command) Has(name string) bool {
	_, ok := c.Args[strings.ToUpper(name)]
	return ok
}

func (c *Command) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("Error on '%s': %s", strings.TrimSpace(c.Raw), fmt.Sprintf(format, args...))
}

// Get returns a string argument, or fallback when it is absent.
func (c *Command) Get(name string, fallback ...string) (string, error) {
	v, ok := c.Args[strings.ToUpper(name)]
	if !ok {
		if len(fallback) > 0 {
			return fallback[0], nil
		}
		return "", c.errorf("missing %s", strings.ToUpper(name))
	}
	return v, nil
}

// GetInt returns an integer argument. Hex values need a 0x prefix.
func (c *Command) GetInt(name string, fallback ...int) (int, error) {
	if !c.Has(name) && len(fallback) > 0 {
		return fallback[0], nil
	}
	v, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, c.errorf("unable to parse '%s' as a int", v)
	}
	return int(i), nil
}

// GetFloat returns a float argument limited to [minVal, maxVal].
func (c *Command) GetFloat(name string, minVal, maxVal float64, fallback ...float64) (float64, error) {
	if !c.Has(name) && len(fallback) > 0 {
		return fallback[0], nil
	}
	v, err := c.Get(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, c.errorf("unable to parse '%s' as a float", v)
	}
	if f < minVal {
		return 0, c.errorf("%s must have minimum of %s", strings.ToUpper(name), strconv.FormatFloat(minVal, 'f', -1, 64))
	}
	if f > maxVal {
		return 0, c.errorf("%s must have maximum of %s", strings.ToUpper(name), strconv.FormatFloat(maxVal, 'f', -1, 64))
	}
	return f, nil
}

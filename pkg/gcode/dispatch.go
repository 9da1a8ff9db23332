// Command dispatch
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler runs one command and returns its response lines.
type Handler func(cmd *Command) ([]string, error)

type handlerEntry struct {
	fn   Handler
	help string
}

// Dispatcher maps command names to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]handlerEntry
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]handlerEntry)}
}

// Register adds a handler. Names are case-insensitive. Registering a
// name twice is an error.
func (d *Dispatcher) Register(name string, fn Handler, help string) error {
	name = strings.ToUpper(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.handlers[name]; dup {
		return fmt.Errorf("gcode: command %s already registered", name)
	}
	d.handlers[name] = handlerEntry{fn: fn, help: help}
	return nil
}

// Has reports whether a command is registered.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[strings.ToUpper(name)]
	return ok
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help returns the help text of a command.
func (d *Dispatcher) Help(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[strings.ToUpper(name)].help
}

// Run parses and executes a command line. Blank lines do nothing.
func (d *Dispatcher) Run(line string) ([]string, error) {
	cmd := Parse(line)
	if cmd == nil {
		return nil, nil
	}
	defer cmd.Release()

	d.mu.RLock()
	h, ok := d.handlers[cmd.Name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("Unknown command:\"%s\"", cmd.Name)
	}
	return h.fn(cmd)
}

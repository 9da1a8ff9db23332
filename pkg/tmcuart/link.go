// TMC single-wire UART link
//
// Copyright (C) 2018-2021  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcuart

import "sync"

// Transport moves one bit-stuffed frame onto the wire and collects the
// reply. readLen is the expected reply size in wire bytes; zero means no
// reply is expected. A short or missing reply is returned as is, not as an
// error.
type Transport interface {
	Send(frame []byte, readLen int) ([]byte, error)
}

// Link is one physical single-wire UART. Up to four drivers with distinct
// node addresses may share it; the link lets only one transaction run at a
// time.
type Link struct {
	mu sync.Mutex
	t  Transport
}

// NewLink creates a link over a transport.
func NewLink(t Transport) *Link {
	return &Link{t: t}
}

// Session creates a session for the driver at addr on this link.
func (l *Link) Session(chip string, addr uint8, opts ...Option) *Session {
	return newSession(l, chip, addr, opts...)
}

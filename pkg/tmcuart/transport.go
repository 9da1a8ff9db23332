// Host serial adapter for the TMC single-wire UART
//
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcuart

import (
	"fmt"
	"io"

	"klipper-tmc/pkg/pool"
)

// Port is a byte stream to a hardware UART whose TX and RX lines are
// joined onto the driver's PDN_UART pin.
type Port interface {
	io.ReadWriter
	Flush() error
}

// SerialTransport sends frames through a hardware UART. The UART adds the
// start and stop bits itself, so frames are unstuffed before sending and
// replies are stuffed again. Every byte sent is echoed back by the shared
// wire and discarded.
type SerialTransport struct {
	port Port
}

// NewSerialTransport creates a transport over an open port.
func NewSerialTransport(port Port) *SerialTransport {
	return &SerialTransport{port: port}
}

// Send implements Transport.
func (t *SerialTransport) Send(frame []byte, readLen int) ([]byte, error) {
	raw, ok := RemoveSerialBits(frame, len(frame)*8/10)
	if !ok {
		return nil, fmt.Errorf("tmcuart: malformed frame % x", frame)
	}
	if err := t.port.Flush(); err != nil {
		return nil, err
	}
	if _, err := t.port.Write(raw); err != nil {
		return nil, err
	}
	echo := pool.GetByteBuffer()
	defer pool.PutByteBuffer(echo)
	if _, err := io.ReadFull(t.port, echo.Slice(len(raw))); err != nil {
		return nil, fmt.Errorf("tmcuart: echo: %w", err)
	}
	if readLen == 0 {
		return nil, nil
	}
	reply := make([]byte, readLen*8/10)
	n, err := io.ReadFull(t.port, reply)
	if err != nil {
		// A partial reply is left to frame validation.
		return AddSerialBits(reply[:n]), nil
	}
	return AddSerialBits(reply), nil
}

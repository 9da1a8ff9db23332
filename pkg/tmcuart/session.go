// TMC single-wire UART register access with retries
//
// Copyright (C) 2018-2021  Kevin O'Connor <kevin@koconnor.net>
// Copyright (C) 2025  Go port
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tmcuart

import (
	"klipper-tmc/pkg/errors"
	"klipper-tmc/pkg/log"
	"klipper-tmc/pkg/metrics"
)

// MaxAttempts bounds the frames sent for one register read or write.
const MaxAttempts = 5

// DefaultIFCNTAddr is the address of the interface transmission counter.
const DefaultIFCNTAddr = 0x02

// Session reads and writes the registers of one driver on a link. Writes
// are confirmed by watching the chip's 8-bit IFCNT counter advance.
type Session struct {
	link      *Link
	chip      string
	addr      uint8
	ifcntAddr uint8
	debug     bool
	metrics   *metrics.UARTMetrics
	logger    *log.Logger

	// last observed IFCNT, -1 until first read
	ifcnt int
}

// Option configures a Session.
type Option func(*Session)

// WithDebug makes every read return 0 and every write a no-op.
func WithDebug(debug bool) Option {
	return func(s *Session) { s.debug = debug }
}

// WithMetrics records attempts, retries and failures.
func WithMetrics(m *metrics.UARTMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger replaces the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIFCNTAddress overrides the IFCNT register address.
func WithIFCNTAddress(addr uint8) Option {
	return func(s *Session) { s.ifcntAddr = addr }
}

func newSession(link *Link, chip string, addr uint8, opts ...Option) *Session {
	s := &Session{
		link:      link,
		chip:      chip,
		addr:      addr,
		ifcntAddr: DefaultIFCNTAddr,
		ifcnt:     -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger("tmc_uart " + chip)
	}
	return s
}

// Chip returns the name of the driver the session talks to.
func (s *Session) Chip() string {
	return s.chip
}

// Address returns the node address of the driver.
func (s *Session) Address() uint8 {
	return s.addr
}

// Debug reports whether the session runs without hardware.
func (s *Session) Debug() bool {
	return s.debug
}

// IFCNT returns the last observed write counter.
func (s *Session) IFCNT() (uint8, bool) {
	s.link.mu.Lock()
	defer s.link.mu.Unlock()
	if s.ifcnt < 0 {
		return 0, false
	}
	return uint8(s.ifcnt), true
}

// ReadRegister reads a register, retrying bad or missing replies.
func (s *Session) ReadRegister(name string, reg uint8) (uint32, error) {
	if s.debug {
		return 0, nil
	}
	s.link.mu.Lock()
	defer s.link.mu.Unlock()
	return s.read(name, reg)
}

func (s *Session) read(name string, reg uint8) (uint32, error) {
	defer s.metrics.Time(s.chip, "read")()
	frame := EncodeRead(HostSync, s.addr, reg)
	var last error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		s.metrics.Attempt(s.chip, "read")
		reply, err := s.link.t.Send(frame, ReplyLen)
		if err == nil {
			if val, ok := DecodeRead(reg, reply); ok {
				return val, nil
			}
			err = errors.FrameValidationError(name, len(reply))
		}
		last = err
		if attempt < MaxAttempts {
			s.metrics.Retry(s.chip, "read")
			s.logger.WithError(err).Debugf("retry read of %s (attempt %d)", name, attempt)
		}
	}
	s.metrics.Failure(s.chip, "read")
	s.logger.WithError(last).Warnf("read of %s failed after %d attempts", name, MaxAttempts)
	return 0, errors.CommunicationError(s.chip, "read", name, MaxAttempts, last)
}

// WriteRegister writes a register and waits for IFCNT to confirm it.
// Failing to read IFCNT itself aborts the write.
func (s *Session) WriteRegister(name string, reg uint8, val uint32) error {
	if s.debug {
		return nil
	}
	s.link.mu.Lock()
	defer s.link.mu.Unlock()

	defer s.metrics.Time(s.chip, "write")()
	frame := EncodeWrite(HostSync, s.addr, reg|WriteFlag, val)
	var last error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if s.ifcnt < 0 {
			if err := s.readIFCNT(); err != nil {
				return err
			}
		}
		snapshot := s.ifcnt

		s.metrics.Attempt(s.chip, "write")
		if _, err := s.link.t.Send(frame, 0); err != nil {
			// The chip may have taken the write anyway.
			last = err
			s.ifcnt = -1
		} else {
			if err := s.readIFCNT(); err != nil {
				return err
			}
			if s.ifcnt == (snapshot+1)&0xff {
				return nil
			}
			last = errors.New(errors.ErrCommunication, "IFCNT did not advance").
				SetContext("before", snapshot).
				SetContext("after", s.ifcnt)
		}
		if attempt < MaxAttempts {
			s.metrics.Retry(s.chip, "write")
			s.logger.WithError(last).Debugf("retry write of %s=%08x (attempt %d)", name, val, attempt)
		}
	}
	s.metrics.Failure(s.chip, "write")
	s.logger.WithError(last).Warnf("write of %s failed after %d attempts", name, MaxAttempts)
	return errors.CommunicationError(s.chip, "write", name, MaxAttempts, last)
}

func (s *Session) readIFCNT() error {
	v, err := s.read("IFCNT", s.ifcntAddr)
	if err != nil {
		return err
	}
	s.ifcnt = int(v & 0xff)
	s.metrics.ObserveIFCNT(s.chip, uint8(s.ifcnt))
	return nil
}

package tmcuart

import (
	"fmt"
	"sync"
)

// fakeChip emulates the UART side of a TMC2208 on a shared wire.
type fakeChip struct {
	mu    sync.Mutex
	addr  uint8
	regs  map[uint8]uint32
	ifcnt uint8

	dropWrites   int // writes silently ignored
	corruptReads int // replies with a flipped bit
	sendErrs     int // Send calls failing outright
	lostAcks     int // writes applied but reported as failed
	silent       bool

	reads  int
	writes int
}

func newFakeChip(addr uint8) *fakeChip {
	return &fakeChip{addr: addr, regs: make(map[uint8]uint32)}
}

func (c *fakeChip) Send(frame []byte, readLen int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErrs > 0 {
		c.sendErrs--
		return nil, fmt.Errorf("fake: line busy")
	}
	raw, ok := RemoveSerialBits(frame, len(frame)*8/10)
	if !ok || len(raw) < 4 || raw[0] != HostSync || CRC8(raw[:len(raw)-1]) != raw[len(raw)-1] {
		return nil, nil
	}
	if raw[1] != c.addr || c.silent {
		return nil, nil
	}

	switch len(raw) {
	case 4:
		c.reads++
		reg := raw[2]
		val := c.regs[reg]
		if reg == DefaultIFCNTAddr {
			val = uint32(c.ifcnt)
		}
		reply := EncodeWrite(ReplySync, ReplyAddr, reg, val)
		if c.corruptReads > 0 {
			c.corruptReads--
			reply[5] ^= 0x10
		}
		return reply[:readLen], nil
	case 8:
		c.writes++
		if c.dropWrites > 0 {
			c.dropWrites--
			return nil, nil
		}
		reg := raw[2] &^ WriteFlag
		c.regs[reg] = uint32(raw[3])<<24 | uint32(raw[4])<<16 | uint32(raw[5])<<8 | uint32(raw[6])
		c.ifcnt++
		if c.lostAcks > 0 {
			c.lostAcks--
			return nil, fmt.Errorf("fake: echo timeout")
		}
	}
	return nil, nil
}

// bus routes frames to several chips sharing one wire.
type bus []*fakeChip

func (b bus) Send(frame []byte, readLen int) ([]byte, error) {
	var reply []byte
	for _, c := range b {
		if r, err := c.Send(frame, readLen); err != nil {
			return nil, err
		} else if r != nil {
			reply = r
		}
	}
	return reply, nil
}

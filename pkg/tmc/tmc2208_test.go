package tmc

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/log"
	"klipper-tmc/pkg/tmcuart"
)

// uartChip answers single-wire UART frames like a TMC22xx at one address.
type uartChip struct {
	addr   uint8
	regs   map[uint8]uint32
	ifcnt  uint8
	writes []string
}

func newUARTChip(addr uint8) *uartChip {
	return &uartChip{addr: addr, regs: make(map[uint8]uint32)}
}

func (c *uartChip) Send(frame []byte, readLen int) ([]byte, error) {
	raw, ok := tmcuart.RemoveSerialBits(frame, len(frame)*8/10)
	if !ok || len(raw) < 4 || raw[1] != c.addr {
		return nil, nil
	}
	switch len(raw) {
	case 4:
		val := c.regs[raw[2]]
		if raw[2] == tmcuart.DefaultIFCNTAddr {
			val = uint32(c.ifcnt)
		}
		return tmcuart.EncodeWrite(tmcuart.ReplySync, tmcuart.ReplyAddr, raw[2], val)[:readLen], nil
	case 8:
		reg := raw[2] &^ tmcuart.WriteFlag
		val := uint32(raw[3])<<24 | uint32(raw[4])<<16 | uint32(raw[5])<<8 | uint32(raw[6])
		c.regs[reg] = val
		c.ifcnt++
		c.writes = append(c.writes, fmt.Sprintf("%02x=%08x", reg, val))
	}
	return nil, nil
}

func quietSession() tmcuart.Option {
	l := log.New("test")
	l.SetWriter(&bytes.Buffer{})
	return tmcuart.WithLogger(l)
}

const uartConfig = `
[stepper_x]
rotation_distance: 40
microsteps: 16

[tmc2208 stepper_x]
uart_pin: PC11
microsteps: 16
run_current: 0.71
stealthchop_threshold: 50

[tmc2209 stepper_x]
uart_pin: PC11
uart_address: 2
microsteps: 16
run_current: 0.71
driver_SGTHRS: 100

[tmc2208 stepper_y]
uart_pin: PC12
uart_address: 4
microsteps: 16
run_current: 0.71
`

func TestTMC2208Connect(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	chip := newUARTChip(0)

	d, err := NewTMC2208(cfg, "tmc2208 stepper_x", tmcuart.NewLink(chip), quietSession())
	require.NoError(t, err)
	assert.Equal(t, "stepper_x", d.Name())
	assert.Equal(t, uint8(0), d.Session().Address())

	require.NoError(t, d.Connect())
	assert.Equal(t, []string{
		"00=000001c0", // GCONF
		"6c=14030053", // CHOPCONF
		"10=00081616", // IHOLD_IRUN
		"13=000000bc", // TPWMTHRS
		"11=00000014", // TPOWERDOWN
		"70=c80d0e24", // PWMCONF
	}, chip.writes)

	cur, ok := d.Session().IFCNT()
	require.True(t, ok)
	assert.Equal(t, uint8(6), cur)
}

func TestTMC2208ReadBack(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	chip := newUARTChip(0)
	chip.regs[0x06] = 0x20000140
	d, err := NewTMC2208(cfg, "tmc2208 stepper_x", tmcuart.NewLink(chip), quietSession())
	require.NoError(t, err)

	line, err := d.DumpRegister("IOIN")
	require.NoError(t, err)
	assert.Equal(t, "IOIN@TMC220x: 20000140 PDN_UART=1 SEL_A=1(TMC220x) VERSION=0x20", line)
}

func TestTMC2208BadAddress(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	_, err = NewTMC2208(cfg, "tmc2208 stepper_y", tmcuart.NewLink(newUARTChip(0)), quietSession())
	assert.Error(t, err)
}

func TestTMC2208DebugSession(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	chip := newUARTChip(0)
	d, err := NewTMC2208(cfg, "tmc2208 stepper_x", tmcuart.NewLink(chip), quietSession(), tmcuart.WithDebug(true))
	require.NoError(t, err)

	require.NoError(t, d.Connect())
	assert.Empty(t, chip.writes)
	v, err := d.GetRegister("DRV_STATUS")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
}

func TestTMC2209StallGuard(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	chip := newUARTChip(2)
	d, err := NewTMC2209(cfg, "tmc2209 stepper_x", tmcuart.NewLink(chip), quietSession())
	require.NoError(t, err)

	require.NoError(t, d.Connect())
	require.NotEmpty(t, chip.writes)
	assert.Equal(t, "40=00000064", chip.writes[len(chip.writes)-1])
	// No stealthchop threshold: spreadCycle is selected.
	assert.Equal(t, "00=000001c4", chip.writes[0])

	chip.regs[0x41] = 0x1234
	sg, err := d.StallResult()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x234), sg)

	require.NoError(t, d.SetStallThreshold(50))
	assert.Equal(t, uint32(50), chip.regs[0x40])

	line, err := d.DumpRegister("IOIN")
	require.NoError(t, err)
	assert.Equal(t, "IOIN:       00000000 VERSION=0x0", line)
}

func TestUARTDriversShareLink(t *testing.T) {
	cfg, err := config.LoadString(uartConfig)
	require.NoError(t, err)
	x, y := newUARTChip(0), newUARTChip(2)
	link := tmcuart.NewLink(chipBus{x, y})

	d0, err := NewTMC2208(cfg, "tmc2208 stepper_x", link, quietSession())
	require.NoError(t, err)
	d2, err := NewTMC2209(cfg, "tmc2209 stepper_x", link, quietSession())
	require.NoError(t, err)

	require.NoError(t, d0.Connect())
	require.NoError(t, d2.Connect())
	assert.Len(t, x.writes, 6)
	assert.Equal(t, uint32(100), y.regs[0x40])
}

// chipBus forwards frames to every chip on a shared wire.
type chipBus []*uartChip

func (b chipBus) Send(frame []byte, readLen int) ([]byte, error) {
	var reply []byte
	for _, c := range b {
		if r, _ := c.Send(frame, readLen); r != nil {
			reply = r
		}
	}
	return reply, nil
}

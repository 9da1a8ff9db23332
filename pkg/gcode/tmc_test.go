package gcode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/tmc"
)

// spiRegs answers TMC2130 transfers from a register map.
type spiRegs struct {
	regs    map[uint8]uint32
	pending uint8
}

func (s *spiRegs) Tx(w, r []byte) error {
	if r != nil {
		binary.BigEndian.PutUint32(r[1:], s.regs[s.pending])
	}
	addr := w[0] &^ 0x80
	if w[0]&0x80 != 0 {
		s.regs[addr] = binary.BigEndian.Uint32(w[1:])
	}
	s.pending = addr
	return nil
}

func (s *spiRegs) Transfer(b byte) (byte, error) {
	return 0, nil
}

func newTMCDispatcher(t *testing.T) (*Dispatcher, *spiRegs) {
	t.Helper()
	cfg, err := config.LoadString(`
[tmc2130 stepper_z]
cs_pin: PG0
microsteps: 16
run_current: 0.71
`)
	require.NoError(t, err)
	bus := &spiRegs{regs: make(map[uint8]uint32)}
	drv, err := tmc.NewTMC2130(cfg, "tmc2130 stepper_z", bus)
	require.NoError(t, err)
	require.NoError(t, drv.Connect())

	cmds := NewTMCCommands()
	cmds.Add(drv)
	d := NewDispatcher()
	require.NoError(t, cmds.Register(d))
	assert.Equal(t, []string{"stepper_z"}, cmds.Steppers())
	return d, bus
}

func TestDumpTMC(t *testing.T) {
	d, bus := newTMCDispatcher(t)
	bus.regs[0x04] = 0x11000000

	out, err := d.Run("DUMP_TMC STEPPER=stepper_z")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "========== Write-only registers ==========", out[0])
	assert.Contains(t, out, "IHOLD_IRUN: 00081616 IHOLD=22 IRUN=22 IHOLDDELAY=8")
	assert.Contains(t, out, "========== Queried registers ==========")
	assert.Contains(t, out, "IOIN:       11000000 VERSION=0x11")

	out, err = d.Run("DUMP_TMC STEPPER=stepper_z REGISTER=ioin")
	require.NoError(t, err)
	assert.Equal(t, []string{"IOIN:       11000000 VERSION=0x11"}, out)

	out, err = d.Run("DUMP_TMC STEPPER=stepper_z REGISTER=TPOWERDOWN")
	require.NoError(t, err)
	assert.Equal(t, []string{"TPOWERDOWN: 00000000"}, out)

	_, err = d.Run("DUMP_TMC STEPPER=stepper_z REGISTER=BOGUS")
	assert.ErrorContains(t, err, "Unknown register name 'BOGUS'")
	_, err = d.Run("DUMP_TMC STEPPER=stepper_q")
	assert.ErrorContains(t, err, "The value 'stepper_q' is not valid for STEPPER")
	_, err = d.Run("DUMP_TMC")
	assert.ErrorContains(t, err, "missing STEPPER")
}

func TestSetTMCField(t *testing.T) {
	d, bus := newTMCDispatcher(t)

	_, err := d.Run("SET_TMC_FIELD STEPPER=stepper_z FIELD=toff VALUE=6")
	require.NoError(t, err)
	assert.Equal(t, uint32(6), bus.regs[0x6c]&0x0f)

	_, err = d.Run("SET_TMC_FIELD STEPPER=stepper_z FIELD=nope VALUE=1")
	assert.ErrorContains(t, err, "Unknown field name 'nope'")
	_, err = d.Run("SET_TMC_FIELD STEPPER=stepper_z FIELD=toff")
	assert.ErrorContains(t, err, "missing VALUE")
	_, err = d.Run("SET_TMC_FIELD STEPPER=stepper_z FIELD=toff VALUE=-1")
	assert.Error(t, err)
}

func TestSetTMCCurrent(t *testing.T) {
	d, bus := newTMCDispatcher(t)

	out, err := d.Run("SET_TMC_CURRENT STEPPER=stepper_z")
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Current: 0.70A Hold Current: 0.70A"}, out)

	out, err = d.Run("SET_TMC_CURRENT STEPPER=stepper_z CURRENT=1.2 HOLDCURRENT=0.6")
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Current: 1.20A Hold Current: 0.60A"}, out)
	assert.Equal(t, uint32(0x150a), bus.regs[0x10]&0xffff)

	_, err = d.Run("SET_TMC_CURRENT STEPPER=stepper_z CURRENT=3")
	assert.ErrorContains(t, err, "CURRENT must have maximum of 2")
}

func TestSetTMCCurrentHoldFollowsRun(t *testing.T) {
	d, bus := newTMCDispatcher(t)

	out, err := d.Run("SET_TMC_CURRENT STEPPER=stepper_z CURRENT=0.3")
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Current: 0.31A Hold Current: 0.31A"}, out)
	ihold, irun := bus.regs[0x10]&0x1f, (bus.regs[0x10]>>8)&0x1f
	assert.Equal(t, irun, ihold)

	// The configured hold current comes back with a higher run current.
	out, err = d.Run("SET_TMC_CURRENT STEPPER=stepper_z CURRENT=1.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Run Current: 1.20A Hold Current: 0.71A"}, out)
}

func TestInitTMC(t *testing.T) {
	d, bus := newTMCDispatcher(t)
	bus.regs = make(map[uint8]uint32)

	_, err := d.Run("INIT_TMC STEPPER=stepper_z")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00081616), bus.regs[0x10])
}

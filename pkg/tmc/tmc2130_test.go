package tmc

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klipper-tmc/pkg/config"
)

// spiChip models the TMC2130 SPI interface: each transfer returns the
// register addressed by the previous one.
type spiChip struct {
	regs    map[uint8]uint32
	pending uint8
	tx      [][]byte
	writes  []string
	err     error
}

func newSPIChip() *spiChip {
	return &spiChip{regs: make(map[uint8]uint32)}
}

func (c *spiChip) Tx(w, r []byte) error {
	if c.err != nil {
		return c.err
	}
	c.tx = append(c.tx, append([]byte(nil), w...))
	if r != nil {
		r[0] = 0
		binary.BigEndian.PutUint32(r[1:], c.regs[c.pending])
	}
	addr := w[0] &^ 0x80
	if w[0]&0x80 != 0 {
		val := binary.BigEndian.Uint32(w[1:])
		c.regs[addr] = val
		c.writes = append(c.writes, fmt.Sprintf("%02x=%08x", addr, val))
	}
	c.pending = addr
	return nil
}

func (c *spiChip) Transfer(b byte) (byte, error) {
	return 0, nil
}

const spiConfig = `
[stepper_z]
rotation_distance: 40
microsteps: 16

[tmc2130 stepper_z]
cs_pin: PG0
diag1_pin: ^!PG6
microsteps: 16
run_current: 0.71
stealthchop_threshold: 50
driver_SGT: -5

[tmc2130 stepper_e]
cs_pin: PG1
microsteps: 16
run_current: 0.71
driver_SGT: 64
`

func TestTMC2130Connect(t *testing.T) {
	cfg, err := config.LoadString(spiConfig)
	require.NoError(t, err)
	chip := newSPIChip()

	d, err := NewTMC2130(cfg, "tmc2130 stepper_z", chip)
	require.NoError(t, err)
	require.NotNil(t, d.DiagPin())
	assert.Equal(t, "PG6", d.DiagPin().FullName())

	require.NoError(t, d.Connect())
	assert.Equal(t, []string{
		"6c=14028384", // CHOPCONF
		"10=00081616", // IHOLD_IRUN
		"00=00000004", // GCONF
		"13=000000ce", // TPWMTHRS
		"11=00000000", // TPOWERDOWN
		"70=00050480", // PWMCONF
		"6d=007b0000", // COOLCONF
	}, chip.writes)

	sgt, err := d.GetField("sgt")
	require.NoError(t, err)
	assert.Equal(t, int32(-5), DecodeSigned(sgt, 7))
}

func TestTMC2130Read(t *testing.T) {
	cfg, err := config.LoadString(spiConfig)
	require.NoError(t, err)
	chip := newSPIChip()
	chip.regs[0x6f] = 0x82000123
	d, err := NewTMC2130(cfg, "tmc2130 stepper_z", chip)
	require.NoError(t, err)

	v, err := d.GetRegister("DRV_STATUS")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x82000123), v)
	assert.Equal(t, [][]byte{{0x6f, 0, 0, 0, 0}, {0x6f, 0, 0, 0, 0}}, chip.tx)

	st, err := d.Status()
	require.NoError(t, err)
	assert.True(t, st.OverTemp)
	assert.True(t, st.StandStill)

	chip.err = fmt.Errorf("spi fault")
	_, err = d.GetRegister("GCONF")
	assert.ErrorIs(t, err, chip.err)
	assert.Error(t, d.SetRegister("GCONF", 0))
}

func TestTMC2130SGTRange(t *testing.T) {
	cfg, err := config.LoadString(spiConfig)
	require.NoError(t, err)
	_, err = NewTMC2130(cfg, "tmc2130 stepper_e", newSPIChip())
	assert.Error(t, err)

	_, err = NewTMC2130(cfg, "tmc2130 missing", newSPIChip())
	assert.Error(t, err)
}

package tmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klipper-tmc/pkg/config"
)

type pinReader struct {
	level bool
	pins  []config.Pin
}

func (p *pinReader) QueryPin(pin config.Pin) (bool, error) {
	p.pins = append(p.pins, pin)
	return p.level, nil
}

func TestVirtualEndstop(t *testing.T) {
	cfg, err := config.LoadString(spiConfig)
	require.NoError(t, err)
	chip := newSPIChip()
	d, err := NewTMC2130(cfg, "tmc2130 stepper_z", chip)
	require.NoError(t, err)

	var es Endstop
	ve, err := d.VirtualEndstop()
	require.NoError(t, err)
	es = ve
	assert.Equal(t, "PG6", ve.Pin().FullName())
	assert.True(t, ve.Pin().Invert)

	require.NoError(t, es.HomePrepare())
	assert.Equal(t, []string{"00=00000100", "14=000fffff"}, chip.writes)

	chip.writes = nil
	require.NoError(t, es.HomeFinalize())
	assert.Equal(t, []string{"00=00000004", "14=00000000"}, chip.writes)

	_, err = es.QueryEndstop()
	assert.Error(t, err)

	r := &pinReader{level: true}
	ve.SetQuerier(r)
	hit, err := es.QueryEndstop()
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, r.pins, 1)
	assert.Equal(t, "PG6", r.pins[0].Name)
}

func TestVirtualEndstopNeedsDiagPin(t *testing.T) {
	cfg, err := config.LoadString(`
[tmc2130 stepper_z]
cs_pin: PG0
microsteps: 16
run_current: 0.71
`)
	require.NoError(t, err)
	d, err := NewTMC2130(cfg, "tmc2130 stepper_z", newSPIChip())
	require.NoError(t, err)

	_, err = d.VirtualEndstop()
	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "diag1_pin", cerr.Option)
}

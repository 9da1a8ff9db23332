package main

import (
	"fmt"
	"sort"

	"tinygo.org/x/drivers"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/log"
	"klipper-tmc/pkg/tmc"
	"klipper-tmc/pkg/tmcuart"
)

// stepperDriver is the part of the driver API the console uses. It is
// satisfied by every chip facade through the embedded *tmc.Driver.
type stepperDriver interface {
	Name() string
	Fields() *tmc.FieldHelper
	Connect() error
	Dump() ([]string, error)
	DumpRegister(name string) (string, error)
	GetField(field string) (uint32, error)
	SetFieldLive(field string, value uint32) error
	GetMicrosteps() (int, error)
	GetPhase() (int, error)
	GetCurrent() (run, hold float64, err error)
	RequestedHoldCurrent() float64
	SetCurrent(run, hold float64) (tmc.CurrentSetting, error)
	Status() (tmc.DriverStatus, error)
}

// stallReader is implemented by drivers with StallGuard (TMC2209).
type stallReader interface {
	StallResult() (uint32, error)
	SetStallThreshold(threshold uint32) error
}

// driverModule is the config module built for one driver section.
type driverModule struct {
	section string
	chip    string
	drv     stepperDriver
}

func (m *driverModule) Name() string {
	return m.section
}

// traceSPI stands in for an SPI sender on hosts without one. Every
// transaction is logged and reads return zero.
type traceSPI struct {
	logger *log.Logger
}

func (s traceSPI) Tx(w, r []byte) error {
	s.logger.Debug("spi tx % x", w)
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (s traceSPI) Transfer(b byte) (byte, error) {
	s.logger.Debug("spi transfer %02x", b)
	return 0, nil
}

var _ drivers.SPI = traceSPI{}

// newDriverRegistry registers a factory per supported chip. UART chips
// share link, SPI chips use bus.
func newDriverRegistry(link *tmcuart.Link, bus drivers.SPI, opts ...tmcuart.Option) *config.Registry {
	r := config.NewRegistry()
	r.Register("tmc2130 ", func(cfg *config.Config, sec *config.Section) (config.Module, error) {
		d, err := tmc.NewTMC2130(cfg, sec.GetName(), bus)
		if err != nil {
			return nil, err
		}
		return &driverModule{section: sec.GetName(), chip: "tmc2130", drv: d}, nil
	})
	r.Register("tmc2208 ", func(cfg *config.Config, sec *config.Section) (config.Module, error) {
		d, err := tmc.NewTMC2208(cfg, sec.GetName(), link, opts...)
		if err != nil {
			return nil, err
		}
		return &driverModule{section: sec.GetName(), chip: "tmc2208", drv: d}, nil
	})
	r.Register("tmc2209 ", func(cfg *config.Config, sec *config.Section) (config.Module, error) {
		d, err := tmc.NewTMC2209(cfg, sec.GetName(), link, opts...)
		if err != nil {
			return nil, err
		}
		return &driverModule{section: sec.GetName(), chip: "tmc2209", drv: d}, nil
	})
	return r
}

// loadDrivers builds every driver section of cfg and indexes the drivers
// by stepper name.
func loadDrivers(cfg *config.Config, r *config.Registry) (map[string]*driverModule, error) {
	modules, err := r.LoadModules(cfg)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*driverModule, len(modules))
	for _, m := range modules {
		dm, ok := m.(*driverModule)
		if !ok {
			continue
		}
		name := dm.drv.Name()
		if other, dup := out[name]; dup {
			return nil, fmt.Errorf("stepper %s has two drivers: [%s] and [%s]", name, other.section, dm.section)
		}
		out[name] = dm
	}
	return out, nil
}

func sortedNames(m map[string]*driverModule) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

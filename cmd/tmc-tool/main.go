// tmc-tool configures and inspects Trinamic stepper drivers.
// It reads the driver sections of a Klipper style config, sends the
// configured registers over the single-wire UART and offers a console
// for reading and changing registers.
//
// Usage:
//
//	tmc-tool -config ~/printer.cfg -device /dev/ttyUSB0 [options] [command args...]
//
// Options:
//
//	-config string        Printer configuration file
//	-yaml string          YAML configuration file (instead of -config)
//	-device string        Serial device of the TMC UART line
//	-baud int             Baud rate (default 115200)
//	-debug                Do not talk to the drivers, reads return 0
//	-interactive          Start the command console
//	-metrics              Print UART statistics on exit
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-loglevel string      DEBUG, INFO, WARN or ERROR
//	-logfile string       Also write the log to this file (rotated at 1 MB)
//
// Examples:
//
//	# Configure every driver and dump their registers
//	tmc-tool -config ~/printer.cfg -device /dev/ttyAMA0
//
//	# Show the phase of one stepper
//	tmc-tool -config ~/printer.cfg -device /dev/ttyAMA0 phase stepper_x
//
//	# Console with metrics exported for Prometheus
//	tmc-tool -config ~/printer.cfg -device /dev/ttyAMA0 -interactive -metrics-addr :9100
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"klipper-tmc/pkg/config"
	"klipper-tmc/pkg/log"
	"klipper-tmc/pkg/metrics"
	"klipper-tmc/pkg/serial"
	"klipper-tmc/pkg/tmcuart"
)

func main() {
	configFile := flag.String("config", "", "Printer configuration file")
	yamlFile := flag.String("yaml", "", "YAML configuration file (instead of -config)")
	device := flag.String("device", "", "Serial device of the TMC UART line")
	baud := flag.Int("baud", 115200, "Baud rate")
	debug := flag.Bool("debug", false, "Do not talk to the drivers, reads return 0")
	interactive := flag.Bool("interactive", false, "Start the command console")
	showMetrics := flag.Bool("metrics", false, "Print UART statistics on exit")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	logLevel := flag.String("loglevel", "", "DEBUG, INFO, WARN or ERROR")
	logFile := flag.String("logfile", "", "Also write the log to this file")
	flag.Parse()

	logger := log.New("tmc-tool")
	log.ConfigureFromEnv(logger)
	if *logLevel != "" {
		logger.SetLevel(log.ParseLevel(*logLevel))
	}
	if *logFile != "" {
		w, err := log.TeeToFile(logger, os.Stderr, log.RotationConfig{Filename: *logFile})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
	}
	log.SetDefaultLogger(logger)

	if err := run(logger, options{
		configFile:  *configFile,
		yamlFile:    *yamlFile,
		device:      *device,
		baud:        *baud,
		debug:       *debug,
		interactive: *interactive,
		showMetrics: *showMetrics,
		metricsAddr: *metricsAddr,
		args:        flag.Args(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configFile  string
	yamlFile    string
	device      string
	baud        int
	debug       bool
	interactive bool
	showMetrics bool
	metricsAddr string
	args        []string
}

func loadConfig(opts options) (*config.Config, error) {
	switch {
	case opts.yamlFile != "" && opts.configFile != "":
		return nil, fmt.Errorf("-config and -yaml are mutually exclusive")
	case opts.yamlFile != "":
		return config.LoadYAML(opts.yamlFile)
	case opts.configFile != "":
		return config.Load(opts.configFile)
	}
	return nil, fmt.Errorf("-config or -yaml is required")
}

func run(logger *log.Logger, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	uartMetrics := metrics.NewUARTMetrics()
	sessionOpts := []tmcuart.Option{tmcuart.WithMetrics(uartMetrics), tmcuart.WithDebug(opts.debug)}

	var transport tmcuart.Transport
	if !opts.debug {
		if opts.device == "" {
			return fmt.Errorf("-device is required unless -debug is set")
		}
		sc := serial.DefaultConfig()
		sc.Device = opts.device
		sc.BaudRate = opts.baud
		port, err := serial.Open(sc)
		if err != nil {
			return err
		}
		defer port.Close()
		logger.Info("opened %s at %d baud", port.Device(), opts.baud)
		transport = tmcuart.NewSerialTransport(port)
	}
	link := tmcuart.NewLink(transport)
	bus := traceSPI{logger: log.GetLogger("spi")}

	drivers, err := loadDrivers(cfg, newDriverRegistry(link, bus, sessionOpts...))
	if err != nil {
		return err
	}
	if len(drivers) == 0 {
		return fmt.Errorf("no tmc2130, tmc2208 or tmc2209 sections in config")
	}
	for _, name := range sortedNames(drivers) {
		m := drivers[name]
		if err := m.drv.Connect(); err != nil {
			return fmt.Errorf("%s: %w", m.section, err)
		}
		logger.WithField("chip", m.chip).Infof("configured %s", name)
	}

	if opts.metricsAddr != "" {
		srv := metrics.NewServer(uartMetrics.Registry(), opts.metricsAddr)
		go func() {
			if err := srv.Start(); err != nil {
				logger.WithError(err).Errorf("metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics on %s", srv.Address())
	}

	con := newConsole(drivers, uartMetrics, os.Stdout)
	switch {
	case opts.interactive:
		err = con.run()
	case len(opts.args) > 0:
		_, err = con.do(strings.Join(opts.args, " "))
	default:
		for _, name := range sortedNames(drivers) {
			if _, err = con.do("dump " + name); err != nil {
				break
			}
		}
	}
	if opts.showMetrics {
		con.cmdMetrics()
	}
	return err
}

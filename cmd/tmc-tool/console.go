package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"klipper-tmc/pkg/gcode"
	"klipper-tmc/pkg/metrics"
)

// console runs driver commands against the loaded drivers.
type console struct {
	drivers  map[string]*driverModule
	metrics  *metrics.UARTMetrics
	extended *gcode.Dispatcher
	out      io.Writer
}

func newConsole(drivers map[string]*driverModule, m *metrics.UARTMetrics, out io.Writer) *console {
	tmcCmds := gcode.NewTMCCommands()
	for _, name := range sortedNames(drivers) {
		tmcCmds.Add(drivers[name].drv)
	}
	extended := gcode.NewDispatcher()
	// Only fails on duplicate names, and the dispatcher is fresh.
	_ = tmcCmds.Register(extended)
	return &console{drivers: drivers, metrics: m, extended: extended, out: out}
}

// run starts the interactive prompt and returns on EOF or "quit".
func (c *console) run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tmc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    c.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.printHelp()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if quit := c.exec(line); quit {
			return nil
		}
	}
}

func (c *console) completer() *readline.PrefixCompleter {
	var steppers []readline.PrefixCompleterInterface
	for _, name := range sortedNames(c.drivers) {
		steppers = append(steppers, readline.PcItem(name))
	}
	item := func(cmd string) readline.PrefixCompleterInterface {
		return readline.PcItem(cmd, steppers...)
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		item("dump"),
		item("get"),
		item("set"),
		item("phase"),
		item("microsteps"),
		item("current"),
		item("status"),
		item("stallguard"),
		readline.PcItem("metrics"),
		readline.PcItem("quit"),
		readline.PcItem("DUMP_TMC"),
		readline.PcItem("SET_TMC_FIELD"),
		readline.PcItem("SET_TMC_CURRENT"),
		readline.PcItem("INIT_TMC"),
	)
}

// exec runs one command line, printing any error, and reports whether the
// console should exit.
func (c *console) exec(line string) bool {
	quit, err := c.do(line)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return quit
}

func (c *console) do(line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	if c.extended.Has(parts[0]) {
		lines, err := c.extended.Run(line)
		for _, l := range lines {
			fmt.Fprintln(c.out, l)
		}
		return false, err
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "dump":
		err = c.cmdDump(args)
	case "get":
		err = c.cmdGet(args)
	case "set":
		err = c.cmdSet(args)
	case "phase":
		err = c.cmdPhase(args)
	case "microsteps":
		err = c.cmdMicrosteps(args)
	case "current":
		err = c.cmdCurrent(args)
	case "status":
		err = c.cmdStatus(args)
	case "stallguard", "sg":
		err = c.cmdStallGuard(args)
	case "metrics":
		c.cmdMetrics()
	case "quit", "exit", "q":
		return true, nil
	default:
		err = fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	return false, err
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `
TMC driver commands:
  list                            - List configured drivers
  dump <stepper> [register]       - Show driver registers
  get <stepper> <field>           - Show a cached field value
  set <stepper> <field> <value>   - Set a field and write its register
  phase <stepper>                 - Show the microstep phase
  microsteps <stepper>            - Show the microstep setting
  current <stepper> [run [hold]]  - Show or set the motor current
  status <stepper>                - Decode DRV_STATUS
  stallguard <stepper> [thrs]     - Show StallGuard load or set SGTHRS (tmc2209)
  metrics                         - Show UART link statistics
  quit                            - Exit

Extended commands (KEY=VALUE arguments):
  DUMP_TMC STEPPER= [REGISTER=]
  SET_TMC_FIELD STEPPER= FIELD= VALUE=
  SET_TMC_CURRENT STEPPER= [CURRENT=] [HOLDCURRENT=]
  INIT_TMC STEPPER=`)
}

func (c *console) driver(args []string, min int, usage string) (*driverModule, error) {
	if len(args) < min {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	m, ok := c.drivers[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown stepper %q", args[0])
	}
	return m, nil
}

func (c *console) cmdList() {
	for _, name := range sortedNames(c.drivers) {
		m := c.drivers[name]
		fmt.Fprintf(c.out, "  %-16s %s [%s]\n", name, m.chip, m.section)
	}
}

func (c *console) cmdDump(args []string) error {
	m, err := c.driver(args, 1, "dump <stepper> [register]")
	if err != nil {
		return err
	}
	if len(args) > 1 {
		line, err := m.drv.DumpRegister(strings.ToUpper(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, line)
		return nil
	}
	lines, err := m.drv.Dump()
	for _, line := range lines {
		fmt.Fprintln(c.out, line)
	}
	return err
}

func (c *console) cmdGet(args []string) error {
	m, err := c.driver(args, 2, "get <stepper> <field>")
	if err != nil {
		return err
	}
	v, err := m.drv.GetField(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s=%d\n", args[1], v)
	return nil
}

func (c *console) cmdSet(args []string) error {
	m, err := c.driver(args, 3, "set <stepper> <field> <value>")
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[2], err)
	}
	return m.drv.SetFieldLive(args[1], uint32(v))
}

func (c *console) cmdPhase(args []string) error {
	m, err := c.driver(args, 1, "phase <stepper>")
	if err != nil {
		return err
	}
	phase, err := m.drv.GetPhase()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "phase=%d\n", phase)
	return nil
}

func (c *console) cmdMicrosteps(args []string) error {
	m, err := c.driver(args, 1, "microsteps <stepper>")
	if err != nil {
		return err
	}
	ms, err := m.drv.GetMicrosteps()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "microsteps=%d\n", ms)
	return nil
}

func (c *console) cmdCurrent(args []string) error {
	m, err := c.driver(args, 1, "current <stepper> [run [hold]]")
	if err != nil {
		return err
	}
	if len(args) > 1 {
		run, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid run current %q", args[1])
		}
		hold := m.drv.RequestedHoldCurrent()
		if len(args) > 2 {
			if hold, err = strconv.ParseFloat(args[2], 64); err != nil {
				return fmt.Errorf("invalid hold current %q", args[2])
			}
		}
		if _, err := m.drv.SetCurrent(run, hold); err != nil {
			return err
		}
	}
	run, hold, err := m.drv.GetCurrent()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "run_current=%.3f hold_current=%.3f\n", run, hold)
	return nil
}

func (c *console) cmdStatus(args []string) error {
	m, err := c.driver(args, 1, "status <stepper>")
	if err != nil {
		return err
	}
	st, err := m.drv.Status()
	if err != nil {
		return err
	}
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{st.OverTemp, "overtemp"},
		{st.OverTempPreWarn, "overtemp_warning"},
		{st.ShortToGndA, "short_a"},
		{st.ShortToGndB, "short_b"},
		{st.OpenLoadA, "open_load_a"},
		{st.OpenLoadB, "open_load_b"},
		{st.StandStill, "standstill"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	state := "ok"
	if st.DriverError() {
		state = "error"
	}
	fmt.Fprintf(c.out, "DRV_STATUS=%08x cs_actual=%d state=%s %s\n",
		st.Raw, st.CurrentScale, state, strings.Join(flags, " "))
	return nil
}

func (c *console) cmdStallGuard(args []string) error {
	m, err := c.driver(args, 1, "stallguard <stepper> [threshold]")
	if err != nil {
		return err
	}
	sg, ok := m.drv.(stallReader)
	if !ok {
		return fmt.Errorf("%s has no StallGuard register", m.chip)
	}
	if len(args) > 1 {
		thrs, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", args[1], err)
		}
		return sg.SetStallThreshold(uint32(thrs))
	}
	v, err := sg.StallResult()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "SG_RESULT=%d\n", v)
	return nil
}

func (c *console) cmdMetrics() {
	if c.metrics == nil {
		fmt.Fprintln(c.out, "no UART link")
		return
	}
	fmt.Fprint(c.out, c.metrics.Gather())
}

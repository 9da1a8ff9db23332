package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const driverConfig = `
# test printer
[stepper_x]
step_pin: PF0
rotation_distance: 40
microsteps: 16

[tmc2208 stepper_x]
uart_pin: PC11
run_current = 0.580   # amps
stealthchop_threshold: 999999
driver_TBL: 1
`

func TestLoadString(t *testing.T) {
	cfg, err := LoadString(driverConfig)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	if !cfg.HasSection("tmc2208 stepper_x") {
		t.Error("expected [tmc2208 stepper_x] section to exist")
	}
	if cfg.HasSection("nonexistent") {
		t.Error("expected [nonexistent] section to not exist")
	}
	names := cfg.GetSectionNames()
	if len(names) != 2 || names[0] != "stepper_x" {
		t.Errorf("unexpected section order %v", names)
	}

	sec, err := cfg.GetSection("tmc2208 stepper_x")
	if err != nil {
		t.Fatalf("GetSection failed: %v", err)
	}
	cur, err := sec.GetFloat("run_current")
	if err != nil {
		t.Fatalf("GetFloat(run_current) failed: %v", err)
	}
	if cur != 0.580 {
		t.Errorf("expected 0.580, got %f", cur)
	}

	// Option names are case-insensitive.
	tbl, err := sec.GetInt("DRIVER_tbl")
	if err != nil {
		t.Fatalf("GetInt(driver_TBL) failed: %v", err)
	}
	if tbl != 1 {
		t.Errorf("expected 1, got %d", tbl)
	}
}

func TestSaveConfigLines(t *testing.T) {
	cfg, err := LoadString(`
[tmc2209 stepper_y]
run_current: 0.8
#*# [tmc2209 stepper_y]
#*# driver_sgthrs = 120
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec, _ := cfg.GetSection("tmc2209 stepper_y")
	v, err := sec.GetInt("driver_SGTHRS")
	if err != nil || v != 120 {
		t.Errorf("expected 120, got %d (%v)", v, err)
	}
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("printer.cfg", "[include drivers/*.cfg]\n[stepper_x]\nmicrosteps: 16\n")
	if err := os.Mkdir(filepath.Join(dir, "drivers"), 0o755); err != nil {
		t.Fatal(err)
	}
	write("drivers/x.cfg", "[tmc2130 stepper_x]\nrun_current: 0.5\n")

	cfg, err := Load(filepath.Join(dir, "printer.cfg"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.HasSection("tmc2130 stepper_x") || !cfg.HasSection("stepper_x") {
		t.Errorf("missing sections: %v", cfg.GetSectionNames())
	}

	write("loop.cfg", "[include loop.cfg]\n")
	if _, err := Load(filepath.Join(dir, "loop.cfg")); err == nil {
		t.Error("expected recursive include error")
	}

	if _, err := LoadString("[include other.cfg]\n"); err == nil {
		t.Error("expected include error for string config")
	}
}

func TestSectionGet(t *testing.T) {
	cfg, err := LoadString(`
[test]
string_val: hello
int_val: 42
bool_true: true
bool_false: no
bool_bad: maybe
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec, _ := cfg.GetSection("test")

	if v, _ := sec.Get("missing", "default"); v != "default" {
		t.Errorf("expected 'default', got '%s'", v)
	}
	if i, _ := sec.GetInt("missing", 99); i != 99 {
		t.Errorf("expected 99, got %d", i)
	}
	if _, err := sec.GetInt("string_val"); err == nil {
		t.Error("expected error parsing string as int")
	}
	if b, _ := sec.GetBool("bool_true"); !b {
		t.Error("expected true")
	}
	if b, _ := sec.GetBool("bool_false", true); b {
		t.Error("expected false")
	}
	if _, err := sec.GetBool("bool_bad"); err == nil {
		t.Error("expected error for invalid boolean")
	}
}

func TestAccessTracking(t *testing.T) {
	cfg, err := LoadString(driverConfig)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec, _ := cfg.GetSection("tmc2208 stepper_x")
	sec.Get("uart_pin")
	sec.GetFloat("run_current")
	sec.GetFloat("hold_current", 0.5)

	unused := sec.GetUnusedOptions()
	want := []string{"driver_tbl", "stealthchop_threshold"}
	if strings.Join(unused, ",") != strings.Join(want, ",") {
		t.Errorf("unused options: got %v, want %v", unused, want)
	}
	if err := cfg.CheckUnusedOptions(); err == nil {
		t.Error("expected unused option error")
	}

	if unused := cfg.GetUnusedSections(); len(unused) != 1 || unused[0] != "stepper_x" {
		t.Errorf("unused sections: %v", unused)
	}
}

func TestGetPrefixSections(t *testing.T) {
	cfg, err := LoadString(`
[tmc2208 stepper_x]
[stepper_x]
[tmc2208 stepper_y]
[tmc2130 stepper_z]
`)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	secs := cfg.GetPrefixSections("tmc2208 ")
	if len(secs) != 2 {
		t.Fatalf("expected 2 tmc2208 sections, got %d", len(secs))
	}
	if secs[1].GetName() != "tmc2208 stepper_y" {
		t.Errorf("unexpected order: %s", secs[1].GetName())
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		desc     string
		opts     PinOptions
		wantName string
		wantChip string
		wantInv  bool
		wantPull int
		wantErr  bool
	}{
		{desc: "PA5", wantName: "PA5", wantChip: "mcu"},
		{desc: "!PA5", opts: PinOptions{CanInvert: true}, wantName: "PA5", wantChip: "mcu", wantInv: true},
		{desc: "^PA5", opts: PinOptions{CanPullup: true}, wantName: "PA5", wantChip: "mcu", wantPull: 1},
		{desc: "~PA5", opts: PinOptions{CanPullup: true}, wantName: "PA5", wantChip: "mcu", wantPull: -1},
		{desc: "^!PA5", opts: PinOptions{CanInvert: true, CanPullup: true},
			wantName: "PA5", wantChip: "mcu", wantInv: true, wantPull: 1},
		{desc: "ebb:PB7", wantName: "PB7", wantChip: "ebb"},
		{desc: "!PA5", wantErr: true},
		{desc: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			pin, err := ParsePin(tt.desc, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pin.Name != tt.wantName || pin.Chip != tt.wantChip {
				t.Errorf("got %s:%s, want %s:%s", pin.Chip, pin.Name, tt.wantChip, tt.wantName)
			}
			if pin.Invert != tt.wantInv {
				t.Errorf("invert: got %v, want %v", pin.Invert, tt.wantInv)
			}
			if pin.Pullup != tt.wantPull {
				t.Errorf("pullup: got %v, want %v", pin.Pullup, tt.wantPull)
			}
		})
	}
}

func TestGetPinOptional(t *testing.T) {
	cfg, _ := LoadString("[tmc2130 stepper_x]\ndiag1_pin: ^!PG6\n")
	sec, _ := cfg.GetSection("tmc2130 stepper_x")

	pin, err := sec.GetPinOptional("diag1_pin", PinOptions{CanInvert: true, CanPullup: true})
	if err != nil || pin == nil {
		t.Fatalf("GetPinOptional failed: %v", err)
	}
	if pin.FullName() != "PG6" || !pin.Invert || pin.Pullup != 1 {
		t.Errorf("unexpected pin %+v", *pin)
	}
	if pin, _ := sec.GetPinOptional("missing_pin", PinOptions{}); pin != nil {
		t.Error("expected nil for absent pin")
	}
}

func TestGetChoice(t *testing.T) {
	cfg, _ := LoadString("[test]\nmicrosteps: 16\n")
	sec, _ := cfg.GetSection("test")

	choices := []string{"256", "128", "64", "32", "16", "8", "4", "2", "1"}
	ms, err := sec.GetChoice("microsteps", choices)
	if err != nil {
		t.Fatalf("GetChoice failed: %v", err)
	}
	if ms != "16" {
		t.Errorf("expected '16', got '%s'", ms)
	}
	if _, err := sec.GetChoice("microsteps", []string{"256"}); err == nil {
		t.Error("expected error for invalid choice")
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, _ := LoadString("[test]\nvalue: 50\naddr: 4\n")
	sec, _ := cfg.GetSection("test")

	lo, hi := 0.0, 100.0
	v, err := sec.GetFloatWithBounds("value", FloatBounds{MinVal: &lo, MaxVal: &hi})
	if err != nil {
		t.Fatalf("GetFloatWithBounds failed: %v", err)
	}
	if v != 50.0 {
		t.Errorf("expected 50.0, got %f", v)
	}

	lo = 60.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{MinVal: &lo}); err == nil {
		t.Error("expected error for value below minimum")
	}
	hi = 40.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{MaxVal: &hi}); err == nil {
		t.Error("expected error for value above maximum")
	}
	above := 50.0
	if _, err := sec.GetFloatWithBounds("value", FloatBounds{Above: &above}); err == nil {
		t.Error("expected error for value not above threshold")
	}

	imin, imax := 0, 3
	if _, err := sec.GetIntWithBounds("addr", &imin, &imax); err == nil {
		t.Error("expected error for uart address above 3")
	}
	if v, err := sec.GetIntWithBounds("missing", &imin, &imax, 0); err != nil || v != 0 {
		t.Errorf("fallback: got %d (%v)", v, err)
	}
}

func TestMissingOptionError(t *testing.T) {
	cfg, _ := LoadString("[test]\nexists: value\n")
	sec, _ := cfg.GetSection("test")

	_, err := sec.Get("missing")
	configErr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if configErr.Section != "test" || configErr.Option != "missing" {
		t.Errorf("unexpected error context %+v", configErr)
	}

	if _, err := cfg.GetSection("absent"); err == nil {
		t.Error("expected missing section error")
	}
}

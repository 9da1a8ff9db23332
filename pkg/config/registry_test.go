package config

import (
	"errors"
	"testing"
)

type testModule struct {
	name string
}

func (m *testModule) Name() string {
	return m.name
}

func nameFactory(cfg *Config, sec *Section) (Module, error) {
	return &testModule{name: sec.GetName()}, nil
}

func TestRegistryPrefixMatch(t *testing.T) {
	r := NewRegistry()
	r.Register("tmc2208 ", nameFactory)
	r.Register("tmc2209 ", nameFactory)

	tests := []struct {
		name    string
		matches bool
	}{
		{"tmc2208 stepper_x", true},
		{"tmc2209 extruder", true},
		{"tmc2208", false},
		{"tmc2130 stepper_z", false},
		{"stepper_x", false},
	}
	for _, tt := range tests {
		if got := r.GetFactory(tt.name) != nil; got != tt.matches {
			t.Errorf("GetFactory(%q): got match %v, want %v", tt.name, got, tt.matches)
		}
	}
}

func TestRegistryLongestPrefixWins(t *testing.T) {
	r := NewRegistry()
	r.Register("tmc", func(cfg *Config, sec *Section) (Module, error) {
		return &testModule{name: "generic"}, nil
	})
	r.Register("tmc2130 ", nameFactory)

	m, err := r.GetFactory("tmc2130 stepper_x")(nil, newSection("tmc2130 stepper_x", nil))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "tmc2130 stepper_x" {
		t.Errorf("expected the tmc2130 factory, got %q", m.Name())
	}
	if got := r.Prefixes(); len(got) != 2 || got[0] != "tmc" {
		t.Errorf("unexpected prefixes %v", got)
	}
}

func TestRegistryLoadModules(t *testing.T) {
	cfg, err := LoadString(`
[stepper_x]
[tmc2208 stepper_x]
[stepper_y]
[tmc2208 stepper_y]
`)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	r.Register("tmc2208 ", nameFactory)

	modules, err := r.LoadModules(cfg)
	if err != nil {
		t.Fatalf("LoadModules failed: %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(modules))
	}
	if modules[0].Name() != "tmc2208 stepper_x" || modules[1].Name() != "tmc2208 stepper_y" {
		t.Errorf("unexpected module order %s, %s", modules[0].Name(), modules[1].Name())
	}
}

func TestRegistryLoadError(t *testing.T) {
	cfg, _ := LoadString("[tmc2208 stepper_x]\n")
	r := NewRegistry()
	boom := errors.New("boom")
	r.Register("tmc2208 ", func(cfg *Config, sec *Section) (Module, error) {
		return nil, boom
	})
	if _, err := r.LoadModules(cfg); !errors.Is(err, boom) {
		t.Errorf("expected wrapped factory error, got %v", err)
	}
}

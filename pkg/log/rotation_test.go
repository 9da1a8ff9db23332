// Log rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uart.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path, MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()

	line := []byte(strings.Repeat("x", 600) + "\n")
	for i := 0; i < 4; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		info, err := os.Stat(name)
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if info.Size() != int64(len(line)) {
			t.Errorf("%s: size %d, want %d", name, info.Size(), len(line))
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected at most 2 backups, got %s.3", path)
	}
}

func TestRotatingFileWriterRequiresName(t *testing.T) {
	if _, err := NewRotatingFileWriter(RotationConfig{}); err == nil {
		t.Error("expected error for empty filename")
	}
}

func TestTeeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tmc.log")
	var console bytes.Buffer
	logger := New("tmc2209 stepper_x")
	w, err := TeeToFile(logger, &console, RotationConfig{Filename: path})
	if err != nil {
		t.Fatalf("TeeToFile: %v", err)
	}
	logger.Info("IFCNT advanced")
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "IFCNT advanced") {
		t.Errorf("file missing message: %q", data)
	}
	if !strings.Contains(console.String(), "IFCNT advanced") {
		t.Errorf("console missing message: %q", console.String())
	}
}

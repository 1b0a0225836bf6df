package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/san-kum/drawdown/internal/drawdown"
	"github.com/spf13/cobra"
)

func scenarioCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset = "", ""
	cmd := &cobra.Command{Use: "test"}
	addScenarioFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestLoadScenarioDefaultsToPreset(t *testing.T) {
	cfg, err := loadScenario(scenarioCmd(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != defaultPreset {
		t.Errorf("expected %s, got %s", defaultPreset, cfg.Name)
	}
	// flag defaults must not leak into the preset
	if cfg.Outlet.Multiplicity != 2 || cfg.Steps != 1100 {
		t.Errorf("unchanged flags overrode preset: %+v", cfg.Outlet)
	}
}

func TestLoadScenarioOverrides(t *testing.T) {
	cfg, err := loadScenario(scenarioCmd(t, "--preset", "itemised-losses", "--k", "4.5", "--steps", "50", "--policy", "unclamped"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Outlet.LossCoefficient != 4.5 || cfg.Outlet.Losses != nil {
		t.Errorf("--k should replace the loss budget: %+v", cfg.Outlet)
	}
	if cfg.Steps != 50 || cfg.Policy != "unclamped" {
		t.Errorf("overrides not applied: steps=%d policy=%s", cfg.Steps, cfg.Policy)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	if _, err := loadScenario(scenarioCmd(t, "--preset", "nope")); err == nil {
		t.Error("expected unknown preset error")
	}
	if _, err := loadScenario(scenarioCmd(t, "--dt", "0")); err == nil {
		t.Error("expected validation error")
	}
}

func TestParseFields(t *testing.T) {
	fs, err := parseFields([]string{"elevation", "Discharge"})
	if err != nil || len(fs) != 2 {
		t.Fatalf("parse: %v %v", fs, err)
	}
	if _, err := parseFields([]string{"theta"}); err == nil {
		t.Error("expected unknown field error")
	}
}

func storageAtCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset, strict = "", "", false
	logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cmd := &cobra.Command{Use: "storage-at"}
	addSourceFlags(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestStorageAt(t *testing.T) {
	if err := storageAt(storageAtCmd(t), []string{"2224", "2300"}); err != nil {
		t.Errorf("clamped lookup: %v", err)
	}

	err := storageAt(storageAtCmd(t, "--strict"), []string{"2300"})
	if err == nil || !strings.Contains(err.Error(), "outside the capacity table") {
		t.Errorf("expected domain error, got %v", err)
	}

	if err := storageAt(storageAtCmd(t), []string{"high"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestProgressLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := newProgressLogger(l, 100)
	for i := 0; i < 100; i++ {
		p.OnStep(drawdown.State{Step: i})
	}
	if n := strings.Count(buf.String(), "msg=step"); n != 10 {
		t.Errorf("expected 10 progress lines, got %d:\n%s", n, buf.String())
	}

	buf.Reset()
	short := newProgressLogger(l, 3)
	for i := 0; i < 3; i++ {
		short.OnStep(drawdown.State{Step: i})
	}
	if n := strings.Count(buf.String(), "msg=step"); n != 3 {
		t.Errorf("expected a line per step for short runs, got %d", n)
	}
}

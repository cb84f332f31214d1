package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"classline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default("ws-1")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Workspace.ID != "ws-1" {
		t.Fatalf("workspace id = %q", cfg.Workspace.ID)
	}
	if cfg.Dashboard.LogCapacity != 50 {
		t.Fatalf("log capacity = %d, want 50", cfg.Dashboard.LogCapacity)
	}
	limits := cfg.Dashboard.FetchLimits
	if limits.Lessons != 5 || limits.Assignments != 10 || limits.Resources != 3 || limits.Events != 3 {
		t.Fatalf("fetch limits = %+v", limits)
	}
	d, err := cfg.ResyncDelay()
	if err != nil || d != 2*time.Second {
		t.Fatalf("resync delay = %v (%v), want 2s", d, err)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault("ws-2")))
	if err != nil {
		t.Fatalf("parse generated config: %v", err)
	}
	if cfg.Workspace.ID != "ws-2" {
		t.Fatalf("workspace id = %q", cfg.Workspace.ID)
	}
	if len(cfg.Classification.Categories) == 0 || len(cfg.Classification.SystemPhrases) == 0 {
		t.Fatalf("classification rules missing: %+v", cfg.Classification)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*config.Config){
		"missing workspace id": func(c *config.Config) { c.Workspace.ID = "" },
		"zero log capacity":    func(c *config.Config) { c.Dashboard.LogCapacity = 0 },
		"zero fetch limit":     func(c *config.Config) { c.Dashboard.FetchLimits.Lessons = 0 },
		"bad resync delay":     func(c *config.Config) { c.Dashboard.ResyncDelay = "soon" },
		"negative delay":       func(c *config.Config) { c.Dashboard.ResyncDelay = "-1s" },
		"unknown priority": func(c *config.Config) {
			c.Classification.Priorities[0].Value = "critical"
		},
		"empty rule": func(c *config.Config) {
			c.Classification.Categories[0].Contains = ""
		},
		"empty system phrase": func(c *config.Config) {
			c.Classification.SystemPhrases[0] = ""
		},
	}
	for name, mutate := range cases {
		cfg := config.Default("ws")
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := config.FromYAML([]byte("workspace: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("missing file: cfg=%v err=%v, want nil,nil", cfg, err)
	}
	if err := os.WriteFile(config.Path(dir), []byte(config.GenerateDefault("ws-3")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil || cfg == nil || cfg.Workspace.ID != "ws-3" {
		t.Fatalf("loaded cfg=%v err=%v", cfg, err)
	}
}

func TestLoadMissingFileMessage(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "config import") {
		t.Fatalf("err = %v, want import hint", err)
	}
}

func TestPath(t *testing.T) {
	if got := config.Path("ws"); got != filepath.Join("ws", "classline.yml") {
		t.Fatalf("path = %q", got)
	}
	if got := config.Path(""); got != "classline.yml" {
		t.Fatalf("path for empty workspace = %q", got)
	}
}

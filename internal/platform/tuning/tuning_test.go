package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Shipped defaults must validate, got %v", err)
	}
}

func TestLoadOverlaysPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "tick_interval: 100ms\nblocker_chance: 0.1\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	tun, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if tun.TickInterval.Std() != 100*time.Millisecond {
		t.Errorf("Expected overridden tick_interval 100ms, got %v", tun.TickInterval.Std())
	}
	if tun.BlockerChance != 0.1 {
		t.Errorf("Expected overridden blocker_chance 0.1, got %v", tun.BlockerChance)
	}
	// Untouched fields keep their defaults.
	if tun.SprintDays != Default().SprintDays {
		t.Errorf("Expected default sprint_days, got %d", tun.SprintDays)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("wip_floor: 1.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for wip_floor 1.5")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected error for a missing tuning file")
	}
}

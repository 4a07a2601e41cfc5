package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindBinaryNearExecutable_PrefersSiblingBinary(t *testing.T) {
	dir := t.TempDir()
	sibling := filepath.Join(dir, agentBinaryName)
	if err := os.WriteFile(sibling, []byte(""), 0o644); err != nil {
		t.Fatalf("write sibling binary: %v", err)
	}

	got := findBinaryNearExecutable(
		agentBinaryName,
		"linux",
		func() (string, error) { return filepath.Join(dir, "sessiondb"), nil },
		os.Stat,
		func(string) (string, error) { return "/usr/local/bin/agentd", nil },
	)

	if got != sibling {
		t.Fatalf("expected sibling %q, got %q", sibling, got)
	}
}

func TestFindBinaryNearExecutable_FallsBackToPATH(t *testing.T) {
	dir := t.TempDir()
	pathResult := "/usr/local/bin/agentd"

	got := findBinaryNearExecutable(
		agentBinaryName,
		"linux",
		func() (string, error) { return filepath.Join(dir, "sessiondb"), nil },
		os.Stat,
		func(string) (string, error) { return pathResult, nil },
	)

	if got != pathResult {
		t.Fatalf("expected PATH result %q, got %q", pathResult, got)
	}
}

func TestFindBinaryNearExecutable_ReturnsEmptyWhenNotFound(t *testing.T) {
	dir := t.TempDir()

	got := findBinaryNearExecutable(
		agentBinaryName,
		"linux",
		func() (string, error) { return filepath.Join(dir, "sessiondb"), nil },
		os.Stat,
		func(string) (string, error) { return "", errors.New("not found") },
	)

	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestFindBinaryNearExecutable_WindowsPrefersSiblingExe(t *testing.T) {
	dir := t.TempDir()
	sibling := filepath.Join(dir, agentBinaryName+".exe")
	if err := os.WriteFile(sibling, []byte(""), 0o644); err != nil {
		t.Fatalf("write sibling binary: %v", err)
	}

	got := findBinaryNearExecutable(
		agentBinaryName,
		"windows",
		func() (string, error) { return filepath.Join(dir, "sessiondb.exe"), nil },
		os.Stat,
		func(string) (string, error) { return `C:\bin\agentd.exe`, nil },
	)

	if got != sibling {
		t.Fatalf("expected sibling %q, got %q", sibling, got)
	}
}

func TestFindBinaryNearExecutable_WindowsFallsBackToExeInPATH(t *testing.T) {
	dir := t.TempDir()
	pathResult := `C:\bin\agentd.exe`

	got := findBinaryNearExecutable(
		agentBinaryName,
		"windows",
		func() (string, error) { return filepath.Join(dir, "sessiondb.exe"), nil },
		os.Stat,
		func(name string) (string, error) {
			if name == agentBinaryName {
				return "", errors.New("not found")
			}
			if name == agentBinaryName+".exe" {
				return pathResult, nil
			}
			return "", errors.New("unexpected binary name")
		},
	)

	if got != pathResult {
		t.Fatalf("expected PATH result %q, got %q", pathResult, got)
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestRegisterAndFindAgent(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	inst := AgentInstance{
		PID:        os.Getpid(),
		SocketPath: tmpDir + "/agent.sock",
		StartedAt:  time.Now(),
	}
	if err := RegisterAgent(inst); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	found, err := FindAgent()
	if err != nil {
		t.Fatalf("FindAgent failed: %v", err)
	}
	if found == nil {
		t.Fatal("expected a registered agent")
	}
	if found.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", found.PID, os.Getpid())
	}
}

func TestUnregisterAgent(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	inst := AgentInstance{PID: os.Getpid(), StartedAt: time.Now()}
	if err := RegisterAgent(inst); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if err := UnregisterAgent(os.Getpid()); err != nil {
		t.Fatalf("UnregisterAgent failed: %v", err)
	}

	found, err := FindAgent()
	if err != nil {
		t.Fatalf("FindAgent failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no registered agent, got %+v", found)
	}
}

func TestFindAgentCleansStalePID(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	inst := AgentInstance{PID: 999999999, StartedAt: time.Now()}
	if err := RegisterAgent(inst); err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	found, err := FindAgent()
	if err != nil {
		t.Fatalf("FindAgent failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected stale instance to be cleaned, got %+v", found)
	}
}

func TestFindAgentNoneRegistered(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("VIMO_DATA_DIR", tmpDir)

	found, err := FindAgent()
	if err != nil {
		t.Fatalf("FindAgent failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil, got %+v", found)
	}
}

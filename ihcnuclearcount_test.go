package ihcnuclearcount

import (
	"testing"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/workflow"
)

func TestNewDefaults(t *testing.T) {
	ws, err := New(Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ws.Controller == nil {
		t.Error("controller is nil")
	}
	if ws.Store == nil {
		t.Error("store is nil")
	}
	if ws.Snapshot().State != workflow.StateEmpty {
		t.Error("fresh workstation should start empty")
	}
}

func TestNewOpenAIBackend(t *testing.T) {
	ws, err := New(Options{Backend: "openai", ServerURL: "http://localhost:8080", Model: "m"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ws.Controller == nil {
		t.Error("controller is nil")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(Options{Backend: "tensorflow"}); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Error("version mismatch")
	}
}

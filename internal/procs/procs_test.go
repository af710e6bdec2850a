package procs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunningFindsOwnProcess(t *testing.T) {
	// The test binary itself is the one process guaranteed to be running.
	self := filepath.Base(os.Args[0])

	found, err := Running(context.Background(), self)
	if err != nil {
		t.Fatalf("Running: %v", err)
	}

	pid := int32(os.Getpid())
	for _, p := range found {
		if p.PID == pid {
			return
		}
	}
	t.Errorf("own process %q (pid %d) not found in %v", self, pid, found)
}

func TestRunningNoMatches(t *testing.T) {
	found, err := Running(context.Background(), "no-such-application-zz9")
	if err != nil {
		t.Fatalf("Running: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("unexpected matches: %v", found)
	}
}

func TestRunningEmptyName(t *testing.T) {
	found, err := Running(context.Background(), "")
	if err != nil || found != nil {
		t.Errorf("empty name should match nothing, got %v, %v", found, err)
	}
}

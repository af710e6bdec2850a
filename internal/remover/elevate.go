package remover

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// Elevator runs removals the current user lacks permission for. It is an
// opaque collaborator: the orchestrator hands paths over and learns only
// per-path success or failure.
type Elevator interface {
	Available() bool
	Authenticate() error
	RemoveAll(ctx context.Context, paths []string) (succeeded []string, failed map[string]error)
	Clear()
}

// elevateBatchSize limits how many paths ride on one elevated command.
const elevateBatchSize = 50

// SudoElevator elevates through sudo, authenticating once per run and
// feeding the password over stdin.
type SudoElevator struct {
	password      []byte
	authenticated bool
	available     bool
	mu            sync.Mutex
}

// NewSudoElevator probes for sudo on PATH.
func NewSudoElevator() *SudoElevator {
	_, err := exec.LookPath("sudo")
	return &SudoElevator{available: err == nil}
}

// Available reports whether sudo exists on this system.
func (s *SudoElevator) Available() bool {
	return s.available
}

// Authenticate establishes a sudo session. A cached passwordless session is
// used when present; otherwise the password is read without echo and
// validated against sudo itself.
func (s *SudoElevator) Authenticate() error {
	if !s.available {
		return fmt.Errorf("sudo is not available on this system")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authenticated {
		return nil
	}

	// Cached or passwordless session.
	if exec.Command("sudo", "-n", "true").Run() == nil {
		s.authenticated = true
		return nil
	}

	fmt.Print("\nSome entries require elevated permissions.\n")
	fmt.Print("Password (or Ctrl+C to skip): ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return fmt.Errorf("password cannot be empty")
	}

	if err := validatePassword(password); err != nil {
		clearBytes(password)
		return err
	}

	s.password = password
	s.authenticated = true
	return nil
}

// RemoveAll removes paths in elevated batches. Success is judged per path
// by it being gone afterwards, so one stubborn entry never hides the rest.
func (s *SudoElevator) RemoveAll(ctx context.Context, paths []string) (succeeded []string, failed map[string]error) {
	failed = make(map[string]error)

	s.mu.Lock()
	authenticated := s.authenticated
	password := append([]byte(nil), s.password...)
	s.mu.Unlock()
	defer clearBytes(password)

	if !authenticated {
		for _, path := range paths {
			failed[path] = fmt.Errorf("not authenticated")
		}
		return
	}

	for start := 0; start < len(paths); start += elevateBatchSize {
		end := start + elevateBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		if err := ctx.Err(); err != nil {
			for _, path := range batch {
				failed[path] = err
			}
			continue
		}

		runErr := runSudoRemove(ctx, password, batch)

		for _, path := range batch {
			if _, err := os.Lstat(path); os.IsNotExist(err) {
				succeeded = append(succeeded, path)
				continue
			}
			if runErr != nil {
				failed[path] = runErr
			} else {
				failed[path] = fmt.Errorf("still present after elevated removal")
			}
		}
	}
	return
}

// Clear wipes the cached password.
func (s *SudoElevator) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clearBytes(s.password)
	s.password = nil
	s.authenticated = false
}

func runSudoRemove(ctx context.Context, password []byte, paths []string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	args := append([]string{"-S", "rm", "-rf", "--"}, paths...)
	cmd := exec.CommandContext(cmdCtx, "sudo", args...)

	input := append(append([]byte(nil), password...), '\n')
	cmd.Stdin = bytes.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("sudo rm timed out")
		}
		return fmt.Errorf("sudo rm failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func validatePassword(password []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sudo", "-S", "-v")

	input := append(append([]byte(nil), password...), '\n')
	cmd.Stdin = bytes.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := stderr.String()
		if strings.Contains(out, "Sorry") || strings.Contains(out, "try again") || strings.Contains(out, "incorrect password") {
			return fmt.Errorf("authentication failed: incorrect password")
		}
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("sudo validation timed out")
		}
		return fmt.Errorf("sudo validation failed: %v (stderr: %s)", err, strings.TrimSpace(out))
	}
	return nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

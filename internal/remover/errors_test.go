package remover

import (
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantReason    Reason
		wantRetryable bool
		wantElevation bool
	}{
		{"not exist", os.ErrNotExist, ReasonNotFound, false, false},
		{"permission", os.ErrPermission, ReasonPermissionDenied, false, true},
		{"eacces", &os.PathError{Op: "unlinkat", Path: "/x", Err: syscall.EACCES}, ReasonPermissionDenied, false, true},
		{"ebusy", &os.PathError{Op: "unlinkat", Path: "/x", Err: syscall.EBUSY}, ReasonInUse, true, false},
		{"enoent", &os.PathError{Op: "unlinkat", Path: "/x", Err: syscall.ENOENT}, ReasonNotFound, false, false},
		{"unknown", fmt.Errorf("disk exploded"), ReasonUnknown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize("/x", tt.err)
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %v, want %v", got.Reason, tt.wantReason)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if got.NeedsElevation != tt.wantElevation {
				t.Errorf("NeedsElevation = %v, want %v", got.NeedsElevation, tt.wantElevation)
			}
		})
	}

	if Categorize("/x", nil) != nil {
		t.Error("nil error must categorize to nil")
	}
}

func TestGroupByReason(t *testing.T) {
	errs := []*EntryError{
		{Path: "/a", Reason: ReasonPermissionDenied},
		{Path: "/b", Reason: ReasonPermissionDenied},
		{Path: "/c", Reason: ReasonInUse},
	}

	grouped := GroupByReason(errs)
	if len(grouped[ReasonPermissionDenied]) != 2 || len(grouped[ReasonInUse]) != 1 {
		t.Errorf("unexpected grouping: %v", grouped)
	}
}

package remover

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Reason categorizes why a removal failed
type Reason int

const (
	ReasonPermissionDenied Reason = iota
	ReasonInUse
	ReasonNotFound
	ReasonProtectedPath
	ReasonUnknown
)

// String returns a human-readable reason
func (r Reason) String() string {
	switch r {
	case ReasonPermissionDenied:
		return "Permission denied"
	case ReasonInUse:
		return "File is in use"
	case ReasonNotFound:
		return "Not found"
	case ReasonProtectedPath:
		return "Protected path"
	case ReasonUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// EntryError represents a detailed removal error for one entry
type EntryError struct {
	Path           string
	Reason         Reason
	Original       error
	Retryable      bool
	NeedsElevation bool
}

// Error implements the error interface
func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

// UserMessage returns a user-friendly error message
func (e *EntryError) UserMessage() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		if e.NeedsElevation {
			return fmt.Sprintf("Need elevated permissions to remove: %s", e.Path)
		}
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ReasonInUse:
		return fmt.Sprintf("In use: %s (close the application and try again)", e.Path)
	case ReasonNotFound:
		return fmt.Sprintf("Already gone: %s", e.Path)
	case ReasonProtectedPath:
		return fmt.Sprintf("Refusing to touch protected path: %s", e.Path)
	default:
		return fmt.Sprintf("Error removing %s: %v", e.Path, e.Original)
	}
}

// Categorize analyzes an error and returns a categorized EntryError
func Categorize(path string, err error) *EntryError {
	if err == nil {
		return nil
	}

	entryErr := &EntryError{
		Path:     path,
		Original: err,
		Reason:   ReasonUnknown,
	}

	if os.IsNotExist(err) {
		entryErr.Reason = ReasonNotFound
		return entryErr
	}

	if os.IsPermission(err) {
		entryErr.Reason = ReasonPermissionDenied
		entryErr.NeedsElevation = true
		return entryErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			entryErr.Reason = ReasonPermissionDenied
			entryErr.NeedsElevation = true
		case syscall.EBUSY, syscall.ETXTBSY:
			entryErr.Reason = ReasonInUse
			entryErr.Retryable = true
		case syscall.ENOENT:
			entryErr.Reason = ReasonNotFound
		}
		return entryErr
	}

	return entryErr
}

// GroupByReason groups entry errors by their reason
func GroupByReason(errs []*EntryError) map[Reason][]*EntryError {
	grouped := make(map[Reason][]*EntryError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

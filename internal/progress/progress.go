package progress

import (
	"sync"
	"time"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseScanning    Phase = "scanning"
	PhaseAggregating Phase = "aggregating"
	PhaseRemoving    Phase = "removing"
	PhaseStaging     Phase = "staging"
	PhaseSealing     Phase = "sealing"
	PhaseRestoring   Phase = "restoring"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// ScanProgress represents progress during discovery
type ScanProgress struct {
	Phase       Phase
	AppName     string
	CurrentRoot string
	RootsTotal  int
	RootsDone   int
	Matches     int
	Skipped     int
	TotalSize   int64
	StartTime   time.Time
	Error       error
}

// RemoveProgress represents progress during removal
type RemoveProgress struct {
	Phase        Phase
	CurrentPath  string
	Removed      int
	Failed       int
	Skipped      int
	TotalEntries int
	FreedSize    int64
	Forced       bool
	StartTime    time.Time
	Error        error
}

// SnapshotProgress represents progress during snapshot creation or restore
type SnapshotProgress struct {
	Phase       Phase
	Name        string
	Category    string
	CurrentPath string
	FilesCopied int
	FilesFailed int
	CopiedSize  int64
	StartTime   time.Time
	Error       error
}

// Reporter provides thread-safe progress reporting to any number of
// subscribed listeners. Updates are dropped, not blocked on, when a listener
// lags behind.
type Reporter struct {
	mu        sync.RWMutex
	scan      *ScanProgress
	remove    *RemoveProgress
	snapshot  *SnapshotProgress
	listeners []chan interface{}
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (r *Reporter) Subscribe() <-chan interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan interface{}, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// UpdateScan updates scan progress and notifies listeners
func (r *Reporter) UpdateScan(update *ScanProgress) {
	r.mu.Lock()
	r.scan = update
	r.notify(update)
	r.mu.Unlock()
}

// UpdateRemove updates removal progress and notifies listeners
func (r *Reporter) UpdateRemove(update *RemoveProgress) {
	r.mu.Lock()
	r.remove = update
	r.notify(update)
	r.mu.Unlock()
}

// UpdateSnapshot updates snapshot progress and notifies listeners
func (r *Reporter) UpdateSnapshot(update *SnapshotProgress) {
	r.mu.Lock()
	r.snapshot = update
	r.notify(update)
	r.mu.Unlock()
}

// LastScan returns the most recent scan progress update, if any.
func (r *Reporter) LastScan() *ScanProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scan
}

// LastRemove returns the most recent removal progress update, if any.
func (r *Reporter) LastRemove() *RemoveProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remove
}

// LastSnapshot returns the most recent snapshot progress update, if any.
func (r *Reporter) LastSnapshot() *SnapshotProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// notify fans an update out to listeners without blocking. Callers hold mu.
func (r *Reporter) notify(update interface{}) {
	for _, listener := range r.listeners {
		select {
		case listener <- update:
		default:
		}
	}
}

package health

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// State tracks readiness of the scan loop: ready once a scan has completed
// and not stale for longer than MaxLag.
type State struct {
	MaxLag   time.Duration
	lastScan atomic.Int64 // unix nanos
	now      func() time.Time
}

func NewState(maxLag time.Duration) *State {
	return &State{MaxLag: maxLag, now: time.Now}
}

// MarkScan records a completed scan pass.
func (s *State) MarkScan(at time.Time) { s.lastScan.Store(at.UnixNano()) }

// LastScan returns the zero time before the first scan.
func (s *State) LastScan() time.Time {
	n := s.lastScan.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (s *State) Ready() error {
	last := s.LastScan()
	if last.IsZero() {
		return fmt.Errorf("no scan completed yet")
	}
	if s.MaxLag > 0 {
		if lag := s.now().Sub(last); lag > s.MaxLag {
			return fmt.Errorf("last scan %s ago", lag.Truncate(time.Millisecond))
		}
	}
	return nil
}

// Healthz is a simple liveness probe
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *State) Readyz(w http.ResponseWriter, _ *http.Request) {
	if err := s.Ready(); err != nil {
		http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

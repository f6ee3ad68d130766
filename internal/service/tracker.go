package service

import (
	"strings"
	"sync"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
)

// StatusBusy is the status string shown while a trigger is running.
const StatusBusy = "Analysis in progress"

// Tracker records which mutations are running, by resource key. A second
// trigger on a busy key is refused with apperror.ErrConflict instead of
// being sent to the backend twice.
type Tracker struct {
	mu   sync.Mutex
	busy map[string]time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{busy: make(map[string]time.Time)}
}

// Begin marks key busy. The returned func clears it and must be called
// exactly once.
func (t *Tracker) Begin(key string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.busy[key]; ok {
		return nil, apperror.Conflict("analysis", key)
	}
	t.busy[key] = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.busy, key)
			t.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key, or any key below it ("analyze:dev/acme" covers
// "analyze:dev/acme/main"), is running.
func (t *Tracker) Busy(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.busy[key]; ok {
		return true
	}
	for k := range t.busy {
		if strings.HasPrefix(k, key+"/") {
			return true
		}
	}
	return false
}

// Status is StatusBusy when key is busy, "" otherwise.
func (t *Tracker) Status(key string) string {
	if t.Busy(key) {
		return StatusBusy
	}
	return ""
}

// run executes fn with key marked busy.
func (t *Tracker) run(key string, fn func() error) error {
	done, err := t.Begin(key)
	if err != nil {
		return err
	}
	defer done()
	return fn()
}

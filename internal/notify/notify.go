// Package notify holds the one pending toast of each visitor.
//
// A handler that completes a mutation calls Show and redirects; the next page
// render Takes the toast and draws it. Keying by visitor (not session) lets
// public pages such as sign-in and forgot-password show toasts too.
package notify

import (
	"sync"
	"time"
)

// Kind is the severity of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// AutoCloseDelay is how long success and error toasts stay up.
const AutoCloseDelay = 2 * time.Second

// Toast is one notification.
type Toast struct {
	Message string
	Kind    Kind
	// AutoClose is zero for toasts that stay until dismissed.
	AutoClose time.Duration
	// NavigateTo, when set, is where the browser goes once the toast is
	// dismissed (by the user or by auto-close).
	NavigateTo string

	createdAt time.Time
}

// AutoCloseMillis is AutoClose for the page script.
func (t Toast) AutoCloseMillis() int64 {
	return t.AutoClose.Milliseconds()
}

// Center stores at most one toast per visitor key.
type Center struct {
	mu     sync.Mutex
	toasts map[string]Toast
	now    func() time.Time
}

// NewCenter creates an empty Center.
func NewCenter() *Center {
	return &Center{
		toasts: make(map[string]Toast),
		now:    time.Now,
	}
}

// Show sets the toast for key, replacing any toast not yet displayed.
// Success and error toasts auto-close; info toasts do not.
func (c *Center) Show(key, message string, kind Kind, navigateTo string) {
	if key == "" || message == "" {
		return
	}
	t := Toast{
		Message:    message,
		Kind:       kind,
		NavigateTo: navigateTo,
		createdAt:  c.now(),
	}
	if kind == KindSuccess || kind == KindError {
		t.AutoClose = AutoCloseDelay
	}

	c.mu.Lock()
	c.toasts[key] = t
	c.mu.Unlock()
}

// Success shows a success toast.
func (c *Center) Success(key, message, navigateTo string) {
	c.Show(key, message, KindSuccess, navigateTo)
}

// Error shows an error toast.
func (c *Center) Error(key, message string) {
	c.Show(key, message, KindError, "")
}

// Info shows a toast that stays until dismissed.
func (c *Center) Info(key, message string) {
	c.Show(key, message, KindInfo, "")
}

// Take removes and returns the pending toast for key.
func (c *Center) Take(key string) (Toast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.toasts[key]
	if ok {
		delete(c.toasts, key)
	}
	return t, ok
}

// Prune drops toasts older than maxAge that were never displayed.
func (c *Center) Prune(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, t := range c.toasts {
		if t.createdAt.Before(cutoff) {
			delete(c.toasts, k)
			n++
		}
	}
	return n
}

package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/gateway"
	"github.com/sakif/sonarhub/internal/model"
	sqliteRepo "github.com/sakif/sonarhub/internal/repository/sqlite"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeLookup answers UserByEmail from a map and counts calls. When gate is
// non-nil every call blocks until it is closed.
type fakeLookup struct {
	users map[string]*model.User
	err   error
	gate  chan struct{}

	calls     atomic.Int32
	lastToken atomic.Value
}

func (f *fakeLookup) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.calls.Add(1)
	f.lastToken.Store(gateway.TokenFromContext(ctx))
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func session(email string) *model.Session {
	return &model.Session{ID: "s1", AuthToken: "tok-1", UserEmail: email}
}

// =========================================================================
// TESTS
// =========================================================================

func TestResolve_NoEmailIsPrerequisiteAndMakesNoQuery(t *testing.T) {
	lookup := &fakeLookup{}
	r := NewResolver(lookup, nil, testLogger())

	for _, sess := range []*model.Session{nil, {AuthToken: "tok"}} {
		_, err := r.Resolve(context.Background(), sess)
		if !errors.Is(err, apperror.ErrPrerequisite) {
			t.Errorf("Resolve(%+v) error = %v, want ErrPrerequisite", sess, err)
		}
	}
	if n := lookup.calls.Load(); n != 0 {
		t.Errorf("UserByEmail called %d times, want 0", n)
	}
}

func TestResolve_FetchesOnceAndCaches(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*model.User{
		"dev@example.com": {Name: "Dev", Username: "devuser"},
	}}
	r := NewResolver(lookup, nil, testLogger())

	for i := 0; i < 3; i++ {
		username, err := r.Resolve(context.Background(), session("dev@example.com"))
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if username != "devuser" {
			t.Errorf("Resolve() = %q, want devuser", username)
		}
	}

	if n := lookup.calls.Load(); n != 1 {
		t.Errorf("UserByEmail called %d times, want 1", n)
	}
	if tok := lookup.lastToken.Load(); tok != "tok-1" {
		t.Errorf("lookup token = %v, want tok-1", tok)
	}
}

func TestResolve_ConcurrentCallsShareOneRequest(t *testing.T) {
	lookup := &fakeLookup{
		users: map[string]*model.User{"dev@example.com": {Username: "devuser"}},
		gate:  make(chan struct{}),
	}
	r := NewResolver(lookup, nil, testLogger())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), session("dev@example.com"))
		}(i)
	}

	// Wait until the first lookup is in flight, give the others a moment to
	// join it, then release.
	for lookup.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(lookup.gate)
	wg.Wait()

	if n := lookup.calls.Load(); n != 1 {
		t.Errorf("UserByEmail called %d times, want 1", n)
	}
	for i, u := range results {
		if u != "devuser" {
			t.Errorf("results[%d] = %q, want devuser", i, u)
		}
	}
}

func TestResolve_EmptyUsernameIsUnavailable(t *testing.T) {
	lookup := &fakeLookup{users: map[string]*model.User{
		"dev@example.com": {Name: "Dev", Username: ""},
	}}
	r := NewResolver(lookup, nil, testLogger())

	_, err := r.Resolve(context.Background(), session("dev@example.com"))
	if !errors.Is(err, apperror.ErrIdentityUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrIdentityUnavailable", err)
	}
}

func TestResolve_LookupFailureIsUnavailableAndNotCached(t *testing.T) {
	lookup := &fakeLookup{err: apperror.Upstream("backend down", errors.New("dial"))}
	r := NewResolver(lookup, nil, testLogger())

	_, err := r.Resolve(context.Background(), session("dev@example.com"))
	if !errors.Is(err, apperror.ErrIdentityUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrIdentityUnavailable", err)
	}
	if apperror.Message(err) != "GitHub username not available for dev@example.com" {
		t.Errorf("message = %q", apperror.Message(err))
	}

	// A later attempt must try again rather than replay the failure.
	lookup.err = nil
	lookup.users = map[string]*model.User{"dev@example.com": {Username: "devuser"}}
	if _, err := r.Resolve(context.Background(), session("dev@example.com")); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
}

func TestResolve_UsesAndFillsStorage(t *testing.T) {
	db, err := sqliteRepo.New(sqliteRepo.MemoryPath)
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	defer db.Close()

	lookup := &fakeLookup{users: map[string]*model.User{"dev@example.com": {Username: "devuser"}}}
	if _, err := NewResolver(lookup, db, testLogger()).Resolve(context.Background(), session("dev@example.com")); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// A fresh resolver (process restart) finds the mapping in storage.
	restarted := NewResolver(lookup, db, testLogger())
	username, err := restarted.Resolve(context.Background(), session("dev@example.com"))
	if err != nil {
		t.Fatalf("Resolve() after restart error = %v", err)
	}
	if username != "devuser" {
		t.Errorf("Resolve() = %q, want devuser", username)
	}
	if n := lookup.calls.Load(); n != 1 {
		t.Errorf("UserByEmail called %d times, want 1", n)
	}
}

func TestForget_ForcesNewLookup(t *testing.T) {
	db, err := sqliteRepo.New(sqliteRepo.MemoryPath)
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	defer db.Close()

	lookup := &fakeLookup{users: map[string]*model.User{"dev@example.com": {Username: "devuser"}}}
	r := NewResolver(lookup, db, testLogger())
	ctx := context.Background()

	if _, err := r.Resolve(ctx, session("dev@example.com")); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	r.Forget(ctx, "dev@example.com")
	if _, err := r.Resolve(ctx, session("dev@example.com")); err != nil {
		t.Fatalf("Resolve() after Forget error = %v", err)
	}

	if n := lookup.calls.Load(); n != 2 {
		t.Errorf("UserByEmail called %d times, want 2", n)
	}
}

func TestResolve_UnknownUserIsUnavailableNotUnanalyzed(t *testing.T) {
	lookup := &fakeLookup{err: gateway.Classify(errors.New("User not found"))}
	r := NewResolver(lookup, nil, testLogger())

	_, err := r.Resolve(context.Background(), session("dev@example.com"))
	if !errors.Is(err, apperror.ErrIdentityUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrIdentityUnavailable", err)
	}
	if errors.Is(err, apperror.ErrNotAnalyzed) {
		t.Errorf("Resolve() error = %v, must not match ErrNotAnalyzed", err)
	}
}

func TestForget_DuringLookupDropsTheResult(t *testing.T) {
	db, err := sqliteRepo.New(sqliteRepo.MemoryPath)
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	defer db.Close()

	lookup := &fakeLookup{
		users: map[string]*model.User{"dev@example.com": {Username: "devuser"}},
		gate:  make(chan struct{}),
	}
	r := NewResolver(lookup, db, testLogger())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Resolve(ctx, session("dev@example.com"))
	}()

	for lookup.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	r.Forget(ctx, "dev@example.com")
	close(lookup.gate)
	<-done

	if _, ok := r.cached("dev@example.com"); ok {
		t.Error("identity cached after Forget")
	}
	if _, err := db.GetIdentity(ctx, "dev@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetIdentity() error = %v, want ErrNotFound", err)
	}
}

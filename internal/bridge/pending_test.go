package bridge

import (
	"errors"
	"testing"
	"time"
)

func TestPendingHandshake(t *testing.T) {
	r := NewPendingRegistry(time.Minute)

	r.Begin("alice", "b123", "chanX")
	entry, err := r.Complete("alice", "alice")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if entry.RevoltUserID != "b123" || entry.OriginChannel != "chanX" {
		t.Errorf("unexpected entry: %#v", entry)
	}

	// Consumed: a second completion requires a fresh Begin.
	if _, err := r.Complete("alice", "alice"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Complete() after consume error = %v, want ErrNotPending", err)
	}
}

func TestPendingCompleteWithoutBegin(t *testing.T) {
	r := NewPendingRegistry(time.Minute)
	if _, err := r.Complete("alice", "bob"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Complete() error = %v, want ErrNotPending", err)
	}
}

func TestPendingIdentityMismatch(t *testing.T) {
	r := NewPendingRegistry(time.Minute)
	r.Begin("alice", "b123", "chanX")

	if _, err := r.Complete("alice", "bob"); !errors.Is(err, ErrIdentityMismatch) {
		t.Errorf("Complete() error = %v, want ErrIdentityMismatch", err)
	}
	// A mismatch does not consume the entry.
	if _, err := r.Complete("alice", "alice"); err != nil {
		t.Errorf("Complete() after mismatch error = %v", err)
	}
}

func TestPendingLastWriterWins(t *testing.T) {
	r := NewPendingRegistry(time.Minute)
	r.Begin("alice", "b123", "chanX")
	r.Begin("alice", "b456", "chanY")

	entry, err := r.Complete("alice", "alice")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if entry.RevoltUserID != "b456" {
		t.Errorf("RevoltUserID = %q, want b456", entry.RevoltUserID)
	}
}

func TestPendingExpiry(t *testing.T) {
	r := NewPendingRegistry(10 * time.Minute)
	current := time.Now()
	r.now = func() time.Time { return current }

	r.Begin("alice", "b123", "chanX")
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}

	current = current.Add(11 * time.Minute)
	if _, err := r.Complete("alice", "alice"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Complete() on expired entry error = %v, want ErrNotPending", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after sweep", r.Len())
	}
}

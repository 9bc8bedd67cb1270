package session

import (
	"sync"
	"testing"
)

func TestAddAndFind(t *testing.T) {
	registry := NewMemoryRegistry()

	record := registry.Add("a@x.com", "token-1")
	if record.ID == "" {
		t.Fatalf("expected session id")
	}

	found, ok := registry.Find("token-1")
	if !ok {
		t.Fatalf("expected session for token-1")
	}
	if found.Email != "a@x.com" {
		t.Fatalf("unexpected email %q", found.Email)
	}

	if _, ok := registry.Find("unknown"); ok {
		t.Fatalf("expected no session for unknown token")
	}
}

func TestRepeatedLoginsAccumulate(t *testing.T) {
	registry := NewMemoryRegistry()
	registry.Add("a@x.com", "token-1")
	registry.Add("a@x.com", "token-2")

	if registry.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", registry.Len())
	}
}

func TestInvalidateIsLogical(t *testing.T) {
	registry := NewMemoryRegistry()
	registry.Add("a@x.com", "token-1")

	if !registry.Invalidate("token-1") {
		t.Fatalf("expected invalidation to succeed")
	}
	if registry.Invalidate("token-1") {
		t.Fatalf("expected second invalidation to fail")
	}
	if _, ok := registry.Find("token-1"); ok {
		t.Fatalf("expected invalidated token to be unfindable")
	}
	// The record stays; only its token is cleared.
	if registry.Len() != 1 {
		t.Fatalf("expected record to remain, got %d", registry.Len())
	}
}

func TestConcurrentAdds(t *testing.T) {
	registry := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Add("a@x.com", "token")
		}()
	}
	wg.Wait()

	if registry.Len() != 50 {
		t.Fatalf("expected 50 sessions, got %d", registry.Len())
	}
}

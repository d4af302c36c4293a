package ratelimit

import (
	"testing"
	"time"
)

func TestBurstThenDeny(t *testing.T) {
	l := New(60, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("key-a") {
			t.Fatalf("request %d inside burst denied", i+1)
		}
	}
	if l.Allow("key-a") {
		t.Fatalf("request past burst admitted")
	}
}

func TestPrincipalsAreIndependent(t *testing.T) {
	l := New(60, 1)
	if !l.Allow("key-a") {
		t.Fatalf("first key-a denied")
	}
	if !l.Allow("key-b") {
		t.Fatalf("key-b should have its own bucket")
	}
	if l.Allow("key-a") {
		t.Fatalf("key-a over budget admitted")
	}
}

func TestEmptyPrincipalAlwaysAllowed(t *testing.T) {
	l := New(1, 1)
	for i := 0; i < 10; i++ {
		if !l.Allow("") {
			t.Fatalf("empty principal denied")
		}
	}
}

func TestRefill(t *testing.T) {
	// 600/min refills one token every 100ms.
	l := New(600, 1)
	if !l.Allow("key") {
		t.Fatalf("first request denied")
	}
	if l.Allow("key") {
		t.Fatalf("bucket should be empty")
	}
	time.Sleep(150 * time.Millisecond)
	if !l.Allow("key") {
		t.Fatalf("bucket did not refill")
	}
}

func TestBurstDefaultsToRate(t *testing.T) {
	l := New(5, 0)
	for i := 0; i < 5; i++ {
		if !l.Allow("key") {
			t.Fatalf("request %d inside default burst denied", i+1)
		}
	}
	if l.Allow("key") {
		t.Fatalf("request past default burst admitted")
	}
}

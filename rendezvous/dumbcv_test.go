package rendezvous

import (
	"testing"
	"time"

	"github.com/csnode/corenode/crypto/keys"
)

func testSig(b byte) keys.Signature {
	var s keys.Signature
	s[0] = b
	return s
}

func TestAddTwiceFails(t *testing.T) {
	d := New(20 * time.Millisecond)
	sig := testSig(1)

	if !d.Add(sig) {
		t.Fatalf("first Add should succeed")
	}
	if d.Add(sig) {
		t.Fatalf("second Add for the same signature should fail")
	}
	d.Wait(sig)
}

func TestSignalBeforeWaitLatches(t *testing.T) {
	d := New(50 * time.Millisecond)
	sig := testSig(2)

	d.Add(sig)
	d.Signal(sig, Success)

	if got := d.Wait(sig); got != Success {
		t.Fatalf("expected latched Success, got %v", got)
	}
}

func TestWaitTimesOut(t *testing.T) {
	d := New(10 * time.Millisecond)
	sig := testSig(3)

	d.Add(sig)
	if got := d.Wait(sig); got != TimeOut {
		t.Fatalf("expected TimeOut, got %v", got)
	}
}

func TestWaitUnregisteredIsExpired(t *testing.T) {
	d := New(10 * time.Millisecond)
	sig := testSig(4)

	if got := d.Wait(sig); got != Expired {
		t.Fatalf("expected Expired for unregistered signature, got %v", got)
	}
}

func TestEntryReleasedAfterWait(t *testing.T) {
	d := New(10 * time.Millisecond)
	sig := testSig(5)

	d.Add(sig)
	d.Wait(sig)

	// The entry should be gone; re-adding the same signature must succeed.
	if !d.Add(sig) {
		t.Fatalf("expected Add to succeed again after the first waiter was released")
	}
}

func TestConcurrentSignalAndWait(t *testing.T) {
	d := New(200 * time.Millisecond)
	sig := testSig(6)

	d.Add(sig)

	go func() {
		time.Sleep(5 * time.Millisecond)
		d.Signal(sig, Rejected)
	}()

	if got := d.Wait(sig); got != Rejected {
		t.Fatalf("expected Rejected, got %v", got)
	}
}

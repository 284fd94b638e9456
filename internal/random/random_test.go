package random

import "testing"

func TestDeterministicStreamIsReproducible(t *testing.T) {
	cfg := Config{Seed: "deadbeef", Nonce: "fixed-nonce"}

	r1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r2, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 8; i++ {
		a := r1.Secure.Uint64(1_000_000)
		b := r2.Secure.Uint64(1_000_000)
		if a != b {
			t.Fatalf("draw %d: secure streams diverged: %d != %d", i, a, b)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	r1, err := New(Config{Seed: "seed-one", Nonce: "n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r2, err := New(Config{Seed: "seed-two", Nonce: "n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	same := true
	for i := 0; i < 8; i++ {
		if r1.Secure.Uint64(^uint64(0)) != r2.Secure.Uint64(^uint64(0)) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different seeds to diverge")
	}
}

func TestUint64RespectsMax(t *testing.T) {
	r, err := New(Config{Seed: "bound-test", Nonce: "n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 1000; i++ {
		v := r.Secure.Uint64(7)
		if v > 7 {
			t.Fatalf("Uint64(7) = %d, out of range", v)
		}
	}
}

func TestRange01Bounds(t *testing.T) {
	r, err := New(Config{Seed: "range-test", Nonce: "n"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 1000; i++ {
		v := r.Secure.Range01()
		if v < 0 || v >= 1 {
			t.Fatalf("Range01() = %v, out of [0,1)", v)
		}
	}
}

func TestAddEntropyChangesOutput(t *testing.T) {
	cfg := Config{Seed: "entropy-test", Nonce: "n"}
	r1, _ := New(cfg)
	r2, _ := New(cfg)

	r2.AddEntropy([]byte("extra user entropy"), cfg)
	// Force a reseed on r2 by exceeding nothing — AddEntropy makes the next
	// Bytes() call reseed immediately regardless of interval.
	a := r1.Secure.Uint64(^uint64(0))
	b := r2.Secure.Uint64(^uint64(0))
	if a == b {
		t.Fatal("expected AddEntropy to perturb subsequent output")
	}
}

func TestIgnoreUserEntropySuppressesMixing(t *testing.T) {
	cfg := Config{Seed: "ignore-test", Nonce: "n", IgnoreUserEntropy: true}
	r1, _ := New(cfg)
	r2, _ := New(cfg)

	r2.AddEntropy([]byte("should be ignored"), cfg)
	a := r1.Secure.Uint64(^uint64(0))
	b := r2.Secure.Uint64(^uint64(0))
	if a != b {
		t.Fatal("expected IgnoreUserEntropy to keep streams identical")
	}
}

package keys

import "testing"

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	e, _ := Parse("secret 7")
	s.Set("receive", e)

	got, ok := s.Get("receive")
	if !ok {
		t.Fatal("expected binding to exist")
	}
	if got.(Secret).Value != e.(Secret).Value {
		t.Error("stored expression does not match")
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("expected no binding for unset name")
	}
}

func TestStoreSetIsIdempotentUpsert(t *testing.T) {
	s := NewStore()
	a, _ := Parse("secret 1")
	b, _ := Parse("secret 2")

	s.Set("k", a)
	s.Set("k", b)

	got, _ := s.Get("k")
	if got.(Secret).Value != b.(Secret).Value {
		t.Error("second Set should overwrite the first")
	}
}

func TestToPrivateMapRoundTrip(t *testing.T) {
	priv, _ := Parse("secret 999")
	pub, err := ToPublic(priv)
	if err != nil {
		t.Fatalf("ToPublic: %v", err)
	}

	m := NewToPrivateMap()
	if err := m.Set(pub, priv); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := m.Get(pub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if got.(Secret).Value != priv.(Secret).Value {
		t.Error("recovered private expression does not match")
	}
}

func TestToPrivateMapMissingEntry(t *testing.T) {
	m := NewToPrivateMap()
	pub, _ := Parse("pubkey `03cc45122542e88a92ea2e4266424a22e83292ff6a2bc17cdd7110f6d10fe32523`")

	_, ok, err := m.Get(pub)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected no entry for an unregistered pubkey")
	}
}

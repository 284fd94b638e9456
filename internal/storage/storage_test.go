package storage

import "testing"

func TestNewInitializesSchema(t *testing.T) {
	s, err := New(&Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	tables := []string{
		"versions", "blocks", "transactions", "redemptions", "scripts",
		"outputs", "addresses", "wallets", "wallet_keys", "wallet_sequences",
		"wallet_unused_recipients", "wallet_account", "to_private", "invert_hash",
	}
	for _, tbl := range tables {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", tbl, err)
		}
	}
}

func TestNewIsIdempotent(t *testing.T) {
	cfg := &Config{Path: ":memory:"}
	s1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s1.Close()

	// Re-running initSchema against the same open connection must not error.
	if err := s1.initSchema(); err != nil {
		t.Fatalf("second initSchema: %v", err)
	}
}

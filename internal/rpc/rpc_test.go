package rpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/coordinator"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/network"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/walletreg"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := storage.New(&storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg, err := walletreg.NewRegistry(st)
	if err != nil {
		t.Fatalf("creating registry: %v", err)
	}
	rnd, err := random.New(random.Config{Seed: "rpc-test-seed", Nonce: "rpc-test-nonce"})
	if err != nil {
		t.Fatalf("creating randomness: %v", err)
	}

	params := &chaincfg.MainNetParams
	coord := coordinator.New(coordinator.Params{
		Registry:    reg,
		TxStore:     txdb.NewMemory(params),
		Network:     network.NewMock(),
		Randomness:  rnd,
		ChainParams: params,
	})

	s := NewServer(coord, nil, "test")
	return httptest.NewServer(s.routes())
}

func TestVersionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("GET /version: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestGenerateThenNextAddress(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/generate/alpha", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /generate/alpha: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Post(srv.URL+"/next_address/alpha?name=receive", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /next_address/alpha: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("next_address status = %d, want 200", resp2.StatusCode)
	}
}

func TestInvalidWalletNameRejected(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/make_wallet/123bad", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /make_wallet/123bad: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "problem+json") {
		t.Fatalf("Content-Type = %q, want application/problem+json", ct)
	}
}

func TestMissingWalletValueReturnsProblem(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/value/nosuchwallet")
	if err != nil {
		t.Fatalf("GET /value/nosuchwallet: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

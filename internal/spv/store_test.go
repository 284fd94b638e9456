package spv

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := storage.New(&storage.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewStore(s)
}

func TestInsertAndLookupHeader(t *testing.T) {
	store := newTestStore(t)

	h := Header{Height: 5, Hash: hashFromByte(0xaa), Root: hashFromByte(0xbb)}
	if err := store.InsertHeader(h); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}

	byHeight, ok, err := store.Header(5)
	if err != nil || !ok {
		t.Fatalf("Header: ok=%v err=%v", ok, err)
	}
	if byHeight.Hash != h.Hash || byHeight.Root != h.Root {
		t.Fatalf("Header mismatch: got %+v", byHeight)
	}

	byHash, ok, err := store.HeaderByHash(h.Hash)
	if err != nil || !ok || byHash.Height != 5 {
		t.Fatalf("HeaderByHash: ok=%v err=%v got=%+v", ok, err, byHash)
	}

	byRoot, ok, err := store.HeaderByRoot(h.Root)
	if err != nil || !ok || byRoot.Height != 5 {
		t.Fatalf("HeaderByRoot: ok=%v err=%v got=%+v", ok, err, byRoot)
	}
}

func TestHeaderMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Header(999)
	if err != nil {
		t.Fatalf("Header: unexpected error %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing header")
	}
}

func TestInsertBranchPersistsAcrossReload(t *testing.T) {
	store := newTestStore(t)

	leaves := [4]chainhash.Hash{hashFromByte(1), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 1)

	if err := store.InsertHeader(Header{Height: 10, Hash: hashFromByte(0x10), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := store.InsertBranch(root, 1, leaves[1], siblings); err != nil {
		t.Fatalf("InsertBranch: %v", err)
	}

	bump, ok, err := store.BUMPForRoot(root)
	if err != nil || !ok {
		t.Fatalf("BUMPForRoot: ok=%v err=%v", ok, err)
	}
	if !bump.Contains(leaves[1]) {
		t.Fatalf("expected reloaded BUMP to contain merged leaf")
	}
}

func TestInsertBranchRejectsMismatchedRoot(t *testing.T) {
	store := newTestStore(t)

	leaves := [4]chainhash.Hash{hashFromByte(1), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	_, siblings := buildBranch(t, leaves, 0)

	wrongRoot := hashFromByte(0xee)
	if err := store.InsertHeader(Header{Height: 20, Hash: hashFromByte(0x20), Root: wrongRoot}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := store.InsertBranch(wrongRoot, 0, leaves[0], siblings); err == nil {
		t.Fatalf("expected merkle-mismatch error")
	}
}

func TestRemoveHeaderReturnsConfirmedTxids(t *testing.T) {
	store := newTestStore(t)

	leaves := [4]chainhash.Hash{hashFromByte(1), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 0)

	if err := store.InsertHeader(Header{Height: 30, Hash: hashFromByte(0x30), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := store.InsertBranch(root, 0, leaves[0], siblings); err != nil {
		t.Fatalf("InsertBranch: %v", err)
	}

	removed, err := store.RemoveHeader(30)
	if err != nil {
		t.Fatalf("RemoveHeader: %v", err)
	}
	if len(removed) != 1 || removed[0] != leaves[0] {
		t.Fatalf("expected removed txids [%v], got %v", leaves[0], removed)
	}

	if _, ok, err := store.Header(30); err != nil || ok {
		t.Fatalf("expected header 30 to be gone: ok=%v err=%v", ok, err)
	}
}

func TestLatestHeight(t *testing.T) {
	store := newTestStore(t)

	if _, ok, err := store.LatestHeight(); err != nil || ok {
		t.Fatalf("expected no latest height on empty store: ok=%v err=%v", ok, err)
	}

	if err := store.InsertHeader(Header{Height: 1, Hash: hashFromByte(1), Root: hashFromByte(0x01)}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := store.InsertHeader(Header{Height: 7, Hash: hashFromByte(2), Root: hashFromByte(0x02)}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}

	height, ok, err := store.LatestHeight()
	if err != nil || !ok || height != 7 {
		t.Fatalf("LatestHeight: got %d ok=%v err=%v", height, ok, err)
	}
}

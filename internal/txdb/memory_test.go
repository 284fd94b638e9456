package txdb

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
)

var testParams = &chaincfg.MainNetParams

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func merkleParent(left, right chainhash.Hash) chainhash.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// buildBranch constructs a 4-leaf tree and returns the root plus the
// sibling path for the leaf at index, mirroring internal/spv's own test
// helper (kept local here to avoid a test-only cross-package dependency).
func buildBranch(t *testing.T, leaves [4]chainhash.Hash, index uint64) (chainhash.Hash, []chainhash.Hash) {
	t.Helper()
	ab := merkleParent(leaves[0], leaves[1])
	cd := merkleParent(leaves[2], leaves[3])
	root := merkleParent(ab, cd)

	var siblings []chainhash.Hash
	switch index {
	case 0:
		siblings = []chainhash.Hash{leaves[1], cd}
	case 1:
		siblings = []chainhash.Hash{leaves[0], cd}
	case 2:
		siblings = []chainhash.Hash{leaves[3], ab}
	case 3:
		siblings = []chainhash.Hash{leaves[2], ab}
	}
	return root, siblings
}

func p2pkhScript(t *testing.T, hash160 byte) ([]byte, string) {
	t.Helper()
	var h [20]byte
	h[0] = hash160
	addr, err := btcutil.NewAddressPubKeyHash(h[:], testParams)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}
	return script, addr.EncodeAddress()
}

func coinbaseLikeTx(t *testing.T, value int64, toHash160 byte) *wire.MsgTx {
	t.Helper()
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0xffffffff), []byte{0x51}, nil))
	script, _ := p2pkhScript(t, toHash160)
	tx.AddTxOut(wire.NewTxOut(value, script))
	return tx
}

func spendTx(t *testing.T, from *wire.MsgTx, value int64, toHash160 byte) *wire.MsgTx {
	t.Helper()
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(txHashPtr(from), 0), nil, nil))
	script, _ := p2pkhScript(t, toHash160)
	tx.AddTxOut(wire.NewTxOut(value, script))
	return tx
}

func txHashPtr(tx *wire.MsgTx) *chainhash.Hash {
	h := tx.TxHash()
	return &h
}

func TestInsertTxSetsPendingStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)
	tx := coinbaseLikeTx(t, 5000, 1)

	if err := m.InsertTx(ctx, tx); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}
	raw, conf, err := m.Tx(ctx, tx.TxHash())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if raw == nil {
		t.Fatalf("expected raw bytes")
	}
	if conf != nil {
		t.Fatalf("expected unconfirmed, got %+v", conf)
	}

	unconfirmed, err := m.Unconfirmed(ctx)
	if err != nil || len(unconfirmed) != 1 || unconfirmed[0] != tx.TxHash() {
		t.Fatalf("Unconfirmed: %v %v", unconfirmed, err)
	}
}

func TestInsertProofMarksMined(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)
	tx := coinbaseLikeTx(t, 5000, 1)
	if err := m.InsertTx(ctx, tx); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}

	leaves := [4]chainhash.Hash{tx.TxHash(), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 0)
	if err := m.InsertHeader(spv.Header{Height: 10, Hash: hashFromByte(0x10), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := m.InsertProof(ctx, root, 0, tx.TxHash(), siblings); err != nil {
		t.Fatalf("InsertProof: %v", err)
	}

	_, conf, err := m.Tx(ctx, tx.TxHash())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if conf == nil || conf.Height != 10 {
		t.Fatalf("expected mined at height 10, got %+v", conf)
	}

	unconfirmed, err := m.Unconfirmed(ctx)
	if err != nil || len(unconfirmed) != 0 {
		t.Fatalf("expected no unconfirmed txs, got %v", unconfirmed)
	}
}

func TestInsertProofUnknownBlockFails(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)
	tx := coinbaseLikeTx(t, 5000, 1)
	if err := m.InsertTx(ctx, tx); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}
	err := m.InsertProof(ctx, hashFromByte(0xaa), 0, tx.TxHash(), nil)
	if err == nil {
		t.Fatalf("expected unknown-block error")
	}
}

func TestByAddressOrdersInBeforeOut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)

	funding := coinbaseLikeTx(t, 5000, 7)
	_, addr := p2pkhScript(t, 7)
	if err := m.InsertTx(ctx, funding); err != nil {
		t.Fatalf("InsertTx funding: %v", err)
	}

	leaves := [4]chainhash.Hash{funding.TxHash(), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 0)
	if err := m.InsertHeader(spv.Header{Height: 1, Hash: hashFromByte(0x01), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := m.InsertProof(ctx, root, 0, funding.TxHash(), siblings); err != nil {
		t.Fatalf("InsertProof: %v", err)
	}

	spend := spendTx(t, funding, 4000, 9)
	if err := m.InsertTx(ctx, spend); err != nil {
		t.Fatalf("InsertTx spend: %v", err)
	}

	events, err := m.ByAddress(ctx, addr)
	if err != nil {
		t.Fatalf("ByAddress: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Direction != DirectionIn {
		t.Fatalf("expected confirmed In event first, got %+v", events[0])
	}
	if events[1].Direction != DirectionOut || events[1].Confirmed {
		t.Fatalf("expected unconfirmed Out event second, got %+v", events[1])
	}
}

func TestRedeeming(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)

	funding := coinbaseLikeTx(t, 5000, 7)
	if err := m.InsertTx(ctx, funding); err != nil {
		t.Fatalf("InsertTx funding: %v", err)
	}
	spend := spendTx(t, funding, 4000, 9)
	if err := m.InsertTx(ctx, spend); err != nil {
		t.Fatalf("InsertTx spend: %v", err)
	}

	ev, err := m.Redeeming(ctx, Outpoint{Txid: funding.TxHash(), Index: 0})
	if err != nil {
		t.Fatalf("Redeeming: %v", err)
	}
	if ev == nil || ev.Txid != spend.TxHash() {
		t.Fatalf("expected redeeming event for spend tx, got %+v", ev)
	}
}

func TestRemovePendingOnlyAndCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)

	funding := coinbaseLikeTx(t, 5000, 7)
	spend := spendTx(t, funding, 4000, 9)
	if err := m.InsertTx(ctx, funding); err != nil {
		t.Fatalf("InsertTx funding: %v", err)
	}
	if err := m.InsertTx(ctx, spend); err != nil {
		t.Fatalf("InsertTx spend: %v", err)
	}

	if err := m.Remove(ctx, spend.TxHash()); err != nil {
		t.Fatalf("Remove pending: %v", err)
	}
	ev, err := m.Redeeming(ctx, Outpoint{Txid: funding.TxHash(), Index: 0})
	if err != nil {
		t.Fatalf("Redeeming: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected redemption cascade to be removed, got %+v", ev)
	}
}

func TestRemoveMinedForbidden(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)
	tx := coinbaseLikeTx(t, 5000, 1)
	if err := m.InsertTx(ctx, tx); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}

	leaves := [4]chainhash.Hash{tx.TxHash(), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 0)
	if err := m.InsertHeader(spv.Header{Height: 1, Hash: hashFromByte(0x01), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := m.InsertProof(ctx, root, 0, tx.TxHash(), siblings); err != nil {
		t.Fatalf("InsertProof: %v", err)
	}

	if err := m.Remove(ctx, tx.TxHash()); err == nil {
		t.Fatalf("expected removal of a mined tx to fail")
	}
}

func TestReorgDemotesToPending(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(testParams)
	tx := coinbaseLikeTx(t, 5000, 1)
	if err := m.InsertTx(ctx, tx); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}

	leaves := [4]chainhash.Hash{tx.TxHash(), hashFromByte(2), hashFromByte(3), hashFromByte(4)}
	root, siblings := buildBranch(t, leaves, 0)
	if err := m.InsertHeader(spv.Header{Height: 100, Hash: hashFromByte(0x64), Root: root}); err != nil {
		t.Fatalf("InsertHeader: %v", err)
	}
	if err := m.InsertProof(ctx, root, 0, tx.TxHash(), siblings); err != nil {
		t.Fatalf("InsertProof: %v", err)
	}

	if err := m.HandleReorg(ctx, []chainhash.Hash{tx.TxHash()}); err != nil {
		t.Fatalf("HandleReorg: %v", err)
	}

	unconfirmed, err := m.Unconfirmed(ctx)
	if err != nil || len(unconfirmed) != 1 || unconfirmed[0] != tx.TxHash() {
		t.Fatalf("expected tx demoted to unconfirmed, got %v err=%v", unconfirmed, err)
	}
	_, conf, err := m.Tx(ctx, tx.TxHash())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if conf != nil {
		t.Fatalf("expected no confirmation after reorg, got %+v", conf)
	}
}

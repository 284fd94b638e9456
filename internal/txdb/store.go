package txdb

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Store is the transaction store (C3): content-addressed raw
// transactions, confirmation status, and the address/script-hash/
// redemption indices derived from them. Two implementations exist
// behind this interface: a sqlite-backed Store for production and an
// in-memory Store for tests.
type Store interface {
	// InsertTx writes or updates the raw transaction keyed by its txid.
	// If the txid was not previously known, its status becomes pending.
	InsertTx(ctx context.Context, tx *wire.MsgTx) error

	// InsertProof merges a Merkle branch into the BUMP of the block with
	// the given root. If the txid is already stored, its status becomes
	// mined at that block's height. Fails with merkle-mismatch if the
	// branch does not rehash to the block's root, or unknown-block if no
	// header with that root has been inserted.
	InsertProof(ctx context.Context, root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error

	// InsertTxWithPath is the composite of InsertTx and InsertProof,
	// checked for mutual consistency.
	InsertTxWithPath(ctx context.Context, tx *wire.MsgTx, root chainhash.Hash, leafIndex uint64, siblings []chainhash.Hash) error

	// Tx returns the raw transaction bytes and, if mined, its
	// confirmation (height, expanded Merkle path, and header).
	Tx(ctx context.Context, txid chainhash.Hash) (raw []byte, conf *Confirmation, err error)

	// ByAddress returns every event touching outputs paying addr, in
	// the total order spec §4.3 defines.
	ByAddress(ctx context.Context, addr string) ([]Event, error)

	// ByScriptHash returns every event touching outputs with the given
	// script hash, in the same order as ByAddress.
	ByScriptHash(ctx context.Context, hash [32]byte) ([]Event, error)

	// Redeeming returns the event that spends the given outpoint, if any.
	Redeeming(ctx context.Context, out Outpoint) (*Event, error)

	// Unconfirmed returns every txid currently in pending status.
	Unconfirmed(ctx context.Context) ([]chainhash.Hash, error)

	// Remove deletes a pending transaction and its derived index
	// entries. Removing a mined transaction is forbidden; only a reorg
	// (HandleReorg) may demote a mined tx back to pending.
	Remove(ctx context.Context, txid chainhash.Hash) error

	// HandleReorg demotes every txid in removedTxids back to pending,
	// called by the caller coordinating with internal/spv.RemoveHeader.
	HandleReorg(ctx context.Context, removedTxids []chainhash.Hash) error
}

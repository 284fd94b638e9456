// Package network is the adapter (C8) between the wallet core and a
// blockchain data provider: fetching transactions, headers, Merkle
// proofs, and address/script history, submitting transactions, and
// quoting fees and fiat prices. The core never depends on a concrete
// provider, only on the Adapter interface below.
package network

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Status is the outcome of submitting one transaction, spec §4.8's
// closed broadcast-status taxonomy.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusInsufficientFee     Status = "insufficient-fee"
	StatusInvalidTransaction  Status = "invalid-transaction"
	StatusInauthenticated     Status = "inauthenticated"
	StatusNetworkConnectFail  Status = "network-connection-fail"
	StatusUnknown             Status = "unknown"
)

// SubmitResult is one transaction's broadcast outcome: the status plus
// an opaque provider payload for fee-insufficiency and invalidity
// diagnostics.
type SubmitResult struct {
	Txid    chainhash.Hash
	Status  Status
	Payload string
}

// HeaderInfo is a block header together with the height it was mined
// at, the unit fetch_header_by_hash/fetch_header_by_height return.
type HeaderInfo struct {
	Height uint32
	Raw    [80]byte
	Hash   chainhash.Hash
	Root   chainhash.Hash
}

// MerkleProofResult is the block a transaction was confirmed in plus
// its Merkle branch: the ordered sibling hashes from the transaction's
// leaf up to (but not including) the root.
type MerkleProofResult struct {
	BlockHash  chainhash.Hash
	LeafIndex  uint64
	Siblings   []chainhash.Hash
}

// Adapter is the full set of abstract operations the wallet core
// depends on, spec §4.8. Every method that reaches the network takes a
// context for cancellation; none of them may be called while holding a
// wallet-registry write lock (§5).
type Adapter interface {
	FetchTx(ctx context.Context, txid chainhash.Hash) ([]byte, bool, error)
	FetchHeaderByHash(ctx context.Context, hash chainhash.Hash) (HeaderInfo, bool, error)
	FetchHeaderByHeight(ctx context.Context, height uint32) (HeaderInfo, bool, error)
	FetchMerkleProof(ctx context.Context, txid chainhash.Hash) (MerkleProofResult, bool, error)
	FetchAddressHistory(ctx context.Context, address string) ([]chainhash.Hash, error)
	FetchScriptHistory(ctx context.Context, scriptHash chainhash.Hash) ([]chainhash.Hash, error)

	// Submit satisfies internal/spend.Submitter directly: the spend
	// pipeline's broadcast tree can submit through an Adapter with no
	// adapter layer of its own.
	Submit(ctx context.Context, raw []byte) error
	SubmitBatch(ctx context.Context, raws [][]byte) ([]SubmitResult, error)

	FeeQuote(ctx context.Context) (satPerByte float64, err error)
	FiatPrice(ctx context.Context, unit string, at time.Time) (float64, error)
}

package network

import (
	"context"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Mock is an in-memory Adapter double for tests: every fetch answers
// from a map populated by the test, every submit is recorded rather
// than sent anywhere.
type Mock struct {
	mu sync.Mutex

	Txs              map[chainhash.Hash][]byte
	HeadersByHash    map[chainhash.Hash]HeaderInfo
	HeadersByHeight  map[uint32]HeaderInfo
	MerkleProofs     map[chainhash.Hash]MerkleProofResult
	AddressHistories map[string][]chainhash.Hash
	ScriptHistories  map[chainhash.Hash][]chainhash.Hash
	FeeRate          float64
	FiatRates        map[string]float64

	Submitted    [][]byte
	SubmitResult SubmitResult
	SubmitErr    error
}

// NewMock returns an empty Mock ready for a test to populate.
func NewMock() *Mock {
	return &Mock{
		Txs:              map[chainhash.Hash][]byte{},
		HeadersByHash:    map[chainhash.Hash]HeaderInfo{},
		HeadersByHeight:  map[uint32]HeaderInfo{},
		MerkleProofs:     map[chainhash.Hash]MerkleProofResult{},
		AddressHistories: map[string][]chainhash.Hash{},
		ScriptHistories:  map[chainhash.Hash][]chainhash.Hash{},
		FiatRates:        map[string]float64{},
		SubmitResult:     SubmitResult{Status: StatusSuccess},
	}
}

func (m *Mock) FetchTx(ctx context.Context, txid chainhash.Hash) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.Txs[txid]
	return raw, ok, nil
}

func (m *Mock) FetchHeaderByHash(ctx context.Context, hash chainhash.Hash) (HeaderInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.HeadersByHash[hash]
	return h, ok, nil
}

func (m *Mock) FetchHeaderByHeight(ctx context.Context, height uint32) (HeaderInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.HeadersByHeight[height]
	return h, ok, nil
}

func (m *Mock) FetchMerkleProof(ctx context.Context, txid chainhash.Hash) (MerkleProofResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.MerkleProofs[txid]
	return p, ok, nil
}

func (m *Mock) FetchAddressHistory(ctx context.Context, address string) ([]chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AddressHistories[address], nil
}

func (m *Mock) FetchScriptHistory(ctx context.Context, scriptHash chainhash.Hash) ([]chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ScriptHistories[scriptHash], nil
}

func (m *Mock) Submit(ctx context.Context, raw []byte) error {
	m.mu.Lock()
	m.Submitted = append(m.Submitted, raw)
	err := m.SubmitErr
	status := m.SubmitResult.Status
	payload := m.SubmitResult.Payload
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if status != StatusSuccess {
		return &BroadcastError{Status: status, Payload: payload}
	}
	return nil
}

func (m *Mock) SubmitBatch(ctx context.Context, raws [][]byte) ([]SubmitResult, error) {
	results := make([]SubmitResult, len(raws))
	for i, raw := range raws {
		err := m.Submit(ctx, raw)
		if err != nil {
			if be, ok := err.(*BroadcastError); ok {
				results[i] = SubmitResult{Status: be.Status, Payload: be.Payload}
				continue
			}
			return results, err
		}
		results[i] = SubmitResult{Status: StatusSuccess}
	}
	return results, nil
}

func (m *Mock) FeeQuote(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FeeRate, nil
}

func (m *Mock) FiatPrice(ctx context.Context, unit string, at time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FiatRates[unit], nil
}

// BroadcastError reports a non-success submit outcome as an error
// while preserving the structured status and provider payload.
type BroadcastError struct {
	Status  Status
	Payload string
}

func (e *BroadcastError) Error() string {
	return "network: broadcast status " + string(e.Status) + ": " + e.Payload
}

var _ Adapter = (*Mock)(nil)
var _ Adapter = (*WhatsOnChain)(nil)

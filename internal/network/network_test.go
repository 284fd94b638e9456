package network

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func TestMockFetchTxReturnsFalseWhenUnknown(t *testing.T) {
	m := NewMock()
	_, ok, err := m.FetchTx(context.Background(), hashFromByte(1))
	if err != nil {
		t.Fatalf("FetchTx: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a txid the mock has never seen")
	}
}

func TestMockFetchTxReturnsSeededValue(t *testing.T) {
	m := NewMock()
	txid := hashFromByte(2)
	m.Txs[txid] = []byte{0xde, 0xad, 0xbe, 0xef}

	raw, ok, err := m.FetchTx(context.Background(), txid)
	if err != nil {
		t.Fatalf("FetchTx: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true for a seeded txid")
	}
	if len(raw) != 4 {
		t.Fatalf("expected 4 raw bytes, got %d", len(raw))
	}
}

func TestMockSubmitRecordsRawBytes(t *testing.T) {
	m := NewMock()
	raw := []byte{1, 2, 3}
	if err := m.Submit(context.Background(), raw); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(m.Submitted) != 1 {
		t.Fatalf("expected 1 submitted transaction, got %d", len(m.Submitted))
	}
}

func TestMockSubmitReturnsConfiguredFailure(t *testing.T) {
	m := NewMock()
	m.SubmitResult = SubmitResult{Status: StatusInsufficientFee, Payload: "fee too low"}

	err := m.Submit(context.Background(), []byte{1})
	if err == nil {
		t.Fatalf("expected an error when the mock is configured to fail")
	}
	be, ok := err.(*BroadcastError)
	if !ok {
		t.Fatalf("expected a *BroadcastError, got %T", err)
	}
	if be.Status != StatusInsufficientFee {
		t.Fatalf("expected status insufficient-fee, got %s", be.Status)
	}
}

func TestMockSubmitBatchReportsPerTransactionStatus(t *testing.T) {
	m := NewMock()
	m.SubmitResult = SubmitResult{Status: StatusSuccess}

	results, err := m.SubmitBatch(context.Background(), [][]byte{{1}, {2}, {3}})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Status != StatusSuccess {
			t.Fatalf("result %d: expected success, got %s", i, r.Status)
		}
	}
}

func TestMockFeeQuoteAndFiatPrice(t *testing.T) {
	m := NewMock()
	m.FeeRate = 0.5
	m.FiatRates["USD"] = 42000.12

	rate, err := m.FeeQuote(context.Background())
	if err != nil {
		t.Fatalf("FeeQuote: %v", err)
	}
	if rate != 0.5 {
		t.Fatalf("expected fee rate 0.5, got %f", rate)
	}

	price, err := m.FiatPrice(context.Background(), "USD", time.Now())
	if err != nil {
		t.Fatalf("FiatPrice: %v", err)
	}
	if price != 42000.12 {
		t.Fatalf("expected price 42000.12, got %f", price)
	}
}

func TestMockFetchAddressAndScriptHistory(t *testing.T) {
	m := NewMock()
	addr := "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
	scriptHash := hashFromByte(5)
	m.AddressHistories[addr] = []chainhash.Hash{hashFromByte(1), hashFromByte(2)}
	m.ScriptHistories[scriptHash] = []chainhash.Hash{hashFromByte(3)}

	addrHist, err := m.FetchAddressHistory(context.Background(), addr)
	if err != nil {
		t.Fatalf("FetchAddressHistory: %v", err)
	}
	if len(addrHist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(addrHist))
	}

	scriptHist, err := m.FetchScriptHistory(context.Background(), scriptHash)
	if err != nil {
		t.Fatalf("FetchScriptHistory: %v", err)
	}
	if len(scriptHist) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(scriptHist))
	}
}

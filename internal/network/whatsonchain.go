package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// WhatsOnChain is an Adapter backed by a WhatsOnChain-style block
// explorer REST API, grounded on the same client shape the teacher
// uses for mempool.space: a bare *http.Client plus a small set of
// request helpers, no generated client code.
type WhatsOnChain struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
}

// NewWhatsOnChain returns an Adapter that talks to baseURL, an API
// rooted the way https://api.whatsonchain.com/v1/bsv/main is: network
// and chain already baked into the path.
func NewWhatsOnChain(baseURL string) *WhatsOnChain {
	return &WhatsOnChain{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    newRateLimiter(3, time.Second),
	}
}

func (w *WhatsOnChain) get(ctx context.Context, path string, out interface{}) (bool, error) {
	if err := w.limiter.wait(ctx); err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+path, nil)
	if err != nil {
		return false, err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("network: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("network: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return true, nil
	}
	return true, json.NewDecoder(resp.Body).Decode(out)
}

// FetchTx returns the raw transaction bytes for txid, or false if the
// provider doesn't know it.
func (w *WhatsOnChain) FetchTx(ctx context.Context, txid chainhash.Hash) ([]byte, bool, error) {
	var hexBody string
	ok, err := w.get(ctx, "/tx/"+txid.String()+"/hex", &hexBody)
	if err != nil || !ok {
		return nil, ok, err
	}
	raw, err := hex.DecodeString(strings.TrimSpace(hexBody))
	if err != nil {
		return nil, false, fmt.Errorf("network: decoding raw tx hex: %w", err)
	}
	return raw, true, nil
}

type headerJSON struct {
	Hash         string  `json:"hash"`
	Height       uint32  `json:"height"`
	MerkleRoot   string  `json:"merkleroot"`
	PreviousHash string  `json:"previousblockhash"`
	Version      int32   `json:"version"`
	Time         int64   `json:"time"`
	Bits         string  `json:"bits"`
	Nonce        uint32  `json:"nonce"`
}

func (w *WhatsOnChain) fetchHeader(ctx context.Context, path string) (HeaderInfo, bool, error) {
	var h headerJSON
	ok, err := w.get(ctx, path, &h)
	if err != nil || !ok {
		return HeaderInfo{}, ok, err
	}

	hash, err := chainhash.NewHashFromStr(h.Hash)
	if err != nil {
		return HeaderInfo{}, false, fmt.Errorf("network: parsing block hash: %w", err)
	}
	root, err := chainhash.NewHashFromStr(h.MerkleRoot)
	if err != nil {
		return HeaderInfo{}, false, fmt.Errorf("network: parsing merkle root: %w", err)
	}

	return HeaderInfo{Height: h.Height, Hash: *hash, Root: *root}, true, nil
}

// FetchHeaderByHash returns the block header with the given hash.
func (w *WhatsOnChain) FetchHeaderByHash(ctx context.Context, hash chainhash.Hash) (HeaderInfo, bool, error) {
	return w.fetchHeader(ctx, "/block/"+hash.String()+"/header")
}

// FetchHeaderByHeight returns the block header at the given height.
func (w *WhatsOnChain) FetchHeaderByHeight(ctx context.Context, height uint32) (HeaderInfo, bool, error) {
	return w.fetchHeader(ctx, "/block/height/"+strconv.FormatUint(uint64(height), 10)+"/header")
}

type merkleProofJSON struct {
	BlockHash string `json:"blockHash"`
	Branches  []struct {
		Hash string `json:"hash"`
		Pos  string `json:"pos"` // "L" or "R"
	} `json:"branches"`
	Index uint64 `json:"index"`
}

// FetchMerkleProof returns the Merkle branch proving txid was included
// in a block, ordered leaf-up.
func (w *WhatsOnChain) FetchMerkleProof(ctx context.Context, txid chainhash.Hash) (MerkleProofResult, bool, error) {
	var proof merkleProofJSON
	ok, err := w.get(ctx, "/tx/"+txid.String()+"/proof/tsc", &proof)
	if err != nil || !ok {
		return MerkleProofResult{}, ok, err
	}

	blockHash, err := chainhash.NewHashFromStr(proof.BlockHash)
	if err != nil {
		return MerkleProofResult{}, false, fmt.Errorf("network: parsing proof block hash: %w", err)
	}

	siblings := make([]chainhash.Hash, len(proof.Branches))
	for i, b := range proof.Branches {
		h, err := chainhash.NewHashFromStr(b.Hash)
		if err != nil {
			return MerkleProofResult{}, false, fmt.Errorf("network: parsing proof sibling %d: %w", i, err)
		}
		siblings[i] = *h
	}

	return MerkleProofResult{BlockHash: *blockHash, LeafIndex: proof.Index, Siblings: siblings}, true, nil
}

// FetchAddressHistory returns every txid that touches address, oldest
// first.
func (w *WhatsOnChain) FetchAddressHistory(ctx context.Context, address string) ([]chainhash.Hash, error) {
	var entries []struct {
		TxHash string `json:"tx_hash"`
	}
	_, err := w.get(ctx, "/address/"+address+"/history", &entries)
	if err != nil {
		return nil, err
	}
	return parseTxidList(entries)
}

// FetchScriptHistory returns every txid that touches the script whose
// hash is scriptHash, oldest first.
func (w *WhatsOnChain) FetchScriptHistory(ctx context.Context, scriptHash chainhash.Hash) ([]chainhash.Hash, error) {
	var entries []struct {
		TxHash string `json:"tx_hash"`
	}
	_, err := w.get(ctx, "/script/"+scriptHash.String()+"/history", &entries)
	if err != nil {
		return nil, err
	}
	return parseTxidList(entries)
}

func parseTxidList(entries []struct {
	TxHash string `json:"tx_hash"`
}) ([]chainhash.Hash, error) {
	out := make([]chainhash.Hash, len(entries))
	for i, e := range entries {
		h, err := chainhash.NewHashFromStr(e.TxHash)
		if err != nil {
			return nil, fmt.Errorf("network: parsing history txid %d: %w", i, err)
		}
		out[i] = *h
	}
	return out, nil
}

// Submit broadcasts a raw transaction, satisfying spend.Submitter.
func (w *WhatsOnChain) Submit(ctx context.Context, raw []byte) error {
	results, err := w.SubmitBatch(ctx, [][]byte{raw})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("network: broadcaster returned no result")
	}
	if results[0].Status != StatusSuccess {
		return fmt.Errorf("network: broadcast status %s: %s", results[0].Status, results[0].Payload)
	}
	return nil
}

// SubmitBatch broadcasts several raw transactions, one request per
// transaction (the provider has no true batch-broadcast endpoint),
// returning a per-transaction status.
func (w *WhatsOnChain) SubmitBatch(ctx context.Context, raws [][]byte) ([]SubmitResult, error) {
	results := make([]SubmitResult, len(raws))
	for i, raw := range raws {
		results[i] = w.submitOne(ctx, raw)
	}
	return results, nil
}

func (w *WhatsOnChain) submitOne(ctx context.Context, raw []byte) SubmitResult {
	if err := w.limiter.wait(ctx); err != nil {
		return SubmitResult{Status: StatusNetworkConnectFail, Payload: err.Error()}
	}

	body := map[string]string{"txhex": hex.EncodeToString(raw)}
	encoded, err := json.Marshal(body)
	if err != nil {
		return SubmitResult{Status: StatusUnknown, Payload: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/tx/raw", bytes.NewReader(encoded))
	if err != nil {
		return SubmitResult{Status: StatusUnknown, Payload: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return SubmitResult{Status: StatusNetworkConnectFail, Payload: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return SubmitResult{Status: StatusSuccess, Payload: strings.TrimSpace(string(respBody))}
	case http.StatusUnauthorized, http.StatusForbidden:
		return SubmitResult{Status: StatusInauthenticated, Payload: string(respBody)}
	default:
		lower := strings.ToLower(string(respBody))
		switch {
		case strings.Contains(lower, "fee"):
			return SubmitResult{Status: StatusInsufficientFee, Payload: string(respBody)}
		case strings.Contains(lower, "invalid") || strings.Contains(lower, "bad-txns"):
			return SubmitResult{Status: StatusInvalidTransaction, Payload: string(respBody)}
		default:
			return SubmitResult{Status: StatusUnknown, Payload: string(respBody)}
		}
	}
}

// FeeQuote returns the provider's recommended relay fee rate in
// satoshis per byte.
func (w *WhatsOnChain) FeeQuote(ctx context.Context) (float64, error) {
	var quote struct {
		StandardRate float64 `json:"standard_rate"`
	}
	ok, err := w.get(ctx, "/fee/quote", &quote)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("network: no fee quote available")
	}
	return quote.StandardRate, nil
}

// FiatPrice returns unit's price (e.g. "USD") at the given time. Most
// block explorer APIs only quote the current price; at is accepted for
// interface symmetry with spec §4.8 and always ignored by this
// implementation, which returns the current price.
func (w *WhatsOnChain) FiatPrice(ctx context.Context, unit string, at time.Time) (float64, error) {
	var quote map[string]float64
	ok, err := w.get(ctx, "/exchangerate/"+strings.ToUpper(unit), &quote)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("network: no exchange rate available for %s", unit)
	}
	rate, found := quote["rate"]
	if !found {
		return 0, fmt.Errorf("network: exchange rate response missing rate field")
	}
	return rate, nil
}

// rateLimiter is a fixed-window token bucket, grounded on the
// original_source whatsonchain client's own internal rate limiter (3
// requests per second).
type rateLimiter struct {
	mu       sync.Mutex
	tokens   int
	max      int
	interval time.Duration
	last     time.Time
}

func newRateLimiter(max int, interval time.Duration) *rateLimiter {
	return &rateLimiter{tokens: max, max: max, interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	if r.last.IsZero() {
		r.last = timeNow()
	}
	elapsed := timeNow().Sub(r.last)
	if elapsed >= r.interval {
		r.tokens = r.max
		r.last = timeNow()
	}
	if r.tokens > 0 {
		r.tokens--
		r.mu.Unlock()
		return nil
	}
	wait := r.interval - elapsed
	r.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func timeNow() time.Time {
	return time.Now()
}

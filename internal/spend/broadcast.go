package spend

import (
	"bytes"
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Submitter pushes one raw transaction to the network and reports
// whether the broadcaster accepted it, the minimal slice of C8 this
// package depends on.
type Submitter interface {
	Submit(ctx context.Context, raw []byte) error
}

// Outcome is one transaction's result within a broadcast tree.
type Outcome struct {
	Txid      chainhash.Hash
	Broadcast bool
	Err       error
}

// TreeResult records, per transaction, whether it was accepted, plus
// the first fatal error encountered (if any) that halted the walk.
type TreeResult struct {
	Outcomes   []Outcome
	FirstError error
}

// BroadcastTree walks a dependency-ordered list of spend results
// bottom-up: txs[0] depends on nothing outside the account, each
// subsequent transaction depends only on ones before it in the list
// (per spec §4.7, a single logical spend may emit several dependent
// transactions). Submission stops at the first failure; transactions
// already broadcast are not rolled back, matching spec §4.7's note
// that a partial failure still leaves prior successes intact.
func BroadcastTree(ctx context.Context, txs []*TxResult, sub Submitter) TreeResult {
	result := TreeResult{Outcomes: make([]Outcome, 0, len(txs))}

	for _, tx := range txs {
		txid := tx.Tx.TxHash()

		raw, err := serializeTx(tx)
		if err != nil {
			result.Outcomes = append(result.Outcomes, Outcome{Txid: txid, Err: err})
			if result.FirstError == nil {
				result.FirstError = err
			}
			break
		}

		if err := sub.Submit(ctx, raw); err != nil {
			result.Outcomes = append(result.Outcomes, Outcome{Txid: txid, Err: err})
			if result.FirstError == nil {
				result.FirstError = err
			}
			break
		}

		result.Outcomes = append(result.Outcomes, Outcome{Txid: txid, Broadcast: true})
	}

	return result
}

func serializeTx(tx *TxResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

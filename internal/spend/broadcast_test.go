package spend

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/account"
)

type recordingSubmitter struct {
	failOn  int
	calls   int
	lengths []int
}

func (s *recordingSubmitter) Submit(ctx context.Context, raw []byte) error {
	s.calls++
	s.lengths = append(s.lengths, len(raw))
	if s.failOn != 0 && s.calls == s.failOn {
		return errors.New("broadcaster rejected transaction")
	}
	return nil
}

func txResultWithOutput(value int64) *TxResult {
	tx := wire.NewMsgTx(wire.TxVersion)
	var hash chainhash.Hash
	hash[0] = byte(value)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))
	return &TxResult{Tx: tx, Diff: account.Diff{Txid: tx.TxHash()}}
}

func TestBroadcastTreeSubmitsEveryTransactionInOrder(t *testing.T) {
	txs := []*TxResult{txResultWithOutput(100), txResultWithOutput(200), txResultWithOutput(300)}
	sub := &recordingSubmitter{}

	result := BroadcastTree(context.Background(), txs, sub)

	if result.FirstError != nil {
		t.Fatalf("expected no error, got %v", result.FirstError)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(result.Outcomes))
	}
	for i, out := range result.Outcomes {
		if !out.Broadcast {
			t.Fatalf("outcome %d: expected Broadcast=true", i)
		}
		if out.Err != nil {
			t.Fatalf("outcome %d: expected no error, got %v", i, out.Err)
		}
		if out.Txid != txs[i].Tx.TxHash() {
			t.Fatalf("outcome %d: txid mismatch", i)
		}
	}
	if sub.calls != 3 {
		t.Fatalf("expected 3 submit calls, got %d", sub.calls)
	}
}

func TestBroadcastTreeStopsAtFirstFailure(t *testing.T) {
	txs := []*TxResult{txResultWithOutput(10), txResultWithOutput(20), txResultWithOutput(30)}
	sub := &recordingSubmitter{failOn: 2}

	result := BroadcastTree(context.Background(), txs, sub)

	if result.FirstError == nil {
		t.Fatalf("expected a first error")
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected submission to stop after the failing transaction, got %d outcomes", len(result.Outcomes))
	}
	if !result.Outcomes[0].Broadcast {
		t.Fatalf("expected the first transaction to have broadcast successfully")
	}
	if result.Outcomes[1].Broadcast {
		t.Fatalf("expected the second transaction to have failed, not broadcast")
	}
	if sub.calls != 2 {
		t.Fatalf("expected exactly 2 submit calls (stopping at the failure), got %d", sub.calls)
	}
}

func TestBroadcastTreeEmptyListSucceedsTrivially(t *testing.T) {
	sub := &recordingSubmitter{}
	result := BroadcastTree(context.Background(), nil, sub)
	if result.FirstError != nil {
		t.Fatalf("expected no error for an empty transaction tree, got %v", result.FirstError)
	}
	if len(result.Outcomes) != 0 {
		t.Fatalf("expected no outcomes for an empty transaction tree")
	}
	if sub.calls != 0 {
		t.Fatalf("expected no submit calls for an empty transaction tree")
	}
}

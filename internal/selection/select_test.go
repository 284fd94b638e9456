package selection

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/account"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

// buildAccount inserts one UTXO per value, each in its own synthetic
// transaction, with a fixed expected P2PKH input size.
func buildAccount(t *testing.T, values ...int64) *account.Account {
	t.Helper()
	a := account.New()
	for i, v := range values {
		diff := account.Diff{
			Txid: hashFromByte(byte(i + 1)),
			Inserts: []account.Insertion{
				{Index: 0, Entry: account.Entry{PrevoutValue: v, ExpectedScriptSize: 148}},
			},
		}
		next, err := account.Apply(a, diff)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		a = next
	}
	return a
}

func TestSelectFailsWhenAccountValueTooLow(t *testing.T) {
	a := buildAccount(t, 100, 200)
	r := testSource(t)
	_, err := Select(a, 1000, 1, Params{OptimalOutputsPerSpend: 1}, r)
	if err == nil {
		t.Fatalf("expected insufficient-funds error")
	}
	if k, ok := cosmoserr.KindOf(err); !ok || k != cosmoserr.InsufficientFunds {
		t.Fatalf("expected InsufficientFunds kind, got %v ok=%v", k, ok)
	}
}

func TestSelectReturnsAllInputsWhenNoneRemovable(t *testing.T) {
	a := buildAccount(t, 100, 200)
	r := testSource(t)
	params := Params{OptimalOutputsPerSpend: 1, MinChangeValue: 40}
	result, err := Select(a, 250, 0, params, r)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.Inputs) != 2 {
		t.Fatalf("expected both inputs retained (removing either breaks the change constraint), got %d", len(result.Inputs))
	}
}

func TestSelectDropsExcessInputsWhenChangeConstraintsAllow(t *testing.T) {
	a := buildAccount(t, 100, 200, 400, 800)
	r := testSource(t)
	params := Params{
		OptimalOutputsPerSpend: 2,
		MinChangeValue:         10,
		MinChangeFraction:      0,
		MaxChangeFraction:      0,
	}
	result, err := Select(a, 500, 0.5, params, r)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.Inputs) == 0 || len(result.Inputs) > 4 {
		t.Fatalf("unexpected input count: %d", len(result.Inputs))
	}
	if result.SpentValue <= 500 {
		t.Fatalf("spent value %d must exceed the target payment value", result.SpentValue)
	}
}

func TestSelectSpentValueAlwaysCoversTarget(t *testing.T) {
	a := buildAccount(t, 150, 300, 900, 1500, 3000)
	r := testSource(t)
	params := Params{OptimalOutputsPerSpend: 2, MinChangeValue: 50, MinChangeFraction: 0.1, MaxChangeFraction: 0.3}
	result, err := Select(a, 1000, 0.2, params, r)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	withFee := 1000 + int64(0.2*float64(result.InputsExpectedSize))
	if result.SpentValue < withFee {
		t.Fatalf("spent value %d does not cover target plus fee %d", result.SpentValue, withFee)
	}

	seen := map[txdb.Outpoint]bool{}
	for _, p := range result.Inputs {
		if seen[p.Outpoint] {
			t.Fatalf("duplicate outpoint %v in selection result", p.Outpoint)
		}
		seen[p.Outpoint] = true
	}
}

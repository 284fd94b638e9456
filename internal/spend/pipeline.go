// Package spend implements the spend pipeline (C7): select inputs,
// compose a transaction, construct change under the log-triangular
// distribution, permute outputs, sign every input with BSV's
// SIGHASH_FORKID convention, and produce the resulting transaction
// plus the account diff it implies.
package spend

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/account"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/selection"
	"github.com/Gigamonkey-BSV/cosmos-wallet/pkg/helpers"
)

// Target is one payment this spend must make.
type Target struct {
	Script []byte
	Value  int64
}

// ChangeParams bounds the log-triangular distribution change
// construction draws from.
type ChangeParams struct {
	MinValue  int64
	MaxValue  int64
	MeanValue int64
}

// KeyResolver looks up the private expression registered against a
// public one, the wallet registry's `to_private` map (C4).
type KeyResolver interface {
	ToPrivate(ctx context.Context, pub keys.Expr) (keys.Expr, bool, error)
}

// ChangeSink advances a wallet's change-key sequence, returning the next
// public key expression and the script paying it, plus the account
// entry metadata that should back any output sent there.
type ChangeSink interface {
	NextChangeKey(ctx context.Context) (pubExpr keys.Expr, script []byte, derivation string, expectedScriptSize int, err error)
}

// Params bundles everything one spend call needs beyond the account and
// targets: fee rate in satoshis per byte, selection tunables, change
// distribution tunables, and the randomness source driving every
// non-deterministic step.
type Params struct {
	FeeRate    float64
	Selection  selection.Params
	Change     ChangeParams
	MinOutput  int64
	Randomness random.Source
}

// TxResult is one transaction this spend pipeline produced: the signed
// transaction and the account diff applying it implies.
type TxResult struct {
	Tx   *wire.MsgTx
	Diff account.Diff
}

// Build runs the full C7 algorithm for a single logical spend (one set
// of targets against one account), returning the signed transaction and
// its account diff. It does not broadcast; that is the caller's (C8's)
// responsibility.
func Build(ctx context.Context, acc *account.Account, targets []Target, params Params, resolver KeyResolver, sink ChangeSink) (*TxResult, error) {
	var targetValue int64
	for _, t := range targets {
		targetValue += t.Value
	}

	sel, err := selection.Select(acc, targetValue, params.FeeRate, params.Selection, params.Randomness)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range sel.Inputs {
		outpoint := wire.NewOutPoint(&in.Outpoint.Txid, in.Outpoint.Index)
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	}
	for _, t := range targets {
		tx.AddTxOut(wire.NewTxOut(t.Value, t.Script))
	}

	sizeWithoutChange := placeholderSize(tx, sel.Inputs)
	changeAmount := sel.SpentValue - targetValue - helpers.FeeForSize(sizeWithoutChange, params.FeeRate)
	if changeAmount < 0 {
		return nil, cosmoserr.New(cosmoserr.UnsatisfiableChangeConstraints, "selected inputs do not cover target value plus fees")
	}

	minOutput := params.MinOutput
	if minOutput <= 0 {
		minOutput = params.Change.MinValue
	}

	var dist *selection.LogTriangular
	if changeAmount > 0 {
		dist, err = selection.NewLogTriangular(float64(params.Change.MinValue), float64(params.Change.MaxValue), float64(params.Change.MeanValue))
		if err != nil {
			return nil, err
		}
	}

	type outputPlan struct {
		value      int64
		script     []byte
		isChange   bool
		derivation string
		scriptSize int
	}

	var permuted []outputPlan

	// The fee budget in step 3 was computed against a transaction with no
	// change outputs yet; adding them can push the size, and so the
	// effective fee rate, below the target. Retry with a smaller change
	// budget a bounded number of times before giving up, per spec §4.7
	// step 6's "retry with a smaller target change, else propagate".
	const maxAttempts = 6
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var changeOutputs []changeDraw
		if changeAmount > 0 {
			values := selection.ComposeChange(changeAmount, dist, minOutput, params.Randomness)
			for _, v := range values {
				pubExpr, script, derivation, scriptSize, err := sink.NextChangeKey(ctx)
				if err != nil {
					return nil, fmt.Errorf("spend: advancing change sequence: %w", err)
				}
				_ = pubExpr
				changeOutputs = append(changeOutputs, changeDraw{value: v, script: script, derivation: derivation, scriptSize: scriptSize})
			}
		}

		plans := make([]outputPlan, 0, len(targets)+len(changeOutputs))
		for _, t := range targets {
			plans = append(plans, outputPlan{value: t.Value, script: t.Script})
		}
		for _, c := range changeOutputs {
			plans = append(plans, outputPlan{value: c.value, script: c.script, isChange: true, derivation: c.derivation, scriptSize: c.scriptSize})
		}

		permutation := permute(len(plans), params.Randomness)
		candidate := make([]outputPlan, len(plans))
		for i, p := range permutation {
			candidate[p] = plans[i]
		}

		tx.TxOut = tx.TxOut[:0]
		for _, p := range candidate {
			tx.AddTxOut(wire.NewTxOut(p.value, p.script))
		}

		size := placeholderSize(tx, sel.Inputs)
		feePaid := sel.SpentValue - targetValue - sumChange(changeOutputs)
		feeRate := float64(feePaid) / float64(size)

		if feeRate >= params.FeeRate || changeAmount <= 0 {
			permuted = candidate
			break
		}

		shortfall := helpers.FeeForSize(size, params.FeeRate) - feePaid
		if shortfall <= 0 {
			permuted = candidate
			break
		}
		changeAmount -= shortfall
		if changeAmount < 0 {
			changeAmount = 0
		}
		if attempt == maxAttempts-1 {
			return nil, cosmoserr.New(cosmoserr.FeeRateRegression, "final transaction size undershot the fee-rate target after repeated change-budget retries")
		}
	}

	for i, in := range sel.Inputs {
		priv, err := resolvePrivateKey(ctx, resolver, in.Entry.Derivations)
		if err != nil {
			return nil, fmt.Errorf("spend: resolving signing key for input %d: %w", i, err)
		}
		scriptSig, err := signP2PKHForkID(tx, i, priv, in.Entry.PrevoutScript, in.Entry.PrevoutValue)
		if err != nil {
			return nil, fmt.Errorf("spend: signing input %d: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = scriptSig
	}

	txid := tx.TxHash()
	diff := account.Diff{Txid: txid}
	for _, in := range sel.Inputs {
		diff.Removes = append(diff.Removes, in.Outpoint)
	}
	for i, p := range permuted {
		if !p.isChange {
			continue
		}
		diff.Inserts = append(diff.Inserts, account.Insertion{
			Index: uint32(i),
			Entry: account.Entry{
				PrevoutValue:       p.value,
				PrevoutScript:      p.script,
				Derivations:        []string{p.derivation},
				ExpectedScriptSize: p.scriptSize,
			},
		})
	}

	return &TxResult{Tx: tx, Diff: diff}, nil
}

// changeDraw is one drawn change-output value paired with the change
// key it will pay.
type changeDraw struct {
	value      int64
	script     []byte
	derivation string
	scriptSize int
}

func sumChange(outs []changeDraw) int64 {
	var total int64
	for _, o := range outs {
		total += o.value
	}
	return total
}

// placeholderSize estimates the serialized transaction size with each
// signature input replaced by its declared expected script size, so fee
// calculations don't require the real signatures yet.
func placeholderSize(tx *wire.MsgTx, inputs []selection.Picked) int {
	const baseOverhead = 10
	size := baseOverhead
	for _, in := range inputs {
		size += 40 + varIntSize(uint64(in.Entry.ExpectedScriptSize)) + in.Entry.ExpectedScriptSize
	}
	for _, out := range tx.TxOut {
		size += 8 + varIntSize(uint64(len(out.PkScript))) + len(out.PkScript)
	}
	return size
}

func varIntSize(v uint64) int {
	switch {
	case v < 0xfd:
		return 1
	case v <= 0xffff:
		return 3
	case v <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// permute returns a random permutation of [0, n), mapping each original
// index to its new position.
func permute(n int, r random.Source) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(r.Uint32(uint32(i)))
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func resolvePrivateKey(ctx context.Context, resolver KeyResolver, derivations []string) (*btcec.PrivateKey, error) {
	if len(derivations) == 0 {
		return nil, fmt.Errorf("no derivation recorded for this input")
	}
	pubExpr, err := keys.Parse(derivations[0])
	if err != nil {
		return nil, fmt.Errorf("parsing recorded derivation: %w", err)
	}
	privExpr, ok, err := resolver.ToPrivate(ctx, pubExpr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, cosmoserr.New(cosmoserr.KeyMissing, "no private key registered for this input's public expression")
	}
	secret, err := keys.AsSecret(privExpr)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(secret.Value[:])
	return priv, nil
}

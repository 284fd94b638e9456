package coordinator

import (
	"context"
	"fmt"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/selection"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spend"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/walletreg"
)

// defaultSelection and defaultChange are the drop-down selection and
// change-distribution tunables used until the HTTP surface exposes a
// way to override them per call, grounded in spec.md's worked example
// (optimal-outputs-per-spend = 2).
var (
	defaultSelection = selection.Params{
		OptimalOutputsPerSpend: 2,
		MinChangeValue:         1,
		MinChangeFraction:      0,
		MaxChangeFraction:      1,
	}
	defaultChange = spend.ChangeParams{
		MinValue:  1,
		MaxValue:  100_000_000,
		MeanValue: 100_000,
	}
)

// Spend builds, signs, and broadcasts a single-payment transaction from
// wallet's folded account, advancing its change sequence for any
// change output produced. On success the new transaction (its change
// output and the inputs it redeems) is recorded in the transaction
// store so the next fold reflects it.
func (c *Coordinator) Spend(ctx context.Context, wallet, toAddress string, value int64) (*spend.TxResult, error) {
	acc, _, err := c.buildAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}

	script, err := p2pkhScript(toAddress, c.params)
	if err != nil {
		return nil, err
	}

	feeRate, err := c.net.FeeQuote(ctx)
	if err != nil {
		return nil, fmt.Errorf("quoting fee rate: %w", err)
	}

	params := spend.Params{
		FeeRate:    feeRate,
		Selection:  defaultSelection,
		Change:     defaultChange,
		Randomness: c.rnd.Casual,
	}

	result, err := spend.Build(ctx, acc, []spend.Target{{Script: script, Value: value}}, params,
		registryKeyResolver{c.reg}, &walletChangeSink{c: c, wallet: wallet})
	if err != nil {
		return nil, err
	}

	tree := spend.BroadcastTree(ctx, []*spend.TxResult{result}, c.net)
	if tree.FirstError != nil {
		return nil, fmt.Errorf("broadcasting transaction: %w", tree.FirstError)
	}

	if err := c.txs.InsertTx(ctx, result.Tx); err != nil {
		return nil, fmt.Errorf("recording broadcast transaction: %w", err)
	}
	return result, nil
}

// registryKeyResolver adapts the wallet registry's to_private map to
// spend.KeyResolver.
type registryKeyResolver struct {
	reg *walletreg.Registry
}

func (r registryKeyResolver) ToPrivate(ctx context.Context, pub keys.Expr) (keys.Expr, bool, error) {
	return r.reg.GetToPrivate(ctx, pub)
}

// walletChangeSink implements spend.ChangeSink by advancing wallet's
// change sequence, creating it on first use.
type walletChangeSink struct {
	c      *Coordinator
	wallet string
}

func (s *walletChangeSink) NextChangeKey(ctx context.Context) (keys.Expr, []byte, string, int, error) {
	exists, err := s.c.reg.HasSequence(ctx, s.wallet, changeSequence)
	if err != nil {
		return nil, nil, "", 0, err
	}
	if !exists {
		return nil, nil, "", 0, fmt.Errorf("wallet %q has no change sequence; generate or restore it first", s.wallet)
	}

	pubExpr, priv, err := s.c.advance(ctx, s.wallet, changeSequence)
	if err != nil {
		return nil, nil, "", 0, err
	}
	addrExpr, err := keys.AsAddress(pubExpr)
	if err != nil {
		return nil, nil, "", 0, err
	}
	human, err := encodeAddress(addrExpr)
	if err != nil {
		return nil, nil, "", 0, err
	}
	if err := s.c.watchRecipient(ctx, s.wallet, human, pubExpr, priv); err != nil {
		return nil, nil, "", 0, err
	}
	script, err := p2pkhScript(human, s.c.params)
	if err != nil {
		return nil, nil, "", 0, err
	}
	derivation, err := keys.Render(pubExpr, pubExpr.Kind())
	if err != nil {
		return nil, nil, "", 0, err
	}
	return pubExpr, script, derivation, p2pkhUnlockScriptSize, nil
}

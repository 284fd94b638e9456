package coordinator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/account"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
)

// buildAccount folds every event against a wallet's recipients into an
// Account, per spec §4.5: an output is a live entry unless some
// transaction already redeems it. It also returns the raw event stream,
// reused by Details to derive history without re-querying the store.
func (c *Coordinator) buildAccount(ctx context.Context, wallet string) (*account.Account, []txdb.Event, error) {
	recipients, err := c.reg.AllRecipients(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}

	acc := account.New()
	var events []txdb.Event
	for _, recipient := range recipients {
		recipientEvents, err := c.txs.ByAddress(ctx, recipient)
		if err != nil {
			return nil, nil, fmt.Errorf("loading events for recipient: %w", err)
		}
		events = append(events, recipientEvents...)

		for _, e := range recipientEvents {
			if e.Direction != txdb.DirectionIn {
				continue
			}
			out := txdb.Outpoint{Txid: e.Txid, Index: e.Index}
			redeeming, err := c.txs.Redeeming(ctx, out)
			if err != nil {
				return nil, nil, fmt.Errorf("checking redemption: %w", err)
			}
			if redeeming != nil {
				continue
			}
			entry, err := c.accountEntryFor(ctx, wallet, recipient, out, e.Value)
			if err != nil {
				return nil, nil, err
			}
			acc, err = account.Apply(acc, account.Diff{
				Txid:    out.Txid,
				Inserts: []account.Insertion{{Index: out.Index, Entry: entry}},
			})
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return acc, events, nil
}

// accountEntryFor reconstructs the redemption metadata for an unspent
// output paying recipient: the prevout's value and script from the
// stored raw transaction, and the signing derivation from the public
// key expression watchRecipient bound to recipient's name.
func (c *Coordinator) accountEntryFor(ctx context.Context, wallet, recipient string, out txdb.Outpoint, value int64) (account.Entry, error) {
	raw, _, err := c.txs.Tx(ctx, out.Txid)
	if err != nil {
		return account.Entry{}, fmt.Errorf("loading prevout transaction: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return account.Entry{}, fmt.Errorf("decoding prevout transaction: %w", err)
	}
	if int(out.Index) >= len(tx.TxOut) {
		return account.Entry{}, fmt.Errorf("prevout index %d out of range for transaction %s", out.Index, out.Txid)
	}

	pubExpr, err := c.reg.GetKey(ctx, wallet, recipient)
	if err != nil {
		return account.Entry{}, fmt.Errorf("recovering signing derivation for %s: %w", recipient, err)
	}
	derivation, err := keys.Render(pubExpr, pubExpr.Kind())
	if err != nil {
		return account.Entry{}, fmt.Errorf("rendering signing derivation: %w", err)
	}

	return account.Entry{
		PrevoutValue:       value,
		PrevoutScript:      tx.TxOut[out.Index].PkScript,
		Derivations:        []string{derivation},
		ExpectedScriptSize: p2pkhUnlockScriptSize,
	}, nil
}

// Value returns a wallet's total spendable satoshi value.
func (c *Coordinator) Value(ctx context.Context, wallet string) (int64, error) {
	acc, _, err := c.buildAccount(ctx, wallet)
	if err != nil {
		return 0, err
	}
	return acc.Value(), nil
}

// Details is the `/details/<wallet>` response shape: the current
// spendable total plus reverse-chronological per-transaction history.
type Details struct {
	Value   int64                  `json:"value"`
	History []account.EventSummary `json:"history"`
}

// Details returns a wallet's current value and folded history.
func (c *Coordinator) Details(ctx context.Context, wallet string) (Details, error) {
	acc, events, err := c.buildAccount(ctx, wallet)
	if err != nil {
		return Details{}, err
	}
	return Details{Value: acc.Value(), History: account.History(events)}, nil
}

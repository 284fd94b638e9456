// Package account is the per-wallet UTXO set (C5): a value aggregate
// mapping outpoint to redemption metadata, mutated only through
// diffs, plus history reconstruction folded from the transaction
// store's event stream.
package account

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
)

// Entry is one spendable output's redemption metadata: everything the
// spend pipeline needs to build an unlocking script for it without
// touching the key store again until signing time.
type Entry struct {
	PrevoutValue        int64
	PrevoutScript       []byte
	Derivations         []string // key-expression texts, in the order needed to sign
	ExpectedScriptSize  int
	PartialUnlockScript []byte
}

// Account is an immutable value: a snapshot of the outpoints a wallet
// can currently spend. It is never mutated in place; Apply returns a
// new Account reflecting a diff.
type Account struct {
	entries map[string]Entry
	byOut   map[string]txdb.Outpoint
}

// New returns an empty account.
func New() *Account {
	return &Account{entries: map[string]Entry{}, byOut: map[string]txdb.Outpoint{}}
}

// Get returns the entry for out, if present.
func (a *Account) Get(out txdb.Outpoint) (Entry, bool) {
	e, ok := a.entries[string(out.Bytes())]
	return e, ok
}

// Outpoints returns every outpoint currently in the account, in no
// particular order.
func (a *Account) Outpoints() []txdb.Outpoint {
	out := make([]txdb.Outpoint, 0, len(a.byOut))
	for _, o := range a.byOut {
		out = append(out, o)
	}
	return out
}

// Value returns the total satoshi value of every entry in the account.
func (a *Account) Value() int64 {
	var total int64
	for _, e := range a.entries {
		total += e.PrevoutValue
	}
	return total
}

// Len returns the number of entries in the account.
func (a *Account) Len() int {
	return len(a.entries)
}

// Insertion is one new account entry, addressed by its index within
// Diff's Txid.
type Insertion struct {
	Index uint32
	Entry Entry
}

// Diff is the only way an Account changes: remove every outpoint in
// Removes, then insert every (Txid, Index) -> Entry pair in Inserts.
type Diff struct {
	Txid    chainhash.Hash
	Inserts []Insertion
	Removes []txdb.Outpoint
}

func (d Diff) insertedOutpoints() []txdb.Outpoint {
	out := make([]txdb.Outpoint, len(d.Inserts))
	for i, ins := range d.Inserts {
		out[i] = txdb.Outpoint{Txid: d.Txid, Index: ins.Index}
	}
	return out
}

// Apply is the monoid action `a <<= diff`: it returns a new Account with
// every outpoint in diff.Removes removed and every diff.Inserts entry
// added, or fails with diff-conflict if any outpoint in Removes is not
// present in a (the diff is not applied at all in that case).
func Apply(a *Account, diff Diff) (*Account, error) {
	for _, out := range diff.Removes {
		if _, ok := a.entries[string(out.Bytes())]; !ok {
			return nil, cosmoserr.New(cosmoserr.DiffConflict, "diff removes an outpoint not present in the account")
		}
	}

	next := &Account{
		entries: make(map[string]Entry, len(a.entries)+len(diff.Inserts)),
		byOut:   make(map[string]txdb.Outpoint, len(a.byOut)+len(diff.Inserts)),
	}
	removed := make(map[string]bool, len(diff.Removes))
	for _, out := range diff.Removes {
		removed[string(out.Bytes())] = true
	}
	for key, e := range a.entries {
		if removed[key] {
			continue
		}
		next.entries[key] = e
		next.byOut[key] = a.byOut[key]
	}

	inserted := diff.insertedOutpoints()
	for i, ins := range diff.Inserts {
		out := inserted[i]
		key := string(out.Bytes())
		next.entries[key] = ins.Entry
		next.byOut[key] = out
	}

	return next, nil
}

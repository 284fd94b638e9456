package txdb

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Redemption is the link a spending input creates from the output it
// consumes to the input that consumes it.
type Redemption struct {
	Outpoint Outpoint
	Inpoint  Inpoint
}

// deriveRedemptions returns one Redemption per input of tx.
func deriveRedemptions(tx *wire.MsgTx) []Redemption {
	txid := tx.TxHash()
	out := make([]Redemption, 0, len(tx.TxIn))
	for i, in := range tx.TxIn {
		out = append(out, Redemption{
			Outpoint: Outpoint{Txid: in.PreviousOutPoint.Hash, Index: in.PreviousOutPoint.Index},
			Inpoint:  Inpoint{Txid: txid, Index: uint32(i)},
		})
	}
	return out
}

// scriptHash returns the content-addressed key scripts and outputs are
// indexed under.
func scriptHash(script []byte) [32]byte {
	return sha256.Sum256(script)
}

// OutputEntry is one output's secondary-index contribution: its script
// hash, the script itself, and, when the script is a recognized
// pay-to-address template, the address it pays.
type OutputEntry struct {
	Outpoint Outpoint
	Value    int64
	Script   []byte
	Hash     [32]byte
	Address  string // empty if the script is not a recognized pay-to-address template
}

// deriveOutputs returns one OutputEntry per output of tx, resolving
// addresses against params where the output script is a standard
// pay-to-address template (P2PKH; BSV has no SegWit/Taproot templates).
func deriveOutputs(tx *wire.MsgTx, params *chaincfg.Params) []OutputEntry {
	txid := tx.TxHash()
	out := make([]OutputEntry, 0, len(tx.TxOut))
	for i, o := range tx.TxOut {
		entry := OutputEntry{
			Outpoint: Outpoint{Txid: txid, Index: uint32(i)},
			Value:    o.Value,
			Script:   o.PkScript,
			Hash:     scriptHash(o.PkScript),
		}
		if _, addrs, _, err := txscript.ExtractPkScriptAddrs(o.PkScript, params); err == nil && len(addrs) == 1 {
			if _, ok := addrs[0].(*btcutil.AddressPubKeyHash); ok {
				entry.Address = addrs[0].EncodeAddress()
			}
		}
		out = append(out, entry)
	}
	return out
}

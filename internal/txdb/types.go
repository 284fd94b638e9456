// Package txdb is the content-addressed store of raw transactions and the
// secondary indices (redemption links, script/address index) derived from
// them, plus the confirmation status each transaction carries once a
// Merkle branch for it is known.
package txdb

import (
	"encoding/binary"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
)

// Outpoint identifies a transaction output: the txid that created it and
// its index within that transaction's output list.
type Outpoint struct {
	Txid  chainhash.Hash
	Index uint32
}

// Bytes encodes the outpoint as spec §6 describes: 32-byte txid followed
// by a 4-byte little-endian index, suitable as a map/database key.
func (o Outpoint) Bytes() []byte {
	b := make([]byte, 36)
	copy(b[:32], o.Txid[:])
	binary.LittleEndian.PutUint32(b[32:], o.Index)
	return b
}

// ParseOutpoint decodes the encoding Bytes produces.
func ParseOutpoint(b []byte) (Outpoint, bool) {
	if len(b) != 36 {
		return Outpoint{}, false
	}
	var o Outpoint
	copy(o.Txid[:], b[:32])
	o.Index = binary.LittleEndian.Uint32(b[32:])
	return o, true
}

// Inpoint identifies a transaction input: the txid that spends some
// output and the index of that input within the spending transaction.
type Inpoint struct {
	Txid  chainhash.Hash
	Index uint32
}

// Bytes encodes the inpoint using the same 36-byte layout as Outpoint.
func (i Inpoint) Bytes() []byte {
	b := make([]byte, 36)
	copy(b[:32], i.Txid[:])
	binary.LittleEndian.PutUint32(b[32:], i.Index)
	return b
}

// ParseInpoint decodes the encoding Bytes produces.
func ParseInpoint(b []byte) (Inpoint, bool) {
	if len(b) != 36 {
		return Inpoint{}, false
	}
	var i Inpoint
	copy(i.Txid[:], b[:32])
	i.Index = binary.LittleEndian.Uint32(b[32:])
	return i, true
}

// Direction distinguishes an incoming output event from an outgoing
// spend event. In sorts before Out so that, within one block and one
// in-block index, a transaction's outputs are ordered ahead of its
// redemptions.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

// Event is one appearance of a txid in a wallet's history: an output it
// created (direction In) or an input that spent one (direction Out).
// Time is the zero value when the event is unconfirmed.
type Event struct {
	Txid         chainhash.Hash
	Direction    Direction
	Index        uint32
	Value        int64
	Confirmed    bool
	Time         time.Time
	InBlockIndex uint32
}

// Less orders events by (time, in-block index, direction, output index),
// the total order spec §4.3 specifies for confirmed events. Unconfirmed
// events (Confirmed == false) sort after all confirmed ones.
func (e Event) Less(other Event) bool {
	if e.Confirmed != other.Confirmed {
		return e.Confirmed
	}
	if !e.Time.Equal(other.Time) {
		return e.Time.Before(other.Time)
	}
	if e.InBlockIndex != other.InBlockIndex {
		return e.InBlockIndex < other.InBlockIndex
	}
	if e.Direction != other.Direction {
		return e.Direction < other.Direction
	}
	return e.Index < other.Index
}

// Confirmation bundles a transaction's mined height with the fully
// expanded Merkle path and header proving it.
type Confirmation struct {
	Height uint32
	Header spv.Header
	BUMP   *spv.BUMP
}

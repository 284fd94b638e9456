package txdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
)

// errRemoveMined signals a programmer error: the HTTP surface never
// exposes tx removal directly, so this can only be triggered by a caller
// inside the process violating the store's own invariant.
var errRemoveMined = errors.New("txdb: cannot remove a mined transaction; reorg is the only way to demote one to pending")

type status int

const (
	statusPending status = iota
	statusMined
)

type txRecord struct {
	tx           *wire.MsgTx
	raw          []byte
	status       status
	height       uint32
	root         chainhash.Hash
	inBlockIndex uint32
}

type blockRecord struct {
	header spv.Header
	bump   *spv.BUMP
}

// Memory is a fully in-process Store, holding no sqlite or filesystem
// state. It is the test double the rest of the wallet's packages are
// built and tested against.
type Memory struct {
	mu     sync.RWMutex
	params *chaincfg.Params

	blocksByHeight map[uint32]*blockRecord
	blocksByRoot   map[chainhash.Hash]*blockRecord

	txs         map[chainhash.Hash]*txRecord
	redemptions map[string]Inpoint     // outpoint bytes -> spending inpoint
	outputs     map[string]OutputEntry // outpoint bytes -> derived output
}

// NewMemory returns an empty in-process Store for the given network.
func NewMemory(params *chaincfg.Params) *Memory {
	return &Memory{
		params:         params,
		blocksByHeight: map[uint32]*blockRecord{},
		blocksByRoot:   map[chainhash.Hash]*blockRecord{},
		txs:            map[chainhash.Hash]*txRecord{},
		redemptions:    map[string]Inpoint{},
		outputs:        map[string]OutputEntry{},
	}
}

// InsertHeader registers a block header with Memory's own lightweight
// header registry, mirroring internal/spv.Store.InsertHeader for tests
// that exercise txdb without a real header store.
func (m *Memory) InsertHeader(h spv.Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocksByHeight[h.Height]; ok {
		return nil
	}
	rec := &blockRecord{header: h, bump: spv.NewBUMP(h.Height, h.Root)}
	m.blocksByHeight[h.Height] = rec
	m.blocksByRoot[h.Root] = rec
	return nil
}

func headerTime(raw [80]byte) time.Time {
	if raw == ([80]byte{}) {
		return time.Time{}
	}
	ts := binary.LittleEndian.Uint32(raw[68:72])
	return time.Unix(int64(ts), 0).UTC()
}

func (m *Memory) InsertTx(_ context.Context, tx *wire.MsgTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertTxLocked(tx)
}

func (m *Memory) insertTxLocked(tx *wire.MsgTx) error {
	txid := tx.TxHash()
	var raw bytes.Buffer
	if err := tx.Serialize(&raw); err != nil {
		return err
	}

	if existing, ok := m.txs[txid]; ok {
		existing.tx = tx
		existing.raw = raw.Bytes()
	} else {
		m.txs[txid] = &txRecord{tx: tx, raw: raw.Bytes(), status: statusPending}
	}

	for _, r := range deriveRedemptions(tx) {
		m.redemptions[string(r.Outpoint.Bytes())] = r.Inpoint
	}
	for _, o := range deriveOutputs(tx, m.params) {
		m.outputs[string(o.Outpoint.Bytes())] = o
	}
	return nil
}

func (m *Memory) InsertProof(_ context.Context, root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertProofLocked(root, leafIndex, leafTxid, siblings)
}

func (m *Memory) insertProofLocked(root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error {
	rec, ok := m.blocksByRoot[root]
	if !ok {
		return cosmoserr.New(cosmoserr.UnknownBlock, "no header known with this Merkle root")
	}
	if err := rec.bump.MergeBranch(leafIndex, leafTxid, siblings); err != nil {
		return err
	}
	if t, ok := m.txs[leafTxid]; ok {
		t.status = statusMined
		t.height = rec.header.Height
		t.root = root
		t.inBlockIndex = uint32(leafIndex)
	}
	return nil
}

func (m *Memory) InsertTxWithPath(_ context.Context, tx *wire.MsgTx, root chainhash.Hash, leafIndex uint64, siblings []chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertTxLocked(tx); err != nil {
		return err
	}
	return m.insertProofLocked(root, leafIndex, tx.TxHash(), siblings)
}

func (m *Memory) Tx(_ context.Context, txid chainhash.Hash) ([]byte, *Confirmation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.txs[txid]
	if !ok {
		return nil, nil, nil
	}
	if rec.status != statusMined {
		return rec.raw, nil, nil
	}
	block := m.blocksByRoot[rec.root]
	return rec.raw, &Confirmation{Height: rec.height, Header: block.header, BUMP: block.bump}, nil
}

func (m *Memory) eventsForOutpoint(op Outpoint, entry OutputEntry) []Event {
	var events []Event
	creator, creatorOK := m.txs[op.Txid]
	inEvent := Event{
		Txid:         op.Txid,
		Direction:    DirectionIn,
		Index:        op.Index,
		Value:        entry.Value,
		InBlockIndex: 0,
	}
	if creatorOK && creator.status == statusMined {
		block := m.blocksByRoot[creator.root]
		inEvent.Confirmed = true
		inEvent.Time = headerTime(block.header.Raw)
		inEvent.InBlockIndex = creator.inBlockIndex
	}
	events = append(events, inEvent)

	if inp, ok := m.redemptions[string(op.Bytes())]; ok {
		spender, spenderOK := m.txs[inp.Txid]
		outEvent := Event{
			Txid:      inp.Txid,
			Direction: DirectionOut,
			Index:     inp.Index,
			Value:     entry.Value,
		}
		if spenderOK && spender.status == statusMined {
			block := m.blocksByRoot[spender.root]
			outEvent.Confirmed = true
			outEvent.Time = headerTime(block.header.Raw)
			outEvent.InBlockIndex = spender.inBlockIndex
		}
		events = append(events, outEvent)
	}
	return events
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].Less(events[j]) })
}

func (m *Memory) ByAddress(_ context.Context, addr string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []Event
	for opBytes, entry := range m.outputs {
		if entry.Address != addr {
			continue
		}
		op, _ := ParseOutpoint([]byte(opBytes))
		events = append(events, m.eventsForOutpoint(op, entry)...)
	}
	sortEvents(events)
	return events, nil
}

func (m *Memory) ByScriptHash(_ context.Context, hash [32]byte) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []Event
	for opBytes, entry := range m.outputs {
		if entry.Hash != hash {
			continue
		}
		op, _ := ParseOutpoint([]byte(opBytes))
		events = append(events, m.eventsForOutpoint(op, entry)...)
	}
	sortEvents(events)
	return events, nil
}

func (m *Memory) Redeeming(_ context.Context, out Outpoint) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inp, ok := m.redemptions[string(out.Bytes())]
	if !ok {
		return nil, nil
	}
	entry, ok := m.outputs[string(out.Bytes())]
	if !ok {
		return nil, nil
	}
	events := m.eventsForOutpoint(out, entry)
	for _, e := range events {
		if e.Direction == DirectionOut && e.Txid == inp.Txid && e.Index == inp.Index {
			ev := e
			return &ev, nil
		}
	}
	return nil, nil
}

func (m *Memory) Unconfirmed(_ context.Context) ([]chainhash.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []chainhash.Hash
	for txid, rec := range m.txs {
		if rec.status == statusPending {
			out = append(out, txid)
		}
	}
	return out, nil
}

func (m *Memory) Remove(_ context.Context, txid chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.txs[txid]
	if !ok {
		return nil
	}
	if rec.status == statusMined {
		return errRemoveMined
	}
	for _, r := range deriveRedemptions(rec.tx) {
		delete(m.redemptions, string(r.Outpoint.Bytes()))
	}
	for _, o := range deriveOutputs(rec.tx, m.params) {
		delete(m.outputs, string(o.Outpoint.Bytes()))
	}
	delete(m.txs, txid)
	return nil
}

func (m *Memory) HandleReorg(_ context.Context, removedTxids []chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txid := range removedTxids {
		if rec, ok := m.txs[txid]; ok {
			rec.status = statusPending
			rec.height = 0
			rec.root = chainhash.Hash{}
			rec.inBlockIndex = 0
		}
	}
	return nil
}

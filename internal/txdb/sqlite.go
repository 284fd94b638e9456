package txdb

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
)

const (
	statusByteMined   = 0b1000_0000
	statusBytePending = 0b1111_0101
)

// sqliteStore is the production Store, persisting through the shared
// wallet database and delegating header/BUMP bookkeeping to
// internal/spv.Store.
type sqliteStore struct {
	db     *sql.DB
	spv    spv.Store
	params *chaincfg.Params
}

// NewSQLiteStore returns a production Store over s's shared connection,
// using spvStore for header and Merkle-proof lookups.
func NewSQLiteStore(s *storage.Storage, spvStore spv.Store, params *chaincfg.Params) Store {
	return &sqliteStore{db: s.DB(), spv: spvStore, params: params}
}

func (s *sqliteStore) InsertTx(_ context.Context, tx *wire.MsgTx) error {
	txid := tx.TxHash()
	var raw bytes.Buffer
	if err := tx.Serialize(&raw); err != nil {
		return fmt.Errorf("serializing tx: %w", err)
	}

	var existingStatus sql.NullInt64
	err := s.db.QueryRow(`SELECT status FROM transactions WHERE hash = ?`, txid[:]).Scan(&existingStatus)
	status := statusBytePending
	if err == nil && existingStatus.Valid {
		status = int(existingStatus.Int64)
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking existing tx: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO transactions (hash, tx, height, status) VALUES (?, ?, NULL, ?)
		 ON CONFLICT(hash) DO UPDATE SET tx = excluded.tx`,
		txid[:], raw.Bytes(), status,
	)
	if err != nil {
		return fmt.Errorf("inserting tx: %w", err)
	}

	for _, r := range deriveRedemptions(tx) {
		if _, err := s.db.Exec(
			`INSERT INTO redemptions (outpoint, inpoint) VALUES (?, ?) ON CONFLICT(outpoint) DO NOTHING`,
			r.Outpoint.Bytes(), r.Inpoint.Bytes(),
		); err != nil {
			return fmt.Errorf("inserting redemption: %w", err)
		}
	}

	for _, o := range deriveOutputs(tx, s.params) {
		if _, err := s.db.Exec(
			`INSERT INTO scripts (hash, script) VALUES (?, ?) ON CONFLICT(hash) DO NOTHING`,
			o.Hash[:], o.Script,
		); err != nil {
			return fmt.Errorf("inserting script: %w", err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO outputs (outpoint, script_hash) VALUES (?, ?) ON CONFLICT(outpoint) DO UPDATE SET script_hash = excluded.script_hash`,
			o.Outpoint.Bytes(), o.Hash[:],
		); err != nil {
			return fmt.Errorf("inserting output index: %w", err)
		}
		if o.Address != "" {
			if _, err := s.db.Exec(
				`INSERT INTO addresses (address, script_hash) VALUES (?, ?) ON CONFLICT(address, script_hash) DO NOTHING`,
				o.Address, o.Hash[:],
			); err != nil {
				return fmt.Errorf("inserting address index: %w", err)
			}
		}
	}
	return nil
}

func (s *sqliteStore) InsertProof(_ context.Context, root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error {
	header, ok, err := s.spv.HeaderByRoot(root)
	if err != nil {
		return err
	}
	if !ok {
		return cosmoserr.New(cosmoserr.UnknownBlock, "no header known with this Merkle root")
	}
	if err := s.spv.InsertBranch(root, leafIndex, leafTxid, siblings); err != nil {
		return err
	}

	res, err := s.db.Exec(
		`UPDATE transactions SET status = ?, height = ? WHERE hash = ?`,
		statusByteMined, header.Height, leafTxid[:],
	)
	if err != nil {
		return fmt.Errorf("marking tx mined: %w", err)
	}
	_, _ = res.RowsAffected()
	return nil
}

func (s *sqliteStore) InsertTxWithPath(ctx context.Context, tx *wire.MsgTx, root chainhash.Hash, leafIndex uint64, siblings []chainhash.Hash) error {
	if err := s.InsertTx(ctx, tx); err != nil {
		return err
	}
	return s.InsertProof(ctx, root, leafIndex, tx.TxHash(), siblings)
}

func (s *sqliteStore) Tx(_ context.Context, txid chainhash.Hash) ([]byte, *Confirmation, error) {
	var raw []byte
	var status int
	var height sql.NullInt64
	err := s.db.QueryRow(`SELECT tx, status, height FROM transactions WHERE hash = ?`, txid[:]).Scan(&raw, &status, &height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading tx: %w", err)
	}
	if status != statusByteMined || !height.Valid {
		return raw, nil, nil
	}

	h, ok, err := s.spv.Header(uint32(height.Int64))
	if err != nil || !ok {
		return raw, nil, err
	}
	bump, ok, err := s.spv.BUMPForRoot(h.Root)
	if err != nil || !ok {
		return raw, nil, err
	}
	return raw, &Confirmation{Height: h.Height, Header: h, BUMP: bump}, nil
}

func (s *sqliteStore) eventsForOutpoint(op Outpoint, value int64) ([]Event, error) {
	var events []Event

	inEvent := Event{Txid: op.Txid, Direction: DirectionIn, Index: op.Index, Value: value}
	confirmed, t, inBlockIndex, err := s.confirmationInfo(op.Txid)
	if err != nil {
		return nil, err
	}
	inEvent.Confirmed = confirmed
	inEvent.Time = t
	inEvent.InBlockIndex = inBlockIndex
	events = append(events, inEvent)

	var inpointBytes []byte
	err = s.db.QueryRow(`SELECT inpoint FROM redemptions WHERE outpoint = ?`, op.Bytes()).Scan(&inpointBytes)
	if err == nil {
		inp, ok := ParseInpoint(inpointBytes)
		if ok {
			outEvent := Event{Txid: inp.Txid, Direction: DirectionOut, Index: inp.Index, Value: value}
			confirmed, t, inBlockIndex, err := s.confirmationInfo(inp.Txid)
			if err != nil {
				return nil, err
			}
			outEvent.Confirmed = confirmed
			outEvent.Time = t
			outEvent.InBlockIndex = inBlockIndex
			events = append(events, outEvent)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up redemption: %w", err)
	}
	return events, nil
}

func (s *sqliteStore) confirmationInfo(txid chainhash.Hash) (confirmed bool, t time.Time, inBlockIndex uint32, err error) {
	var status int
	var height sql.NullInt64
	row := s.db.QueryRow(`SELECT status, height FROM transactions WHERE hash = ?`, txid[:])
	if scanErr := row.Scan(&status, &height); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return false, time.Time{}, 0, nil
		}
		return false, time.Time{}, 0, fmt.Errorf("loading confirmation status: %w", scanErr)
	}
	if status != statusByteMined || !height.Valid {
		return false, time.Time{}, 0, nil
	}
	h, ok, err := s.spv.Header(uint32(height.Int64))
	if err != nil || !ok {
		return false, time.Time{}, 0, err
	}
	bump, ok, err := s.spv.BUMPForRoot(h.Root)
	var idx uint32
	if err == nil && ok {
		for i, node := range bump.Levels[0] {
			if node.Txid && node.Hash == txid {
				idx = uint32(i)
			}
		}
	}
	return true, headerTime(h.Raw), idx, nil
}

func (s *sqliteStore) ByAddress(_ context.Context, addr string) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT outputs.outpoint, 0 FROM outputs
		 JOIN addresses ON addresses.script_hash = outputs.script_hash
		 WHERE addresses.address = ?`, addr)
	if err != nil {
		return nil, fmt.Errorf("querying by address: %w", err)
	}
	return s.eventsWithValues(rows)
}

func (s *sqliteStore) ByScriptHash(_ context.Context, hash [32]byte) ([]Event, error) {
	rows, err := s.db.Query(`SELECT outpoint, 0 FROM outputs WHERE script_hash = ?`, hash[:])
	if err != nil {
		return nil, fmt.Errorf("querying by script hash: %w", err)
	}
	return s.eventsWithValues(rows)
}

// eventsWithValues re-derives each output's satoshi value from its owning
// transaction (the outputs table does not itself store value) before
// building events.
func (s *sqliteStore) eventsWithValues(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()
	type pending struct {
		op Outpoint
	}
	var pendings []pending
	for rows.Next() {
		var opBytes []byte
		var unused int64
		if err := rows.Scan(&opBytes, &unused); err != nil {
			return nil, fmt.Errorf("scanning output row: %w", err)
		}
		op, ok := ParseOutpoint(opBytes)
		if !ok {
			continue
		}
		pendings = append(pendings, pending{op: op})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating output rows: %w", err)
	}

	var events []Event
	for _, p := range pendings {
		value, err := s.outputValue(p.op)
		if err != nil {
			return nil, err
		}
		ev, err := s.eventsForOutpoint(p.op, value)
		if err != nil {
			return nil, err
		}
		events = append(events, ev...)
	}
	sortEvents(events)
	return events, nil
}

func (s *sqliteStore) outputValue(op Outpoint) (int64, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT tx FROM transactions WHERE hash = ?`, op.Txid[:]).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading creating tx: %w", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return 0, fmt.Errorf("deserializing creating tx: %w", err)
	}
	if int(op.Index) >= len(tx.TxOut) {
		return 0, nil
	}
	return tx.TxOut[op.Index].Value, nil
}

func (s *sqliteStore) Redeeming(_ context.Context, out Outpoint) (*Event, error) {
	var inpointBytes []byte
	err := s.db.QueryRow(`SELECT inpoint FROM redemptions WHERE outpoint = ?`, out.Bytes()).Scan(&inpointBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up redemption: %w", err)
	}
	inp, ok := ParseInpoint(inpointBytes)
	if !ok {
		return nil, nil
	}
	value, err := s.outputValue(out)
	if err != nil {
		return nil, err
	}
	confirmed, t, inBlockIndex, err := s.confirmationInfo(inp.Txid)
	if err != nil {
		return nil, err
	}
	return &Event{
		Txid: inp.Txid, Direction: DirectionOut, Index: inp.Index, Value: value,
		Confirmed: confirmed, Time: t, InBlockIndex: inBlockIndex,
	}, nil
}

func (s *sqliteStore) Unconfirmed(_ context.Context) ([]chainhash.Hash, error) {
	rows, err := s.db.Query(`SELECT hash FROM transactions WHERE status != ?`, statusByteMined)
	if err != nil {
		return nil, fmt.Errorf("querying unconfirmed: %w", err)
	}
	defer rows.Close()
	var out []chainhash.Hash
	for rows.Next() {
		var hashB []byte
		if err := rows.Scan(&hashB); err != nil {
			return nil, fmt.Errorf("scanning txid: %w", err)
		}
		var h chainhash.Hash
		copy(h[:], hashB)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Remove(_ context.Context, txid chainhash.Hash) error {
	var status int
	err := s.db.QueryRow(`SELECT status FROM transactions WHERE hash = ?`, txid[:]).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking tx status: %w", err)
	}
	if status == statusByteMined {
		return errRemoveMined
	}

	if _, err := s.db.Exec(`DELETE FROM redemptions WHERE substr(inpoint, 1, 32) = ?`, txid[:]); err != nil {
		return fmt.Errorf("deleting redemptions: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM outputs WHERE substr(outpoint, 1, 32) = ?`, txid[:]); err != nil {
		return fmt.Errorf("deleting output index: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM transactions WHERE hash = ?`, txid[:]); err != nil {
		return fmt.Errorf("deleting tx: %w", err)
	}
	return nil
}

func (s *sqliteStore) HandleReorg(_ context.Context, removedTxids []chainhash.Hash) error {
	for _, txid := range removedTxids {
		if _, err := s.db.Exec(
			`UPDATE transactions SET status = ?, height = NULL WHERE hash = ?`,
			statusBytePending, txid[:],
		); err != nil {
			return fmt.Errorf("demoting tx to pending: %w", err)
		}
	}
	return nil
}

package spv

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
)

// Header is one block's identity: its height, hash, and Merkle root,
// alongside the raw 80-byte header bytes it was built from.
type Header struct {
	Height uint32
	Hash   chainhash.Hash
	Root   chainhash.Hash
	Raw    [80]byte
}

// Store is the header and Merkle-proof record backing the wallet's
// notion of confirmation. It is queried by height, hash, or root, and
// accumulates BUMP branches incrementally as proofs for individual
// transactions arrive.
type Store interface {
	InsertHeader(h Header) error
	Header(height uint32) (Header, bool, error)
	HeaderByHash(hash chainhash.Hash) (Header, bool, error)
	HeaderByRoot(root chainhash.Hash) (Header, bool, error)
	InsertBranch(root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error
	BUMPForRoot(root chainhash.Hash) (*BUMP, bool, error)
	// RemoveHeader deletes the header at height, returning the txids that
	// were confirmed only by that header's BUMP so the caller (the
	// transaction store) can demote them back to pending.
	RemoveHeader(height uint32) ([]chainhash.Hash, error)
	LatestHeight() (uint32, bool, error)
}

// sqliteStore is a Store backed by the shared wallet database, storing
// each block's BUMP as a JSON blob in the merkle_tree column.
type sqliteStore struct {
	db *sql.DB
}

// NewStore returns a Store backed by s's shared connection.
func NewStore(s *storage.Storage) Store {
	return &sqliteStore{db: s.DB()}
}

func (s *sqliteStore) InsertHeader(h Header) error {
	bump := NewBUMP(h.Height, h.Root)
	blob, err := json.Marshal(bump)
	if err != nil {
		return fmt.Errorf("marshaling empty BUMP: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO blocks (height, hash, root, header, merkle_tree) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(height) DO NOTHING`,
		h.Height, h.Hash[:], h.Root[:], h.Raw[:], blob,
	)
	if err != nil {
		return fmt.Errorf("inserting header: %w", err)
	}
	return nil
}

func (s *sqliteStore) scanHeader(row *sql.Row) (Header, bool, error) {
	var h Header
	var hashB, rootB, headerB []byte
	err := row.Scan(&h.Height, &hashB, &rootB, &headerB)
	if errors.Is(err, sql.ErrNoRows) {
		return Header{}, false, nil
	}
	if err != nil {
		return Header{}, false, fmt.Errorf("scanning header: %w", err)
	}
	copy(h.Hash[:], hashB)
	copy(h.Root[:], rootB)
	copy(h.Raw[:], headerB)
	return h, true, nil
}

func (s *sqliteStore) Header(height uint32) (Header, bool, error) {
	row := s.db.QueryRow(`SELECT height, hash, root, header FROM blocks WHERE height = ?`, height)
	return s.scanHeader(row)
}

func (s *sqliteStore) HeaderByHash(hash chainhash.Hash) (Header, bool, error) {
	row := s.db.QueryRow(`SELECT height, hash, root, header FROM blocks WHERE hash = ?`, hash[:])
	return s.scanHeader(row)
}

func (s *sqliteStore) HeaderByRoot(root chainhash.Hash) (Header, bool, error) {
	row := s.db.QueryRow(`SELECT height, hash, root, header FROM blocks WHERE root = ?`, root[:])
	return s.scanHeader(row)
}

func (s *sqliteStore) bumpByRoot(root chainhash.Hash) (*BUMP, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT merkle_tree FROM blocks WHERE root = ?`, root[:]).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("loading BUMP: %w", err)
	}
	var bump BUMP
	if err := json.Unmarshal(blob, &bump); err != nil {
		return nil, fmt.Errorf("unmarshaling BUMP: %w", err)
	}
	return &bump, nil
}

func (s *sqliteStore) InsertBranch(root chainhash.Hash, leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error {
	bump, err := s.bumpByRoot(root)
	if err != nil {
		return err
	}
	if err := bump.MergeBranch(leafIndex, leafTxid, siblings); err != nil {
		return err
	}
	blob, err := json.Marshal(bump)
	if err != nil {
		return fmt.Errorf("marshaling BUMP: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE blocks SET merkle_tree = ? WHERE root = ?`, blob, root[:]); err != nil {
		return fmt.Errorf("persisting BUMP: %w", err)
	}
	return nil
}

func (s *sqliteStore) BUMPForRoot(root chainhash.Hash) (*BUMP, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT merkle_tree FROM blocks WHERE root = ?`, root[:]).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading BUMP: %w", err)
	}
	var bump BUMP
	if err := json.Unmarshal(blob, &bump); err != nil {
		return nil, false, fmt.Errorf("unmarshaling BUMP: %w", err)
	}
	return &bump, true, nil
}

func (s *sqliteStore) RemoveHeader(height uint32) ([]chainhash.Hash, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT merkle_tree FROM blocks WHERE height = ?`, height).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading BUMP for removal: %w", err)
	}

	var bump BUMP
	var txids []chainhash.Hash
	if err := json.Unmarshal(blob, &bump); err == nil {
		txids = bump.Txids()
	}

	if _, err := s.db.Exec(`DELETE FROM blocks WHERE height = ?`, height); err != nil {
		return nil, fmt.Errorf("deleting header: %w", err)
	}
	return txids, nil
}

func (s *sqliteStore) LatestHeight() (uint32, bool, error) {
	var height uint32
	err := s.db.QueryRow(`SELECT height FROM blocks ORDER BY height DESC LIMIT 1`).Scan(&height)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying latest height: %w", err)
	}
	return height, true, nil
}

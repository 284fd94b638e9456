// Package storage opens the wallet's sqlite database and owns the schema
// every other store (internal/spv, internal/txdb, internal/walletreg)
// reads and writes through a single shared connection.
package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage owns the single writer connection to the wallet's sqlite
// database. sqlite supports only one writer at a time, so every
// table-owning package is handed this same *sql.DB rather than opening
// its own.
type Storage struct {
	db *sql.DB
	mu sync.RWMutex
}

// Config configures how the database file is opened.
type Config struct {
	// Path to the sqlite file. ":memory:" is accepted for tests.
	Path string
}

// New opens (creating if necessary) the sqlite database at cfg.Path and
// initializes the schema described in spec §6.
func New(cfg *Config) (*Storage, error) {
	dsn := cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	if cfg.Path == ":memory:" {
		dsn = "file::memory:?cache=shared&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(1) // sqlite supports one writer; serialize via the driver
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the shared connection for packages that issue their own
// queries against the schema initSchema creates.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// initSchema creates every table named in spec §6, all idempotent via
// CREATE TABLE IF NOT EXISTS so repeated startups are safe.
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS versions (
		version INTEGER PRIMARY KEY,
		details TEXT
	);

	-- Block header entries (C2). header is the raw 80-byte block header;
	-- merkle_tree is the serialized BUMP covering every txid in the block.
	CREATE TABLE IF NOT EXISTS blocks (
		height INTEGER PRIMARY KEY,
		hash BLOB NOT NULL UNIQUE,
		root BLOB NOT NULL,
		header BLOB NOT NULL,
		merkle_tree BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_root ON blocks(root);

	-- Transaction entries (C3). status byte: 0b1000_0000 = mined,
	-- 0b1111_0101 = pending (any value other than mined is read as pending).
	CREATE TABLE IF NOT EXISTS transactions (
		hash BLOB PRIMARY KEY,
		tx BLOB NOT NULL,
		height INTEGER,
		status INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_height ON transactions(height);

	-- Redemption links: outpoint (36-byte: 32-byte txid LE + 4-byte index
	-- LE) -> inpoint (same encoding). Immutable once written.
	CREATE TABLE IF NOT EXISTS redemptions (
		outpoint BLOB PRIMARY KEY,
		inpoint BLOB NOT NULL
	);

	-- Script hash -> script bytes.
	CREATE TABLE IF NOT EXISTS scripts (
		hash BLOB PRIMARY KEY,
		script BLOB NOT NULL
	);

	-- Outpoint -> script hash (script/address index, C3).
	CREATE TABLE IF NOT EXISTS outputs (
		outpoint BLOB PRIMARY KEY,
		script_hash BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outputs_script_hash ON outputs(script_hash);

	CREATE TABLE IF NOT EXISTS addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		script_hash BLOB NOT NULL,
		UNIQUE(address, script_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_addresses_address ON addresses(address);

	-- Wallet registry (C4).
	CREATE TABLE IF NOT EXISTS wallets (
		name TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallet_keys (
		wallet TEXT NOT NULL,
		name TEXT NOT NULL,
		expression TEXT NOT NULL,
		PRIMARY KEY (wallet, name)
	);

	CREATE TABLE IF NOT EXISTS wallet_sequences (
		wallet TEXT NOT NULL,
		name TEXT NOT NULL,
		parent_expression TEXT NOT NULL,
		next_index INTEGER NOT NULL,
		PRIMARY KEY (wallet, name)
	);

	CREATE TABLE IF NOT EXISTS wallet_unused_recipients (
		wallet TEXT NOT NULL,
		recipient TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (wallet, recipient)
	);

	-- Every recipient a wallet has ever handed out, used and unused alike,
	-- so history can be folded for addresses whose account entries have
	-- since been spent and cleared from wallet_unused_recipients.
	CREATE TABLE IF NOT EXISTS wallet_recipients (
		wallet TEXT NOT NULL,
		recipient TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (wallet, recipient)
	);

	-- Account entries (C5): outpoint -> redemption metadata, owned per wallet.
	CREATE TABLE IF NOT EXISTS wallet_account (
		wallet TEXT NOT NULL,
		outpoint BLOB NOT NULL,
		prevout_value INTEGER NOT NULL,
		prevout_script BLOB NOT NULL,
		derivations TEXT NOT NULL,
		expected_script_size INTEGER NOT NULL,
		partial_unlock_script BLOB,
		PRIMARY KEY (wallet, outpoint)
	);

	-- to_private inversion map (global, not per-wallet).
	CREATE TABLE IF NOT EXISTS to_private (
		public_expression TEXT PRIMARY KEY,
		private_expression TEXT NOT NULL
	);

	-- invert_hash: content-addressed pre-image store.
	CREATE TABLE IF NOT EXISTS invert_hash (
		digest BLOB NOT NULL,
		function TEXT NOT NULL,
		preimage BLOB NOT NULL,
		PRIMARY KEY (digest, function)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return s.runMigrations()
}

// runMigrations applies best-effort schema adjustments for databases
// created by earlier versions of this binary. Each statement is allowed to
// fail (e.g. "duplicate column") since sqlite has no ALTER TABLE ... IF NOT
// EXISTS.
func (s *Storage) runMigrations() error {
	migrations := []string{
		`ALTER TABLE transactions ADD COLUMN height INTEGER`,
	}
	for _, m := range migrations {
		s.db.Exec(m) //nolint:errcheck
	}
	return nil
}

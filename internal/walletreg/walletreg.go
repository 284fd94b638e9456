// Package walletreg is the wallet registry (C4): a per-wallet namespace
// of keys, key sequences, not-yet-seen recipients, and the account,
// plus the global public→private inversion map and pre-image store
// shared across all wallets.
package walletreg

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
)

// wallet is one named wallet's in-memory state. Every read and mutation
// of its keys and sequences is serialized through mu, per spec §5; the
// recipient sets (RecordUnused, ClearUnused) are written to the database
// without taking mu, and cross-wallet operations (ListWallets) take only
// Registry.mu.
type wallet struct {
	mu        sync.Mutex
	name      string
	keystore  *keys.Store
	sequences map[string]*sequence
}

type sequence struct {
	parent    keys.Expr
	nextIndex uint32
}

// Registry is the wallet registry. It owns the in-memory working set of
// wallets plus the global to_private and invert_hash maps, backed by
// internal/storage's wallet tables for durability across restarts.
type Registry struct {
	mu        sync.RWMutex
	db        *sql.DB
	wallets   map[string]*wallet
	toPrivate *keys.ToPrivateMap
	tpMu      sync.Mutex // serializes to_private persistence
}

// NewRegistry returns a Registry backed by s, loading any wallets,
// keys, sequences, and to_private entries already persisted.
func NewRegistry(s *storage.Storage) (*Registry, error) {
	r := &Registry{
		db:        s.DB(),
		wallets:   make(map[string]*wallet),
		toPrivate: keys.NewToPrivateMap(),
	}
	if err := r.load(); err != nil {
		return nil, fmt.Errorf("loading wallet registry: %w", err)
	}
	return r, nil
}

func (r *Registry) load() error {
	rows, err := r.db.Query(`SELECT name FROM wallets`)
	if err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scanning wallet name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range names {
		w := &wallet{name: name, keystore: keys.NewStore(), sequences: make(map[string]*sequence)}
		if err := r.loadKeys(w); err != nil {
			return err
		}
		if err := r.loadSequences(w); err != nil {
			return err
		}
		r.wallets[name] = w
	}

	return r.loadToPrivate()
}

func (r *Registry) loadKeys(w *wallet) error {
	rows, err := r.db.Query(`SELECT name, expression FROM wallet_keys WHERE wallet = ?`, w.name)
	if err != nil {
		return fmt.Errorf("loading wallet keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, expr string
		if err := rows.Scan(&name, &expr); err != nil {
			return fmt.Errorf("scanning wallet key: %w", err)
		}
		e, err := keys.Parse(expr)
		if err != nil {
			return fmt.Errorf("parsing persisted key %s/%s: %w", w.name, name, err)
		}
		w.keystore.Set(name, e)
	}
	return rows.Err()
}

func (r *Registry) loadSequences(w *wallet) error {
	rows, err := r.db.Query(`SELECT name, parent_expression, next_index FROM wallet_sequences WHERE wallet = ?`, w.name)
	if err != nil {
		return fmt.Errorf("loading wallet sequences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, parentExpr string
		var nextIndex uint32
		if err := rows.Scan(&name, &parentExpr, &nextIndex); err != nil {
			return fmt.Errorf("scanning wallet sequence: %w", err)
		}
		parent, err := keys.Parse(parentExpr)
		if err != nil {
			return fmt.Errorf("parsing persisted sequence %s/%s: %w", w.name, name, err)
		}
		w.sequences[name] = &sequence{parent: parent, nextIndex: nextIndex}
	}
	return rows.Err()
}

func (r *Registry) loadToPrivate() error {
	rows, err := r.db.Query(`SELECT public_expression, private_expression FROM to_private`)
	if err != nil {
		return fmt.Errorf("loading to_private: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pubText, privText string
		if err := rows.Scan(&pubText, &privText); err != nil {
			return fmt.Errorf("scanning to_private row: %w", err)
		}
		pub, err := keys.Parse(pubText)
		if err != nil {
			return fmt.Errorf("parsing persisted to_private public expression: %w", err)
		}
		priv, err := keys.Parse(privText)
		if err != nil {
			return fmt.Errorf("parsing persisted to_private private expression: %w", err)
		}
		if err := r.toPrivate.Set(pub, priv); err != nil {
			return err
		}
	}
	return rows.Err()
}

// MakeWallet creates an empty wallet, failing with wallet-exists if the
// name is already registered.
func (r *Registry) MakeWallet(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[name]; ok {
		return cosmoserr.New(cosmoserr.WalletExists, fmt.Sprintf("wallet %q already exists", name))
	}
	if _, err := r.db.Exec(`INSERT INTO wallets (name, created_at) VALUES (?, ?)`, name, time.Now().Unix()); err != nil {
		return fmt.Errorf("persisting wallet: %w", err)
	}
	r.wallets[name] = &wallet{name: name, keystore: keys.NewStore(), sequences: make(map[string]*sequence)}
	return nil
}

// ListWallets returns every registered wallet name.
func (r *Registry) ListWallets(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.wallets))
	for name := range r.wallets {
		names = append(names, name)
	}
	return names, nil
}

// wallet looks up a registered wallet, failing with wallet-missing if
// it doesn't exist.
func (r *Registry) wallet(name string) (*wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[name]
	if !ok {
		return nil, cosmoserr.New(cosmoserr.WalletMissing, fmt.Sprintf("wallet %q does not exist", name))
	}
	return w, nil
}

// SetKey binds name to expression within wallet, an idempotent upsert.
func (r *Registry) SetKey(_ context.Context, walletName, name string, e keys.Expr) error {
	w, err := r.wallet(walletName)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	text, err := keys.Render(e, e.Kind())
	if err != nil {
		return fmt.Errorf("rendering key for persistence: %w", err)
	}
	if _, err := r.db.Exec(
		`INSERT INTO wallet_keys (wallet, name, expression) VALUES (?, ?, ?)
		 ON CONFLICT(wallet, name) DO UPDATE SET expression = excluded.expression`,
		walletName, name, text,
	); err != nil {
		return fmt.Errorf("persisting key: %w", err)
	}
	w.keystore.Set(name, e)
	return nil
}

// GetKey returns the expression bound to name in wallet, failing with
// key-missing if unbound.
func (r *Registry) GetKey(_ context.Context, walletName, name string) (keys.Expr, error) {
	w, err := r.wallet(walletName)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.keystore.Get(name)
	if !ok {
		return nil, cosmoserr.New(cosmoserr.KeyMissing, fmt.Sprintf("no key named %q in wallet %q", name, walletName))
	}
	return e, nil
}

// SetToPrivate associates pub's canonical rendering with priv in the
// global to_private map, used by the spend pipeline to recover signing
// keys from the public expressions recorded in the account.
func (r *Registry) SetToPrivate(_ context.Context, pub, priv keys.Expr) error {
	r.tpMu.Lock()
	defer r.tpMu.Unlock()

	pubText, err := keys.Render(pub, pub.Kind())
	if err != nil {
		return fmt.Errorf("rendering public expression: %w", err)
	}
	privText, err := keys.Render(priv, priv.Kind())
	if err != nil {
		return fmt.Errorf("rendering private expression: %w", err)
	}
	if _, err := r.db.Exec(
		`INSERT INTO to_private (public_expression, private_expression) VALUES (?, ?)
		 ON CONFLICT(public_expression) DO UPDATE SET private_expression = excluded.private_expression`,
		pubText, privText,
	); err != nil {
		return fmt.Errorf("persisting to_private entry: %w", err)
	}
	return r.toPrivate.Set(pub, priv)
}

// GetToPrivate looks up the private expression registered for pub.
func (r *Registry) GetToPrivate(_ context.Context, pub keys.Expr) (keys.Expr, bool, error) {
	r.tpMu.Lock()
	defer r.tpMu.Unlock()
	return r.toPrivate.Get(pub)
}

// SetWalletSequence registers a named key sequence rooted at parent,
// starting at nextIndex.
func (r *Registry) SetWalletSequence(_ context.Context, walletName, seqName string, parent keys.Expr, nextIndex uint32) error {
	w, err := r.wallet(walletName)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	parentText, err := keys.Render(parent, parent.Kind())
	if err != nil {
		return fmt.Errorf("rendering sequence parent: %w", err)
	}
	if _, err := r.db.Exec(
		`INSERT INTO wallet_sequences (wallet, name, parent_expression, next_index) VALUES (?, ?, ?, ?)
		 ON CONFLICT(wallet, name) DO UPDATE SET parent_expression = excluded.parent_expression, next_index = excluded.next_index`,
		walletName, seqName, parentText, nextIndex,
	); err != nil {
		return fmt.Errorf("persisting sequence: %w", err)
	}
	w.sequences[seqName] = &sequence{parent: parent, nextIndex: nextIndex}
	return nil
}

// HasSequence reports whether wallet already has a sequence named
// seqName, without mutating it.
func (r *Registry) HasSequence(_ context.Context, walletName, seqName string) (bool, error) {
	w, err := r.wallet(walletName)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.sequences[seqName]
	return ok, nil
}

// AdvanceSequence atomically computes the sequence's current key, bumps
// its next index, and persists the new index.
func (r *Registry) AdvanceSequence(_ context.Context, walletName, seqName string) (keys.Expr, error) {
	w, err := r.wallet(walletName)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	seq, ok := w.sequences[seqName]
	if !ok {
		return nil, cosmoserr.New(cosmoserr.SequenceMissing, fmt.Sprintf("no sequence named %q in wallet %q", seqName, walletName))
	}

	child, err := keys.Apply(seq.parent, seq.nextIndex)
	if err != nil {
		return nil, err
	}

	next := seq.nextIndex + 1
	if _, err := r.db.Exec(
		`UPDATE wallet_sequences SET next_index = ? WHERE wallet = ? AND name = ?`,
		next, walletName, seqName,
	); err != nil {
		return nil, fmt.Errorf("persisting advanced sequence: %w", err)
	}
	seq.nextIndex = next
	return child, nil
}

// RecordUnused tracks a recipient (address or xpub textual form) the
// wallet has handed out but not yet observed receiving on. The
// recipient is also remembered permanently in the wallet's recipient
// set, so history folding still finds it once its account entry is
// spent and ClearUnused has removed it from the unused set.
func (r *Registry) RecordUnused(_ context.Context, walletName, recipient string) error {
	if _, err := r.wallet(walletName); err != nil {
		return err
	}
	now := time.Now().Unix()
	if _, err := r.db.Exec(
		`INSERT INTO wallet_unused_recipients (wallet, recipient, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(wallet, recipient) DO NOTHING`,
		walletName, recipient, now,
	); err != nil {
		return fmt.Errorf("persisting unused recipient: %w", err)
	}
	if _, err := r.db.Exec(
		`INSERT INTO wallet_recipients (wallet, recipient, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(wallet, recipient) DO NOTHING`,
		walletName, recipient, now,
	); err != nil {
		return fmt.Errorf("persisting recipient: %w", err)
	}
	return nil
}

// AllRecipients returns every recipient ever handed out by wallet,
// used and unused alike, in the order first recorded.
func (r *Registry) AllRecipients(_ context.Context, walletName string) ([]string, error) {
	if _, err := r.wallet(walletName); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(`SELECT recipient FROM wallet_recipients WHERE wallet = ? ORDER BY created_at`, walletName)
	if err != nil {
		return nil, fmt.Errorf("loading recipients: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var recipient string
		if err := rows.Scan(&recipient); err != nil {
			return nil, fmt.Errorf("scanning recipient: %w", err)
		}
		out = append(out, recipient)
	}
	return out, rows.Err()
}

// UnusedRecipients returns every recipient recorded via RecordUnused for
// wallet that has not since been cleared.
func (r *Registry) UnusedRecipients(_ context.Context, walletName string) ([]string, error) {
	if _, err := r.wallet(walletName); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(`SELECT recipient FROM wallet_unused_recipients WHERE wallet = ? ORDER BY created_at`, walletName)
	if err != nil {
		return nil, fmt.Errorf("loading unused recipients: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var recipient string
		if err := rows.Scan(&recipient); err != nil {
			return nil, fmt.Errorf("scanning unused recipient: %w", err)
		}
		out = append(out, recipient)
	}
	return out, rows.Err()
}

// ClearUnused removes a recipient from the unused set, typically called
// once the tx store observes an output paying it.
func (r *Registry) ClearUnused(_ context.Context, walletName, recipient string) error {
	if _, err := r.wallet(walletName); err != nil {
		return err
	}
	if _, err := r.db.Exec(`DELETE FROM wallet_unused_recipients WHERE wallet = ? AND recipient = ?`, walletName, recipient); err != nil {
		return fmt.Errorf("clearing unused recipient: %w", err)
	}
	return nil
}

// SetInvertHash stores a pre-image under (digest, hash-function tag),
// used to map address hashes back to the pubkeys the wallet generated.
func (r *Registry) SetInvertHash(_ context.Context, digest []byte, fn string, preimage []byte) error {
	if _, err := r.db.Exec(
		`INSERT INTO invert_hash (digest, function, preimage) VALUES (?, ?, ?)
		 ON CONFLICT(digest, function) DO UPDATE SET preimage = excluded.preimage`,
		digest, fn, preimage,
	); err != nil {
		return fmt.Errorf("persisting invert_hash entry: %w", err)
	}
	return nil
}

// GetInvertHash looks up the pre-image stored under (digest, fn).
func (r *Registry) GetInvertHash(_ context.Context, digest []byte, fn string) ([]byte, bool, error) {
	var preimage []byte
	err := r.db.QueryRow(`SELECT preimage FROM invert_hash WHERE digest = ? AND function = ?`, digest, fn).Scan(&preimage)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading invert_hash entry: %w", err)
	}
	return preimage, true, nil
}

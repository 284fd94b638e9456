// Package coordinator ties the wallet's independent components --
// the registry (C4), the account (C5), selection and the spend
// pipeline (C6/C7), the network adapter (C8), and randomness (C9) --
// into the operations the HTTP surface (spec §6) exposes per wallet.
// It owns no storage of its own beyond what internal/walletreg and
// internal/txdb already persist: an account is always folded live
// from the transaction store's event stream, per spec §4.5.
package coordinator

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/network"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/walletreg"
	"github.com/Gigamonkey-BSV/cosmos-wallet/pkg/logging"
)

// receiveSequence and changeSequence name the two key sequences Generate
// and Restore set up for every wallet, per the BIP-44-shaped external/
// internal chain split spec.md's worked example (`44'/0'/0'/0/0`) shows.
const (
	receiveSequence = "receive"
	changeSequence  = "change"
)

// p2pkhUnlockScriptSize estimates a signed P2PKH input's scriptSig size:
// a push of a ~72-byte DER signature plus SIGHASH_FORKID byte, and a push
// of a 33-byte compressed public key, each with a one-byte length prefix.
const p2pkhUnlockScriptSize = 1 + 72 + 1 + 1 + 33

// Coordinator serializes every wallet-registry mutation through reg's own
// per-wallet locking (§5's "mutually exclusive access... enforced by a
// per-resource mutual-exclusion discipline") and multiplexes network I/O
// through net. The reference configuration runs it from a single worker;
// nothing here requires more than that for correctness.
type Coordinator struct {
	reg    *walletreg.Registry
	txs    txdb.Store
	spvSt  spv.Store
	net    network.Adapter
	rnd    *random.Randomness
	params *chaincfg.Params
	log    *logging.Logger
}

// Params bundles the wiring a Coordinator needs.
type Params struct {
	Registry   *walletreg.Registry
	TxStore    txdb.Store
	SPVStore   spv.Store
	Network    network.Adapter
	Randomness *random.Randomness
	ChainParams *chaincfg.Params
	Log        *logging.Logger
}

// New returns a Coordinator wired to p.
func New(p Params) *Coordinator {
	log := p.Log
	if log == nil {
		log = logging.GetDefault()
	}
	return &Coordinator{
		reg:    p.Registry,
		txs:    p.TxStore,
		spvSt:  p.SPVStore,
		net:    p.Network,
		rnd:    p.Randomness,
		params: p.ChainParams,
		log:    log.Component(logging.ComponentCoordinator),
	}
}

// AddEntropy mixes caller-supplied bytes into the secure randomness
// stream, the `/add_entropy` endpoint's effect.
func (c *Coordinator) AddEntropy(b []byte) {
	c.rnd.AddEntropy(b, random.Config{})
}

// MakeWallet creates an empty wallet, failing with wallet-exists if the
// name is already registered.
func (c *Coordinator) MakeWallet(ctx context.Context, name string) error {
	return c.reg.MakeWallet(ctx, name)
}

// ListWallets returns every registered wallet name.
func (c *Coordinator) ListWallets(ctx context.Context) ([]string, error) {
	return c.reg.ListWallets(ctx)
}

// SetKey binds a named key expression within a wallet.
func (c *Coordinator) SetKey(ctx context.Context, wallet, name string, e keys.Expr) error {
	return c.reg.SetKey(ctx, wallet, name, e)
}

// GetKey returns the expression bound to name within wallet.
func (c *Coordinator) GetKey(ctx context.Context, wallet, name string) (keys.Expr, error) {
	return c.reg.GetKey(ctx, wallet, name)
}

// GenerateKey draws fresh secret material from the secure randomness
// stream, binds it to name within wallet, and returns the resulting
// expression -- the `POST /key/<wallet>?name=...` path with no body.
func (c *Coordinator) GenerateKey(ctx context.Context, wallet, name string) (keys.Expr, error) {
	raw, err := c.rnd.Secure.Bytes(32)
	if err != nil {
		return nil, fmt.Errorf("drawing key material: %w", err)
	}
	var secret keys.Secret
	copy(secret.Value[:], raw)
	if err := c.reg.SetKey(ctx, wallet, name, secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// ToPrivateSet records that pub's canonical rendering inverts to priv.
func (c *Coordinator) ToPrivateSet(ctx context.Context, pub, priv keys.Expr) error {
	return c.reg.SetToPrivate(ctx, pub, priv)
}

// ToPrivateGet looks up the private expression registered for pub.
func (c *Coordinator) ToPrivateGet(ctx context.Context, pub keys.Expr) (keys.Expr, bool, error) {
	return c.reg.GetToPrivate(ctx, pub)
}

// InvertHashSet stores a pre-image under (digest, hash-function tag).
func (c *Coordinator) InvertHashSet(ctx context.Context, digest []byte, fn string, preimage []byte) error {
	return c.reg.SetInvertHash(ctx, digest, fn, preimage)
}

// InvertHashGet looks up the pre-image stored under (digest, fn).
func (c *Coordinator) InvertHashGet(ctx context.Context, digest []byte, fn string) ([]byte, bool, error) {
	return c.reg.GetInvertHash(ctx, digest, fn)
}

// EnsureSequence creates seqName rooted at parent if it does not already
// exist, otherwise leaves it untouched -- `GET/POST /key_sequence`'s
// "get or create" behavior.
func (c *Coordinator) EnsureSequence(ctx context.Context, wallet, seqName string, parent keys.Expr) error {
	exists, err := c.reg.HasSequence(ctx, wallet, seqName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.reg.SetWalletSequence(ctx, wallet, seqName, parent, 0)
}

// NextAddress advances seqName and returns the P2PKH address for the
// resulting public key, recording it as an unused recipient the
// account will watch.
func (c *Coordinator) NextAddress(ctx context.Context, wallet, seqName string) (string, error) {
	pubExpr, priv, err := c.advance(ctx, wallet, seqName)
	if err != nil {
		return "", err
	}
	addrExpr, err := keys.AsAddress(pubExpr)
	if err != nil {
		return "", err
	}
	human, err := encodeAddress(addrExpr)
	if err != nil {
		return "", err
	}
	if err := c.watchRecipient(ctx, wallet, human, pubExpr, priv); err != nil {
		return "", err
	}
	return human, nil
}

// NextXpub advances seqName and returns the neutered extended public key
// for the resulting child, without registering it as a watched
// recipient: an xpub names a whole subtree, not one spendable script.
func (c *Coordinator) NextXpub(ctx context.Context, wallet, seqName string) (string, error) {
	pubExpr, _, err := c.advance(ctx, wallet, seqName)
	if err != nil {
		return "", err
	}
	hdpub, err := keys.AsHDPubkey(pubExpr)
	if err != nil {
		return "", err
	}
	return hdpub.Key.String(), nil
}

// advance computes the next child of seqName and its public form.
func (c *Coordinator) advance(ctx context.Context, wallet, seqName string) (pub, priv keys.Expr, err error) {
	child, err := c.reg.AdvanceSequence(ctx, wallet, seqName)
	if err != nil {
		return nil, nil, err
	}
	pub, err = keys.ToPublic(child)
	if err != nil {
		return nil, nil, err
	}
	return pub, child, nil
}

// watchRecipient registers the to_private inversion for pub, remembers
// pub under the recipient's own name in the wallet keystore (so the
// account builder can later recover the signing derivation for any
// output paying this recipient), and records the recipient as unused.
func (c *Coordinator) watchRecipient(ctx context.Context, wallet, recipient string, pub, priv keys.Expr) error {
	if err := c.reg.SetToPrivate(ctx, pub, priv); err != nil {
		return fmt.Errorf("registering signing key: %w", err)
	}
	if err := c.reg.SetKey(ctx, wallet, recipient, pub); err != nil {
		return fmt.Errorf("recording recipient key: %w", err)
	}
	if err := c.reg.RecordUnused(ctx, wallet, recipient); err != nil {
		return fmt.Errorf("recording unused recipient: %w", err)
	}
	return nil
}

// encodeAddress renders a.Hash160 as base58check text, the form the
// transaction store's address index and the network adapter both use.
func encodeAddress(a keys.Address) (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(a.Hash160[:], a.Net.Params())
	if err != nil {
		return "", fmt.Errorf("encoding address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// p2pkhScript builds the standard pay-to-pubkey-hash locking script for
// a base58check-encoded address.
func p2pkhScript(address string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "decoding destination address", err)
	}
	pkh, ok := decoded.(*btcutil.AddressPubKeyHash)
	if !ok {
		return nil, cosmoserr.New(cosmoserr.InvalidSyntax, "destination address is not a pay-to-pubkey-hash address")
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pkh.Hash160()[:]).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

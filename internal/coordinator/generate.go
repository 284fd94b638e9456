package coordinator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/wire"
	"github.com/tyler-smith/go-bip39"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
)

// bip44Account is the fixed BIP-44 account index this wallet uses; spec.md's
// worked example derives `44'/0'/0'/0/0`, so account 0 and coin type 0
// (Bitcoin) are the defaults GenerateOptions falls back to.
const bip44Account = 0

// gapLimit bounds how many consecutive unused addresses Restore scans
// past the last one that turns up history before giving up, the same
// shape as the original wallet_service's restore scan.
const gapLimit = 20

// GenerateOptions configures a fresh wallet's mnemonic and derivation
// path, the `POST /generate/<wallet>?mnemonic_style=BIP39&number_of_words=…
// &wallet_style=BIP_44&coin_type=…` parameters.
type GenerateOptions struct {
	// Words is the mnemonic length: 12 (128-bit entropy) or 24 (256-bit).
	// Zero defaults to 12.
	Words int
	// CoinType is the BIP-44 coin_type path component. Zero is Bitcoin's
	// registered value and also BSV's, since BSV does not register its own.
	CoinType uint32
}

func (o GenerateOptions) entropyBits() int {
	if o.Words == 24 {
		return 256
	}
	return 128
}

// GenerateResult is what `/generate/<wallet>` reports back: the mnemonic
// the caller must record, since this is the only time it is ever shown.
type GenerateResult struct {
	Mnemonic string
}

// Generate creates wallet (failing with wallet-exists if it already
// exists), draws a fresh mnemonic from the secure randomness stream, and
// sets up its receive and change key sequences at
// `m/44'/coin_type'/0'/{0,1}`.
func (c *Coordinator) Generate(ctx context.Context, wallet string, opts GenerateOptions) (GenerateResult, error) {
	entropy, err := c.rnd.Secure.Bytes(opts.entropyBits() / 8)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("drawing mnemonic entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generating mnemonic: %w", err)
	}

	if err := c.setupFromMnemonic(ctx, wallet, mnemonic, "", opts); err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Mnemonic: mnemonic}, nil
}

// RestoreOptions carries the words and coin type needed to rebuild a
// wallet's derivation path exactly as Generate originally set it up,
// per the `PUT /restore/<wallet>` endpoint.
type RestoreOptions struct {
	Mnemonic   string
	Passphrase string
	CoinType   uint32
}

// Restore recreates wallet's receive and change sequences from a
// previously generated mnemonic, then walks each sequence forward
// until gapLimit consecutive unused addresses produce no history,
// registering every address that does as a watched recipient so the
// account fold sees funds received before the restore.
func (c *Coordinator) Restore(ctx context.Context, wallet string, opts RestoreOptions) error {
	if !bip39.IsMnemonicValid(opts.Mnemonic) {
		return fmt.Errorf("invalid mnemonic")
	}
	if err := c.setupFromMnemonic(ctx, wallet, opts.Mnemonic, opts.Passphrase, GenerateOptions{CoinType: opts.CoinType}); err != nil {
		return err
	}

	for _, seqName := range []string{receiveSequence, changeSequence} {
		if err := c.rescanSequence(ctx, wallet, seqName); err != nil {
			return fmt.Errorf("rescanning %s chain: %w", seqName, err)
		}
	}
	return nil
}

// setupFromMnemonic derives the wallet's account key from mnemonic and
// sets up its two BIP-44 chain sequences, failing wallet-exists if
// wallet already exists (mirroring MakeWallet's own guard, since a
// generate/restore call must not silently reuse an existing wallet's
// keys under a second mnemonic).
func (c *Coordinator) setupFromMnemonic(ctx context.Context, wallet, mnemonic, passphrase string, opts GenerateOptions) error {
	if err := c.reg.MakeWallet(ctx, wallet); err != nil {
		return err
	}

	seed := bip39.NewSeed(mnemonic, passphrase)
	master, err := hdkeychain.NewMaster(seed, c.params)
	if err != nil {
		return fmt.Errorf("deriving master key: %w", err)
	}

	coinType := opts.CoinType
	accountKey, err := keys.Derive(keys.HDSecret{Key: master}, []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + coinType,
		hdkeychain.HardenedKeyStart + bip44Account,
	})
	if err != nil {
		return fmt.Errorf("deriving account key: %w", err)
	}

	receiveParent, err := keys.Derive(accountKey, []uint32{0})
	if err != nil {
		return fmt.Errorf("deriving receive chain: %w", err)
	}
	changeParent, err := keys.Derive(accountKey, []uint32{1})
	if err != nil {
		return fmt.Errorf("deriving change chain: %w", err)
	}

	if err := c.reg.SetWalletSequence(ctx, wallet, receiveSequence, receiveParent, 0); err != nil {
		return err
	}
	if err := c.reg.SetWalletSequence(ctx, wallet, changeSequence, changeParent, 0); err != nil {
		return err
	}
	return nil
}

// rescanSequence walks seqName forward from index 0, registering every
// derived address as a watched recipient and fetching its history from
// the network adapter, until gapLimit consecutive addresses show no
// history.
func (c *Coordinator) rescanSequence(ctx context.Context, wallet, seqName string) error {
	miss := 0
	for miss < gapLimit {
		human, err := c.NextAddress(ctx, wallet, seqName)
		if err != nil {
			return err
		}

		txids, err := c.net.FetchAddressHistory(ctx, human)
		if err != nil {
			return fmt.Errorf("fetching history for %s: %w", human, err)
		}
		if len(txids) == 0 {
			miss++
			continue
		}
		miss = 0

		for _, txid := range txids {
			raw, ok, err := c.net.FetchTx(ctx, txid)
			if err != nil {
				return fmt.Errorf("fetching transaction %s: %w", txid, err)
			}
			if !ok {
				continue
			}
			tx, err := decodeTx(raw)
			if err != nil {
				return fmt.Errorf("decoding transaction %s: %w", txid, err)
			}
			if err := c.txs.InsertTx(ctx, tx); err != nil {
				return fmt.Errorf("recording transaction %s: %w", txid, err)
			}
		}
	}
	return nil
}

// decodeTx parses a raw serialized transaction.
func decodeTx(raw []byte) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return tx, nil
}

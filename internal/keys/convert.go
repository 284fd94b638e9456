package keys

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

func incompatible(from Kind, to string) error {
	return cosmoserr.New(cosmoserr.IncompatibleKind, fmt.Sprintf("cannot render %s as %s", from, to))
}

// AsSecret extracts the raw scalar a Secret, WIF, or HDSecret expression
// carries.
func AsSecret(e Expr) (Secret, error) {
	switch v := e.(type) {
	case Secret:
		return v, nil
	case WIF:
		return Secret{Value: v.Secret}, nil
	case HDSecret:
		priv, err := v.Key.ECPrivKey()
		if err != nil {
			return Secret{}, fmt.Errorf("extracting secret from extended key: %w", err)
		}
		var out [32]byte
		copy(out[:], priv.Serialize())
		return Secret{Value: out}, nil
	default:
		return Secret{}, incompatible(e.Kind(), "secret")
	}
}

// AsPubkey extracts the secp256k1 point any expression carrying a secret or
// a public point exposes.
func AsPubkey(e Expr) (Pubkey, error) {
	switch v := e.(type) {
	case Pubkey:
		return v, nil
	case Address:
		return Pubkey{}, incompatible(e.Kind(), "pubkey")
	case Secret:
		priv, _ := btcec.PrivKeyFromBytes(v.Value[:])
		return Pubkey{Serialized: priv.PubKey().SerializeCompressed()}, nil
	case WIF:
		priv, _ := btcec.PrivKeyFromBytes(v.Secret[:])
		if v.Compressed {
			return Pubkey{Serialized: priv.PubKey().SerializeCompressed()}, nil
		}
		return Pubkey{Serialized: priv.PubKey().SerializeUncompressed()}, nil
	case HDSecret:
		pub, err := v.Key.ECPubKey()
		if err != nil {
			return Pubkey{}, fmt.Errorf("deriving public key: %w", err)
		}
		return Pubkey{Serialized: pub.SerializeCompressed()}, nil
	case HDPubkey:
		pub, err := v.Key.ECPubKey()
		if err != nil {
			return Pubkey{}, fmt.Errorf("reading public key: %w", err)
		}
		return Pubkey{Serialized: pub.SerializeCompressed()}, nil
	default:
		return Pubkey{}, incompatible(e.Kind(), "pubkey")
	}
}

// AsAddress computes the pay-to-pubkey-hash address for any expression that
// exposes a pubkey, or returns an Address directly.
func AsAddress(e Expr) (Address, error) {
	if a, ok := e.(Address); ok {
		return a, nil
	}
	pub, err := AsPubkey(e)
	if err != nil {
		return Address{}, incompatible(e.Kind(), "address")
	}
	net := netOf(e)
	var hash [20]byte
	copy(hash[:], btcutil.Hash160(pub.Serialized))
	return Address{Hash160: hash, Net: net}, nil
}

func netOf(e Expr) Net {
	switch v := e.(type) {
	case WIF:
		return v.Net
	case Address:
		return v.Net
	case HDSecret:
		return netOfExtendedKey(v.Key)
	case HDPubkey:
		return netOfExtendedKey(v.Key)
	default:
		return Main
	}
}

func netOfExtendedKey(k *hdkeychain.ExtendedKey) Net {
	if k.IsForNet(Test.Params()) {
		return Test
	}
	return Main
}

// AsWIF renders the Wallet Import Format view of an expression carrying a
// secret and network tag.
func AsWIF(e Expr) (WIF, error) {
	switch v := e.(type) {
	case WIF:
		return v, nil
	case Secret:
		return WIF{Secret: v.Value, Net: Main, Compressed: true}, nil
	case HDSecret:
		priv, err := v.Key.ECPrivKey()
		if err != nil {
			return WIF{}, fmt.Errorf("extracting secret: %w", err)
		}
		var secret [32]byte
		copy(secret[:], priv.Serialize())
		return WIF{Secret: secret, Net: netOfExtendedKey(v.Key), Compressed: true}, nil
	default:
		return WIF{}, incompatible(e.Kind(), "WIF")
	}
}

// AsHDSecret returns e itself if it already is an HD extended private key;
// other kinds cannot produce one without an external derivation path, so
// they fail with incompatible-kind.
func AsHDSecret(e Expr) (HDSecret, error) {
	if h, ok := e.(HDSecret); ok {
		return h, nil
	}
	return HDSecret{}, incompatible(e.Kind(), "HD.secret")
}

// AsHDPubkey returns the neutered form of an HD secret, or e itself if it
// already is an HD public key.
func AsHDPubkey(e Expr) (HDPubkey, error) {
	switch v := e.(type) {
	case HDPubkey:
		return v, nil
	case HDSecret:
		pub, err := v.Key.Neuter()
		if err != nil {
			return HDPubkey{}, fmt.Errorf("neutering extended key: %w", err)
		}
		return HDPubkey{Key: pub}, nil
	default:
		return HDPubkey{}, incompatible(e.Kind(), "HD.pubkey")
	}
}

// ToPublic canonicalizes e to its public form: a bare pubkey for Secret/WIF,
// a neutered extended key for HDSecret, or e itself if already public.
func ToPublic(e Expr) (Expr, error) {
	switch e.(type) {
	case Pubkey, Address, HDPubkey:
		return e, nil
	case HDSecret:
		return AsHDPubkey(e)
	default:
		return AsPubkey(e)
	}
}

// Derive walks path, applying hardened or non-hardened BIP-32 child
// derivation at each step. Hardened indices (>= hdkeychain.HardenedKeyStart)
// require e to carry a secret.
func Derive(e Expr, path []uint32) (Expr, error) {
	switch v := e.(type) {
	case HDSecret:
		key := v.Key
		for _, idx := range path {
			child, err := key.Derive(idx)
			if err != nil {
				return nil, fmt.Errorf("deriving child %d: %w", idx, err)
			}
			key = child
		}
		return HDSecret{Key: key}, nil
	case HDPubkey:
		key := v.Key
		for _, idx := range path {
			if idx >= hdkeychain.HardenedKeyStart {
				return nil, cosmoserr.New(cosmoserr.HardenedRequiresSecret, fmt.Sprintf("cannot derive hardened index %d from a public key", idx))
			}
			child, err := key.Derive(idx)
			if err != nil {
				return nil, fmt.Errorf("deriving child %d: %w", idx, err)
			}
			key = child
		}
		return HDPubkey{Key: key}, nil
	default:
		return nil, incompatible(e.Kind(), "a derivable HD key")
	}
}

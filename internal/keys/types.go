package keys

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// Secret is a raw 256-bit scalar, the most basic expression in the
// algebra. It carries no network or encoding information.
type Secret struct {
	Value [32]byte
}

func (Secret) Kind() Kind { return KindSecret }

// Pubkey is a secp256k1 point, stored in its serialized form so both
// compressed and uncompressed inputs round-trip exactly.
type Pubkey struct {
	Serialized []byte // 33 (compressed) or 65 (uncompressed) bytes
}

func (Pubkey) Kind() Kind { return KindPubkey }

// Address is a network-tagged 160-bit hash, the pay-to-pubkey-hash
// template's recipient identifier.
type Address struct {
	Hash160 [20]byte
	Net     Net
}

func (Address) Kind() Kind { return KindAddress }

// WIF is Wallet Import Format: a secret scalar plus the network and
// compressed-pubkey flag needed to render it.
type WIF struct {
	Secret     [32]byte
	Net        Net
	Compressed bool
}

func (WIF) Kind() Kind { return KindWIF }

// HDSecret is a BIP-32 extended private key ("xprv...").
type HDSecret struct {
	Key *hdkeychain.ExtendedKey
}

func (HDSecret) Kind() Kind { return KindHDSecret }

// HDPubkey is a BIP-32 extended public key ("xpub...").
type HDPubkey struct {
	Key *hdkeychain.ExtendedKey
}

func (HDPubkey) Kind() Kind { return KindHDPubkey }

// Package keys implements the key-expression algebra: a small closed
// grammar over Bitcoin key representations (raw scalars, WIF, BIP-32
// extended keys, addresses) with lossless parsing and rendering, total
// conversions between the forms an expression carries enough information
// for, and BIP-32 child derivation.
//
// All other packages move key material between representations only
// through this package's operations.
package keys

import (
	"github.com/btcsuite/btcd/chaincfg"
)

// Kind names one of the expression variants the grammar recognizes.
type Kind int

const (
	KindSecret Kind = iota
	KindPubkey
	KindAddress
	KindWIF
	KindHDSecret
	KindHDPubkey
)

func (k Kind) String() string {
	switch k {
	case KindSecret:
		return "secret"
	case KindPubkey:
		return "pubkey"
	case KindAddress:
		return "address"
	case KindWIF:
		return "WIF"
	case KindHDSecret:
		return "HD.secret"
	case KindHDPubkey:
		return "HD.pubkey"
	default:
		return "unknown"
	}
}

// Net is the two networks a BSV key expression can be tagged with.
type Net uint8

const (
	Main Net = iota
	Test
)

func (n Net) String() string {
	if n == Test {
		return "net.Test"
	}
	return "net.Main"
}

// Params returns the btcd chain parameters backing address/WIF/HD encoding
// for n. BSV reuses Bitcoin's version bytes unchanged.
func (n Net) Params() *chaincfg.Params {
	if n == Test {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// Expr is a parsed key expression. The concrete type identifies the Kind;
// Kind() lets callers avoid a type switch when only the tag is needed.
type Expr interface {
	Kind() Kind
}

package keys

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

// Render produces the canonical text form of e for the requested kind,
// failing with incompatible-kind if e does not carry enough information
// to be expressed as kind.
func Render(e Expr, kind Kind) (string, error) {
	switch kind {
	case KindSecret:
		s, err := AsSecret(e)
		if err != nil {
			return "", err
		}
		return renderSecret(s), nil
	case KindPubkey:
		p, err := AsPubkey(e)
		if err != nil {
			return "", err
		}
		return renderPubkey(p), nil
	case KindAddress:
		a, err := AsAddress(e)
		if err != nil {
			return "", err
		}
		return renderAddress(a), nil
	case KindWIF:
		w, err := AsWIF(e)
		if err != nil {
			return "", err
		}
		return renderWIF(w)
	case KindHDSecret:
		h, err := AsHDSecret(e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("HD.secret %q", h.Key.String()), nil
	case KindHDPubkey:
		h, err := AsHDPubkey(e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("HD.pubkey %q", h.Key.String()), nil
	default:
		return "", cosmoserr.New(cosmoserr.IncompatibleKind, "render: unknown kind")
	}
}

func renderSecret(s Secret) string {
	v := new(big.Int).SetBytes(s.Value[:])
	return fmt.Sprintf("secret %s", v.String())
}

func renderPubkey(p Pubkey) string {
	return fmt.Sprintf("pubkey `%s`", hex.EncodeToString(p.Serialized))
}

func renderAddress(a Address) string {
	addr, err := btcutil.NewAddressPubKeyHash(a.Hash160[:], a.Net.Params())
	if err != nil {
		// Hash160 is always exactly 20 bytes by construction, so this
		// encoder cannot fail in practice.
		return fmt.Sprintf("address [`%s`, %s]", hex.EncodeToString(a.Hash160[:]), a.Net)
	}
	return fmt.Sprintf("address `%s`", addr.EncodeAddress())
}

func renderWIF(w WIF) (string, error) {
	privKey, _ := btcec.PrivKeyFromBytes(w.Secret[:])
	wif, err := btcutil.NewWIF(privKey, w.Net.Params(), w.Compressed)
	if err != nil {
		return "", fmt.Errorf("rendering WIF: %w", err)
	}
	return fmt.Sprintf("WIF %q", wif.String()), nil
}

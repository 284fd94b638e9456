package keys

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

// Parse tokenizes and tags text per the grammar of spec §4.1. Leading and
// trailing whitespace is insignificant; the outer kind markers (WIF,
// HD.secret, address, ...) are matched case-sensitively.
func Parse(text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "parse", err)
	}
	ts := newTokenStream(toks)
	e, err := parseExpr(ts)
	if err != nil {
		return nil, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "parse", err)
	}
	if !ts.atEOF() {
		return nil, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "parse", fmt.Errorf("unexpected trailing input %q", ts.peek().text))
	}
	return e, nil
}

func parseExpr(ts *tokenStream) (Expr, error) {
	kw, err := ts.expect(tokIdent, "keyword")
	if err != nil {
		return nil, err
	}

	switch kw.text {
	case "secret":
		return parseSecretBody(ts)
	case "pubkey":
		return parsePubkeyBody(ts)
	case "address":
		return parseAddressBody(ts)
	case "WIF":
		return parseWIFBody(ts)
	case "HD.secret":
		return parseHDSecretBody(ts)
	case "HD.pubkey":
		return parseHDPubkeyBody(ts)
	default:
		return nil, fmt.Errorf("unrecognized key expression kind %q", kw.text)
	}
}

func parseSecretBody(ts *tokenStream) (Expr, error) {
	n, err := ts.expect(tokNumber, "decimal scalar")
	if err != nil {
		return nil, err
	}
	return Secret{Value: scalarBytes(n.text)}, nil
}

func scalarBytes(decimal string) [32]byte {
	v, _ := new(big.Int).SetString(decimal, 10)
	var out [32]byte
	if v != nil {
		v.FillBytes(out[:])
	}
	return out
}

func parsePubkeyBody(ts *tokenStream) (Expr, error) {
	h, err := ts.expect(tokHex, "hex-encoded public key")
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(h.text)
	if err != nil {
		return nil, err
	}
	if _, err := btcec.ParsePubKey(b); err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return Pubkey{Serialized: b}, nil
}

func parseAddressBody(ts *tokenStream) (Expr, error) {
	switch ts.peek().kind {
	case tokHex:
		h := ts.next()
		addr, net, err := decodeAddressText(h.text)
		if err != nil {
			return nil, err
		}
		return Address{Hash160: addr, Net: net}, nil
	case tokLBracket:
		ts.next()
		h, err := ts.expect(tokHex, "160-bit hash")
		if err != nil {
			return nil, err
		}
		hb, err := hex.DecodeString(h.text)
		if err != nil {
			return nil, err
		}
		if len(hb) != 20 {
			return nil, fmt.Errorf("address hash must be 20 bytes, got %d", len(hb))
		}
		if _, err := ts.expect(tokComma, ","); err != nil {
			return nil, err
		}
		net, err := parseNet(ts)
		if err != nil {
			return nil, err
		}
		if _, err := ts.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		var hash [20]byte
		copy(hash[:], hb)
		return Address{Hash160: hash, Net: net}, nil
	default:
		return nil, fmt.Errorf("expected hex literal or '[' after 'address'")
	}
}

func decodeAddressText(b58 string) ([20]byte, Net, error) {
	var zero [20]byte
	for _, net := range []Net{Main, Test} {
		addr, err := btcutil.DecodeAddress(b58, net.Params())
		if err != nil {
			continue
		}
		ph, ok := addr.(*btcutil.AddressPubKeyHash)
		if !ok {
			return zero, 0, fmt.Errorf("address %q is not a pay-to-pubkey-hash address", b58)
		}
		var hash [20]byte
		copy(hash[:], ph.Hash160()[:])
		return hash, net, nil
	}
	return zero, 0, fmt.Errorf("unrecognized address %q", b58)
}

func parseWIFBody(ts *tokenStream) (Expr, error) {
	switch ts.peek().kind {
	case tokString:
		s := ts.next()
		wif, err := btcutil.DecodeWIF(s.text)
		if err != nil {
			return nil, fmt.Errorf("invalid WIF: %w", err)
		}
		net := Main
		if !wif.IsForNet(Main.Params()) {
			net = Test
			if !wif.IsForNet(Test.Params()) {
				return nil, fmt.Errorf("WIF does not match a known network")
			}
		}
		var secret [32]byte
		copy(secret[:], wif.PrivKey.Serialize())
		return WIF{Secret: secret, Net: net, Compressed: wif.CompressPubKey}, nil
	case tokLBracket:
		ts.next()
		if err := ts.expectIdent("secret"); err != nil {
			return nil, err
		}
		n, err := ts.expect(tokNumber, "decimal scalar")
		if err != nil {
			return nil, err
		}
		if _, err := ts.expect(tokComma, ","); err != nil {
			return nil, err
		}
		net, err := parseNet(ts)
		if err != nil {
			return nil, err
		}
		compressed := true
		if ts.peek().kind == tokComma {
			ts.next()
			compressed, err = parseBool(ts)
			if err != nil {
				return nil, err
			}
		}
		if _, err := ts.expect(tokRBracket, "]"); err != nil {
			return nil, err
		}
		return WIF{Secret: scalarBytes(n.text), Net: net, Compressed: compressed}, nil
	default:
		return nil, fmt.Errorf("expected string or '[' after 'WIF'")
	}
}

func parseHDSecretBody(ts *tokenStream) (Expr, error) {
	switch ts.peek().kind {
	case tokString:
		s := ts.next()
		key, err := hdkeychain.NewKeyFromString(s.text)
		if err != nil {
			return nil, fmt.Errorf("invalid extended key: %w", err)
		}
		if !key.IsPrivate() {
			return nil, fmt.Errorf("HD.secret requires a private extended key, got a public one")
		}
		return HDSecret{Key: key}, nil
	case tokLBracket:
		ts.next()
		if err := ts.expectIdent("secret"); err != nil {
			return nil, err
		}
		n, err := ts.expect(tokNumber, "decimal scalar")
		if err != nil {
			return nil, err
		}
		if _, err := ts.expect(tokComma, ","); err != nil {
			return nil, err
		}
		cc, depth, parentFP, childNum, net, err := parseHDTail(ts)
		if err != nil {
			return nil, err
		}
		secret := scalarBytes(n.text)
		key := hdkeychain.NewExtendedKey(net.Params().HDPrivateKeyID[:], secret[:], cc, parentFP, depth, childNum, true)
		return HDSecret{Key: key}, nil
	default:
		return nil, fmt.Errorf("expected string or '[' after 'HD.secret'")
	}
}

func parseHDPubkeyBody(ts *tokenStream) (Expr, error) {
	switch ts.peek().kind {
	case tokString:
		s := ts.next()
		key, err := hdkeychain.NewKeyFromString(s.text)
		if err != nil {
			return nil, fmt.Errorf("invalid extended key: %w", err)
		}
		if key.IsPrivate() {
			key, err = key.Neuter()
			if err != nil {
				return nil, fmt.Errorf("neutering extended key: %w", err)
			}
		}
		return HDPubkey{Key: key}, nil
	case tokLBracket:
		ts.next()
		inner, err := parseExpr(ts)
		if err != nil {
			return nil, err
		}
		pk, ok := inner.(Pubkey)
		if !ok {
			return nil, fmt.Errorf("HD.pubkey's first field must be a pubkey expression")
		}
		if _, err := ts.expect(tokComma, ","); err != nil {
			return nil, err
		}
		cc, depth, parentFP, childNum, net, err := parseHDTail(ts)
		if err != nil {
			return nil, err
		}
		key := hdkeychain.NewExtendedKey(net.Params().HDPublicKeyID[:], pk.Serialized, cc, parentFP, depth, childNum, false)
		return HDPubkey{Key: key}, nil
	default:
		return nil, fmt.Errorf("expected string or '[' after 'HD.pubkey'")
	}
}

// parseHDTail parses the common `CC`, net.X, depth, parent, sequence] suffix
// shared by the HD.secret and HD.pubkey decoded forms.
func parseHDTail(ts *tokenStream) (chainCode []byte, depth uint8, parentFP []byte, childNum uint32, net Net, err error) {
	cc, err := ts.expect(tokHex, "chain code")
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	chainCode, err = hex.DecodeString(cc.text)
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	if _, err = ts.expect(tokComma, ","); err != nil {
		return nil, 0, nil, 0, 0, err
	}
	net, err = parseNet(ts)
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	if _, err = ts.expect(tokComma, ","); err != nil {
		return nil, 0, nil, 0, 0, err
	}
	depthTok, err := ts.expect(tokNumber, "depth")
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	d, err := strconv.ParseUint(depthTok.text, 10, 8)
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	depth = uint8(d)
	if _, err = ts.expect(tokComma, ","); err != nil {
		return nil, 0, nil, 0, 0, err
	}
	parentTok, err := ts.expect(tokNumber, "parent fingerprint")
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	p, err := strconv.ParseUint(parentTok.text, 10, 32)
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	parentFP = []byte{byte(p >> 24), byte(p >> 16), byte(p >> 8), byte(p)}
	if _, err = ts.expect(tokComma, ","); err != nil {
		return nil, 0, nil, 0, 0, err
	}
	seqTok, err := ts.expect(tokNumber, "sequence")
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	seq, err := strconv.ParseUint(seqTok.text, 10, 32)
	if err != nil {
		return nil, 0, nil, 0, 0, err
	}
	childNum = uint32(seq)
	if _, err = ts.expect(tokRBracket, "]"); err != nil {
		return nil, 0, nil, 0, 0, err
	}
	return chainCode, depth, parentFP, childNum, net, nil
}

func parseNet(ts *tokenStream) (Net, error) {
	t, err := ts.expect(tokIdent, "net.Main or net.Test")
	if err != nil {
		return 0, err
	}
	switch t.text {
	case "net.Main":
		return Main, nil
	case "net.Test":
		return Test, nil
	default:
		return 0, fmt.Errorf("expected net.Main or net.Test, got %q", t.text)
	}
}

func parseBool(ts *tokenStream) (bool, error) {
	t, err := ts.expect(tokIdent, "true or false")
	if err != nil {
		return false, err
	}
	switch t.text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected true or false, got %q", t.text)
	}
}


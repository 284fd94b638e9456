package spend

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

func samplePrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	var secret [32]byte
	secret[31] = 7
	priv, _ := btcec.PrivKeyFromBytes(secret[:])
	return priv
}

func TestForkIDSigHashIsDeterministic(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	var hash chainhash.Hash
	hash[0] = 3
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(5000, []byte{0x51}))

	pkScript := []byte{0x76, 0xa9, 0x14}

	h1, err := forkIDSigHash(tx, 0, pkScript, 10000)
	if err != nil {
		t.Fatalf("forkIDSigHash: %v", err)
	}
	h2, err := forkIDSigHash(tx, 0, pkScript, 10000)
	if err != nil {
		t.Fatalf("forkIDSigHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("forkIDSigHash is not deterministic: %v != %v", h1, h2)
	}

	h3, err := forkIDSigHash(tx, 0, pkScript, 20000)
	if err != nil {
		t.Fatalf("forkIDSigHash: %v", err)
	}
	if h1 == h3 {
		t.Fatalf("forkIDSigHash did not change when the prevout value changed")
	}
}

func TestForkIDSigHashRejectsOutOfRangeIndex(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	var hash chainhash.Hash
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, 0), nil, nil))

	if _, err := forkIDSigHash(tx, 5, []byte{0x76}, 1000); err == nil {
		t.Fatalf("expected an error for an out-of-range input index")
	}
}

func TestSignP2PKHForkIDAppendsHashType(t *testing.T) {
	tx := wire.NewMsgTx(wire.TxVersion)
	var hash chainhash.Hash
	hash[0] = 1
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(2000, []byte{0x51}))

	priv := samplePrivKey(t)
	pkScript := []byte{0x76, 0xa9, 0x14}

	scriptSig, err := signP2PKHForkID(tx, 0, priv, pkScript, 5000)
	if err != nil {
		t.Fatalf("signP2PKHForkID: %v", err)
	}
	if len(scriptSig) == 0 {
		t.Fatalf("expected a non-empty scriptSig")
	}
	sigLen := int(scriptSig[0])
	if scriptSig[sigLen] != forkIDHashType {
		t.Fatalf("expected the signature push to end with hash type %#x, got %#x", forkIDHashType, scriptSig[sigLen])
	}

	pub := priv.PubKey().SerializeCompressed()
	if !bytes.Contains(scriptSig, pub) {
		t.Fatalf("expected scriptSig to contain the serialized public key")
	}
}

func TestHashPrevoutsChangesWithInputs(t *testing.T) {
	tx1 := wire.NewMsgTx(wire.TxVersion)
	var h1 chainhash.Hash
	h1[0] = 1
	tx1.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&h1, 0), nil, nil))

	tx2 := wire.NewMsgTx(wire.TxVersion)
	var h2 chainhash.Hash
	h2[0] = 2
	tx2.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&h2, 0), nil, nil))

	if hashPrevoutsOf(tx1) == hashPrevoutsOf(tx2) {
		t.Fatalf("expected hashPrevouts to differ for different inputs")
	}
}

func TestHashOutputsChangesWithOutputs(t *testing.T) {
	tx1 := wire.NewMsgTx(wire.TxVersion)
	tx1.AddTxOut(wire.NewTxOut(100, []byte{0x51}))

	tx2 := wire.NewMsgTx(wire.TxVersion)
	tx2.AddTxOut(wire.NewTxOut(200, []byte{0x51}))

	if hashOutputsOf(tx1) == hashOutputsOf(tx2) {
		t.Fatalf("expected hashOutputs to differ for different output values")
	}
}

package spend

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// sigHashForkID is the replay-protection flag BSV (and BCH) OR into the
// base sighash type. BSV's fork id is 0, so it contributes nothing past
// this flag to the 24 high bits of the combined hash type.
const sigHashForkID = 0x40

// sigHashAll is the base hash type used for every input this wallet
// signs; the spend pipeline never constructs SIGHASH_SINGLE/NONE outputs.
const sigHashAll = 0x01

// forkIDHashType is the full hash type value, combining the base type
// with the fork-id flag, written into both the sighash preimage and the
// trailing byte of the DER signature.
const forkIDHashType = sigHashAll | sigHashForkID

// forkIDSigHash computes the BIP143-style sighash BSV requires for every
// input since the UAHF fork: the same preimage structure segwit chains
// use for witness inputs, computed here over a legacy (non-segwit)
// P2PKH previous output, per spec §4.7's note that BSV has no SegWit
// and every signature carries SIGHASH_FORKID.
func forkIDSigHash(tx *wire.MsgTx, idx int, pkScript []byte, value int64) (chainhash.Hash, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return chainhash.Hash{}, fmt.Errorf("spend: sighash index %d out of range", idx)
	}

	hashPrevouts := hashPrevoutsOf(tx)
	hashSequence := hashSequenceOf(tx)
	hashOutputs := hashOutputsOf(tx)

	var buf bytes.Buffer
	writeUint32LE(&buf, uint32(tx.Version))
	buf.Write(hashPrevouts[:])
	buf.Write(hashSequence[:])

	in := tx.TxIn[idx]
	buf.Write(in.PreviousOutPoint.Hash[:])
	writeUint32LE(&buf, in.PreviousOutPoint.Index)
	writeVarBytes(&buf, pkScript)
	writeUint64LE(&buf, uint64(value))
	writeUint32LE(&buf, in.Sequence)

	buf.Write(hashOutputs[:])
	writeUint32LE(&buf, uint32(tx.LockTime))
	writeUint32LE(&buf, uint32(forkIDHashType))

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

func hashPrevoutsOf(tx *wire.MsgTx) chainhash.Hash {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		writeUint32LE(&buf, in.PreviousOutPoint.Index)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

func hashSequenceOf(tx *wire.MsgTx) chainhash.Hash {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		writeUint32LE(&buf, in.Sequence)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

func hashOutputsOf(tx *wire.MsgTx) chainhash.Hash {
	var buf bytes.Buffer
	for _, out := range tx.TxOut {
		writeUint64LE(&buf, uint64(out.Value))
		writeVarBytes(&buf, out.PkScript)
	}
	return chainhash.DoubleHashH(buf.Bytes())
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeVarInt(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		writeUint32LE(buf, uint32(v))
	default:
		buf.WriteByte(0xff)
		writeUint64LE(buf, v)
	}
}

func writeVarBytes(buf *bytes.Buffer, b []byte) {
	writeVarInt(buf, uint64(len(b)))
	buf.Write(b)
}

// signP2PKHForkID produces the P2PKH scriptSig for one input: a
// SIGHASH_FORKID-flagged DER signature followed by the compressed
// public key, using priv to sign over pkScript and value.
func signP2PKHForkID(tx *wire.MsgTx, idx int, priv *btcec.PrivateKey, pkScript []byte, value int64) ([]byte, error) {
	hash, err := forkIDSigHash(tx, idx, pkScript, value)
	if err != nil {
		return nil, err
	}

	sig := ecdsa.Sign(priv, hash[:])
	der := sig.Serialize()

	sigWithType := make([]byte, 0, len(der)+1)
	sigWithType = append(sigWithType, der...)
	sigWithType = append(sigWithType, byte(forkIDHashType))

	pub := priv.PubKey().SerializeCompressed()

	return txscript.NewScriptBuilder().
		AddData(sigWithType).
		AddData(pub).
		Script()
}

// Package spv is the authoritative record of which txids are confirmed and
// at which height: block headers indexed by height, hash, and Merkle root,
// each paired with a level-indexed BUMP Merkle proof structure that grows
// as more branches are merged in.
package spv

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

// BUMPNode is one fragment of a level-indexed Merkle proof: a hash at a
// given (level, index) position in the block's Merkle tree. Txid marks a
// level-0 node as one of the transactions this BUMP actually proves,
// distinct from a sibling hash pulled in only to complete a path.
type BUMPNode struct {
	Hash chainhash.Hash
	Txid bool
}

// BUMP is a level-indexed set of Merkle path fragments for one block,
// shared across every txid it covers. It starts empty and accumulates
// fragments as branches for individual transactions are merged in.
type BUMP struct {
	Height uint32
	Root   chainhash.Hash
	Levels map[uint32]map[uint64]BUMPNode
}

// NewBUMP returns an empty BUMP for the block at height with the given
// Merkle root.
func NewBUMP(height uint32, root chainhash.Hash) *BUMP {
	return &BUMP{Height: height, Root: root, Levels: map[uint32]map[uint64]BUMPNode{}}
}

func (b *BUMP) setNode(level uint32, index uint64, node BUMPNode) {
	if b.Levels[level] == nil {
		b.Levels[level] = make(map[uint64]BUMPNode)
	}
	if existing, ok := b.Levels[level][index]; ok && existing.Txid {
		node.Txid = true
	}
	b.Levels[level][index] = node
}

// MergeBranch inserts the Merkle path for one txid: its position among the
// block's leaves and the ordered sibling hashes from the leaf level up to
// (but not including) the root. It fails with merkle-mismatch if the
// recomputed root does not match the BUMP's root. Merging the same branch
// twice, or branches for different txids in either order, converges to the
// same final state.
func (b *BUMP) MergeBranch(leafIndex uint64, leafTxid chainhash.Hash, siblings []chainhash.Hash) error {
	b.setNode(0, leafIndex, BUMPNode{Hash: leafTxid, Txid: true})

	idx := leafIndex
	cur := leafTxid
	for level, sib := range siblings {
		siblingIndex := idx ^ 1
		b.setNode(uint32(level), siblingIndex, BUMPNode{Hash: sib})

		var left, right chainhash.Hash
		if idx%2 == 0 {
			left, right = cur, sib
		} else {
			left, right = sib, cur
		}
		parent := merkleParent(left, right)
		idx /= 2
		cur = parent
		b.setNode(uint32(level+1), idx, BUMPNode{Hash: parent})
	}

	if cur != b.Root {
		return cosmoserr.New(cosmoserr.MerkleMismatch, "BUMP branch does not rehash to the block's Merkle root")
	}
	return nil
}

func merkleParent(left, right chainhash.Hash) chainhash.Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// Contains reports whether txid is one of the transactions this BUMP
// proves (a level-0 node flagged Txid), as opposed to merely a sibling
// hash used to complete someone else's path.
func (b *BUMP) Contains(txid chainhash.Hash) bool {
	for _, node := range b.Levels[0] {
		if node.Txid && node.Hash == txid {
			return true
		}
	}
	return false
}

// Txids returns every transaction this BUMP proves.
func (b *BUMP) Txids() []chainhash.Hash {
	var out []chainhash.Hash
	for _, node := range b.Levels[0] {
		if node.Txid {
			out = append(out, node.Hash)
		}
	}
	return out
}

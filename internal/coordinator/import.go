package coordinator

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/wire"
)

// Import records every transaction in beef against the transaction
// store: confirmed ones (BUMPIndex != wire.NoBUMP) with the Merkle
// branch their BUMP implies, unconfirmed ones as plain pending
// transactions. Before merging any branch it ensures a header for that
// BUMP's height and root is on file (internal/spv), fetching it through
// the network adapter (C8) on first sight of a block — the C8-to-C2
// data flow the `/import/<wallet>` endpoint depends on per spec §6.
func (c *Coordinator) Import(ctx context.Context, beef *wire.Beef) error {
	bumps := make([]*spv.BUMP, len(beef.BUMPs))
	for i, b := range beef.BUMPs {
		bumps[i] = b.ToBUMP()
	}
	for i, bump := range bumps {
		if err := c.ensureHeader(ctx, bump.Height, bump.Root); err != nil {
			return fmt.Errorf("importing BUMP %d: %w", i, err)
		}
	}

	for i, bt := range beef.Txs {
		tx := bt.Tx.Plain()

		if bt.BUMPIndex == wire.NoBUMP {
			if err := c.txs.InsertTx(ctx, tx); err != nil {
				return fmt.Errorf("importing transaction %d: %w", i, err)
			}
			continue
		}
		if int(bt.BUMPIndex) >= len(bumps) {
			return fmt.Errorf("importing transaction %d: BUMP index %d out of range", i, bt.BUMPIndex)
		}

		bump := bumps[bt.BUMPIndex]
		txid := tx.TxHash()
		leafIndex, ok := leafIndexFor(bump, txid)
		if !ok {
			return fmt.Errorf("importing transaction %d: its BUMP does not cover this txid", i)
		}
		siblings := siblingsForLeaf(bump, leafIndex)

		if err := c.txs.InsertTxWithPath(ctx, tx, bump.Root, leafIndex, siblings); err != nil {
			return fmt.Errorf("importing transaction %d: %w", i, err)
		}
	}
	return nil
}

// ensureHeader makes sure a header at height with the given Merkle root
// is on file before any branch against it is merged, fetching it from
// the network adapter the first time this root is seen. If a header is
// already on file at height but under a different hash, the chain has
// reorganized since it was recorded: ensureHeader demotes every txid
// that header alone confirmed back to pending (internal/spv.RemoveHeader
// paired with internal/txdb.Store.HandleReorg, spec §8 property #6)
// before recording the replacement, so the caller's re-insertion below
// restores them against the new block.
func (c *Coordinator) ensureHeader(ctx context.Context, height uint32, root chainhash.Hash) error {
	if _, ok, err := c.spvSt.HeaderByRoot(root); err != nil {
		return fmt.Errorf("looking up header for root: %w", err)
	} else if ok {
		return nil
	}

	info, ok, err := c.net.FetchHeaderByHeight(ctx, height)
	if err != nil {
		return cosmoserr.Wrap(cosmoserr.NetworkConnectionFail, "fetching header by height", err)
	}
	if !ok {
		return cosmoserr.New(cosmoserr.UnknownBlock, fmt.Sprintf("no header known for height %d", height))
	}
	if info.Root != root {
		return cosmoserr.New(cosmoserr.MerkleMismatch, "network-provided header root does not match this BUMP's root")
	}

	if existing, ok, err := c.spvSt.Header(height); err != nil {
		return fmt.Errorf("checking for a superseded header at height %d: %w", height, err)
	} else if ok && existing.Hash != info.Hash {
		demoted, err := c.spvSt.RemoveHeader(height)
		if err != nil {
			return fmt.Errorf("removing reorged header at height %d: %w", height, err)
		}
		if err := c.txs.HandleReorg(ctx, demoted); err != nil {
			return fmt.Errorf("demoting transactions confirmed only by the reorged header: %w", err)
		}
		c.log.Info("chain reorg detected, demoted transactions to pending", "height", height, "count", len(demoted))
	}

	if err := c.spvSt.InsertHeader(spv.Header{Height: info.Height, Hash: info.Hash, Root: info.Root, Raw: info.Raw}); err != nil {
		return fmt.Errorf("inserting header: %w", err)
	}
	return nil
}

// leafIndexFor finds the level-0 index bump records txid under.
func leafIndexFor(bump *spv.BUMP, txid chainhash.Hash) (uint64, bool) {
	for index, node := range bump.Levels[0] {
		if node.Txid && node.Hash == txid {
			return index, true
		}
	}
	return 0, false
}

// siblingsForLeaf reconstructs the ordered sibling hashes MergeBranch
// originally consumed to produce bump, by walking its flattened
// Levels map bottom-up from leafIndex: at each level the sibling of
// index i is the node at i^1, and the path continues at the parent
// level until no further level is populated.
func siblingsForLeaf(bump *spv.BUMP, leafIndex uint64) []chainhash.Hash {
	var siblings []chainhash.Hash
	idx := leafIndex
	for level := uint32(0); ; level++ {
		nodes, ok := bump.Levels[level]
		if !ok {
			break
		}
		siblingIndex := idx ^ 1
		sib, ok := nodes[siblingIndex]
		if !ok {
			break
		}
		siblings = append(siblings, sib.Hash)
		idx /= 2
	}
	return siblings
}

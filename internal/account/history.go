package account

import (
	"sort"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/wire"
)

// EventSummary is one transaction's effect on a wallet's balance, folded
// from the individual In/Out events the transaction store reports for it.
//
// Received is the sum of values of outputs this transaction paid to the
// wallet. Spent is the sum of values of outputs the wallet previously
// held that this transaction redeemed. Moved is the portion of Spent that
// came back to the wallet as change in the same transaction, so that
// Received-Moved is the amount actually paid in from outside and
// Spent-Moved is the amount actually paid out.
type EventSummary struct {
	Txid      chainhash.Hash
	Time      time.Time
	Confirmed bool
	Received  int64
	Spent     int64
	Moved     int64
}

// Net returns the summary's effect on the wallet's total balance.
func (s EventSummary) Net() int64 {
	return s.Received - s.Spent
}

// History folds a stream of transaction-store events into one summary per
// distinct txid, ordered most recent first using the same (confirmed,
// time, in-block index) order the events themselves carry.
func History(events []txdb.Event) []EventSummary {
	order := make([]chainhash.Hash, 0)
	byTxid := make(map[chainhash.Hash]*EventSummary)
	latest := make(map[chainhash.Hash]txdb.Event)

	for _, e := range events {
		s, ok := byTxid[e.Txid]
		if !ok {
			s = &EventSummary{Txid: e.Txid}
			byTxid[e.Txid] = s
			order = append(order, e.Txid)
		}
		switch e.Direction {
		case txdb.DirectionIn:
			s.Received += e.Value
		case txdb.DirectionOut:
			s.Spent += e.Value
		}
		if cur, seen := latest[e.Txid]; !seen || cur.Less(e) {
			latest[e.Txid] = e
		}
	}

	summaries := make([]EventSummary, 0, len(order))
	for _, txid := range order {
		s := *byTxid[txid]
		rep := latest[txid]
		s.Time = rep.Time
		s.Confirmed = rep.Confirmed
		if s.Received < s.Spent {
			s.Moved = s.Received
		} else {
			s.Moved = s.Spent
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Confirmed != b.Confirmed {
			return a.Confirmed
		}
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return latest[a.Txid].InBlockIndex < latest[b.Txid].InBlockIndex
	})
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	return summaries
}

// Offer is a not-yet-broadcast response to a payment request: the BEEF
// payload a counterparty would submit and the account diff applying it
// implies, held so the request's recipient can inspect or rebroadcast it
// without having parsed the BEEF again.
type Offer struct {
	Beef *wire.Beef
	Diff Diff
}

// PaymentRequest is a recipient's solicitation for funds: a script the
// wallet watches for, and the amount expected if the caller specified
// one, per spec §3's Data Model. ID is the textual form of the
// recipient expression (address, pubkey, or xpub) the request was
// issued against. Expiry and Memo are optional, matching the base
// record's "(id, created-time, optional expiry, optional amount,
// optional memo)" shape; Offer is populated once a counterparty's
// not-yet-broadcast payment has been associated with this request.
//
// It is satisfied once a received event's script hash matches Script and
// the accumulated value meets ExpectedValue, provided the request has
// not expired.
type PaymentRequest struct {
	ID            string
	Script        []byte
	ScriptHash    [32]byte
	ExpectedValue int64
	Created       time.Time
	Expiry        *time.Time
	Memo          string
	Offer         *Offer
}

// Expired reports whether the request's Expiry, if set, is at or before
// at. A request with no Expiry never expires.
func (p PaymentRequest) Expired(at time.Time) bool {
	return p.Expiry != nil && !at.Before(*p.Expiry)
}

// Satisfied reports whether events received against a script hash
// matching the request sum to at least ExpectedValue, as of at. A zero
// ExpectedValue is satisfied by any matching payment at all. An expired
// request is never satisfied, even if a matching payment later arrives,
// since the caller should treat it as dead per spec §3's "optional
// expiry" field.
func (p PaymentRequest) Satisfied(events []txdb.Event, at time.Time) bool {
	if p.Expired(at) {
		return false
	}
	var total int64
	var any bool
	for _, e := range events {
		if e.Direction != txdb.DirectionIn {
			continue
		}
		any = true
		total += e.Value
	}
	if p.ExpectedValue == 0 {
		return any
	}
	return total >= p.ExpectedValue
}

package account

import (
	"testing"
	"time"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
)

func TestHistorySimpleReceive(t *testing.T) {
	txid := hashFromByte(1)
	events := []txdb.Event{
		{Txid: txid, Direction: txdb.DirectionIn, Index: 0, Value: 1000, Confirmed: true, Time: time.Unix(100, 0)},
	}

	h := History(events)
	if len(h) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(h))
	}
	s := h[0]
	if s.Received != 1000 || s.Spent != 0 || s.Moved != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Net() != 1000 {
		t.Fatalf("expected net 1000, got %d", s.Net())
	}
}

func TestHistorySpendWithChange(t *testing.T) {
	spendTxid := hashFromByte(2)
	events := []txdb.Event{
		{Txid: spendTxid, Direction: txdb.DirectionOut, Index: 0, Value: 10000, Confirmed: true, Time: time.Unix(200, 0), InBlockIndex: 3},
		{Txid: spendTxid, Direction: txdb.DirectionIn, Index: 0, Value: 9000, Confirmed: true, Time: time.Unix(200, 0), InBlockIndex: 3},
	}

	h := History(events)
	if len(h) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(h))
	}
	s := h[0]
	if s.Received != 9000 || s.Spent != 10000 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Moved != 9000 {
		t.Fatalf("expected moved=min(received,spent)=9000, got %d", s.Moved)
	}
	if s.Net() != -1000 {
		t.Fatalf("expected net -1000 (the fee), got %d", s.Net())
	}
}

func TestHistoryOrdersMostRecentFirst(t *testing.T) {
	older := hashFromByte(3)
	newer := hashFromByte(4)
	events := []txdb.Event{
		{Txid: older, Direction: txdb.DirectionIn, Value: 100, Confirmed: true, Time: time.Unix(100, 0)},
		{Txid: newer, Direction: txdb.DirectionIn, Value: 200, Confirmed: true, Time: time.Unix(200, 0)},
	}

	h := History(events)
	if len(h) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(h))
	}
	if h[0].Txid != newer || h[1].Txid != older {
		t.Fatalf("expected newest first, got order %v, %v", h[0].Txid, h[1].Txid)
	}
}

func TestHistoryUnconfirmedSortsFirst(t *testing.T) {
	confirmed := hashFromByte(5)
	pending := hashFromByte(6)
	events := []txdb.Event{
		{Txid: pending, Direction: txdb.DirectionIn, Value: 100, Confirmed: false},
		{Txid: confirmed, Direction: txdb.DirectionIn, Value: 200, Confirmed: true, Time: time.Unix(50, 0)},
	}

	h := History(events)
	if len(h) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(h))
	}
	if h[0].Txid != pending {
		t.Fatalf("expected unconfirmed tx first (most recent), got %v", h[0].Txid)
	}
}

func TestPaymentRequestSatisfiedByThreshold(t *testing.T) {
	now := time.Unix(1000, 0)
	p := PaymentRequest{ExpectedValue: 5000}
	partial := []txdb.Event{{Direction: txdb.DirectionIn, Value: 3000}}
	if p.Satisfied(partial, now) {
		t.Fatalf("expected unsatisfied with partial payment")
	}

	full := []txdb.Event{
		{Direction: txdb.DirectionIn, Value: 3000},
		{Direction: txdb.DirectionIn, Value: 2000},
	}
	if !p.Satisfied(full, now) {
		t.Fatalf("expected satisfied once cumulative value reaches threshold")
	}
}

func TestPaymentRequestZeroExpectedAnyPayment(t *testing.T) {
	now := time.Unix(1000, 0)
	p := PaymentRequest{}
	if p.Satisfied(nil, now) {
		t.Fatalf("expected unsatisfied with no events")
	}
	if !p.Satisfied([]txdb.Event{{Direction: txdb.DirectionIn, Value: 1}}, now) {
		t.Fatalf("expected satisfied by any incoming payment when no amount specified")
	}
}

func TestPaymentRequestExpiredNeverSatisfied(t *testing.T) {
	expiry := time.Unix(500, 0)
	p := PaymentRequest{Expiry: &expiry}
	at := time.Unix(600, 0)
	if !p.Expired(at) {
		t.Fatalf("expected request to be expired after its Expiry")
	}
	if p.Satisfied([]txdb.Event{{Direction: txdb.DirectionIn, Value: 1}}, at) {
		t.Fatalf("expected an expired request to never be satisfied, even by a matching payment")
	}
}

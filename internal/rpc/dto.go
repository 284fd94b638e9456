package rpc

import (
	"time"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/coordinator"
)

// eventSummaryDTO is account.EventSummary rendered for JSON: chainhash.Hash
// carries no JSON marshaler of its own, so its txid is hex-encoded here.
type eventSummaryDTO struct {
	Txid      string    `json:"txid"`
	Time      time.Time `json:"time"`
	Confirmed bool      `json:"confirmed"`
	Received  int64     `json:"received"`
	Spent     int64     `json:"spent"`
	Moved     int64     `json:"moved"`
	Net       int64     `json:"net"`
}

type detailsResponse struct {
	Value   int64             `json:"value"`
	History []eventSummaryDTO `json:"history"`
}

func detailsDTO(d coordinator.Details) detailsResponse {
	out := detailsResponse{Value: d.Value, History: make([]eventSummaryDTO, len(d.History))}
	for i, h := range d.History {
		out.History[i] = eventSummaryDTO{
			Txid:      h.Txid.String(),
			Time:      h.Time,
			Confirmed: h.Confirmed,
			Received:  h.Received,
			Spent:     h.Spent,
			Moved:     h.Moved,
			Net:       h.Net(),
		}
	}
	return out
}

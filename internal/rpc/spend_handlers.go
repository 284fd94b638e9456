package rpc

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/coordinator"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/wire"
)

// coinTypeByName maps the worked example's human coin names to their
// SLIP-44 registered path component; BSV has none of its own and reuses
// Bitcoin's, per generate.go.
var coinTypeByName = map[string]uint32{
	"Bitcoin":   0,
	"BitcoinSV": 0,
	"Testnet":   1,
}

func parseCoinType(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	if ct, ok := coinTypeByName[s]; ok {
		return ct, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "coin_type", err)
	}
	return uint32(n), nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if err := validateWalletName(wallet); err != nil {
		writeProblem(w, r, err)
		return
	}

	q := r.URL.Query()
	coinType, err := parseCoinType(q.Get("coin_type"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	words := 12
	if q.Get("number_of_words") == "24" {
		words = 24
	}

	result, err := s.coord.Generate(r.Context(), wallet, coordinator.GenerateOptions{
		Words:    words,
		CoinType: coinType,
	})
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"mnemonic": result.Mnemonic})
}

// handleRestore reads the mnemonic to restore from as the request body;
// passphrase and coin_type travel as query parameters, matching Generate.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if err := validateWalletName(wallet); err != nil {
		writeProblem(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}

	q := r.URL.Query()
	coinType, err := parseCoinType(q.Get("coin_type"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}

	opts := coordinator.RestoreOptions{
		Mnemonic:   string(body),
		Passphrase: q.Get("passphrase"),
		CoinType:   coinType,
	}
	if err := s.coord.Restore(r.Context(), wallet, opts); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport reads a BEEF bundle from the request body and records
// every transaction it contains.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if err := validateWalletName(wallet); err != nil {
		writeProblem(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}
	beef, err := wire.DecodeBeef(bytes.NewReader(body))
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "decoding BEEF", err))
		return
	}
	if err := s.coord.Import(r.Context(), beef); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type spendResponse struct {
	Txid string `json:"txid"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	q := r.URL.Query()
	to := q.Get("to")
	value, err := strconv.ParseInt(q.Get("value"), 10, 64)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "value", err))
		return
	}

	result, err := s.coord.Spend(r.Context(), wallet, to, value)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, spendResponse{Txid: result.Tx.TxHash().String()})
}

package rpc

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
)

// walletNamePattern is the grammar spec §6 requires of a wallet name.
var walletNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validateWalletName(name string) error {
	if !walletNamePattern.MatchString(name) {
		return cosmoserr.New(cosmoserr.InvalidSyntax, "wallet name must match [A-Za-z][A-Za-z0-9_]*")
	}
	return nil
}

// writeProblem renders err as an application/problem+json body per
// spec §6/§7.
func writeProblem(w http.ResponseWriter, r *http.Request, err error) {
	p := cosmoserr.ToProblem(r.Method+" "+r.URL.Path, err)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}

// writeJSON renders v as a 200 application/json body.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

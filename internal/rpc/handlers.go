package rpc

import (
	"encoding/hex"
	"io"
	"net/http"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/keys"
)

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": s.version})
}

// helpText is keyed by method name for GET /help/{method}; GET /help
// with no method returns the whole endpoint table's purposes.
var helpText = map[string]string{
	"version":      "version string",
	"help":         "help text",
	"shutdown":     "initiate graceful shutdown",
	"add_entropy":  "mix user entropy into the randomness source",
	"list_wallets": "JSON array of wallet names",
	"make_wallet":  "create wallet",
	"key":          "get or set a named key; POST without body generates a random key",
	"to_private":   "manage public to private key association",
	"invert_hash":  "store or retrieve a hash pre-image",
	"key_sequence": "get or create a key sequence",
	"next_address": "advance a sequence, return an address",
	"next_xpub":    "advance a sequence, return an xpub",
	"value":        "JSON integer satoshi total",
	"details":      "JSON account summary",
	"generate":     "generate a fresh wallet",
	"restore":      "restore a wallet from a mnemonic",
	"import":       "import a payment proven by SPV",
	"spend":        "construct, sign, and broadcast a payment",
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	if method == "" {
		writeJSON(w, helpText)
		return
	}
	text, ok := helpText[method]
	if !ok {
		writeProblem(w, r, cosmoserr.New(cosmoserr.InvalidSyntax, "no such method"))
		return
	}
	writeJSON(w, map[string]string{"method": method, "help": text})
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddEntropy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}
	s.coord.AddEntropy(body)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	names, err := s.coord.ListWallets(r.Context())
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, names)
}

func (s *Server) handleMakeWallet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := validateWalletName(name); err != nil {
		writeProblem(w, r, err)
		return
	}
	if err := s.coord.MakeWallet(r.Context(), name); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleGetKey renders the key expression bound to ?name=... within
// wallet in its own native kind.
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	name := r.URL.Query().Get("name")
	e, err := s.coord.GetKey(r.Context(), wallet, name)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	text, err := keys.Render(e, e.Kind())
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

// handleSetOrGenerateKey binds ?name=... to the key expression in the
// request body, or -- if the body is empty -- draws a fresh random
// secret and binds that instead.
func (s *Server) handleSetOrGenerateKey(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	name := r.URL.Query().Get("name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}
	if len(body) == 0 {
		e, err := s.coord.GenerateKey(r.Context(), wallet, name)
		if err != nil {
			writeProblem(w, r, err)
			return
		}
		text, err := keys.Render(e, e.Kind())
		if err != nil {
			writeProblem(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(text))
		return
	}

	e, err := keys.Parse(string(body))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if err := s.coord.SetKey(r.Context(), wallet, name, e); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToPrivateGet(w http.ResponseWriter, r *http.Request) {
	pub, err := keys.Parse(r.URL.Query().Get("name"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	priv, ok, err := s.coord.ToPrivateGet(r.Context(), pub)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if !ok {
		writeProblem(w, r, cosmoserr.New(cosmoserr.KeyMissing, "no private key registered for this public key"))
		return
	}
	text, err := keys.Render(priv, priv.Kind())
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

func (s *Server) handleToPrivatePut(w http.ResponseWriter, r *http.Request) {
	pub, err := keys.Parse(r.URL.Query().Get("name"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}
	priv, err := keys.Parse(string(body))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if err := s.coord.ToPrivateSet(r.Context(), pub, priv); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvertHashGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	digest, err := hex.DecodeString(q.Get("digest"))
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "decoding digest", err))
		return
	}
	preimage, ok, err := s.coord.InvertHashGet(r.Context(), digest, q.Get("function"))
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if !ok {
		writeProblem(w, r, cosmoserr.New(cosmoserr.KeyMissing, "no pre-image stored for this digest"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(preimage)
}

func (s *Server) handleInvertHashPut(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	digest, err := hex.DecodeString(q.Get("digest"))
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "decoding digest", err))
		return
	}
	preimage, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, r, cosmoserr.Wrap(cosmoserr.InvalidSyntax, "reading body", err))
		return
	}
	if err := s.coord.InvertHashSet(r.Context(), digest, q.Get("function"), preimage); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnsureSequence gets or creates the key sequence ?name=... within
// wallet, rooted at whatever key expression is already bound under that
// same name (set beforehand via POST /key/<wallet>?name=...): spec §6
// gives this endpoint no request body, so the sequence's root key must
// already live in the wallet's own key namespace.
func (s *Server) handleEnsureSequence(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	name := r.URL.Query().Get("name")

	parent, err := s.coord.GetKey(r.Context(), wallet, name)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	if err := s.coord.EnsureSequence(r.Context(), wallet, name, parent); err != nil {
		writeProblem(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNextAddress(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	seq := r.URL.Query().Get("name")
	addr, err := s.coord.NextAddress(r.Context(), wallet, seq)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(addr))
}

func (s *Server) handleNextXpub(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	seq := r.URL.Query().Get("name")
	xpub, err := s.coord.NextXpub(r.Context(), wallet, seq)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(xpub))
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	value, err := s.coord.Value(r.Context(), wallet)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, value)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	details, err := s.coord.Details(r.Context(), wallet)
	if err != nil {
		writeProblem(w, r, err)
		return
	}
	writeJSON(w, detailsDTO(details))
}

package keys

import "fmt"

// Store is a named-binding keystore: a mapping from key names to
// expressions. It carries no locking of its own; callers that need
// concurrent access (internal/walletreg) serialize access externally.
type Store struct {
	bindings map[string]Expr
}

// NewStore returns an empty keystore.
func NewStore() *Store {
	return &Store{bindings: make(map[string]Expr)}
}

// Set binds name to e, overwriting any existing binding (idempotent upsert,
// per spec §4.4's set_key).
func (s *Store) Set(name string, e Expr) {
	s.bindings[name] = e
}

// Get returns the expression bound to name.
func (s *Store) Get(name string) (Expr, bool) {
	e, ok := s.bindings[name]
	return e, ok
}

// Names returns every bound key name.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for n := range s.bindings {
		names = append(names, n)
	}
	return names
}

// ToPrivateMap is the content-addressed map from a public-form expression's
// canonical text to the private expression that evaluates to the same
// point. It is global, not per-wallet, per spec §4.4.
type ToPrivateMap struct {
	m map[string]Expr
}

// NewToPrivateMap returns an empty inversion map.
func NewToPrivateMap() *ToPrivateMap {
	return &ToPrivateMap{m: make(map[string]Expr)}
}

// Set associates pub's canonical rendering with priv.
func (t *ToPrivateMap) Set(pub, priv Expr) error {
	key, err := canonicalKey(pub)
	if err != nil {
		return fmt.Errorf("indexing to_private entry: %w", err)
	}
	t.m[key] = priv
	return nil
}

// Get looks up the private expression registered for pub, if any.
func (t *ToPrivateMap) Get(pub Expr) (Expr, bool, error) {
	key, err := canonicalKey(pub)
	if err != nil {
		return nil, false, fmt.Errorf("indexing to_private lookup: %w", err)
	}
	priv, ok := t.m[key]
	return priv, ok, nil
}

func canonicalKey(pub Expr) (string, error) {
	return Render(pub, pub.Kind())
}

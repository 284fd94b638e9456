package keys

// Apply implements the algebra's single binary function application,
// `@ key index -> key`, so that a key sequence's Next() is literally
// Apply(parent, index): derive the child at index from parent.
func Apply(parent Expr, index uint32) (Expr, error) {
	return Derive(parent, []uint32{index})
}

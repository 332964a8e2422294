package btree

// engine bundles the store (file manager + cache) and allocator behind
// the tree's structural operations (search, mutate, balance, iterate,
// check). It holds no locking of its own; Tree (btree.go) serializes
// access to a single engine per spec.md §5.
type engine struct {
	s     *store
	alloc *allocator
	hdr   *header
}

func (e *engine) numKeys() int {
	return e.hdr.NumKeys
}

func (e *engine) minOccup() int {
	return minOccup(e.hdr.NumKeys)
}

func (e *engine) rootOffset() int64 {
	return e.hdr.RootOffset
}

package btree

// put validates the value's length against data_size (the key is not
// checked against key_size), then
// either overwrites an existing slot in place or inserts a new one and
// triggers the balancer on overflow (spec.md §4.6, b3dictionary.py
// __setitem__).
func (e *engine) put(key, value []byte) error {
	if len(value) > e.hdr.DataSize {
		return ErrValueTooLarge
	}

	res, err := e.s.recSearch(e.hdr.RootOffset, key)
	if err != nil {
		return err
	}
	n := res.node

	if res.found {
		n.Data[res.position] = append([]byte(nil), value...)
		return e.s.saveNode(n)
	}

	n.insertAt(res.position, append([]byte(nil), key...), append([]byte(nil), value...))
	e.hdr.Stats.Keys++
	if err := e.s.saveHeader(); err != nil {
		return err
	}
	if err := e.s.saveNode(n); err != nil {
		return err
	}

	if len(n.Key) == e.numKeys() {
		ok, err := e.threadBalance(n.Offset)
		if err != nil {
			return err
		}
		if !ok {
			return e.splitNode(n.Offset)
		}
	}
	return nil
}

// get returns the value stored for key, or ErrKeyNotFound.
func (e *engine) get(key []byte) ([]byte, error) {
	res, err := e.s.recSearch(e.hdr.RootOffset, key)
	if err != nil {
		return nil, err
	}
	if !res.found {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), res.node.Data[res.position]...), nil
}

// contains reuses recSearch rather than a dedicated lookup path, matching
// the original's `__contains__` (SPEC_FULL.md §4).
func (e *engine) contains(key []byte) (bool, error) {
	res, err := e.s.recSearch(e.hdr.RootOffset, key)
	if err != nil {
		return false, err
	}
	return res.found, nil
}

// del deletes key, substituting the in-order predecessor when the hit is
// at an internal node so the actual removal always happens at a leaf,
// then rebalances whichever leaf lost a key (spec.md §4.6,
// b3dictionary.py __delitem__/__pop_max__).
func (e *engine) del(key []byte) error {
	res, err := e.s.recSearch(e.hdr.RootOffset, key)
	if err != nil {
		return err
	}
	if !res.found {
		return ErrKeyNotFound
	}
	n := res.node
	pos := res.position

	if n.isLeaf() {
		n.removeAt(pos)
		if err := e.s.saveNode(n); err != nil {
			return err
		}
	} else {
		predKey, predData, leafOffset, err := e.popMax(n.LowerNode[pos])
		if err != nil {
			return err
		}
		n.Key[pos], n.Data[pos] = predKey, predData
		if err := e.s.saveNode(n); err != nil {
			return err
		}

		leaf, err := e.s.loadNode(leafOffset)
		if err != nil {
			return err
		}
		if len(leaf.Key) < e.minOccup() {
			ok, err := e.threadBalance(leaf.Offset)
			if err != nil {
				return err
			}
			if !ok {
				if err := e.mergeNode(leaf.Offset); err != nil {
					return err
				}
			}
		}
	}

	e.hdr.Stats.Keys--
	if err := e.s.saveHeader(); err != nil {
		return err
	}

	if n.isLeaf() && len(n.Key) < e.minOccup() {
		ok, err := e.threadBalance(n.Offset)
		if err != nil {
			return err
		}
		if !ok {
			return e.mergeNode(n.Offset)
		}
	}
	return nil
}

// popMax descends through lower_node[position] - the left subtree of the
// key being deleted at an interior node - following right-most children
// to the right-most leaf, and pops its last (key, data) pair: the
// in-order predecessor. Returns the popped key/data and the offset of
// the leaf it was removed from, so the caller can rebalance it.
func (e *engine) popMax(offset int64) ([]byte, []byte, int64, error) {
	n, err := e.s.loadNode(offset)
	if err != nil {
		return nil, nil, 0, err
	}
	if !n.isLeaf() {
		return e.popMax(n.LowerNode[len(n.LowerNode)-1])
	}

	last := len(n.Key) - 1
	key, data := n.Key[last], n.Data[last]
	n.removeAt(last)
	if err := e.s.saveNode(n); err != nil {
		return nil, nil, 0, err
	}
	return key, data, n.Offset, nil
}

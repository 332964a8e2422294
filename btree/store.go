package btree

// store binds the File Manager and Node Cache together: every node load
// goes through the cache first, falling through to a positional disk read
// on a miss; every save is write-through (disk first, then cache, mirrors
// b3dictionary.py's __load_node__/__save_node__).
type store struct {
	fm    *fileManager
	cache *nodeCache
	hdr   *header
}

func newStore(fm *fileManager, cacheCapacity int, hdr *header) *store {
	return &store{fm: fm, cache: newNodeCache(cacheCapacity), hdr: hdr}
}

// loadNode returns the node at offset, consulting the cache first.
func (s *store) loadNode(offset int64) (*node, error) {
	if cached := s.cache.get(offset); cached != nil {
		s.hdr.Stats.CacheHit++
		return cached, nil
	}

	s.hdr.Stats.CacheMiss++
	raw, err := s.fm.readSlot(offset)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	s.cache.put(n)
	return n, nil
}

// saveNode writes n to disk and updates any live cache entry in the same
// call (write-through, spec.md §4.3/§9).
func (s *store) saveNode(n *node) error {
	raw, err := encodeNode(n, int(s.fm.nodeSize))
	if err != nil {
		return err
	}
	if err := s.fm.writeSlot(n.Offset, raw); err != nil {
		return err
	}
	s.cache.update(n)
	return nil
}

// saveHeader persists the header record (write-through on every
// statistics mutation, per spec.md §5).
func (s *store) saveHeader() error {
	raw, err := encodeHeader(s.hdr, int(s.fm.headerSize))
	if err != nil {
		return err
	}
	return s.fm.writeHeader(raw)
}

func (s *store) root() (*node, error) {
	return s.loadNode(s.hdr.RootOffset)
}

// invalidate drops offset from the cache; used when a slot is freed or
// relocated so a stale copy is never served again.
func (s *store) invalidate(offset int64) {
	s.cache.remove(offset)
}

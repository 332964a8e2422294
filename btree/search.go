package btree

import "bytes"

// binSearch returns the lowest index i with keys[i] >= key, or len(keys)
// if no such index exists (spec.md §4.5).
func binSearch(key []byte, keys [][]byte) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// searchResult is the outcome of a recursive descent: the node where the
// descent stopped, the position bin_search landed on within that node,
// and whether the key was found there.
type searchResult struct {
	node     *node
	position int
	found    bool
}

// recSearch loads the node at offset, binary-searches for key, and
// either reports the hit/miss (at a leaf, or on an exact match anywhere)
// or recurses into the matching child (spec.md §4.5).
func (s *store) recSearch(offset int64, key []byte) (searchResult, error) {
	n, err := s.loadNode(offset)
	if err != nil {
		return searchResult{}, err
	}

	pos := binSearch(key, n.Key)
	found := pos < len(n.Key) && bytes.Equal(n.Key[pos], key)

	if found || n.isLeaf() {
		return searchResult{node: n, position: pos, found: found}, nil
	}

	return s.recSearch(n.LowerNode[pos], key)
}

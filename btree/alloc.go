package btree

import "sort"

// allocator wraps a store with the free-list/file-growth and compaction
// policy (spec.md §4.4): alloc reuses the smallest free slot before
// growing the file; free clears and recycles a slot; compact relocates
// the tail slot into the lowest free hole and shrinks the file once the
// free list grows past maxFreeNodes.
type allocator struct {
	s            *store
	maxFreeNodes int
}

func newAllocator(s *store, maxFreeNodes int) *allocator {
	return &allocator{s: s, maxFreeNodes: maxFreeNodes}
}

// alloc returns a cleared node ready for use: either the smallest free
// slot, reloaded and cleared, or a brand new slot appended at file end.
func (a *allocator) alloc() (*node, error) {
	hdr := a.s.hdr

	if len(hdr.FreeOffset) > 0 {
		offset := hdr.FreeOffset[0]
		hdr.FreeOffset = hdr.FreeOffset[1:]

		n, err := a.s.loadNode(offset)
		if err != nil {
			return nil, err
		}
		n.clear(offset)

		hdr.Stats.Nodes++
		if err := a.s.saveHeader(); err != nil {
			return nil, err
		}
		return n, nil
	}

	offset, err := a.s.fm.size()
	if err != nil {
		return nil, err
	}
	n := newNode(offset)
	raw, err := encodeNode(n, int(a.s.fm.nodeSize))
	if err != nil {
		return nil, err
	}
	if err := a.s.fm.writeSlot(offset, raw); err != nil {
		return nil, err
	}
	hdr.LastOffset = offset
	a.s.cache.put(n)

	hdr.Stats.Nodes++
	if err := a.s.saveHeader(); err != nil {
		return nil, err
	}
	return n, nil
}

// free clears n's vectors and links, writes the cleared slot back to
// disk, registers its offset on the (ascending) free list, and triggers
// compaction once the free list grows past the threshold.
func (a *allocator) free(n *node) error {
	offset := n.Offset
	n.clear(offset)
	if err := a.s.saveNode(n); err != nil {
		return err
	}

	hdr := a.s.hdr
	hdr.FreeOffset = append(hdr.FreeOffset, offset)
	sort.Slice(hdr.FreeOffset, func(i, j int) bool { return hdr.FreeOffset[i] < hdr.FreeOffset[j] })
	if err := a.s.saveHeader(); err != nil {
		return err
	}

	if len(hdr.FreeOffset) > a.maxFreeNodes {
		return a.compact()
	}
	return nil
}

// compact relocates the node at last_offset into the lowest free hole (or
// simply drops it from the free list if it is itself free), then
// truncates the file by one slot.
func (a *allocator) compact() error {
	hdr := a.s.hdr

	lastNode, err := a.s.loadNode(hdr.LastOffset)
	if err != nil {
		return err
	}

	if len(lastNode.Key) == 0 && len(lastNode.LowerNode) == 0 {
		// The tail slot is itself free: just drop it from the list.
		hdr.FreeOffset = removeOffset(hdr.FreeOffset, hdr.LastOffset)
	} else {
		newOffset := hdr.FreeOffset[0]
		hdr.FreeOffset = hdr.FreeOffset[1:]

		if err := moveNode(a.s, hdr.LastOffset, newOffset); err != nil {
			return err
		}
		if hdr.LastOffset == hdr.RootOffset {
			hdr.RootOffset = newOffset
		}
	}

	a.s.invalidate(hdr.LastOffset)
	if err := a.s.fm.truncateTo(hdr.LastOffset); err != nil {
		return err
	}
	hdr.LastOffset -= a.s.fm.nodeSize
	return a.s.saveHeader()
}

func removeOffset(offsets []int64, target int64) []int64 {
	out := offsets[:0]
	for _, o := range offsets {
		if o != target {
			out = append(out, o)
		}
	}
	return out
}

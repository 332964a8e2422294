package btree

// threadBalance rotates a single key/data pair between offset and
// whichever sibling can best spare (or best absorb) one, through their
// shared parent. It is the cheap rebalancing move tried before split or
// merge (b3dictionary.py __thread_ballance__): a node below minOccup
// tries to pull a key from a sibling with a surplus; a node above
// minOccup that is about to split tries to push a key into a sibling
// with room. Ties between two qualifying siblings go to the left one.
// An absent sibling is never a candidate (the nil checks below exclude
// it), as in mergeNode.
//
// Returns false, nil if no sibling qualifies - the caller then falls
// back to splitNode or mergeNode.
func (e *engine) threadBalance(offset int64) (bool, error) {
	n, err := e.s.loadNode(offset)
	if err != nil {
		return false, err
	}
	if n.UpperNode == 0 {
		return false, nil
	}
	upper, err := e.s.loadNode(n.UpperNode)
	if err != nil {
		return false, err
	}

	var left, right *node
	var leftOccup, rightOccup int
	if n.LeftNode > 0 {
		if left, err = e.s.loadNode(n.LeftNode); err != nil {
			return false, err
		}
		leftOccup = left.occ()
	}
	if n.RightNode > 0 {
		if right, err = e.s.loadNode(n.RightNode); err != nil {
			return false, err
		}
		rightOccup = right.occ()
	}

	occup := n.occ()
	minOcc := e.minOccup()

	var giver, taker *node
	direction := ""

	switch {
	case occup < minOcc:
		taker = n
		if left != nil && leftOccup > minOcc && (right == nil || leftOccup >= rightOccup) {
			giver, direction = left, "right"
		} else if right != nil && rightOccup > minOcc && (left == nil || rightOccup >= leftOccup) {
			giver, direction = right, "left"
		}
	case occup > minOcc:
		giver = n
		if left != nil && leftOccup < occup-1 && (right == nil || leftOccup <= rightOccup) {
			taker, direction = left, "left"
		} else if right != nil && rightOccup < occup-1 && (left == nil || rightOccup < leftOccup) {
			taker, direction = right, "right"
		}
	}

	if direction == "" {
		return false, nil
	}

	switch direction {
	case "right":
		// giver is the left sibling: its last key moves up through upper,
		// and upper's separator moves down onto the front of taker.
		pos := binSearch(giver.Key[len(giver.Key)-1], upper.Key)
		taker.insertAt(0, upper.Key[pos], upper.Data[pos])
		lastIdx := len(giver.Key) - 1
		upper.Key[pos], upper.Data[pos] = giver.Key[lastIdx], giver.Data[lastIdx]
		giver.Key = giver.Key[:lastIdx]
		giver.Data = giver.Data[:lastIdx]

		if !giver.isLeaf() {
			childIdx := len(giver.LowerNode) - 1
			child := giver.LowerNode[childIdx]
			giver.LowerNode = giver.LowerNode[:childIdx]
			taker.insertChildAt(0, child)
			if err := e.spliceChild(child, taker, 0); err != nil {
				return false, err
			}
			// giver's new last child no longer has a same-parent right sibling.
			tail, err := e.s.loadNode(giver.LowerNode[len(giver.LowerNode)-1])
			if err != nil {
				return false, err
			}
			tail.RightNode = 0
			if err := e.s.saveNode(tail); err != nil {
				return false, err
			}
		}

	case "left":
		// giver is the right sibling: its first key moves up through
		// upper, and upper's separator moves down onto the tail of taker.
		pos := binSearch(giver.Key[0], upper.Key) - 1
		taker.Key = append(taker.Key, upper.Key[pos])
		taker.Data = append(taker.Data, upper.Data[pos])
		upper.Key[pos], upper.Data[pos] = giver.Key[0], giver.Data[0]
		giver.Key = giver.Key[1:]
		giver.Data = giver.Data[1:]

		if !giver.isLeaf() {
			child := giver.LowerNode[0]
			giver.LowerNode = giver.LowerNode[1:]
			taker.LowerNode = append(taker.LowerNode, child)
			if err := e.spliceChild(child, taker, len(taker.LowerNode)-1); err != nil {
				return false, err
			}
			head, err := e.s.loadNode(giver.LowerNode[0])
			if err != nil {
				return false, err
			}
			head.LeftNode = 0
			if err := e.s.saveNode(head); err != nil {
				return false, err
			}
		}
	}

	if err := e.s.saveNode(giver); err != nil {
		return false, err
	}
	if err := e.s.saveNode(taker); err != nil {
		return false, err
	}
	if err := e.s.saveNode(upper); err != nil {
		return false, err
	}
	if direction == "left" {
		e.hdr.Stats.ThreadsLeft++
	} else {
		e.hdr.Stats.ThreadsRight++
	}
	if err := e.s.saveHeader(); err != nil {
		return false, err
	}

	// A taker that is now one short of full is a future split risk;
	// spread it further by threading again (mirrors the Python source's
	// immediate re-check after a thread).
	if len(taker.Key) == e.numKeys()-1 {
		if _, err := e.threadBalance(taker.Offset); err != nil {
			return false, err
		}
	}
	return true, nil
}

// spliceChild repoints child's upper_node to taker and splices it into
// taker's sibling chain at position pos within taker.LowerNode (already
// updated by the caller), linking it to its new left/right neighbors
// (or to nothing, at either end).
func (e *engine) spliceChild(child int64, taker *node, pos int) error {
	c, err := e.s.loadNode(child)
	if err != nil {
		return err
	}
	c.UpperNode = taker.Offset

	var leftNbr, rightNbr int64
	if pos > 0 {
		leftNbr = taker.LowerNode[pos-1]
	}
	if pos < len(taker.LowerNode)-1 {
		rightNbr = taker.LowerNode[pos+1]
	}
	c.LeftNode = leftNbr
	c.RightNode = rightNbr
	if err := e.s.saveNode(c); err != nil {
		return err
	}

	if leftNbr > 0 {
		ln, err := e.s.loadNode(leftNbr)
		if err != nil {
			return err
		}
		ln.RightNode = child
		if err := e.s.saveNode(ln); err != nil {
			return err
		}
	}
	if rightNbr > 0 {
		rn, err := e.s.loadNode(rightNbr)
		if err != nil {
			return err
		}
		rn.LeftNode = child
		if err := e.s.saveNode(rn); err != nil {
			return err
		}
	}
	return nil
}

// splitNode splits an overflowing node (occupancy == numKeys) into two,
// promoting its middle key/data pair into the parent. If offset is the
// root, a fresh root is created first. If the parent overflows as a
// result, it is threaded or (recursively) split in turn
// (b3dictionary.py __split_node__).
func (e *engine) splitNode(offset int64) error {
	left, err := e.s.loadNode(offset)
	if err != nil {
		return err
	}

	var upper *node
	if offset == e.hdr.RootOffset {
		if upper, err = e.alloc.alloc(); err != nil {
			return err
		}
		upper.insertChildAt(0, left.Offset)
		e.hdr.RootOffset = upper.Offset
		e.hdr.Stats.Levels++
		if err := e.s.saveHeader(); err != nil {
			return err
		}
	} else {
		if upper, err = e.s.loadNode(left.UpperNode); err != nil {
			return err
		}
	}

	right, err := e.alloc.alloc()
	if err != nil {
		return err
	}

	pivot := e.numKeys() / 2
	pivotKey, pivotData := left.Key[pivot], left.Data[pivot]

	pos := binSearch(pivotKey, upper.Key)
	upper.insertAt(pos, pivotKey, pivotData)
	upper.insertChildAt(pos+1, right.Offset)

	right.Key = append([][]byte(nil), left.Key[pivot+1:]...)
	right.Data = append([][]byte(nil), left.Data[pivot+1:]...)
	left.Key = left.Key[:pivot]
	left.Data = left.Data[:pivot]

	right.UpperNode = upper.Offset
	right.LeftNode = left.Offset
	right.RightNode = left.RightNode
	left.UpperNode = upper.Offset
	left.RightNode = right.Offset

	if right.RightNode > 0 {
		rn, err := e.s.loadNode(right.RightNode)
		if err != nil {
			return err
		}
		rn.LeftNode = right.Offset
		if err := e.s.saveNode(rn); err != nil {
			return err
		}
	}

	if len(left.LowerNode) > 0 {
		right.LowerNode = append([]int64(nil), left.LowerNode[pivot+1:]...)
		left.LowerNode = left.LowerNode[:pivot+1]

		for _, childOff := range right.LowerNode {
			child, err := e.s.loadNode(childOff)
			if err != nil {
				return err
			}
			child.UpperNode = right.Offset
			if err := e.s.saveNode(child); err != nil {
				return err
			}
		}

		firstRightChild, err := e.s.loadNode(right.LowerNode[0])
		if err != nil {
			return err
		}
		firstRightChild.LeftNode = 0
		if err := e.s.saveNode(firstRightChild); err != nil {
			return err
		}

		lastLeftChild, err := e.s.loadNode(left.LowerNode[len(left.LowerNode)-1])
		if err != nil {
			return err
		}
		lastLeftChild.RightNode = 0
		if err := e.s.saveNode(lastLeftChild); err != nil {
			return err
		}
	}

	if err := e.s.saveNode(left); err != nil {
		return err
	}
	if err := e.s.saveNode(right); err != nil {
		return err
	}
	if err := e.s.saveNode(upper); err != nil {
		return err
	}

	e.hdr.Stats.Splits++
	e.hdr.Stats.Nodes++
	if err := e.s.saveHeader(); err != nil {
		return err
	}

	if len(upper.Key) == e.numKeys() {
		ok, err := e.threadBalance(upper.Offset)
		if err != nil {
			return err
		}
		if !ok {
			return e.splitNode(upper.Offset)
		}
	}
	return nil
}

// mergeNode absorbs an underfull node (offset) into whichever sibling
// has the higher occupancy, pulling the separating key down from the
// parent. If offset is the root and it has emptied out to a single child,
// that child is promoted to root and the level is collapsed. If the
// parent underflows as a result, it is threaded or (recursively)
// merged in turn (b3dictionary.py __merge_node__).
func (e *engine) mergeNode(offset int64) error {
	n, err := e.s.loadNode(offset)
	if err != nil {
		return err
	}

	if offset == e.hdr.RootOffset {
		if len(n.Key) == 0 && len(n.LowerNode) > 0 {
			newRoot := n.LowerNode[0]
			e.hdr.RootOffset = newRoot
			e.hdr.Stats.Levels--
			e.hdr.Stats.Nodes--
			if err := e.s.saveHeader(); err != nil {
				return err
			}
			// Detach the promoted child before freeing the old root, so a
			// compaction triggered by the free relocates it as the root.
			sub, err := e.s.loadNode(newRoot)
			if err != nil {
				return err
			}
			sub.UpperNode = 0
			if err := e.s.saveNode(sub); err != nil {
				return err
			}
			return e.alloc.free(n)
		}
		return nil
	}

	upper, err := e.s.loadNode(n.UpperNode)
	if err != nil {
		return err
	}

	var actualLeft, actualRight *node
	leftOccup, rightOccup := -1, -1
	if n.LeftNode > 0 {
		if actualLeft, err = e.s.loadNode(n.LeftNode); err != nil {
			return err
		}
		leftOccup = actualLeft.occ()
	}
	if n.RightNode > 0 {
		if actualRight, err = e.s.loadNode(n.RightNode); err != nil {
			return err
		}
		rightOccup = actualRight.occ()
	}

	// Prefer merging with the fuller neighbor; the chosen neighbor's
	// physical position (left or right of n) fixes which of the two
	// becomes the absorbing ("left") party and which is freed ("right").
	var left, right *node
	if actualRight != nil && (actualLeft == nil || rightOccup >= leftOccup) {
		left, right = n, actualRight
	} else {
		left, right = actualLeft, n
	}

	for _, childOff := range right.LowerNode {
		child, err := e.s.loadNode(childOff)
		if err != nil {
			return err
		}
		child.UpperNode = left.Offset
		if err := e.s.saveNode(child); err != nil {
			return err
		}
	}

	left.RightNode = right.RightNode
	if left.RightNode > 0 {
		nr, err := e.s.loadNode(left.RightNode)
		if err != nil {
			return err
		}
		nr.LeftNode = left.Offset
		if err := e.s.saveNode(nr); err != nil {
			return err
		}
	}

	if len(left.LowerNode) > 0 {
		joinLeft, err := e.s.loadNode(left.LowerNode[len(left.LowerNode)-1])
		if err != nil {
			return err
		}
		joinRight, err := e.s.loadNode(right.LowerNode[0])
		if err != nil {
			return err
		}
		joinLeft.RightNode = joinRight.Offset
		joinRight.LeftNode = joinLeft.Offset
		if err := e.s.saveNode(joinLeft); err != nil {
			return err
		}
		if err := e.s.saveNode(joinRight); err != nil {
			return err
		}
	}

	// The separator sits at left's position among upper's children; it is
	// located by offset because either party may have no keys left.
	pos := 0
	for i, child := range upper.LowerNode {
		if child == left.Offset {
			pos = i
			break
		}
	}
	sepKey, sepData := upper.Key[pos], upper.Data[pos]
	upper.removeAt(pos)
	upper.removeChildAt(pos + 1)

	left.Key = append(left.Key, sepKey)
	left.Data = append(left.Data, sepData)
	left.Key = append(left.Key, right.Key...)
	left.Data = append(left.Data, right.Data...)
	left.LowerNode = append(left.LowerNode, right.LowerNode...)

	if err := e.s.saveNode(left); err != nil {
		return err
	}
	if err := e.s.saveNode(upper); err != nil {
		return err
	}
	upperOff := upper.Offset
	if err := e.alloc.free(right); err != nil {
		return err
	}
	if upperOff > e.hdr.LastOffset {
		// The free compacted the file and relocated upper (the former tail
		// slot); left's upper_node was repointed to its new offset.
		l, err := e.s.loadNode(left.Offset)
		if err != nil {
			return err
		}
		upperOff = l.UpperNode
	}

	e.hdr.Stats.Merges++
	e.hdr.Stats.Nodes--
	if err := e.s.saveHeader(); err != nil {
		return err
	}

	if len(upper.Key) < e.minOccup() {
		ok, err := e.threadBalance(upperOff)
		if err != nil {
			return err
		}
		if !ok {
			return e.mergeNode(upperOff)
		}
	}
	return nil
}

// moveNode relocates the slot at oldOffset to newOffset: it rewrites
// the node's own offset field, fixes up every link that points at it
// (parent's lower_node entry, left/right siblings' cross-links, and -
// if it is an internal node - each child's upper_node), then writes the
// record at its new position and drops the old offset from the cache;
// the old slot itself is left as it is on disk. Used by
// allocator.compact to fill the lowest free hole with the tail slot
// (b3dictionary.py __move_node__).
func moveNode(s *store, oldOffset, newOffset int64) error {
	n, err := s.loadNode(oldOffset)
	if err != nil {
		return err
	}
	n.Offset = newOffset

	if n.UpperNode > 0 {
		upper, err := s.loadNode(n.UpperNode)
		if err != nil {
			return err
		}
		for i, child := range upper.LowerNode {
			if child == oldOffset {
				upper.LowerNode[i] = newOffset
				break
			}
		}
		if err := s.saveNode(upper); err != nil {
			return err
		}
	} else if s.hdr.RootOffset == oldOffset {
		s.hdr.RootOffset = newOffset
	}

	if n.LeftNode > 0 {
		left, err := s.loadNode(n.LeftNode)
		if err != nil {
			return err
		}
		left.RightNode = newOffset
		if err := s.saveNode(left); err != nil {
			return err
		}
	}
	if n.RightNode > 0 {
		right, err := s.loadNode(n.RightNode)
		if err != nil {
			return err
		}
		right.LeftNode = newOffset
		if err := s.saveNode(right); err != nil {
			return err
		}
	}
	for _, childOff := range n.LowerNode {
		child, err := s.loadNode(childOff)
		if err != nil {
			return err
		}
		child.UpperNode = newOffset
		if err := s.saveNode(child); err != nil {
			return err
		}
	}

	if err := s.saveNode(n); err != nil {
		return err
	}
	s.invalidate(oldOffset)
	return nil
}

package btree

import (
	"fmt"
	"os"
	"sync"
)

// Tree is the public handle onto a single B-tree file. All methods are
// safe to call from one goroutine at a time; a Tree serializes its own
// operations with an internal mutex purely to catch accidental concurrent
// use early - this is not a concurrency feature, and a file is never
// safe to share across process instances (spec.md §5).
type Tree struct {
	mu     sync.Mutex
	fm     *fileManager
	eng    *engine
	closed bool
}

// Create initializes a brand-new tree file at path with the given
// branching factor and key/value size bounds, writing an empty root leaf
// and the initial header. path must not already exist as a non-empty
// file.
func Create(path string, numKeys, keySize, dataSize int) (*Tree, error) {
	return CreateWithCache(path, numKeys, keySize, dataSize, DefaultCacheCapacity)
}

// CreateWithCache is Create with an explicit node-cache capacity, for
// callers that want to size the cache away from the spec's default of 32
// (spec.md §4.3).
func CreateWithCache(path string, numKeys, keySize, dataSize, cacheCapacity int) (*Tree, error) {
	if err := validateCreateParams(numKeys, keySize, dataSize); err != nil {
		return nil, err
	}
	if cacheCapacity < 1 {
		return nil, fmt.Errorf("%w: cache_capacity must be positive", ErrInvalidArgument)
	}

	fm, isNew, err := openFileManager(path, false)
	if err != nil {
		return nil, err
	}
	if !isNew {
		_ = fm.close()
		return nil, fmt.Errorf("%w: %q already contains data", ErrInvalidArgument, path)
	}

	fm.headerSize = int64(headerSlotWidth(DefaultMaxFreeNodes))
	fm.nodeSize = int64(nodeSlotWidth(numKeys, keySize, dataSize))

	hdr := &header{
		NumKeys:    numKeys,
		KeySize:    keySize,
		DataSize:   dataSize,
		RootOffset: fm.nodeBase(),
		LastOffset: fm.nodeBase(),
	}

	s := newStore(fm, cacheCapacity, hdr)
	root := newNode(fm.nodeBase())
	raw, err := encodeNode(root, int(fm.nodeSize))
	if err != nil {
		_ = fm.close()
		return nil, err
	}
	if err := fm.writeSlot(fm.nodeBase(), raw); err != nil {
		_ = fm.close()
		return nil, err
	}
	hdr.Stats.Nodes = 1
	hdr.Stats.Levels = 1
	if err := s.saveHeader(); err != nil {
		_ = fm.close()
		return nil, err
	}

	return &Tree{fm: fm, eng: &engine{s: s, alloc: newAllocator(s, DefaultMaxFreeNodes), hdr: hdr}}, nil
}

// CreateDefault creates a new tree file using the spec's default
// branching factor and key/value size bounds (512, 64, 256).
func CreateDefault(path string) (*Tree, error) {
	return Create(path, DefaultNumKeys, DefaultKeySize, DefaultDataSize)
}

// Open opens an existing tree file, decoding its header to recover the
// branching factor and key/value size bounds, then runs the consistency
// checker; a structurally broken file is rejected with ErrCorrupt rather
// than handed back to the caller (spec.md §7.1).
func Open(path string) (*Tree, error) {
	return OpenWithCache(path, DefaultCacheCapacity)
}

// OpenWithCache is Open with an explicit node-cache capacity.
func OpenWithCache(path string, cacheCapacity int) (*Tree, error) {
	if cacheCapacity < 1 {
		return nil, fmt.Errorf("%w: cache_capacity must be positive", ErrInvalidArgument)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %q does not exist", ErrInvalidArgument, path)
	}

	fm, _, err := openFileManager(path, false)
	if err != nil {
		return nil, err
	}

	fm.headerSize = int64(headerSlotWidth(DefaultMaxFreeNodes))
	raw, err := fm.readHeader()
	if err != nil {
		_ = fm.close()
		return nil, err
	}
	hdr, err := decodeHeader(raw)
	if err != nil {
		_ = fm.close()
		return nil, err
	}
	fm.nodeSize = int64(nodeSlotWidth(hdr.NumKeys, hdr.KeySize, hdr.DataSize))

	s := newStore(fm, cacheCapacity, hdr)
	eng := &engine{s: s, alloc: newAllocator(s, DefaultMaxFreeNodes), hdr: hdr}

	t := &Tree{fm: fm, eng: eng}

	ok, err := eng.checkConsistency()
	if err != nil {
		_ = fm.close()
		return nil, err
	}
	if !ok {
		_ = fm.close()
		return nil, fmt.Errorf("%w: %q failed consistency check", ErrCorrupt, path)
	}
	return t, nil
}

// Get returns the value stored for key, or ErrKeyNotFound.
func (t *Tree) Get(key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	return t.eng.get(key)
}

// Put inserts or updates key with value. Fails with ErrValueTooLarge when
// len(value) exceeds the tree's data_size. key_size bounds slot width only
// and is not itself validated against key.
func (t *Tree) Put(key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.eng.put(key, value)
}

// Delete removes key, or fails with ErrKeyNotFound.
func (t *Tree) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	return t.eng.del(key)
}

// Contains reports whether key is present, reusing the same recursive
// search as Get/Delete rather than a dedicated lookup path.
func (t *Tree) Contains(key []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, ErrClosed
	}
	return t.eng.contains(key)
}

// Len returns the tree's key count (stats.keys).
func (t *Tree) Len() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	return t.eng.hdr.Stats.Keys, nil
}

// Iterator returns a cursor over the tree's keys in ascending order.
func (t *Tree) Iterator() (*Iterator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	return newIterator(t.eng, false), nil
}

// ReverseIterator returns a cursor over the tree's keys in descending
// order.
func (t *Tree) ReverseIterator() (*Iterator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	return newIterator(t.eng, true), nil
}

// Stats returns a snapshot copy of the tree's running counters.
func (t *Tree) Stats() (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Stats{}, ErrClosed
	}
	return t.eng.hdr.Stats, nil
}

// CheckConsistency runs the recursive structural audit and reports
// whether every invariant in spec.md §3 currently holds.
func (t *Tree) CheckConsistency() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, ErrClosed
	}
	return t.eng.checkConsistency()
}

// Close flushes and releases the underlying file handle. Further calls
// on t return ErrClosed.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.fm.sync(); err != nil {
		_ = t.fm.close()
		return err
	}
	return t.fm.close()
}

package btree

import (
	"fmt"
	"io"
	"os"
)

// fileManager owns the file handle and performs positional, exact-length
// reads/writes of the header and node slots (spec.md §4.2). All offsets
// are absolute byte positions; slot width is fixed so any slot can be
// overwritten in place without shifting neighbors.
type fileManager struct {
	f          *os.File
	headerSize int64
	nodeSize   int64
}

func openFileManager(path string, readOnly bool) (*fileManager, bool, error) {
	flag := os.O_RDWR | os.O_CREATE
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0644) //nolint:gosec
	if err != nil {
		return nil, false, fmt.Errorf("btree: open %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, false, fmt.Errorf("btree: stat %q: %w", path, err)
	}
	return &fileManager{f: f}, info.Size() == 0, nil
}

func (fm *fileManager) close() error {
	return fm.f.Close()
}

// readHeader reads exactly headerSize bytes at offset 0.
func (fm *fileManager) readHeader() ([]byte, error) {
	buf := make([]byte, fm.headerSize)
	if _, err := fm.f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("btree: read header: %w", err)
	}
	return buf, nil
}

// writeHeader writes exactly headerSize bytes at offset 0, followed by
// the single '\n' separator that spec.md §6 places between the header
// record and the first node slot (so the node region always starts at
// headerSize+1, regardless of how many times the header is rewritten).
func (fm *fileManager) writeHeader(data []byte) error {
	if int64(len(data)) != fm.headerSize {
		return fmt.Errorf("btree: header write size mismatch: got %d want %d", len(data), fm.headerSize)
	}
	n, err := fm.f.WriteAt(data, 0)
	if err != nil {
		return fmt.Errorf("btree: write header: %w", err)
	}
	if int64(n) != fm.headerSize {
		return fmt.Errorf("btree: short header write: wrote %d of %d", n, fm.headerSize)
	}
	if _, err := fm.f.WriteAt([]byte("\n"), fm.headerSize); err != nil {
		return fmt.Errorf("btree: write header separator: %w", err)
	}
	return nil
}

// nodeBase is the absolute offset of the first node slot.
func (fm *fileManager) nodeBase() int64 {
	return fm.headerSize + 1
}

// readSlot reads exactly nodeSize bytes at the given slot offset.
func (fm *fileManager) readSlot(offset int64) ([]byte, error) {
	buf := make([]byte, fm.nodeSize)
	n, err := fm.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("btree: read slot at %d: %w", offset, err)
	}
	if int64(n) != fm.nodeSize {
		return nil, fmt.Errorf("%w: short read at offset %d: got %d of %d", ErrCorrupt, offset, n, fm.nodeSize)
	}
	return buf, nil
}

// writeSlot writes exactly nodeSize bytes at the given slot offset.
func (fm *fileManager) writeSlot(offset int64, data []byte) error {
	if int64(len(data)) != fm.nodeSize {
		return fmt.Errorf("btree: slot write size mismatch: got %d want %d", len(data), fm.nodeSize)
	}
	n, err := fm.f.WriteAt(data, offset)
	if err != nil {
		return fmt.Errorf("btree: write slot at %d: %w", offset, err)
	}
	if int64(n) != fm.nodeSize {
		return fmt.Errorf("btree: short slot write at %d: wrote %d of %d", offset, n, fm.nodeSize)
	}
	return nil
}

// size returns the current file length, used to find the next append
// offset before the record to write there is even constructed (its
// `offset` field must match where it lands).
func (fm *fileManager) size() (int64, error) {
	info, err := fm.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("btree: stat: %w", err)
	}
	return info.Size(), nil
}

// truncateTo truncates the file to the given byte length.
func (fm *fileManager) truncateTo(size int64) error {
	if err := fm.f.Truncate(size); err != nil {
		return fmt.Errorf("btree: truncate: %w", err)
	}
	return nil
}

func (fm *fileManager) sync() error {
	return fm.f.Sync()
}

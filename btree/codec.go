package btree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeJSONPadded marshals v to JSON and space-pads it to width, per
// spec.md §4.1/§6 (b3dictionary.py: json.dumps(x).ljust(width, ' ')).
func encodeJSONPadded(v interface{}, width int) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("btree: encode: %w", err)
	}
	if len(b) > width {
		return nil, fmt.Errorf("btree: encoded record of %d bytes exceeds slot width %d", len(b), width)
	}
	out := make([]byte, width)
	copy(out, b)
	for i := len(b); i < width; i++ {
		out[i] = ' '
	}
	return out, nil
}

// trimPadding strips the trailing space padding (and an optional trailing
// newline, for the header record) added by encodeJSONPadded.
func trimPadding(data []byte) []byte {
	return bytes.TrimRight(data, " \n")
}

// decodeNode decodes a single node slot. Returns ErrCorrupt on malformed
// JSON, per spec.md §4.1.
func decodeNode(data []byte) (*node, error) {
	var n node
	if err := json.Unmarshal(trimPadding(data), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &n, nil
}

func encodeNode(n *node, width int) ([]byte, error) {
	return encodeJSONPadded(n, width)
}

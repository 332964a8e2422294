package btree

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Branching-factor and size bounds, lifted from the original implementation's
// manual limits (b3dictionary.py __init__).
const (
	MinNumKeys  = 3
	MaxNumKeys  = 1024
	MinKeySize  = 1
	MaxKeySize  = 1024
	MinDataSize = 1
	MaxDataSize = 4096

	// Creation defaults per spec.md §6.
	DefaultNumKeys  = 512
	DefaultKeySize  = 64
	DefaultDataSize = 256

	// DefaultCacheCapacity is the node cache's fixed capacity.
	DefaultCacheCapacity = 32

	// DefaultMaxFreeNodes is the free-list length that triggers compaction.
	DefaultMaxFreeNodes = 10

	// maxOffsetDigits covers byte offsets up to 10^14-1 (about 90TiB).
	maxOffsetDigits = 14

	// emptyHeaderScaffold and emptyNodeScaffold are the fixed JSON
	// scaffolding (braces, field names, colons, commas) around an
	// otherwise-empty header/node record. Reference figures from the
	// original (249 / 100); recomputed slot widths build in headroom on
	// top of them so the codec verifies rather than assumes.
	emptyHeaderScaffold = 249
	emptyNodeScaffold    = 100
)

var (
	maxNumKeysDigits  = len(strconv.Itoa(MaxNumKeys))
	maxKeySizeDigits  = len(strconv.Itoa(MaxKeySize))
	maxDataSizeDigits = len(strconv.Itoa(MaxDataSize))
)

// Stats holds the tree's running counters (spec.md §3).
type Stats struct {
	Nodes        int64 `json:"nodes"`
	Keys         int64 `json:"keys"`
	Splits       int64 `json:"splits"`
	Merges       int64 `json:"merges"`
	ThreadsLeft  int64 `json:"threads_left"`
	ThreadsRight int64 `json:"threads_right"`
	Levels       int64 `json:"levels"`
	CacheHit     int64 `json:"cache_hit"`
	CacheMiss    int64 `json:"cache_miss"`
}

// header is the single record stored at file offset 0.
type header struct {
	NumKeys    int     `json:"num_keys"`
	KeySize    int     `json:"key_size"`
	DataSize   int     `json:"data_size"`
	RootOffset int64   `json:"root_offset"`
	FreeOffset []int64 `json:"free_offset"`
	LastOffset int64   `json:"last_offset"`
	Stats      Stats   `json:"stats"`
}

// headerSlotWidth returns S_header: a fixed width large enough for any
// valid num_keys/key_size/data_size combination and up to maxFreeNodes
// free offsets, per spec.md §6.
func headerSlotWidth(maxFreeNodes int) int {
	w := emptyHeaderScaffold
	w += maxNumKeysDigits
	w += maxKeySizeDigits
	w += maxDataSizeDigits
	w += maxOffsetDigits
	w += maxFreeNodes * (2 + maxOffsetDigits)
	w += 7 * 20 // stats block: a 140-digit budget shared by the 9 counters
	return w
}

// nodeSlotWidth returns S_node for a tree with the given branching factor
// and advertised key/data sizes, per spec.md §6. Keys and values are
// stored as base64 text inside the JSON record (see node.go), so the
// encoded length - not the raw byte count - is what occupies the slot.
func nodeSlotWidth(numKeys, keySize, dataSize int) int {
	encKey := base64.StdEncoding.EncodedLen(keySize)
	encData := base64.StdEncoding.EncodedLen(dataSize)

	w := emptyNodeScaffold
	w += 3 * maxOffsetDigits
	w += numKeys * (encKey + 2)
	w += numKeys * (encData + 2)
	w += (numKeys + 1) * (maxOffsetDigits + 2)
	return w
}

// minOccup returns floor(num_keys/3), the minimum key count of any
// non-root node.
func minOccup(numKeys int) int {
	return numKeys / 3
}

func validateCreateParams(numKeys, keySize, dataSize int) error {
	if numKeys < MinNumKeys || numKeys > MaxNumKeys {
		return fmt.Errorf("%w: num_keys must be between %d and %d", ErrInvalidArgument, MinNumKeys, MaxNumKeys)
	}
	if keySize < MinKeySize || keySize > MaxKeySize {
		return fmt.Errorf("%w: key_size must be between %d and %d", ErrInvalidArgument, MinKeySize, MaxKeySize)
	}
	if dataSize < MinDataSize || dataSize > MaxDataSize {
		return fmt.Errorf("%w: data_size must be between %d and %d", ErrInvalidArgument, MinDataSize, MaxDataSize)
	}
	return nil
}

func encodeHeader(h *header, width int) ([]byte, error) {
	return encodeJSONPadded(h, width)
}

func decodeHeader(data []byte) (*header, error) {
	var h header
	if err := json.Unmarshal(trimPadding(data), &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &h, nil
}

package digestcodec

import (
	"encoding/binary"
	"sort"
)

type writer interface {
	Write(p []byte) (n int, err error)
}

// WriteString emits s with a uvarint length prefix so that adjacent strings
// cannot run together.
func WriteString(w writer, tmp *[8]byte, s string) {
	var lb [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lb[:], uint64(len(s)))
	w.Write(lb[:n])
	w.Write([]byte(s))
}

// WriteSortedNonZeroIntMap emits a deterministic key-sorted map encoding,
// skipping zero values. The entry count comes first.
func WriteSortedNonZeroIntMap(w writer, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(keys)))
	w.Write(tmp[:])
	for _, k := range keys {
		WriteString(w, tmp, k)
		binary.LittleEndian.PutUint64(tmp[:], uint64(m[k]))
		w.Write(tmp[:])
	}
}

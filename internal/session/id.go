package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Session IDs are ULIDs: 26 Crockford base32 characters, a 48-bit
// millisecond timestamp followed by 80 bits of randomness. A per-millisecond
// sequence in the first random bytes keeps IDs minted in the same
// millisecond unique and sortable.

var (
	idMu    sync.Mutex
	lastMs  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a new session ID.
func NewID() string {
	idMu.Lock()
	ms := uint64(time.Now().UnixMilli())
	if ms == lastMs {
		lastSeq++
	} else {
		lastMs = ms
		lastSeq = 0
	}
	seq := lastSeq
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeID(b)
}

// encodeID writes the 128 bits of b as 26 base32 digits, most significant
// first. The leading digit carries only the top 3 bits.
func encodeID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// ValidID reports whether s has the shape of a session ID.
func ValidID(s string) bool {
	if len(s) != 26 || s[0] > '7' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isCrockford(s[i]) {
			return false
		}
	}
	return true
}

func isCrockford(c byte) bool {
	for i := 0; i < len(crockford); i++ {
		if crockford[i] == c {
			return true
		}
	}
	return false
}

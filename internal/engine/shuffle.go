package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// ShuffleAlgorithm names the pinned permutation algorithm. Independent
// participants recompute shuffles locally from the same seed and must
// converge bit-for-bit, so changing this algorithm is a breaking protocol
// change and must bump this identifier.
//
// fy-sha256-v1: Fisher-Yates from the highest index down. The index stream is
// sha256(seed || counter) where counter is a little-endian uint64 starting at
// zero and incremented once per swap; the swap target is the first 8 bytes of
// the digest read little-endian, reduced mod (i+1). No floating point, no map
// iteration, no platform-seeded hashing.
const ShuffleAlgorithm = "fy-sha256-v1"

// permute returns a new slice holding the pinned deterministic permutation of
// cards under seed. The input is not modified.
func permute(cards []Handle, seed []byte) []Handle {
	out := append([]Handle(nil), cards...)
	var counter uint64
	buf := make([]byte, len(seed)+8)
	copy(buf, seed)
	for i := len(out) - 1; i > 0; i-- {
		binary.LittleEndian.PutUint64(buf[len(seed):], counter)
		h := sha256.Sum256(buf)
		counter++
		j := int(binary.LittleEndian.Uint64(h[:8]) % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// seedDigest is the reference to a shuffle seed stored in the event log. The
// raw seed never needs to appear there: replay applies the recorded
// permutation directly.
func seedDigest(seed []byte) string {
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:])
}

// sameMultiset reports whether b is a permutation of a.
func sameMultiset(a, b []Handle) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Handle]int, len(a))
	for _, h := range a {
		counts[h]++
	}
	for _, h := range b {
		if counts[h] == 0 {
			return false
		}
		counts[h]--
	}
	return true
}

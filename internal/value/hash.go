package value

import (
	"crypto/sha256"
	"encoding/binary"
)

// domainTuple is the domain-separation prefix for all tuple-identity
// hashes: SHA256(domain + 0x00 + data), so tuple digests can never
// collide with digests computed for another purpose.
const domainTuple = "fluent/tuple/v1"

// Family is the injectable hash family every collection and the lineage
// subsystem use to compute a tuple's stable identity: a stable hash of
// its value contents, never a generational id.
type Family interface {
	// Hash returns a stable 64-bit digest of the tuple's canonical
	// column bytes.
	Hash(t Tuple) uint64
}

// DefaultFamily is the SHA-256-backed hash family used when no other
// Family is injected.
type DefaultFamily struct{}

// Hash implements Family.
func (DefaultFamily) Hash(t Tuple) uint64 {
	h := sha256.New()
	h.Write([]byte(domainTuple))
	h.Write([]byte{0x00})
	for _, v := range t {
		canon := v.Canonical()
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(canon)))
		h.Write(lenBuf[:])
		h.Write(canon)
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

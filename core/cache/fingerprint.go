package cache

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/minio/highwayhash"
)

// fingerprintKey is the fixed HighwayHash key; fingerprints only need to be
// stable within a process.
var fingerprintKey = []byte("feed-merger/content-fingerprint!")

// Fingerprint is a 256-bit content digest.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Digest accumulates records into a Fingerprint. Fields are length-prefixed,
// so ["ab","c"] and ["a","bc"] hash differently.
type Digest struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

// NewDigest returns an empty digest.
func NewDigest() *Digest {
	h, err := highwayhash.New(fingerprintKey)
	if err != nil {
		// Only possible with a key that is not 32 bytes long.
		panic(err)
	}
	return &Digest{h: h}
}

// Record adds one record of field values.
func (d *Digest) Record(fields ...string) {
	d.writeUvarint(uint64(len(fields)))
	for _, f := range fields {
		d.writeUvarint(uint64(len(f)))
		_, _ = d.h.Write([]byte(f))
	}
}

// Sum returns the fingerprint of everything recorded so far.
func (d *Digest) Sum() Fingerprint {
	var f Fingerprint
	copy(f[:], d.h.Sum(nil))
	return f
}

func (d *Digest) writeUvarint(v uint64) {
	n := binary.PutUvarint(d.buf[:], v)
	_, _ = d.h.Write(d.buf[:n])
}

// Of fingerprints a sequence of records.
func Of(records ...[]string) Fingerprint {
	d := NewDigest()
	for _, r := range records {
		d.Record(r...)
	}
	return d.Sum()
}

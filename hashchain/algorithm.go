package hashchain

import (
	"fmt"

	"github.com/cloudflare/circl/xof"
	sha256 "github.com/minio/sha256-simd"
	"github.com/multiformats/go-multihash"
	"github.com/tjfoc/gmsm/sm3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is a fixed member of the chain.
	"lukechampine.com/blake3"
)

// Algorithm identifies one member of the closed digest set.
type Algorithm uint8

const (
	BLAKE3 Algorithm = iota
	SHAKE256
	SHA3_256
	Keccak256
	SHA2_256
	RIPEMD160
	SHA2_512
	BLAKE2b
	SHA3_512
	SM3
	BLAKE2s

	numAlgorithms
)

// K is the number of algorithms the chain rotates through.
const K = int(numAlgorithms)

var algorithmNames = [numAlgorithms]string{
	BLAKE3:    "BLAKE3",
	SHAKE256:  "SHAKE256",
	SHA3_256:  "SHA3-256",
	Keccak256: "KECCAK-256",
	SHA2_256:  "SHA2-256",
	RIPEMD160: "RIPEMD-160",
	SHA2_512:  "SHA2-512",
	BLAKE2b:   "BLAKE2b",
	SHA3_512:  "SHA3-512",
	SM3:       "SM3",
	BLAKE2s:   "BLAKE2s",
}

var algorithmSizes = [numAlgorithms]int{
	BLAKE3:    32,
	SHAKE256:  32,
	SHA3_256:  32,
	Keccak256: 32,
	SHA2_256:  32,
	RIPEMD160: 20,
	SHA2_512:  64,
	BLAKE2b:   32,
	SHA3_512:  64,
	SM3:       32,
	BLAKE2s:   32,
}

// Algorithms returns the ordered algorithm set. Round r uses Algorithms()[r%K].
func Algorithms() []Algorithm {
	out := make([]Algorithm, K)
	for i := range out {
		out[i] = Algorithm(i)
	}
	return out
}

// ForRound returns the algorithm used by round r (0-indexed).
func ForRound(r int) Algorithm {
	return Algorithm(r % K)
}

// Valid reports whether a is one of the K chain algorithms.
func (a Algorithm) Valid() bool { return a < numAlgorithms }

// String returns the algorithm tag as it appears in chain traces.
func (a Algorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
	return algorithmNames[a]
}

// Size returns the digest length in bytes.
func (a Algorithm) Size() int {
	if !a.Valid() {
		return 0
	}
	return algorithmSizes[a]
}

// ParseAlgorithm maps a trace tag back to its Algorithm.
func ParseAlgorithm(tag string) (Algorithm, error) {
	for i, name := range algorithmNames {
		if name == tag {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("hashchain: unknown algorithm %q", tag)
}

// Sum returns the raw digest of data. It panics on an Algorithm outside the
// closed set.
func (a Algorithm) Sum(data []byte) []byte {
	switch a {
	case BLAKE3:
		s := blake3.Sum256(data)
		return s[:]
	case SHAKE256:
		out := make([]byte, algorithmSizes[SHAKE256])
		x := xof.SHAKE256.New()
		_, _ = x.Write(data)
		_, _ = x.Read(out)
		return out
	case SHA3_256:
		return multihashSum(data, multihash.SHA3_256)
	case Keccak256:
		return multihashSum(data, multihash.KECCAK_256)
	case SHA2_256:
		s := sha256.Sum256(data)
		return s[:]
	case RIPEMD160:
		h := ripemd160.New()
		_, _ = h.Write(data)
		return h.Sum(nil)
	case SHA2_512:
		return multihashSum(data, multihash.SHA2_512)
	case BLAKE2b:
		s := blake2b.Sum512(data)
		return s[:algorithmSizes[BLAKE2b]]
	case SHA3_512:
		return multihashSum(data, multihash.SHA3_512)
	case SM3:
		h := sm3.New()
		_, _ = h.Write(data)
		return h.Sum(nil)
	case BLAKE2s:
		s := blake2s.Sum256(data)
		return s[:]
	default:
		panic(fmt.Sprintf("hashchain: unknown algorithm %d", uint8(a)))
	}
}

// multihashSum digests data with a fixed-size multihash function and strips
// the multihash prefix.
func multihashSum(data []byte, code uint64) []byte {
	mh, err := multihash.Sum(data, code, -1)
	if err != nil {
		// multihash.Sum only errors for unregistered codes or invalid lengths;
		// every code used here is registered by go-multihash itself.
		panic(fmt.Sprintf("hashchain: multihash %d: %v", code, err))
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		panic(fmt.Sprintf("hashchain: decode multihash %d: %v", code, err))
	}
	return dec.Digest
}

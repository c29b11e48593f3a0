// Package hashchain implements the X11 digest chain used by the validation
// service.
//
// A chain of N rounds applies N digest functions in sequence. Round 0 digests
// the caller's input; every later round digests the raw bytes produced by the
// round before it. The algorithm for round r is Algorithms()[r % 11].
//
// The algorithm set and its order are part of the wire contract: two
// implementations agree on a chain only if they agree on the table below.
//
//	0  BLAKE3      32 bytes
//	1  SHAKE256    32 bytes of output
//	2  SHA3-256    32 bytes
//	3  KECCAK-256  32 bytes (legacy Keccak padding)
//	4  SHA2-256    32 bytes
//	5  RIPEMD-160  20 bytes
//	6  SHA2-512    64 bytes
//	7  BLAKE2b     first 32 bytes of BLAKE2b-512
//	8  SHA3-512    64 bytes
//	9  SM3         32 bytes
//	10 BLAKE2s     32 bytes (BLAKE2s-256)
//
// The condensed FinalHash keeps only the first 32 hex characters (128 bits)
// of the last digest, prefixed with "X11-". That truncation lowers collision
// resistance relative to the full digest and is kept for compatibility with
// existing consumers.
package hashchain

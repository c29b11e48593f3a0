package hashchain

import (
	"encoding/hex"
	"strings"
)

// FinalHashPrefix tags the condensed final hash.
const FinalHashPrefix = "X11-"

// finalHashHexLen is the number of hex characters of the last digest kept in
// FinalHash.
const finalHashHexLen = 32

// Result is the output of one chain computation.
//
// Digests[i] is the lowercase hex digest of round i and Algorithms[i] the
// algorithm that produced it.
type Result struct {
	Digests    []string
	Algorithms []Algorithm
	FinalHash  string
}

// Rounds returns the number of rounds recorded in r.
func (r Result) Rounds() int { return len(r.Digests) }

// Trace returns the algorithm tags joined by sep.
func (r Result) Trace(sep string) string {
	names := make([]string, len(r.Algorithms))
	for i, a := range r.Algorithms {
		names[i] = a.String()
	}
	return strings.Join(names, sep)
}

// Chain computes a rounds-long digest chain over input.
//
// Round 0 digests input; round r>0 digests the raw digest bytes of round r-1.
// Chain is deterministic and safe for concurrent use.
func Chain(input []byte, rounds int) (Result, error) {
	if rounds <= 0 {
		return Result{}, ErrInvalidRounds
	}

	res := Result{
		Digests:    make([]string, 0, rounds),
		Algorithms: make([]Algorithm, 0, rounds),
	}
	current := input
	for r := 0; r < rounds; r++ {
		alg := ForRound(r)
		sum := alg.Sum(current)
		res.Digests = append(res.Digests, hex.EncodeToString(sum))
		res.Algorithms = append(res.Algorithms, alg)
		current = sum
	}

	last := res.Digests[len(res.Digests)-1]
	if len(last) > finalHashHexLen {
		last = last[:finalHashHexLen]
	}
	res.FinalHash = FinalHashPrefix + last
	return res, nil
}

// MustChain is like Chain but panics on error. It is meant for callers whose
// round count is a compile-time constant.
func MustChain(input []byte, rounds int) Result {
	res, err := Chain(input, rounds)
	if err != nil {
		panic(err)
	}
	return res
}

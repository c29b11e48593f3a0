package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"xdao.co/xyron/hashchain"
)

type vector struct {
	Name       string   `json:"name"`
	InputHex   string   `json:"input_hex"`
	Rounds     int      `json:"rounds"`
	Algorithms []string `json:"algorithms"`
	Digests    []string `json:"digests"`
	FinalHash  string   `json:"final_hash"`
}

type vectorFile struct {
	Version int      `json:"version"`
	Vectors []vector `json:"vectors"`
}

var inputs = []struct {
	name   string
	input  string
	rounds int
}{
	{"abc-11", "abc", 11},
	{"empty-1", "", 1},
	{"empty-12", "", 12},
	{"transform-15", "hello|node-0000000001|1690000000", 15},
	{"node-base-22", "node-0000000001", 22},
}

func main() {
	out := vectorFile{Version: 1}
	for _, in := range inputs {
		res := hashchain.MustChain([]byte(in.input), in.rounds)
		algs := make([]string, len(res.Algorithms))
		for i, a := range res.Algorithms {
			algs[i] = a.String()
		}
		out.Vectors = append(out.Vectors, vector{
			Name:       in.name,
			InputHex:   hex.EncodeToString([]byte(in.input)),
			Rounds:     in.rounds,
			Algorithms: algs,
			Digests:    res.Digests,
			FinalHash:  res.FinalHash,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

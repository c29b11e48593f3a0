// Package signature produces the opaque bookkeeping tags stamped on every
// validation response.
//
// A tag has the form
//
//	X11_<KIND>_<node id>_<unix seconds>_<32 hex chars>
//
// where KIND is "SMS" when the request carried a payload and "VAL" otherwise,
// and the trailing field is 128 bits read from crypto/rand. The random field
// alone makes two tags distinct with overwhelming probability, including tags
// produced concurrently for the same node in the same second.
//
// A tag carries no key material and cannot be verified by anyone.
package signature

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	Prefix     = "X11"
	KindPlain  = "VAL"
	KindSMS    = "SMS"
	Separator  = "_"
	RandomSize = 16
)

// Generator builds signatures. The zero value uses crypto/rand and the wall
// clock.
type Generator struct {
	// Rand supplies the random component. Nil means crypto/rand.Reader.
	Rand io.Reader
	// Now supplies the timestamp component. Nil means time.Now.
	Now func() time.Time
}

var defaultGenerator Generator

// Signature returns a tag from the default generator.
func Signature(nodeID string, hasPayload bool) string {
	return defaultGenerator.Signature(nodeID, hasPayload)
}

// Kind returns the tag kind for a request with or without a payload.
func Kind(hasPayload bool) string {
	if hasPayload {
		return KindSMS
	}
	return KindPlain
}

// Signature returns a new tag for nodeID. It panics if the entropy source
// fails, since a tag without its random component is not unique.
func (g Generator) Signature(nodeID string, hasPayload bool) string {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	var nonce [RandomSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		panic(fmt.Sprintf("signature: read entropy: %v", err))
	}

	var b strings.Builder
	b.Grow(len(Prefix) + len(nodeID) + 2*RandomSize + 24)
	b.WriteString(Prefix)
	b.WriteString(Separator)
	b.WriteString(Kind(hasPayload))
	b.WriteString(Separator)
	b.WriteString(nodeID)
	b.WriteString(Separator)
	b.WriteString(strconv.FormatInt(now().Unix(), 10))
	b.WriteString(Separator)
	b.WriteString(hex.EncodeToString(nonce[:]))
	return b.String()
}

// Parts is a tag split into its fields.
type Parts struct {
	Kind   string
	NodeID string
	Unix   int64
	Random string
}

// Parse splits a tag into its fields. Node ids may themselves contain the
// separator, so the fixed fields are taken from both ends.
func Parse(sig string) (Parts, error) {
	head := Prefix + Separator
	if !strings.HasPrefix(sig, head) {
		return Parts{}, fmt.Errorf("signature: missing %q prefix", head)
	}
	rest := sig[len(head):]

	kind, rest, ok := strings.Cut(rest, Separator)
	if !ok || (kind != KindPlain && kind != KindSMS) {
		return Parts{}, fmt.Errorf("signature: invalid kind")
	}

	i := strings.LastIndex(rest, Separator)
	if i < 0 {
		return Parts{}, fmt.Errorf("signature: missing random field")
	}
	random := rest[i+1:]
	rest = rest[:i]
	if len(random) != 2*RandomSize {
		return Parts{}, fmt.Errorf("signature: random field must be %d hex chars", 2*RandomSize)
	}
	if _, err := hex.DecodeString(random); err != nil {
		return Parts{}, fmt.Errorf("signature: random field: %w", err)
	}

	j := strings.LastIndex(rest, Separator)
	if j < 0 {
		return Parts{}, fmt.Errorf("signature: missing timestamp field")
	}
	unix, err := strconv.ParseInt(rest[j+1:], 10, 64)
	if err != nil {
		return Parts{}, fmt.Errorf("signature: timestamp: %w", err)
	}

	return Parts{Kind: kind, NodeID: rest[:j], Unix: unix, Random: random}, nil
}

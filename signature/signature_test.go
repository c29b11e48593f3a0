package signature

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time { return time.Unix(1690000000, 0) }

func TestSignatureFormat(t *testing.T) {
	g := Generator{Now: fixedClock}

	sig := g.Signature("node-0000000001", false)
	require.True(t, strings.HasPrefix(sig, "X11_VAL_node-0000000001_1690000000_"), sig)

	parts, err := Parse(sig)
	require.NoError(t, err)
	require.Equal(t, KindPlain, parts.Kind)
	require.Equal(t, "node-0000000001", parts.NodeID)
	require.Equal(t, int64(1690000000), parts.Unix)
	require.Len(t, parts.Random, 32)

	sms := g.Signature("node-0000000001", true)
	require.True(t, strings.HasPrefix(sms, "X11_SMS_node-0000000001_"), sms)
}

func TestSignatureUsesEntropySource(t *testing.T) {
	g := Generator{Now: fixedClock, Rand: bytes.NewReader(bytes.Repeat([]byte{0xab}, RandomSize))}
	require.Equal(t, "X11_VAL_n_1690000000_"+strings.Repeat("ab", RandomSize), g.Signature("n", false))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestSignaturePanicsWithoutEntropy(t *testing.T) {
	g := Generator{Rand: failingReader{}}
	require.Panics(t, func() { g.Signature("node", false) })
}

func TestSignatureUniqueSameSecond(t *testing.T) {
	g := Generator{Now: fixedClock}
	a := g.Signature("node-0000000001", false)
	b := g.Signature("node-0000000001", false)
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}

func TestSignatureUniqueConcurrent(t *testing.T) {
	const workers = 16
	const perWorker = 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, Signature("node-0000000001", true))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, s := range local {
				seen[s] = struct{}{}
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, workers*perWorker)
}

func TestParseNodeIDWithSeparator(t *testing.T) {
	g := Generator{Now: fixedClock}
	parts, err := Parse(g.Signature("rack_7_node_3", true))
	require.NoError(t, err)
	require.Equal(t, "rack_7_node_3", parts.NodeID)
	require.Equal(t, KindSMS, parts.Kind)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"X12_VAL_node_1_" + strings.Repeat("0", 32),
		"X11_BAD_node_1_" + strings.Repeat("0", 32),
		"X11_VAL_node_1_abc",
		"X11_VAL_node_notanumber_" + strings.Repeat("0", 32),
		"X11_VAL_" + strings.Repeat("z", 32),
		"X11_VAL_node_1_" + strings.Repeat("z", 32),
	} {
		_, err := Parse(in)
		require.Error(t, err, "input %q", in)
	}
}

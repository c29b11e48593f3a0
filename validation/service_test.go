package validation

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xdao.co/xyron/hashchain"
	"xdao.co/xyron/metrics"
	"xdao.co/xyron/signature"
	"xdao.co/xyron/wire"
)

func fixedNow() time.Time { return time.Unix(1690000000, 0) }

func newTestService(stats *metrics.Stats) *Service {
	return New(Options{Stats: stats, Now: fixedNow})
}

func strPtr(s string) *string { return &s }

func TestValidateWithoutPayload(t *testing.T) {
	stats := metrics.NewStats(BaseRounds)
	svc := newTestService(stats)

	resp := svc.Validate(wire.ValidationRequest{
		RequestID: "r1",
		NodeID:    "node-0000000001",
		Timestamp: 1690000000,
	})

	require.Equal(t, "r1", resp.RequestID)
	require.Equal(t, "node-0000000001", resp.NodeID)
	require.True(t, resp.Verified)
	require.Nil(t, resp.PayloadTransformed)
	require.Equal(t, BaseRounds, resp.LayersUsed)
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Equal(t, uint64(1690000000), resp.Timestamp)
	require.True(t, strings.HasPrefix(resp.Signature, "X11_VAL_node-0000000001_"), resp.Signature)

	snap := stats.Snapshot()
	require.Equal(t, uint64(1), snap.Processed)
	require.Equal(t, uint64(0), snap.Errors)
	require.Equal(t, uint64(BaseRounds), snap.ActiveLayers)
}

func TestValidateWithPayload(t *testing.T) {
	stats := metrics.NewStats(BaseRounds)
	svc := newTestService(stats)

	resp := svc.Validate(wire.ValidationRequest{
		RequestID: "r2",
		NodeID:    "node-0000000001",
		Payload:   strPtr("hello"),
		Timestamp: 1690000000,
	})

	require.True(t, resp.Verified)
	require.Equal(t, TransformRounds, resp.LayersUsed)
	require.NotEqual(t, BaseRounds, resp.LayersUsed)
	require.NotNil(t, resp.PayloadTransformed)
	require.True(t, strings.HasPrefix(resp.Signature, "X11_SMS_node-0000000001_"), resp.Signature)

	// Matches the "transform-15" conformance vector.
	want := TransformPrefix +
		"BLAKE3|SHAKE256|SHA3-256|KECCAK-256|SHA2-256|RIPEMD-160|SHA2-512|BLAKE2b|SHA3-512|SM3|BLAKE2s|BLAKE3|SHAKE256|SHA3-256|KECCAK-256" +
		"_X11-cbf5ee7a7938435d88a537198aafa906"
	require.Equal(t, want, *resp.PayloadTransformed)
	require.Equal(t, uint64(TransformRounds), stats.Snapshot().ActiveLayers)
}

func TestValidateEmptyPayloadIsPresent(t *testing.T) {
	resp := newTestService(nil).Validate(wire.ValidationRequest{RequestID: "r", NodeID: "n", Payload: strPtr("")})
	require.NotNil(t, resp.PayloadTransformed)
	require.Equal(t, TransformRounds, resp.LayersUsed)
}

func TestValidateUsesOneClockReading(t *testing.T) {
	// Each call to the clock lands in a later second.
	var mu sync.Mutex
	tick := int64(1690000000)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return time.Unix(tick, 0)
	}
	svc := New(Options{Now: now})

	resp := svc.Validate(wire.ValidationRequest{RequestID: "r", NodeID: "node-1", Payload: strPtr("hello")})
	at := time.Unix(int64(resp.Timestamp), 0)
	require.Equal(t, Transform("hello", "node-1", at), *resp.PayloadTransformed)

	parts, err := signature.Parse(resp.Signature)
	require.NoError(t, err)
	require.Equal(t, int64(resp.Timestamp), parts.Unix)
}

func TestTransformShape(t *testing.T) {
	out := Transform("payload", "node", fixedNow())
	require.True(t, strings.HasPrefix(out, TransformPrefix))

	body := strings.TrimPrefix(out, TransformPrefix)
	trace, final, ok := strings.Cut(body, "_")
	require.True(t, ok)
	require.Len(t, strings.Split(trace, "|"), TransformRounds)
	require.True(t, strings.HasPrefix(final, hashchain.FinalHashPrefix))
	require.Len(t, final, len(hashchain.FinalHashPrefix)+32)

	require.Equal(t, out, Transform("payload", "node", fixedNow()))
	require.NotEqual(t, out, Transform("payload", "node", fixedNow().Add(time.Second)))
	require.NotEqual(t, out, Transform("payload", "other", fixedNow()))
}

func TestValidateConcurrent(t *testing.T) {
	stats := metrics.NewStats(BaseRounds)
	svc := New(Options{Stats: stats})

	const n = 1000
	sigs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := wire.ValidationRequest{RequestID: "r", NodeID: "node-0000000001"}
			if i%2 == 0 {
				req.Payload = strPtr("sms body")
			}
			sigs[i] = svc.Validate(req).Signature
		}(i)
	}
	wg.Wait()

	snap := stats.Snapshot()
	require.Equal(t, uint64(n), snap.Processed)
	require.Equal(t, uint64(0), snap.Errors)

	seen := make(map[string]struct{}, n)
	for _, s := range sigs {
		seen[s] = struct{}{}
	}
	require.Len(t, seen, n)
}

func TestNewDefaults(t *testing.T) {
	svc := New(Options{})
	require.NotNil(t, svc.Stats())
	require.Equal(t, uint64(BaseRounds), svc.Stats().Snapshot().ActiveLayers)
	resp := svc.Validate(wire.ValidationRequest{NodeID: "n"})
	require.True(t, resp.Verified)
	require.NotZero(t, resp.Timestamp)
}

// Package validation combines the digest chain and the signature generator
// into validation responses.
package validation

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/xyron/hashchain"
	"xdao.co/xyron/metrics"
	"xdao.co/xyron/signature"
	"xdao.co/xyron/wire"
)

const (
	// BaseRounds is the layer count reported for a validation without payload.
	BaseRounds = 11
	// TransformRounds is the chain length used to transform a payload.
	TransformRounds = 15

	// TransformPrefix starts every transformed payload.
	TransformPrefix = "X11N_ENC_"
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Stats  *metrics.Stats
	Signer signature.Generator
	Now    func() time.Time
	Logger zerolog.Logger
}

// Service validates requests. It is safe for concurrent use; the only shared
// mutable state is the Stats it reports to.
type Service struct {
	stats  *metrics.Stats
	signer signature.Generator
	now    func() time.Time
	log    zerolog.Logger
}

// New returns a Service. A nil opts.Stats gets a private Stats.
func New(opts Options) *Service {
	s := &Service{
		stats:  opts.Stats,
		signer: opts.Signer,
		now:    opts.Now,
		log:    opts.Logger,
	}
	if s.stats == nil {
		s.stats = metrics.NewStats(BaseRounds)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Stats returns the counters the service reports to.
func (s *Service) Stats() *metrics.Stats { return s.stats }

// Validate builds the response for req and records it in Stats.
//
// The transform input, the signature and the response Timestamp all use a
// single reading of the service clock.
//
// Verified is always true: no check is performed. A request with a payload
// runs the TransformRounds chain over it and reports TransformRounds layers;
// otherwise BaseRounds is reported and PayloadTransformed is absent.
func (s *Service) Validate(req wire.ValidationRequest) wire.ValidationResponse {
	start := time.Now()
	now := s.now()
	layers := BaseRounds

	var transformed *string
	if req.Payload != nil {
		out := Transform(*req.Payload, req.NodeID, now)
		transformed = &out
		layers = TransformRounds
	}

	signer := s.signer
	signer.Now = func() time.Time { return now }
	sig := signer.Signature(req.NodeID, req.HasPayload())

	elapsed := time.Since(start)
	s.stats.RecordValidation(elapsed, layers)

	s.log.Debug().
		Str("request_id", req.RequestID).
		Str("node_id", req.NodeID).
		Int64("elapsed_us", elapsed.Microseconds()).
		Str("signature", sigPrefix(sig)).
		Bool("payload", transformed != nil).
		Msg("validated")

	return wire.ValidationResponse{
		RequestID:          req.RequestID,
		NodeID:             req.NodeID,
		PayloadTransformed: transformed,
		Verified:           true,
		Signature:          sig,
		LayersUsed:         layers,
		ProcessingTime:     uint64(elapsed.Microseconds()),
		Status:             wire.StatusOK,
		Timestamp:          uint64(now.Unix()),
	}
}

// Transform one-way digests payload for nodeID at time at. The result embeds
// the algorithm trace and the chain's final hash; it cannot be reversed.
func Transform(payload, nodeID string, at time.Time) string {
	input := payload + "|" + nodeID + "|" + strconv.FormatInt(at.Unix(), 10)
	res := hashchain.MustChain([]byte(input), TransformRounds)
	return TransformPrefix + res.Trace("|") + "_" + res.FinalHash
}

func sigPrefix(sig string) string {
	const n = 20
	if len(sig) <= n {
		return sig
	}
	return sig[:n]
}

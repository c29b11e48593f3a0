package grpcval

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/xyron/validation"
	"xdao.co/xyron/wire"
)

// Server exposes a validation.Service over the Validator gRPC service.
type Server struct {
	UnimplementedValidatorServer
	Service *validation.Service
	// MaxRequestBytes bounds the embedded request document; 0 means the wire default.
	MaxRequestBytes int64
	Logger          zerolog.Logger
}

func (s *Server) Validate(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Service == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing validation service")
	}
	if err := ctx.Err(); err != nil {
		s.Service.Stats().RecordError()
		return nil, status.FromContextError(err).Err()
	}

	limit := s.MaxRequestBytes
	if limit <= 0 {
		limit = wire.DefaultMaxRequestBytes
	}
	b := in.GetValue()
	if int64(len(b)) > limit {
		s.Service.Stats().RecordError()
		return nil, status.Error(codes.InvalidArgument, "request document exceeds size limit")
	}
	req, err := wire.UnmarshalRequest(b)
	if err != nil {
		s.Service.Stats().RecordError()
		s.Logger.Error().Err(err).Str("kind", string(wire.KindOf(err))).Msg("decode request")
		return nil, mapErr(err)
	}

	resp := s.Service.Validate(req)
	out, err := wire.MarshalResponse(resp)
	if err != nil {
		s.Service.Stats().RecordError()
		s.Logger.Error().Err(err).Str("kind", string(wire.KindOf(err))).Msg("encode response")
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(out), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch wire.KindOf(err) {
	case wire.KindDecode:
		return status.Error(codes.InvalidArgument, err.Error())
	case wire.KindEncode:
		return status.Error(codes.Internal, err.Error())
	case wire.KindIO:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

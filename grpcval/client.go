package grpcval

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/xyron/wire"
)

// Client calls the Validator service.
type Client struct {
	cc     *grpc.ClientConn
	client ValidatorClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

// DialUnix connects to a Validator service listening on a Unix socket.
func DialUnix(path string, opts DialOptions) (*Client, error) {
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
	return dial("passthrough:///"+path, opts, grpc.WithContextDialer(dialer))
}

func dial(target string, opts DialOptions, extra ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		dialOpts = append(dialOpts, grpc.WithBlock())
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", target)
	}
	return &Client{cc: cc, client: NewValidatorClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Validate sends req and decodes the response. An empty RequestID is filled
// with a random UUID.
func (c *Client) Validate(ctx context.Context, req wire.ValidationRequest) (wire.ValidationResponse, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	b, err := wire.MarshalRequest(req)
	if err != nil {
		return wire.ValidationResponse{}, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reply, err := c.client.Validate(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return wire.ValidationResponse{}, err
	}
	return wire.UnmarshalResponse(reply.GetValue())
}

// IsInvalidRequest reports whether err is the server rejecting the request
// document.
func IsInvalidRequest(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.InvalidArgument
}

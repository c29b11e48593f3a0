// Package client sends validation requests to a running daemon over its
// Unix socket, one connection per request.
package client

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"xdao.co/xyron/wire"
)

// DefaultTimeout bounds a whole request when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// Client talks to the daemon on Path.
type Client struct {
	Path string
	// Timeout applies when ctx carries no deadline; 0 means DefaultTimeout.
	Timeout time.Duration
	// MaxResponseBytes bounds the response document; 0 means the wire default.
	MaxResponseBytes int64
}

// New returns a Client for the socket at path.
func New(path string) *Client {
	return &Client{Path: path}
}

// Validate sends req and returns the decoded response. An empty RequestID is
// filled with a random UUID before sending.
func (c *Client) Validate(ctx context.Context, req wire.ValidationRequest) (wire.ValidationResponse, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if _, ok := ctx.Deadline(); !ok {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.Path)
	if err != nil {
		return wire.ValidationResponse{}, errors.Wrapf(err, "dial %s", c.Path)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return wire.ValidationResponse{}, errors.Wrap(err, "set deadline")
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := wire.WriteRequest(conn, req); err != nil {
		return wire.ValidationResponse{}, errors.Wrap(err, "send request")
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = wire.DefaultMaxRequestBytes
	}
	resp, err := wire.ReadResponse(conn, limit)
	if err != nil {
		if ctxErr := contextErr(ctx); ctxErr != nil {
			return wire.ValidationResponse{}, errors.Wrap(ctxErr, "read response")
		}
		return wire.ValidationResponse{}, errors.Wrap(err, "read response")
	}
	return resp, nil
}

// contextErr reports ctx's error, treating a passed deadline as expired even
// before the context's own timer has fired.
func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

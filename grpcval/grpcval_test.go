package grpcval

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/xyron/server"
	"xdao.co/xyron/validation"
	"xdao.co/xyron/wire"
)

func startBufconn(t *testing.T, srv *Server) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterValidatorServer(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewValidatorClient(cc), Timeout: 2 * time.Second}
}

func TestValidate_RoundTrip(t *testing.T) {
	svc := validation.New(validation.Options{})
	client := startBufconn(t, &Server{Service: svc})

	payload := "hello"
	resp, err := client.Validate(context.Background(), wire.ValidationRequest{
		RequestID: "r1",
		NodeID:    "node-7",
		Payload:   &payload,
	})
	require.NoError(t, err)
	require.Equal(t, "r1", resp.RequestID)
	require.True(t, resp.Verified)
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Equal(t, validation.TransformRounds, resp.LayersUsed)
	require.True(t, strings.HasPrefix(resp.Signature, "X11_SMS_node-7_"))
	require.NotNil(t, resp.PayloadTransformed)
	require.True(t, strings.HasPrefix(*resp.PayloadTransformed, validation.TransformPrefix))

	resp, err = client.Validate(context.Background(), wire.ValidationRequest{RequestID: "r2", NodeID: "node-7"})
	require.NoError(t, err)
	require.Equal(t, validation.BaseRounds, resp.LayersUsed)
	require.Nil(t, resp.PayloadTransformed)

	snap := svc.Stats().Snapshot()
	require.EqualValues(t, 2, snap.Processed)
	require.EqualValues(t, 0, snap.Errors)
}

func TestValidate_UndecodableIsInvalidArgument(t *testing.T) {
	svc := validation.New(validation.Options{})
	client := startBufconn(t, &Server{Service: svc})

	_, err := client.client.Validate(context.Background(), wrapperspb.Bytes([]byte("not json")))
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.True(t, IsInvalidRequest(err))

	snap := svc.Stats().Snapshot()
	require.EqualValues(t, 0, snap.Processed)
	require.EqualValues(t, 1, snap.Errors)
}

func TestValidate_MissingFieldsIsInvalidArgument(t *testing.T) {
	svc := validation.New(validation.Options{})
	client := startBufconn(t, &Server{Service: svc})

	_, err := client.client.Validate(context.Background(), wrapperspb.Bytes([]byte(`{}`)))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.EqualValues(t, 1, svc.Stats().Snapshot().Errors)
	require.EqualValues(t, 0, svc.Stats().Snapshot().Processed)
}

func TestValidate_OversizedIsInvalidArgument(t *testing.T) {
	svc := validation.New(validation.Options{})
	client := startBufconn(t, &Server{Service: svc, MaxRequestBytes: 32})

	payload := strings.Repeat("x", 64)
	_, err := client.Validate(context.Background(), wire.ValidationRequest{RequestID: "r", NodeID: "n", Payload: &payload})
	require.True(t, IsInvalidRequest(err))
	require.EqualValues(t, 1, svc.Stats().Snapshot().Errors)
}

func TestValidate_MissingService(t *testing.T) {
	client := startBufconn(t, &Server{})

	_, err := client.Validate(context.Background(), wire.ValidationRequest{RequestID: "r", NodeID: "n"})
	require.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestUnimplemented(t *testing.T) {
	_, err := UnimplementedValidatorServer{}.Validate(context.Background(), wrapperspb.Bytes(nil))
	require.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestDialUnix(t *testing.T) {
	dir, err := os.MkdirTemp("", "xyg")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "g.sock")

	ln, err := server.Listen(path, 0o700)
	require.NoError(t, err)

	svc := validation.New(validation.Options{})
	gs := grpc.NewServer()
	RegisterValidatorServer(gs, &Server{Service: svc})
	go func() {
		_ = gs.Serve(ln)
	}()
	t.Cleanup(gs.Stop)

	client, err := DialUnix(path, DialOptions{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	client.Timeout = 2 * time.Second

	resp, err := client.Validate(context.Background(), wire.ValidationRequest{RequestID: "u1", NodeID: "node-u"})
	require.NoError(t, err)
	require.Equal(t, "u1", resp.RequestID)
	require.True(t, strings.HasPrefix(resp.Signature, "X11_VAL_node-u_"))
}

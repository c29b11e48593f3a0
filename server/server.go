package server

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/xyron/metrics"
	"xdao.co/xyron/validation"
	"xdao.co/xyron/wire"
)

const (
	DefaultMaxConns     = 1024
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second

	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// Options configures a Server. Zero values select the defaults.
type Options struct {
	Path            string
	Mode            os.FileMode
	MaxConns        int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRequestBytes int64
	Logger          zerolog.Logger
}

// Server accepts connections and answers one validation per connection.
type Server struct {
	svc   *validation.Service
	stats *metrics.Stats
	opts  Options
	log   zerolog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// New returns a Server for svc. Errors are counted in svc.Stats().
func New(svc *validation.Service, opts Options) *Server {
	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = wire.DefaultMaxRequestBytes
	}
	if opts.Mode == 0 {
		opts.Mode = 0o777
	}
	return &Server{
		svc:   svc,
		stats: svc.Stats(),
		opts:  opts,
		log:   opts.Logger,
		slots: make(chan struct{}, opts.MaxConns),
	}
}

// ListenAndServe binds Options.Path and serves until ctx is done. The socket
// file is removed on return.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := Listen(s.opts.Path, s.opts.Mode)
	if err != nil {
		return err
	}
	defer os.Remove(s.opts.Path)

	s.log.Info().
		Str("path", s.opts.Path).
		Str("mode", s.opts.Mode.String()).
		Int("max_conns", s.opts.MaxConns).
		Msg("listening")
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or ln is closed, then
// waits for in-flight connections to finish. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()
	defer s.wg.Wait()

	backoff := time.Duration(0)
	for {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		conn, err := ln.Accept()
		if err != nil {
			<-s.slots
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.log.Error().Err(err).Dur("backoff", backoff).Msg("accept failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			s.handle(conn)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return acceptBackoffMin
	}
	d *= 2
	if d > acceptBackoffMax {
		d = acceptBackoffMax
	}
	return d
}

// handle runs one request/response exchange and closes conn.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
		s.fail(err, "set read deadline")
		return
	}
	req, err := wire.ReadRequest(conn, s.opts.MaxRequestBytes)
	if err != nil {
		s.fail(err, "read request")
		return
	}

	resp := s.svc.Validate(req)

	b, err := wire.MarshalResponse(resp)
	if err != nil {
		s.fail(err, "encode response")
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		s.fail(err, "set write deadline")
		return
	}
	if _, err := conn.Write(b); err != nil {
		s.fail(err, "write response")
		return
	}

	s.log.Debug().
		Str("request_id", resp.RequestID).
		Uint64("processing_us", resp.ProcessingTime).
		Msg("response sent")
}

func (s *Server) fail(err error, msg string) {
	s.stats.RecordError()
	kind := wire.KindOf(err)
	if kind == "" {
		kind = wire.KindIO
	}
	s.log.Error().Err(err).Str("kind", string(kind)).Msg(msg)
}

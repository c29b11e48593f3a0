// Command xyron-cored serves hash-chain validations on a local Unix socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"xdao.co/xyron/grpcval"
	"xdao.co/xyron/hashchain"
	"xdao.co/xyron/internal/config"
	"xdao.co/xyron/internal/log"
	"xdao.co/xyron/metrics"
	"xdao.co/xyron/server"
	"xdao.co/xyron/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	cfg, err := config.Load("xyron-cored", args, os.Getenv, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errOut, err)
		return 2
	}
	if err := log.Init(cfg.LogLevel, cfg.LogJSON, errOut); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logger := log.WithComponent("core")

	logger.Info().
		Str("socket", cfg.SocketPath).
		Str("grpc_socket", cfg.GRPCSocketPath).
		Int("algorithms", hashchain.K).
		Int("transform_rounds", validation.TransformRounds).
		Msg("xyron core starting")

	stats := metrics.NewStats(validation.BaseRounds)
	svc := validation.New(validation.Options{
		Stats:  stats,
		Logger: log.WithComponent("validation"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	reporter := &metrics.Reporter{
		Stats:    stats,
		Interval: cfg.MetricsInterval,
		Logger:   log.WithComponent("metrics"),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	var grpcErr error
	if cfg.GRPCSocketPath != "" {
		gs, err := startGRPC(cfg, svc, log.WithComponent("grpc"))
		if err != nil {
			logger.Error().Err(err).Msg("grpc listener")
			cancel()
			wg.Wait()
			return 1
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			grpcErr = gs.run(ctx)
		}()
	}

	sockSrv := server.New(svc, server.Options{
		Path:            cfg.SocketPath,
		Mode:            cfg.SocketMode,
		MaxConns:        cfg.MaxConns,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRequestBytes: cfg.MaxRequestBytes,
		Logger:          log.WithComponent("server"),
	})
	err = sockSrv.ListenAndServe(ctx)
	cancel()
	wg.Wait()

	final := reporter.Report()
	if err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return 1
	}
	if grpcErr != nil {
		logger.Error().Err(grpcErr).Msg("grpc server stopped")
		return 1
	}
	logger.Info().Uint64("processed", final.Processed).Msg("xyron core stopped")
	return 0
}

type grpcServer struct {
	srv  *grpc.Server
	lis  net.Listener
	path string
}

func startGRPC(cfg config.Config, svc *validation.Service, logger zerolog.Logger) (*grpcServer, error) {
	lis, err := server.Listen(cfg.GRPCSocketPath, cfg.SocketMode)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	grpcval.RegisterValidatorServer(gs, &grpcval.Server{
		Service:         svc,
		MaxRequestBytes: cfg.MaxRequestBytes,
		Logger:          logger,
	})
	logger.Info().Str("path", cfg.GRPCSocketPath).Msg("listening")
	return &grpcServer{srv: gs, lis: lis, path: cfg.GRPCSocketPath}, nil
}

// run serves until ctx is done, then drains in-flight RPCs.
func (g *grpcServer) run(ctx context.Context) error {
	defer os.Remove(g.path)

	errCh := make(chan error, 1)
	go func() { errCh <- g.srv.Serve(g.lis) }()

	select {
	case <-ctx.Done():
		g.srv.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

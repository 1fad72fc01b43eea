package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"nifty-dashboard/src/grpc_control"
	"nifty-dashboard/src/interfaces"
	"nifty-dashboard/src/logger"
	"nifty-dashboard/src/scheduler"
	"nifty-dashboard/src/server"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupBase(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.setupDashboard(); err != nil {
		return fmt.Errorf("failed to initialize dashboard: %w", err)
	}
	cfg := a.Config

	var stops shutdownPlan
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stops.run(shutdownCtx, a.Logger)
	}()

	// 1. Maintenance jobs
	sched := scheduler.NewScheduler(a.Store, a.Quotes, a.Sessions, a.Memory, cfg.Retention(), cfg.SessionIdle(), logger.NewLogger(cfg, "Scheduler"))
	if err := sched.RegisterAll(cfg.Storage.CleanupCron); err != nil {
		return err
	}
	sched.Start()
	stops.add("scheduler", func(context.Context) error {
		sched.Stop()
		return nil
	})

	// 2. HTTP / WebSocket API
	var srv interfaces.IDataExchanger = server.NewAPIServer(cfg, a.Sessions, a.Directory, a.Quotes, a.Markets, a.Memory, logger.NewLogger(cfg, "APIServer"))
	errs := make(chan error, 2)
	go func() {
		errs <- srv.Start()
	}()
	stops.add("http", srv.Stop)

	// 3. gRPC Control Server
	grpcServer, err := startControlServer(a, errs)
	if err != nil {
		return err
	}
	if grpcServer != nil {
		stops.add("grpc", func(context.Context) error {
			grpcServer.GracefulStop()
			return nil
		})
	}

	a.Logger.Info("Dashboard ready with %d symbols", a.Directory.Len())

	select {
	case <-ctx.Done():
		a.Logger.Info("Shutting down...")
	case err := <-errs:
		if err != nil {
			a.Logger.Error("Server failed: %v", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

type shutdownStep struct {
	name string
	stop func(context.Context) error
}

// shutdownPlan stops started components in reverse start order.
type shutdownPlan []shutdownStep

func (p *shutdownPlan) add(name string, stop func(context.Context) error) {
	*p = append(*p, shutdownStep{name: name, stop: stop})
}

func (p shutdownPlan) run(ctx context.Context, log *logger.Logger) {
	for i := len(p) - 1; i >= 0; i-- {
		if err := p[i].stop(ctx); err != nil {
			log.Warning("%s shutdown: %v", p[i].name, err)
		}
	}
}

// -----------------------------------------------------------------------------

// startControlServer serves the gRPC control plane; a zero port disables it.
func startControlServer(a *app, errs chan<- error) (*grpc.Server, error) {
	cfg := a.Config
	if cfg.GrpcPort == 0 {
		a.Logger.Info("gRPC control server disabled")
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	controlService := grpc_control.NewControlService(a.Quotes, a.Directory, a.Sessions, a.Memory, a.Markets, logger.NewLogger(cfg, "ControlService"))
	grpc_control.RegisterDashboardControlServer(grpcServer, controlService)

	go func() {
		a.Logger.Info("Starting gRPC Control Server on %s", addr)
		errs <- grpcServer.Serve(lis)
	}()
	return grpcServer, nil
}

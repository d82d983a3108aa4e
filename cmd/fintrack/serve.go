package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	httpcontext "github.com/dtroode/fintrack-server/internal/api/http/context"
	"github.com/dtroode/fintrack-server/internal/api/http/router"
	httpserver "github.com/dtroode/fintrack-server/internal/api/http/server"
	grpcserver "github.com/dtroode/fintrack-server/internal/api/grpc/server"
	"github.com/dtroode/fintrack-server/internal/config"
	"github.com/dtroode/fintrack-server/internal/gateway"
	"github.com/dtroode/fintrack-server/internal/health"
	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
	"github.com/dtroode/fintrack-server/internal/repository"
	"github.com/dtroode/fintrack-server/internal/server"
	"github.com/dtroode/fintrack-server/internal/service"
	"github.com/dtroode/fintrack-server/internal/token"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve auth|budget|payment|gateway",
		Short: "Run one fintrack service",
		Long: `Run one fintrack service until SIGINT or SIGTERM.

Ports default to 4003 (auth), 4002 (budget), 4001 (payment) and 4000 (gateway)
unless HTTP_PORT is set.`,
		ValidArgs: []string{config.ServiceAuth, config.ServiceBudget, config.ServicePayment, config.ServiceGateway},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0])
		},
	}
}

// app is a running service: its listeners plus what must be released after
// they stop, in order.
type app struct {
	servers []model.Server
	closers []func(ctx context.Context) error
}

func runServe(name string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log = log.With("service", name)

	a, err := buildApp(ctx, name, cfg, log)
	if err != nil {
		return err
	}

	sl := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	failed := make(chan error, len(a.servers))

	var wg sync.WaitGroup
	for _, s := range a.servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			log.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				log.Error("failed to start server", "error", err, "address", s.Address())
				failed <- err
			}
		}(s)
	}

	logAppVersion()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received interruption signal, shutting down")
	case runErr = <-failed:
		log.Info("server failed, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	for _, s := range a.servers {
		if err := s.Stop(shutdownCtx); err != nil {
			log.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}
	wg.Wait()

	for _, closeFn := range a.closers {
		if err := closeFn(shutdownCtx); err != nil {
			log.Error("error during shutdown", "error", err)
		}
	}

	log.Info("shutdown complete")
	return runErr
}

func buildApp(ctx context.Context, name string, cfg *config.Config, log *logger.Logger) (*app, error) {
	addr := fmt.Sprintf(":%s", cfg.ListenPort(name))

	if name == config.ServiceGateway {
		h, err := gateway.New(gateway.Upstreams{
			Auth:    cfg.Gateway.AuthURL,
			Payment: cfg.Gateway.PaymentURL,
			Budget:  cfg.Gateway.BudgetURL,
		}, cfg.HTTP.CORSOrigins, log)
		if err != nil {
			return nil, err
		}
		return &app{servers: []model.Server{httpserver.NewHTTPServer(h, addr, cfg.HTTP.ReadHeaderTimeout)}}, nil
	}

	kv, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dispatcher := newDispatcher(cfg, log)

	a := &app{
		closers: []func(context.Context) error{
			dispatcher.Close,
			func(context.Context) error { return kv.Close() },
		},
	}

	tokens := token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	rt := router.New(tokens, httpcontext.NewManager(), kv, cfg.HTTP.CORSOrigins, log)

	var h http.Handler
	switch name {
	case config.ServiceAuth:
		users := repository.NewUsers(kv, dispatcher, log)
		h = rt.Auth(service.NewAuth(users, tokens, log, 0))
	case config.ServiceBudget:
		budgets := repository.NewBudgets(kv, dispatcher, log)
		h = rt.Budget(service.NewBudget(budgets, log))
	case config.ServicePayment:
		objects, err := openStorage(ctx, cfg)
		if err != nil {
			_ = closeAll(ctx, a.closers)
			return nil, err
		}
		if objects == nil {
			log.Info("Attachments disabled")
		}
		payments := repository.NewPayments(kv, dispatcher, log)
		h = rt.Payment(service.NewPayment(payments, objects, log), cfg.HTTP.MaxUploadBytes)
	default:
		_ = closeAll(ctx, a.closers)
		return nil, fmt.Errorf("unknown service %q", name)
	}
	a.servers = append(a.servers, httpserver.NewHTTPServer(h, addr, cfg.HTTP.ReadHeaderTimeout))

	if cfg.GRPC.Enabled {
		gs := grpcserver.NewGRPCServer(fmt.Sprintf(":%s", cfg.GRPC.Port), log)
		checker := health.NewChecker(kv, gs.Health(), "fintrack."+name, cfg.GRPC.HealthInterval, log)
		go checker.Run(ctx)
		a.servers = append(a.servers, gs)
	}

	return a, nil
}

func closeAll(ctx context.Context, closers []func(context.Context) error) error {
	var errs []error
	for _, closeFn := range closers {
		errs = append(errs, closeFn(ctx))
	}
	return errors.Join(errs...)
}

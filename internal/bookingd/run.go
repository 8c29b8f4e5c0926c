package bookingd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/booking/internal/catalogcache"
	"github.com/MarkoPoloResearchLab/booking/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/booking/internal/httpapi"
	"github.com/MarkoPoloResearchLab/booking/internal/notify"
	"github.com/MarkoPoloResearchLab/booking/internal/oplog"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Run serves gRPC and HTTP until ctx ends, then drains both servers and the
// notification queue.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()
	if err := backend.ApplySchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	catalog, closeCatalog, err := openCatalog(ctx, cfg, backend, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeCatalog() }()

	sink, closeSink, err := openSink(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSink() }()
	dispatcher, err := notify.NewDispatcher(sink, notify.WithDispatcherLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if closeErr := dispatcher.Close(drainCtx); closeErr != nil {
			logger.Warn("notification queue not drained", zap.Error(closeErr))
		}
	}()

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	clock := func() int64 { return time.Now().UTC().Unix() }
	bookingService, err := booking.NewService(backend, catalog, backend, clock,
		booking.WithOperationLogger(oplog.New(logger)),
		booking.WithNotifier(dispatcher),
		booking.WithLocation(location),
	)
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}

	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.HTTP.SessionSigningKey),
		Issuer:     cfg.HTTP.SessionIssuer,
		CookieName: cfg.HTTP.SessionCookieName,
	})
	if err != nil {
		return fmt.Errorf("session validator: %w", err)
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	httpListener, err := net.Listen("tcp", cfg.HTTPListenAddr)
	if err != nil {
		_ = grpcListener.Close()
		return fmt.Errorf("http listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterBookingServiceServer(grpcServer, grpcserver.NewBookingServiceServer(bookingService))
	httpServer := &http.Server{
		Handler:           httpapi.NewRouter(cfg.HTTP, bookingService, validator, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("gRPC server starting", zap.String("listen_addr", grpcListener.Addr().String()))
		if serveErr := grpcServer.Serve(grpcListener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", serveErr)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("HTTP server starting", zap.String("listen_addr", httpListener.Addr().String()))
		if serveErr := httpServer.Serve(httpListener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", serveErr)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("http shutdown error", zap.Error(shutdownErr))
		}
		stopGRPC(shutdownCtx, grpcServer)
		return nil
	})
	return group.Wait()
}

// stopGRPC waits for in-flight RPCs until ctx ends, then forces the stop.
func stopGRPC(ctx context.Context, server *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		server.Stop()
	}
}

func openCatalog(ctx context.Context, cfg Config, backend Backend, logger *zap.Logger) (booking.FacilityCatalog, func() error, error) {
	if cfg.RedisAddr == "" {
		return backend, func() error { return nil }, nil
	}
	client, err := catalogcache.Dial(ctx, catalogcache.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	cached, err := catalogcache.New(backend, client, catalogcache.WithTTL(cfg.CacheTTL), catalogcache.WithLogger(logger))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return cached, client.Close, nil
}

func openSink(cfg Config, logger *zap.Logger) (notify.Sink, func() error, error) {
	if cfg.AMQPURL == "" {
		return notify.NewLogSink(logger), func() error { return nil }, nil
	}
	publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.NotifyQueue)
	if err != nil {
		return nil, nil, err
	}
	return publisher, publisher.Close, nil
}

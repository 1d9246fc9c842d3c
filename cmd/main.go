package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"latemate_console/internal/config"
	"latemate_console/internal/device"
	"latemate_console/internal/display"
	"latemate_console/internal/handlers"
	"latemate_console/internal/logger"
	"latemate_console/internal/repository"
	"latemate_console/internal/repository/db"
	"latemate_console/internal/server"
	"latemate_console/internal/service"
	"latemate_console/internal/transport"
)

const (
	redialDelay     = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	conn, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DBPath)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	client := transport.NewClient(cfg.DeviceURL, log.Named("device"))
	hub := display.NewHub(cfg.SurfaceWidth, cfg.SurfaceHeight, log)
	services := service.NewService(service.Deps{
		Transport:  client,
		Display:    hub,
		Surface:    hub,
		Archiver:   display.NewPlotArchiver(cfg.ArchiveDir),
		Discoverer: device.NewDiscovery(cfg.USBVID, cfg.USBPID),
		Repos:      repository.NewRepository(conn),
		Log:        log,
		Sweep: service.SweepConfig{
			Step:      cfg.SweepStep,
			Tick:      cfg.SweepTick,
			Threshold: cfg.SweepThreshold,
		},
		SigningKey: cfg.SigningKey,
	})
	apiHandler := handlers.NewHandler(services, hub, handlers.BatchDefaults{
		Count:    cfg.BatchCount,
		Interval: cfg.BatchInterval,
	}, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go runDevice(ctx, client, log)

	srv := server.New(log)
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, services, log)
}

// runDevice keeps dialing the device until ctx is done. The client itself
// never reconnects; each Run is one connection.
func runDevice(ctx context.Context, client *transport.Client, log *logger.Logger) {
	for {
		if err := client.Run(ctx); err != nil {
			log.Warnw("device_connection_lost", "err", err, "retry_in", redialDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialDelay):
		}
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// nothing may touch the device after the channel goes away
	services.StopBatch()
	services.CancelSweep()
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

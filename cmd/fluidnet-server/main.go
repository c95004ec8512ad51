package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daniacca/fluidnet/internal/fluid"
	fluidnotifiers "github.com/daniacca/fluidnet/internal/fluid/notifiers"
)

func main() {
	cfg := loadServerConfig()
	logger := NewLogger(cfg.LogLevel)

	srv := NewServer(logger)
	srv.SetSnapshotDir(cfg.SnapshotDir)
	srv.SetSnapshotEveryTicks(cfg.SnapshotEveryTicks)

	// Metrics registry: one collector per hosted network plus process/go stats
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv.SetMetricsRegistry(promReg)

	// Websocket notifier streams tick events to connected clients
	wsNotifier := fluidnotifiers.NewWebSocketNotifier("websocket")
	if err := srv.globalNotifierMgr.RegisterNotifier(wsNotifier); err != nil {
		logger.Fatalf("Cannot register websocket notifier: %v", err)
	}
	srv.wsNotifier = wsNotifier

	// Optionally load an initial network config at startup
	if cfg.NetworkFile != "" {
		netCfg, err := loadNetworkConfigFromFile(cfg.NetworkFile)
		if err != nil {
			logger.Fatalf("Cannot load network file %s: %v", cfg.NetworkFile, err)
		}
		netID := fluid.NetworkID(cfg.DefaultNetworkID)
		n, err := srv.manager.CreateNetwork(netID, netCfg, srv.fluidLogger())
		if err != nil {
			logger.Fatalf("Cannot create initial network: %v", err)
		}
		srv.configureNetwork(netID, n)
		logger.Infof("Initial network loaded: net_id=%s name=%s file=%s", netID, netCfg.Name, cfg.NetworkFile)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/networks", srv.handleListNetworks)
	mux.HandleFunc("/net/", srv.handleNetworkRoutes)
	mux.HandleFunc("/notifiers", srv.handleNotifiersRoutes)
	mux.HandleFunc("/notifiers/", srv.handleNotifiersRoutes)
	mux.HandleFunc("/ws", srv.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	// Shut down cleanly on SIGINT/SIGTERM: stop tickers, flush notifiers
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Infof("fluidnet-server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}

	srv.manager.StopAll()
	if err := srv.globalNotifierMgr.Close(); err != nil {
		logger.Errorf("Notifier shutdown error: %v", err)
	}
}

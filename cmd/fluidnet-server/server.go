package main

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daniacca/fluidnet/internal/fluid"
	"github.com/daniacca/fluidnet/internal/fluid/notifiers"
)

// fluidLoggerAdapter adapts the server's Logger to the fluid.Logger interface
type fluidLoggerAdapter struct {
	logger *Logger
}

func (a *fluidLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *fluidLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *fluidLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *fluidLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// Server represents the HTTP server for fluidnet
type Server struct {
	manager            *fluid.NetworkManager
	globalNotifierMgr  *fluid.NotificationManager
	wsNotifier         *notifiers.WebSocketNotifier
	metricsReg         prometheus.Registerer
	collectorsMu       sync.Mutex
	collectors         map[fluid.NetworkID]*fluid.Collector
	snapshotDir        string
	snapshotEveryTicks int
	logger             *Logger
}

// NewServer creates a new server instance
func NewServer(logger *Logger) *Server {
	// Convert server logger to fluid.Logger interface
	fluidLogger := &fluidLoggerAdapter{logger: logger}
	globalMgr := fluid.NewNotificationManager(fluidLogger)
	return &Server{
		manager:           fluid.NewNetworkManager(),
		globalNotifierMgr: globalMgr,
		collectors:        make(map[fluid.NetworkID]*fluid.Collector),
		logger:            logger,
	}
}

// SetMetricsRegistry sets the prometheus registry network collectors are
// registered with.
func (s *Server) SetMetricsRegistry(reg prometheus.Registerer) {
	s.metricsReg = reg
}

// SetSnapshotDir sets the snapshot directory for all networks
func (s *Server) SetSnapshotDir(dir string) {
	s.snapshotDir = dir
}

// SetSnapshotEveryTicks sets the snapshot frequency for all networks
func (s *Server) SetSnapshotEveryTicks(ticks int) {
	s.snapshotEveryTicks = ticks
}

// fluidLogger returns the server logger wrapped for the fluid package
func (s *Server) fluidLogger() fluid.Logger {
	return &fluidLoggerAdapter{logger: s.logger}
}

// configureNetwork wires a freshly created network into the server-wide
// notification manager, snapshot settings and metrics registry.
func (s *Server) configureNetwork(id fluid.NetworkID, n *fluid.Network) {
	n.SetNotificationManager(s.globalNotifierMgr)
	if s.snapshotDir != "" {
		n.SetSnapshotDir(s.snapshotDir)
	}
	if s.snapshotEveryTicks >= 0 {
		n.SetSnapshotEveryNTicks(s.snapshotEveryTicks)
	}

	if s.metricsReg != nil {
		s.collectorsMu.Lock()
		defer s.collectorsMu.Unlock()
		if old, ok := s.collectors[id]; ok {
			s.metricsReg.Unregister(old)
		}
		c := fluid.NewCollector(n)
		if err := s.metricsReg.Register(c); err != nil {
			s.logger.Warnf("Cannot register metrics collector: net_id=%s error=%v", id, err)
			return
		}
		s.collectors[id] = c
	}
}

// dropCollector unregisters the metrics collector of a deleted network.
func (s *Server) dropCollector(id fluid.NetworkID) {
	if s.metricsReg == nil {
		return
	}
	s.collectorsMu.Lock()
	defer s.collectorsMu.Unlock()
	if c, ok := s.collectors[id]; ok {
		s.metricsReg.Unregister(c)
		delete(s.collectors, id)
	}
}

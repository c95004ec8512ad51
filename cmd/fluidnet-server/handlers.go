package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/daniacca/fluidnet/internal/fluid"
	fluidnotifiers "github.com/daniacca/fluidnet/internal/fluid/notifiers"
)

// extractNetworkID extracts the network ID from a path like "/net/{netID}/..."
// Returns the network ID and the remaining path, or empty string if not found
func extractNetworkID(path string) (fluid.NetworkID, string) {
	if !strings.HasPrefix(path, "/net/") {
		return "", ""
	}

	// Remove "/net/" prefix
	rest := path[5:]

	// Find the next "/"
	idx := strings.Index(rest, "/")
	if idx == -1 {
		// No more path segments, the whole thing is the network ID
		return fluid.NetworkID(rest), ""
	}

	netID := fluid.NetworkID(rest[:idx])
	remainingPath := rest[idx:]
	return netID, remainingPath
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /net/{netID}/config
// Body: NetworkConfig JSON
// Creates a new network with the given ID, or replaces an existing one
func (s *Server) handleNetworkConfig(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	netID, _ := extractNetworkID(r.URL.Path)
	if netID == "" {
		http.Error(w, "network ID is required in path: /net/{netID}/config", http.StatusBadRequest)
		return
	}

	var cfg fluid.NetworkConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid network json: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Try to create the network; if the ID is taken, replace the old one
	n, err := s.manager.CreateNetwork(netID, cfg, s.fluidLogger())
	if err != nil {
		if delErr := s.manager.DeleteNetwork(netID); delErr != nil {
			http.Error(w, "cannot build network: "+err.Error(), http.StatusBadRequest)
			return
		}
		n, err = s.manager.CreateNetwork(netID, cfg, s.fluidLogger())
		if err != nil {
			http.Error(w, "cannot build network: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Infof("Network replaced: net_id=%s name=%s", netID, cfg.Name)
	} else {
		s.logger.Infof("Network created: net_id=%s name=%s", netID, cfg.Name)
	}

	s.configureNetwork(netID, n)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("network loaded"))
}

// POST /net/{netID}/container
// Body: { "name": "...", "max_volume": ..., "max_pressure": ... }
type createContainerRequest struct {
	Name        string  `json:"name"`
	MaxVolume   float64 `json:"max_volume"`
	MaxPressure float64 `json:"max_pressure"`
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	var req createContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := n.CreateContainer(req.Name, req.MaxVolume, req.MaxPressure); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debugf("Container queued: net_id=%s name=%s", netID, req.Name)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /net/{netID}/pipe
// Body: { "name": "...", "alpha": "...", "beta": "...", "shape_resistance": ... }
type createPipeRequest struct {
	Name            string  `json:"name"`
	Alpha           string  `json:"alpha"`
	Beta            string  `json:"beta"`
	ShapeResistance float64 `json:"shape_resistance"`
}

func (s *Server) handleCreatePipe(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	var req createPipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	alpha, ok := n.ContainerByName(req.Alpha)
	if !ok {
		http.Error(w, "unknown container: "+req.Alpha, http.StatusBadRequest)
		return
	}
	beta, ok := n.ContainerByName(req.Beta)
	if !ok {
		http.Error(w, "unknown container: "+req.Beta, http.StatusBadRequest)
		return
	}

	name := req.Name
	if name == "" {
		name = req.Alpha + "~" + req.Beta
	}

	if _, err := n.CreatePipe(name, alpha, beta, req.ShapeResistance); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debugf("Pipe queued: net_id=%s name=%s", netID, name)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /net/{netID}/deposit
// Body: { "container": "...", "type": "...", "mass": ... }
type depositRequest struct {
	Container string  `json:"container"`
	Type      string  `json:"type"`
	Mass      float64 `json:"mass"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	id, ok := n.ContainerByName(req.Container)
	if !ok {
		http.Error(w, "unknown container: "+req.Container, http.StatusBadRequest)
		return
	}
	ty, ok := n.Registry().Lookup(req.Type)
	if !ok {
		http.Error(w, "unknown fluid type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := n.Deposit(id, ty, req.Mass); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Debugf("Deposit queued: net_id=%s container=%s type=%s mass=%f", netID, req.Container, req.Type, req.Mass)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /net/{netID}/tick
// Manually trigger a single step (useful for testing/debugging when auto-running is disabled)
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	n.Step()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ticked"))
}

// POST /net/{netID}/start
// Start the network auto-running with the specified interval (in milliseconds)
// Query param: interval (default: 1000ms)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	// Parse interval from query param (default: 1 second)
	interval := 1000 * time.Millisecond
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		if ms, err := strconv.Atoi(intervalStr); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
	}

	n.Run(interval)
	s.logger.Infof("Network started: net_id=%s interval=%v", netID, interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("network started"))
}

// POST /net/{netID}/stop
// Stop the network auto-running
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	n.Stop()
	s.logger.Infof("Network stopped: net_id=%s", netID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("network stopped"))
}

// GET /net/{netID}/containers
func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	statuses := make([]fluid.ContainerStatus, 0, n.ContainerCount())
	n.EachContainer(func(_ fluid.ContainerID, st fluid.ContainerStatus) {
		statuses = append(statuses, st)
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /networks
// List all network IDs
func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	netIDs := s.manager.ListNetworks()

	// Convert to strings for JSON encoding
	ids := make([]string, len(netIDs))
	for i, id := range netIDs {
		ids[i] = string(id)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"networks": ids}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// DELETE /net/{netID}
// Delete a network
func (s *Server) handleDeleteNetwork(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	if netID == "" {
		http.Error(w, "network ID is required in path: /net/{netID}", http.StatusBadRequest)
		return
	}

	if err := s.manager.DeleteNetwork(netID); err != nil {
		s.logger.Warnf("Failed to delete network: net_id=%s error=%v", netID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.dropCollector(netID)
	s.logger.Infof("Network deleted: net_id=%s", netID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("network deleted"))
}

// handleNetworkRoutes routes requests to network-specific handlers
// Handles paths like /net/{netID}/config, /net/{netID}/deposit, etc.
func (s *Server) handleNetworkRoutes(w http.ResponseWriter, r *http.Request) {
	netID, remainingPath := extractNetworkID(r.URL.Path)
	if netID == "" {
		http.Error(w, "network ID is required in path: /net/{netID}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "/config" && r.Method == http.MethodPost:
		s.handleNetworkConfig(w, r)
	case remainingPath == "/container" && r.Method == http.MethodPost:
		s.handleCreateContainer(w, r)
	case remainingPath == "/pipe" && r.Method == http.MethodPost:
		s.handleCreatePipe(w, r)
	case remainingPath == "/deposit" && r.Method == http.MethodPost:
		s.handleDeposit(w, r)
	case remainingPath == "/tick" && r.Method == http.MethodPost:
		s.handleTick(w, r)
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		s.handleStop(w, r)
	case remainingPath == "/containers" && r.Method == http.MethodGet:
		s.handleListContainers(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteNetwork(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
// List all registered notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.globalNotifierMgr.ListNotifiers()

	// Get notifier types
	notifiers := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.globalNotifierMgr.GetNotifier(id)
		if exists {
			notifiers = append(notifiers, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"notifiers": notifiers}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://..." } }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier fluid.Notifier
	var err error

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := fluidnotifiers.NewWebhookNotifier(req.ID, url)

		// Set custom headers if provided
		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}

		notifier = wh
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err = s.globalNotifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
// Unregister a notifier
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	// Extract notifier ID from path
	path := r.URL.Path
	if !strings.HasPrefix(path, "/notifiers/") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	notifierID := strings.TrimPrefix(path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	if err := s.globalNotifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}

// GET /ws
// Upgrade the connection and stream tick events to the client
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.wsNotifier == nil {
		http.Error(w, "websocket notifier not configured", http.StatusInternalServerError)
		return
	}

	upgrader := s.wsNotifier.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("Websocket upgrade failed: error=%v", err)
		return
	}

	s.wsNotifier.RegisterClient(conn)
	s.logger.Debugf("Websocket client connected: remote=%s", conn.RemoteAddr())
}

// POST /net/{netID}/snapshot
// Triggers a synchronous snapshot save
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	if netID == "" {
		http.Error(w, "network ID is required in path: /net/{netID}/snapshot", http.StatusBadRequest)
		return
	}

	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	// Check if snapshot directory is configured
	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	// Save snapshot synchronously
	snap := fluid.TakeSnapshot(n)
	path, err := fluid.WriteSnapshotFile(s.snapshotDir, snap)
	if err != nil {
		s.logger.Errorf("Failed to save snapshot: net_id=%s error=%v", netID, err)
		http.Error(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Debugf("Snapshot saved: net_id=%s path=%s", netID, path)

	response := map[string]string{
		"status": "ok",
		"path":   path,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "cannot encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /net/{netID}/snapshot
// Returns the raw snapshot JSON if it exists
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	netID, _ := extractNetworkID(r.URL.Path)
	if netID == "" {
		http.Error(w, "network ID is required in path: /net/{netID}/snapshot", http.StatusBadRequest)
		return
	}

	n, exists := s.manager.GetNetwork(netID)
	if !exists {
		http.Error(w, "network not found", http.StatusNotFound)
		return
	}

	// Check if snapshot directory is configured
	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	// Snapshot files are keyed by the network's configured name
	path := fluid.SnapshotPath(s.snapshotDir, n.Name())

	// Read snapshot file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Return raw JSON
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package fluid

import (
	"fmt"
	"sync"
)

// NetworkID is a unique identifier for a hosted network
type NetworkID string

// NetworkManager manages multiple networks, each isolated from others
type NetworkManager struct {
	mu       sync.RWMutex
	networks map[NetworkID]*Network
}

// NewNetworkManager creates a new network manager
func NewNetworkManager() *NetworkManager {
	return &NetworkManager{
		networks: make(map[NetworkID]*Network),
	}
}

// CreateNetwork builds a network from a config and registers it under the
// given ID. Returns an error if a network with that ID already exists or the
// config is invalid.
func (nm *NetworkManager) CreateNetwork(id NetworkID, cfg NetworkConfig, logger Logger) (*Network, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.networks[id]; exists {
		return nil, fmt.Errorf("network with id %s already exists", id)
	}

	n, err := BuildNetworkFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	nm.networks[id] = n
	return n, nil
}

// AddNetwork registers an already-built network (e.g. restored from a
// snapshot) under the given ID.
func (nm *NetworkManager) AddNetwork(id NetworkID, n *Network) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.networks[id]; exists {
		return fmt.Errorf("network with id %s already exists", id)
	}
	nm.networks[id] = n
	return nil
}

// GetNetwork retrieves a network by ID
// Returns the network and a boolean indicating if it was found
func (nm *NetworkManager) GetNetwork(id NetworkID) (*Network, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	n, exists := nm.networks[id]
	return n, exists
}

// DeleteNetwork removes a network by ID, stopping it if it is running.
func (nm *NetworkManager) DeleteNetwork(id NetworkID) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	n, exists := nm.networks[id]
	if !exists {
		return fmt.Errorf("network with id %s does not exist", id)
	}

	n.Stop()
	delete(nm.networks, id)
	return nil
}

// ListNetworks returns a list of all network IDs
func (nm *NetworkManager) ListNetworks() []NetworkID {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	ids := make([]NetworkID, 0, len(nm.networks))
	for id := range nm.networks {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every running network. Used at shutdown.
func (nm *NetworkManager) StopAll() {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	for _, n := range nm.networks {
		n.Stop()
	}
}

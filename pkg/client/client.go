package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/daniacca/fluidnet/internal/fluid"
)

// NetworkBuilder provides a fluent API for building network configurations.
// Use it to define the fluid types, containers, pipes and initial deposits
// of a transport network.
type NetworkBuilder struct {
	name       string
	scalar     *fluid.ScalarConfig
	types      []fluid.TypeConfig
	containers []fluid.ContainerConfig
	pipes      []fluid.PipeConfig
	deposits   []fluid.DepositConfig
}

// NewNetwork creates a new network builder with the given name.
// The name identifies the network and keys its snapshot files.
func NewNetwork(name string) *NetworkBuilder {
	return &NetworkBuilder{
		name:       name,
		types:      make([]fluid.TypeConfig, 0),
		containers: make([]fluid.ContainerConfig, 0),
		pipes:      make([]fluid.PipeConfig, 0),
		deposits:   make([]fluid.DepositConfig, 0),
	}
}

// Thresholds overrides the default element creation and deletion thresholds.
// The deletion threshold must be below the creation threshold so elements
// do not oscillate at the boundary.
func (nb *NetworkBuilder) Thresholds(creation, deletion float64) *NetworkBuilder {
	nb.scalar = &fluid.ScalarConfig{
		CreationThreshold: creation,
		DeletionThreshold: deletion,
	}
	return nb
}

// Type adds a fluid type definition to the network.
// Use the TypeBuilder to set the physical constants of the fluid.
func (nb *NetworkBuilder) Type(tb *TypeBuilder) *NetworkBuilder {
	nb.types = append(nb.types, tb.Build())
	return nb
}

// Container adds a container definition to the network.
// maxVolume is the capacity in the vacuum phase; maxPressure is the
// pressure above which the container is marked exploded.
func (nb *NetworkBuilder) Container(id string, maxVolume, maxPressure float64) *NetworkBuilder {
	nb.containers = append(nb.containers, fluid.ContainerConfig{
		ID:          id,
		MaxVolume:   maxVolume,
		MaxPressure: maxPressure,
	})
	return nb
}

// Pipe adds a pipe between two containers. The shape resistance is the
// static part of the pipe's flow resistance; the dynamic part depends on
// the fluids flowing through it.
func (nb *NetworkBuilder) Pipe(alpha, beta string, shapeResistance float64) *NetworkBuilder {
	nb.pipes = append(nb.pipes, fluid.PipeConfig{
		Alpha:           alpha,
		Beta:            beta,
		ShapeResistance: shapeResistance,
	})
	return nb
}

// NamedPipe adds a pipe with an explicit ID. Unnamed pipes default to
// "{alpha}~{beta}".
func (nb *NetworkBuilder) NamedPipe(id, alpha, beta string, shapeResistance float64) *NetworkBuilder {
	nb.pipes = append(nb.pipes, fluid.PipeConfig{
		ID:              id,
		Alpha:           alpha,
		Beta:            beta,
		ShapeResistance: shapeResistance,
	})
	return nb
}

// Deposit adds an initial fluid deposit applied when the network is built.
func (nb *NetworkBuilder) Deposit(container, fluidType string, mass float64) *NetworkBuilder {
	nb.deposits = append(nb.deposits, fluid.DepositConfig{
		Container: container,
		Type:      fluidType,
		Mass:      mass,
	})
	return nb
}

// Build converts the builder to a NetworkConfig that can be used with
// ApplyNetwork or fluid.BuildNetworkFromConfig.
func (nb *NetworkBuilder) Build() fluid.NetworkConfig {
	return fluid.NetworkConfig{
		Name:       nb.name,
		Scalar:     nb.scalar,
		Types:      nb.types,
		Containers: nb.containers,
		Pipes:      nb.pipes,
		Deposits:   nb.deposits,
	}
}

// TypeBuilder provides a fluent API for building fluid type definitions.
type TypeBuilder struct {
	cfg fluid.TypeConfig
}

// NewType creates a new fluid type builder with the given name and
// neutral defaults: viscosity 1, vacuum specific volume 1, critical
// pressure 1 and saturation gamma 1.
func NewType(name string) *TypeBuilder {
	return &TypeBuilder{
		cfg: fluid.TypeConfig{
			Name:                 name,
			Viscosity:            1,
			VacuumSpecificVolume: 1,
			CriticalPressure:     1,
			SaturationGamma:      1,
		},
	}
}

// Viscosity sets the flow viscosity. Higher values flow slower.
func (tb *TypeBuilder) Viscosity(v float64) *TypeBuilder {
	tb.cfg.Viscosity = v
	return tb
}

// VacuumSpecificVolume sets the volume of 1.0 mass of the fluid in the
// vacuum phase.
func (tb *TypeBuilder) VacuumSpecificVolume(v float64) *TypeBuilder {
	tb.cfg.VacuumSpecificVolume = v
	return tb
}

// CriticalPressure sets the pressure above which the fluid saturates.
func (tb *TypeBuilder) CriticalPressure(p float64) *TypeBuilder {
	tb.cfg.CriticalPressure = p
	return tb
}

// SaturationGamma sets the pressure amplification of the saturated fluid.
func (tb *TypeBuilder) SaturationGamma(g float64) *TypeBuilder {
	tb.cfg.SaturationGamma = g
	return tb
}

// Build converts the builder to a TypeConfig.
func (tb *TypeBuilder) Build() fluid.TypeConfig {
	return tb.cfg
}

// ApplyNetwork sends the network configuration to a fluidnet server.
// The baseURL is the server's base URL (e.g., "http://localhost:8080"),
// and netID is the network ID the configuration should be applied to.
// An existing network with the same ID is replaced.
func ApplyNetwork(ctx context.Context, baseURL, netID string, network *NetworkBuilder) error {
	cfg := network.Build()

	jsonData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}

	return postJSON(ctx, baseURL, []string{"net", netID, "config"}, jsonData)
}

// Deposit queues a fluid deposit on the server. The deposit is applied at
// the start of the network's next tick.
func Deposit(ctx context.Context, baseURL, netID, container, fluidType string, mass float64) error {
	body, err := json.Marshal(map[string]any{
		"container": container,
		"type":      fluidType,
		"mass":      mass,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal deposit: %w", err)
	}

	return postJSON(ctx, baseURL, []string{"net", netID, "deposit"}, body)
}

// Tick triggers a single simulation step on the server.
func Tick(ctx context.Context, baseURL, netID string) error {
	return postJSON(ctx, baseURL, []string{"net", netID, "tick"}, nil)
}

// Start starts the network auto-running on the server with the given tick
// interval in milliseconds.
func Start(ctx context.Context, baseURL, netID string, intervalMs int) error {
	u, err := url.JoinPath(baseURL, "net", netID, "start")
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	u = fmt.Sprintf("%s?interval=%d", u, intervalMs)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(req)
}

// Stop stops the network auto-running on the server.
func Stop(ctx context.Context, baseURL, netID string) error {
	return postJSON(ctx, baseURL, []string{"net", netID, "stop"}, nil)
}

// Containers fetches the current status of every container in the network.
func Containers(ctx context.Context, baseURL, netID string) ([]fluid.ContainerStatus, error) {
	u, err := url.JoinPath(baseURL, "net", netID, "containers")
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var statuses []fluid.ContainerStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return statuses, nil
}

// DeleteNetwork removes a network from the server.
func DeleteNetwork(ctx context.Context, baseURL, netID string) error {
	u, err := url.JoinPath(baseURL, "net", netID)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doRequest(req)
}

// SaveSnapshot triggers a synchronous snapshot save on the server and
// returns the path the snapshot was written to.
func SaveSnapshot(ctx context.Context, baseURL, netID string) (string, error) {
	u, err := url.JoinPath(baseURL, "net", netID, "snapshot")
	if err != nil {
		return "", fmt.Errorf("failed to build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var response map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return response["path"], nil
}

// RegisterWebhook registers a webhook notifier on the server. Tick events
// are POSTed to the given URL after every simulation step.
func RegisterWebhook(ctx context.Context, baseURL, notifierID, webhookURL string) error {
	body, err := json.Marshal(map[string]any{
		"type": "webhook",
		"id":   notifierID,
		"config": map[string]any{
			"url": webhookURL,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notifier: %w", err)
	}

	return postJSON(ctx, baseURL, []string{"notifiers"}, body)
}

// postJSON POSTs a JSON payload to baseURL joined with the path segments.
func postJSON(ctx context.Context, baseURL string, segments []string, body []byte) error {
	u, err := url.JoinPath(baseURL, segments...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return doRequest(req)
}

func doRequest(req *http.Request) error {
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

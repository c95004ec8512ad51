package fluid

import (
	"strings"
	"testing"
)

func validConfig() NetworkConfig {
	return NetworkConfig{
		Name: "test-net",
		Types: []TypeConfig{
			{Name: "water", Viscosity: 1, VacuumSpecificVolume: 1, CriticalPressure: 5, SaturationGamma: 2},
		},
		Containers: []ContainerConfig{
			{ID: "tank-a", MaxVolume: 10, MaxPressure: 10},
			{ID: "tank-b", MaxVolume: 10, MaxPressure: 10},
		},
		Pipes: []PipeConfig{
			{Alpha: "tank-a", Beta: "tank-b", ShapeResistance: 1},
		},
		Deposits: []DepositConfig{
			{Container: "tank-a", Type: "water", Mass: 1},
		},
	}
}

func TestValidateNetworkConfig_ValidConfig(t *testing.T) {
	if err := ValidateNetworkConfig(validConfig()); err != nil {
		t.Errorf("Expected valid config to pass, got: %v", err)
	}
}

func TestValidateNetworkConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NetworkConfig)
		wantErr string
	}{
		{
			name:    "missing network name",
			mutate:  func(c *NetworkConfig) { c.Name = "" },
			wantErr: "network name is required",
		},
		{
			name:    "type without name",
			mutate:  func(c *NetworkConfig) { c.Types[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name: "duplicate type name",
			mutate: func(c *NetworkConfig) {
				c.Types = append(c.Types, c.Types[0])
			},
			wantErr: "duplicate type name: water",
		},
		{
			name:    "zero viscosity",
			mutate:  func(c *NetworkConfig) { c.Types[0].Viscosity = 0 },
			wantErr: "viscosity must be positive",
		},
		{
			name:    "negative vacuum specific volume",
			mutate:  func(c *NetworkConfig) { c.Types[0].VacuumSpecificVolume = -1 },
			wantErr: "vacuum specific volume must be positive",
		},
		{
			name:    "zero critical pressure",
			mutate:  func(c *NetworkConfig) { c.Types[0].CriticalPressure = 0 },
			wantErr: "critical pressure must be positive",
		},
		{
			name:    "negative saturation gamma",
			mutate:  func(c *NetworkConfig) { c.Types[0].SaturationGamma = -0.5 },
			wantErr: "saturation gamma must not be negative",
		},
		{
			name:    "container without id",
			mutate:  func(c *NetworkConfig) { c.Containers[0].ID = "" },
			wantErr: "id is required",
		},
		{
			name: "duplicate container id",
			mutate: func(c *NetworkConfig) {
				c.Containers[1].ID = "tank-a"
			},
			wantErr: "duplicate container id: tank-a",
		},
		{
			name:    "zero max volume",
			mutate:  func(c *NetworkConfig) { c.Containers[0].MaxVolume = 0 },
			wantErr: "max volume must be positive",
		},
		{
			name:    "negative max pressure",
			mutate:  func(c *NetworkConfig) { c.Containers[0].MaxPressure = -2 },
			wantErr: "max pressure must be positive",
		},
		{
			name:    "pipe missing endpoint",
			mutate:  func(c *NetworkConfig) { c.Pipes[0].Beta = "" },
			wantErr: "alpha and beta containers are required",
		},
		{
			name:    "pipe to unknown container",
			mutate:  func(c *NetworkConfig) { c.Pipes[0].Beta = "tank-z" },
			wantErr: "beta container 'tank-z' does not exist",
		},
		{
			name:    "pipe loops back to its own container",
			mutate:  func(c *NetworkConfig) { c.Pipes[0].Beta = "tank-a" },
			wantErr: "endpoints must be distinct containers",
		},
		{
			name: "duplicate pipe id",
			mutate: func(c *NetworkConfig) {
				c.Pipes[0].ID = "p1"
				c.Pipes = append(c.Pipes, PipeConfig{ID: "p1", Alpha: "tank-b", Beta: "tank-a", ShapeResistance: 1})
			},
			wantErr: "duplicate pipe id: p1",
		},
		{
			name:    "zero shape resistance",
			mutate:  func(c *NetworkConfig) { c.Pipes[0].ShapeResistance = 0 },
			wantErr: "shape resistance must be positive",
		},
		{
			name:    "deposit into unknown container",
			mutate:  func(c *NetworkConfig) { c.Deposits[0].Container = "tank-z" },
			wantErr: "container 'tank-z' does not exist",
		},
		{
			name:    "deposit of unknown type",
			mutate:  func(c *NetworkConfig) { c.Deposits[0].Type = "lava" },
			wantErr: "type 'lava' does not exist",
		},
		{
			name:    "deposit of zero mass",
			mutate:  func(c *NetworkConfig) { c.Deposits[0].Mass = 0 },
			wantErr: "mass must be positive",
		},
		{
			name: "scalar thresholds inverted",
			mutate: func(c *NetworkConfig) {
				c.Scalar = &ScalarConfig{CreationThreshold: 1e-6, DeletionThreshold: 1e-3}
			},
			wantErr: "deletion threshold must be stricter than creation threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateNetworkConfig(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateNetworkConfig_CollectsMultipleIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Name = ""
	cfg.Types[0].Viscosity = 0
	cfg.Containers[0].MaxVolume = -1

	err := ValidateNetworkConfig(cfg)
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if len(verr.Issues) != 3 {
		t.Errorf("Expected 3 issues, got %d: %v", len(verr.Issues), verr.Issues)
	}
}

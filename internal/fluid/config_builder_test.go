package fluid

import (
	"math"
	"testing"
)

func TestBuildNetworkFromConfig_AssemblesReadyNetwork(t *testing.T) {
	n, err := BuildNetworkFromConfig(validConfig(), NewNoOpLogger())
	if err != nil {
		t.Fatalf("BuildNetworkFromConfig: %v", err)
	}

	if n.Name() != "test-net" {
		t.Errorf("Expected network name test-net, got %q", n.Name())
	}
	if n.ContainerCount() != 2 || n.PipeCount() != 1 {
		t.Errorf("Expected 2 containers and 1 pipe, got %d and %d", n.ContainerCount(), n.PipeCount())
	}

	// The initial deposit is applied and rebalanced before the first Step
	a, ok := n.ContainerByName("tank-a")
	if !ok {
		t.Fatal("Expected container tank-a")
	}
	water, ok := n.Registry().Lookup("water")
	if !ok {
		t.Fatal("Expected water type in registry")
	}
	if got := massOf(n, a, water); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected deposited mass 1, got %g", got)
	}
	st, _ := n.ContainerStatus(a)
	if st.Pressure <= 0 {
		t.Errorf("Expected positive pressure after assembly, got %g", st.Pressure)
	}
}

func TestBuildNetworkFromConfig_DefaultsScalarThresholds(t *testing.T) {
	n, err := BuildNetworkFromConfig(validConfig(), NewNoOpLogger())
	if err != nil {
		t.Fatalf("BuildNetworkFromConfig: %v", err)
	}
	if n.Thresholds() != DefaultScalar() {
		t.Errorf("Expected default thresholds, got %+v", n.Thresholds())
	}
}

func TestBuildNetworkFromConfig_CustomScalarThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.Scalar = &ScalarConfig{CreationThreshold: 0.01, DeletionThreshold: 1e-5}

	n, err := BuildNetworkFromConfig(cfg, NewNoOpLogger())
	if err != nil {
		t.Fatalf("BuildNetworkFromConfig: %v", err)
	}
	want := Scalar{CreationThreshold: 0.01, DeletionThreshold: 1e-5}
	if n.Thresholds() != want {
		t.Errorf("Expected thresholds %+v, got %+v", want, n.Thresholds())
	}
}

func TestBuildNetworkFromConfig_NamesUnnamedPipes(t *testing.T) {
	n, err := BuildNetworkFromConfig(validConfig(), NewNoOpLogger())
	if err != nil {
		t.Fatalf("BuildNetworkFromConfig: %v", err)
	}
	n.Step()

	snap := TakeSnapshot(n)
	if len(snap.Pipes) != 1 || snap.Pipes[0].ID != "tank-a~tank-b" {
		t.Errorf("Expected derived pipe name tank-a~tank-b, got %+v", snap.Pipes)
	}
}

func TestBuildNetworkFromConfig_RejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Pipes[0].Alpha = "missing"
	if _, err := BuildNetworkFromConfig(cfg, NewNoOpLogger()); err != nil {
		return
	}
	t.Fatal("Expected validation error")
}

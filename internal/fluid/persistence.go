package fluid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ElementMass is the persisted state of one container element. Volume is
// derived from mass by the phase model, so only the mass is stored.
type ElementMass struct {
	Type string  `json:"type"`
	Mass float64 `json:"mass"`
}

// ContainerSnapshot is the persisted state of one container.
type ContainerSnapshot struct {
	ID          string        `json:"id"`
	MaxVolume   float64       `json:"max_volume"`
	MaxPressure float64       `json:"max_pressure"`
	Exploded    bool          `json:"exploded,omitempty"`
	Elements    []ElementMass `json:"elements,omitempty"`
}

// Snapshot represents a point-in-time capture of a network's state.
type Snapshot struct {
	Network    string              `json:"network"`
	Tick       int64               `json:"tick"`
	Scalar     ScalarConfig        `json:"scalar"`
	Types      []TypeConfig        `json:"types"`
	Containers []ContainerSnapshot `json:"containers"`
	Pipes      []PipeConfig        `json:"pipes,omitempty"`
}

// TakeSnapshot captures the current state of a network.
func TakeSnapshot(n *Network) Snapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.takeSnapshotLocked()
}

func (n *Network) takeSnapshotLocked() Snapshot {
	snap := Snapshot{
		Network: n.name,
		Tick:    n.tick,
		Scalar: ScalarConfig{
			CreationThreshold: n.scalar.CreationThreshold,
			DeletionThreshold: n.scalar.DeletionThreshold,
		},
	}

	for _, def := range n.registry.defs {
		snap.Types = append(snap.Types, TypeConfig{
			Name:                 def.Name,
			Viscosity:            def.Viscosity,
			VacuumSpecificVolume: def.VacuumSpecificVolume,
			CriticalPressure:     def.CriticalPressure,
			SaturationGamma:      def.SaturationGamma,
		})
	}

	n.containers.each(func(_ handle, c *Container) {
		cs := ContainerSnapshot{
			ID:          c.Name,
			MaxVolume:   c.MaxVolume,
			MaxPressure: c.MaxPressure,
			Exploded:    c.exploded,
		}
		for ty, el := range c.elements {
			cs.Elements = append(cs.Elements, ElementMass{
				Type: n.registry.Get(ty).Name,
				Mass: el.Mass,
			})
		}
		sort.Slice(cs.Elements, func(i, j int) bool { return cs.Elements[i].Type < cs.Elements[j].Type })
		snap.Containers = append(snap.Containers, cs)
	})

	n.pipes.each(func(_ handle, p *Pipe) {
		alpha := n.containers.get(p.containers.Alpha.h)
		beta := n.containers.get(p.containers.Beta.h)
		if alpha == nil || beta == nil {
			return
		}
		snap.Pipes = append(snap.Pipes, PipeConfig{
			ID:              p.Name,
			Alpha:           alpha.Name,
			Beta:            beta.Name,
			ShapeResistance: p.ShapeResistance,
		})
	})

	return snap
}

// ValidateSnapshot performs validation checks on a snapshot before restore.
func ValidateSnapshot(snap Snapshot) error {
	if snap.Network == "" {
		return fmt.Errorf("snapshot has no network name")
	}
	if snap.Scalar.CreationThreshold <= 0 || snap.Scalar.DeletionThreshold <= 0 {
		return fmt.Errorf("snapshot has non-positive scalar thresholds")
	}

	typeNames := make(map[string]struct{}, len(snap.Types))
	for i, tc := range snap.Types {
		if tc.Name == "" {
			return fmt.Errorf("type at index %d has empty name", i)
		}
		if _, exists := typeNames[tc.Name]; exists {
			return fmt.Errorf("duplicate type name: %s", tc.Name)
		}
		typeNames[tc.Name] = struct{}{}
	}

	containerIDs := make(map[string]struct{}, len(snap.Containers))
	for i, cs := range snap.Containers {
		if cs.ID == "" {
			return fmt.Errorf("container at index %d has empty id", i)
		}
		if _, exists := containerIDs[cs.ID]; exists {
			return fmt.Errorf("duplicate container id: %s", cs.ID)
		}
		containerIDs[cs.ID] = struct{}{}

		for _, el := range cs.Elements {
			if _, exists := typeNames[el.Type]; !exists {
				return fmt.Errorf("container %s has element of unknown type: %s", cs.ID, el.Type)
			}
			if el.Mass < 0 {
				return fmt.Errorf("container %s has negative mass of type %s", cs.ID, el.Type)
			}
		}
	}

	for _, pc := range snap.Pipes {
		if _, exists := containerIDs[pc.Alpha]; !exists {
			return fmt.Errorf("pipe %s references unknown container: %s", pc.ID, pc.Alpha)
		}
		if _, exists := containerIDs[pc.Beta]; !exists {
			return fmt.Errorf("pipe %s references unknown container: %s", pc.ID, pc.Beta)
		}
	}

	return nil
}

// RestoreNetwork rebuilds a network from a snapshot. Elements are recreated
// directly with their persisted masses, bypassing the creation threshold:
// a small element kept alive by hysteresis must survive a save/load cycle.
func RestoreNetwork(snap Snapshot, logger Logger) (*Network, error) {
	if err := ValidateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	cfg := NetworkConfig{
		Name:       snap.Network,
		Scalar:     &snap.Scalar,
		Types:      snap.Types,
		Containers: make([]ContainerConfig, 0, len(snap.Containers)),
		Pipes:      snap.Pipes,
	}
	for _, cs := range snap.Containers {
		cfg.Containers = append(cfg.Containers, ContainerConfig{
			ID:          cs.ID,
			MaxVolume:   cs.MaxVolume,
			MaxPressure: cs.MaxPressure,
		})
	}

	n, err := BuildNetworkFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot rebuild network: %w", err)
	}

	typesByName := make(map[string]Type, n.registry.Len())
	for ty, def := range n.registry.All() {
		typesByName[def.Name] = ty
	}

	n.mu.Lock()
	for _, cs := range snap.Containers {
		id := n.byName[cs.ID]
		c := n.containers.get(id.h)
		c.exploded = cs.Exploded
		for _, em := range cs.Elements {
			ty := typesByName[em.Type]
			def := n.registry.Get(ty)
			el := &ContainerElement{Mass: em.Mass, Volume: em.Mass * def.VacuumSpecificVolume}
			c.elements[ty] = el
			n.propagateElement(id, c, ty, el)
		}
	}
	n.rebalancePhase()
	n.tick = snap.Tick
	n.mu.Unlock()

	return n, nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
func EncodeSnapshotJSON(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// SnapshotPath returns the file path a network's snapshot is written to.
func SnapshotPath(dir, network string) string {
	return filepath.Join(dir, network+".snapshot.json")
}

// WriteSnapshotFile writes a snapshot to dir as JSON and returns the path.
// The snapshot overwrites any previous snapshot of the same network.
func WriteSnapshotFile(dir string, snap Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create snapshot dir: %w", err)
	}
	data, err := EncodeSnapshotJSON(snap)
	if err != nil {
		return "", err
	}
	path := SnapshotPath(dir, snap.Network)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write snapshot: %w", err)
	}
	return path, nil
}

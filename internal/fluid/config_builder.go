package fluid

import "fmt"

// BuildNetworkFromConfig validates a network config and assembles a ready
// network: registry populated, containers and pipes live, initial deposits
// applied and pressures rebalanced.
func BuildNetworkFromConfig(cfg NetworkConfig, logger Logger) (*Network, error) {
	if err := ValidateNetworkConfig(cfg); err != nil {
		return nil, err
	}

	registry := NewRegistry()
	typesByName := make(map[string]Type, len(cfg.Types))
	for _, tc := range cfg.Types {
		typesByName[tc.Name] = registry.Register(TypeDef{
			Name:                 tc.Name,
			Viscosity:            tc.Viscosity,
			VacuumSpecificVolume: tc.VacuumSpecificVolume,
			CriticalPressure:     tc.CriticalPressure,
			SaturationGamma:      tc.SaturationGamma,
		})
	}

	scalar := DefaultScalar()
	if cfg.Scalar != nil {
		scalar = Scalar{
			CreationThreshold: cfg.Scalar.CreationThreshold,
			DeletionThreshold: cfg.Scalar.DeletionThreshold,
		}
	}

	n := NewNetwork(cfg.Name, registry, scalar)
	n.SetLogger(logger)

	containersByID := make(map[string]ContainerID, len(cfg.Containers))
	for _, cc := range cfg.Containers {
		id, err := n.CreateContainer(cc.ID, cc.MaxVolume, cc.MaxPressure)
		if err != nil {
			return nil, fmt.Errorf("cannot create container %s: %w", cc.ID, err)
		}
		containersByID[cc.ID] = id
	}

	for _, pc := range cfg.Pipes {
		name := pc.ID
		if name == "" {
			name = pc.Alpha + "~" + pc.Beta
		}
		if _, err := n.CreatePipe(name, containersByID[pc.Alpha], containersByID[pc.Beta], pc.ShapeResistance); err != nil {
			return nil, fmt.Errorf("cannot create pipe %s: %w", name, err)
		}
	}

	for _, dc := range cfg.Deposits {
		if err := n.Deposit(containersByID[dc.Container], typesByName[dc.Type], dc.Mass); err != nil {
			return nil, fmt.Errorf("cannot deposit into %s: %w", dc.Container, err)
		}
	}

	n.Flush()
	return n, nil
}

package fluid

// Scalar holds the engine-wide scalar configuration.
type Scalar struct {
	// CreationThreshold: transferring fluid less than this amount does not
	// trigger container element creation.
	CreationThreshold float64

	// DeletionThreshold: remaining fluid less than this amount triggers
	// container element deletion. Stricter than the creation threshold so
	// elements do not oscillate at the boundary.
	DeletionThreshold float64
}

// DefaultScalar returns the default threshold configuration.
func DefaultScalar() Scalar {
	return Scalar{
		CreationThreshold: 1e-3,
		DeletionThreshold: 1e-6,
	}
}

// ScalarConfig is the persisted form of Scalar.
type ScalarConfig struct {
	CreationThreshold float64 `json:"creation_threshold"`
	DeletionThreshold float64 `json:"deletion_threshold"`
}

type TypeConfig struct {
	Name                 string  `json:"name"`
	Viscosity            float64 `json:"viscosity"`
	VacuumSpecificVolume float64 `json:"vacuum_specific_volume"`
	CriticalPressure     float64 `json:"critical_pressure"`
	SaturationGamma      float64 `json:"saturation_gamma"`
}

type ContainerConfig struct {
	ID          string  `json:"id"`
	MaxVolume   float64 `json:"max_volume"`
	MaxPressure float64 `json:"max_pressure"`
}

type PipeConfig struct {
	ID              string  `json:"id,omitempty"`
	Alpha           string  `json:"alpha"`
	Beta            string  `json:"beta"`
	ShapeResistance float64 `json:"shape_resistance"`
}

type DepositConfig struct {
	Container string  `json:"container"`
	Type      string  `json:"type"`
	Mass      float64 `json:"mass"`
}

// NetworkConfig is the JSON definition of a fluid network: fluid types,
// containers, pipes, initial deposits and scalar thresholds.
type NetworkConfig struct {
	Name       string            `json:"name"`
	Scalar     *ScalarConfig     `json:"scalar,omitempty"`
	Types      []TypeConfig      `json:"types"`
	Containers []ContainerConfig `json:"containers"`
	Pipes      []PipeConfig      `json:"pipes,omitempty"`
	Deposits   []DepositConfig   `json:"deposits,omitempty"`
}

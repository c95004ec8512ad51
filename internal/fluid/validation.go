package fluid

import (
	"fmt"
	"strings"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid network config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "network config validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateNetworkConfig performs comprehensive validation of a NetworkConfig.
// This is the recoverable-error boundary: a config that passes here never
// produces partially-invalid engine state.
func ValidateNetworkConfig(cfg NetworkConfig) error {
	err := &ValidationError{}

	if cfg.Name == "" {
		err.Add("network name is required")
	}

	if cfg.Scalar != nil {
		if cfg.Scalar.CreationThreshold <= 0 {
			err.Add("scalar: creation threshold must be positive")
		}
		if cfg.Scalar.DeletionThreshold <= 0 {
			err.Add("scalar: deletion threshold must be positive")
		}
		if cfg.Scalar.DeletionThreshold >= cfg.Scalar.CreationThreshold {
			err.Add("scalar: deletion threshold must be stricter than creation threshold")
		}
	}

	typeNames := make(map[string]bool)
	for i, tc := range cfg.Types {
		prefix := "type"
		if tc.Name != "" {
			prefix = "type '" + tc.Name + "'"
		} else {
			prefix = fmt.Sprintf("type at index %d", i)
		}

		if tc.Name == "" {
			err.Add(prefix + ": name is required")
		} else if typeNames[tc.Name] {
			err.Add("duplicate type name: " + tc.Name)
		} else {
			typeNames[tc.Name] = true
		}

		if tc.Viscosity <= 0 {
			err.Add(prefix + ": viscosity must be positive")
		}
		if tc.VacuumSpecificVolume <= 0 {
			err.Add(prefix + ": vacuum specific volume must be positive")
		}
		if tc.CriticalPressure <= 0 {
			err.Add(prefix + ": critical pressure must be positive")
		}
		if tc.SaturationGamma < 0 {
			err.Add(prefix + ": saturation gamma must not be negative")
		}
	}

	containerIDs := make(map[string]bool)
	for i, cc := range cfg.Containers {
		prefix := "container"
		if cc.ID != "" {
			prefix = "container '" + cc.ID + "'"
		} else {
			prefix = fmt.Sprintf("container at index %d", i)
		}

		if cc.ID == "" {
			err.Add(prefix + ": id is required")
		} else if containerIDs[cc.ID] {
			err.Add("duplicate container id: " + cc.ID)
		} else {
			containerIDs[cc.ID] = true
		}

		if cc.MaxVolume <= 0 {
			err.Add(prefix + ": max volume must be positive")
		}
		if cc.MaxPressure <= 0 {
			err.Add(prefix + ": max pressure must be positive")
		}
	}

	pipeIDs := make(map[string]bool)
	for i, pc := range cfg.Pipes {
		prefix := "pipe"
		if pc.ID != "" {
			prefix = "pipe '" + pc.ID + "'"
		} else {
			prefix = fmt.Sprintf("pipe at index %d", i)
		}

		if pc.ID != "" {
			if pipeIDs[pc.ID] {
				err.Add("duplicate pipe id: " + pc.ID)
			} else {
				pipeIDs[pc.ID] = true
			}
		}

		if pc.Alpha == "" || pc.Beta == "" {
			err.Add(prefix + ": alpha and beta containers are required")
		} else {
			if !containerIDs[pc.Alpha] {
				err.Add(prefix + ": alpha container '" + pc.Alpha + "' does not exist")
			}
			if !containerIDs[pc.Beta] {
				err.Add(prefix + ": beta container '" + pc.Beta + "' does not exist")
			}
			if pc.Alpha == pc.Beta {
				err.Add(prefix + ": endpoints must be distinct containers")
			}
		}

		if pc.ShapeResistance <= 0 {
			err.Add(prefix + ": shape resistance must be positive")
		}
	}

	for i, dc := range cfg.Deposits {
		prefix := fmt.Sprintf("deposit at index %d", i)

		if dc.Container == "" {
			err.Add(prefix + ": container is required")
		} else if !containerIDs[dc.Container] {
			err.Add(prefix + ": container '" + dc.Container + "' does not exist")
		}

		if dc.Type == "" {
			err.Add(prefix + ": type is required")
		} else if !typeNames[dc.Type] {
			err.Add(prefix + ": type '" + dc.Type + "' does not exist")
		}

		if dc.Mass <= 0 {
			err.Add(prefix + ": mass must be positive")
		}
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

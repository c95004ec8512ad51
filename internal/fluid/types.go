package fluid

import (
	"fmt"
	"iter"
)

// Type identifies a registered fluid type. Handles are dense indices into
// the registry; they are never reused or invalidated.
type Type int

// TypeDef defines the physical constants of a fluid type.
// Definitions are immutable once registered.
type TypeDef struct {
	Name string

	// Viscosity is inversely proportional to flow rate.
	Viscosity float64

	// VacuumSpecificVolume is the volume of 1.0 mass of the fluid at vacuum.
	// This value makes no sense in realistic physics, but is used as a
	// baseline to estimate fluid pressure based on volume.
	VacuumSpecificVolume float64

	// CriticalPressure is the pressure above which the fluid exhibits
	// saturation phase properties.
	CriticalPressure float64

	// SaturationGamma is the amplification coefficient for saturated fluids.
	SaturationGamma float64
}

// Registry stores all known fluid types. It is append-only for the lifetime
// of a simulation.
type Registry struct {
	defs []TypeDef
}

// NewRegistry creates an empty fluid type registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a new fluid type definition and returns its handle.
func (r *Registry) Register(def TypeDef) Type {
	r.defs = append(r.defs, def)
	return Type(len(r.defs) - 1)
}

// Get returns the definition of a fluid type.
/// It panics if the handle was never registered: handles are never fabricated
// externally, so an unknown handle is a bug, not bad input.
func (r *Registry) Get(ty Type) TypeDef {
	if ty < 0 || int(ty) >= len(r.defs) {
		panic(fmt.Sprintf("fluid: reference to unknown fluid type %d", ty))
	}
	return r.defs[ty]
}

// Lookup resolves a fluid type by name. Linear scan; registries hold at
// most a few dozen types.
func (r *Registry) Lookup(name string) (Type, bool) {
	for i, def := range r.defs {
		if def.Name == name {
			return Type(i), true
		}
	}
	return 0, false
}

// Len returns the number of registered fluid types.
func (r *Registry) Len() int {
	return len(r.defs)
}

// All iterates over all fluid types in registration order.
func (r *Registry) All() iter.Seq2[Type, TypeDef] {
	return func(yield func(Type, TypeDef) bool) {
		for i, def := range r.defs {
			if !yield(Type(i), def) {
				return
			}
		}
	}
}

package fluid

import "fmt"

// volumePerPressureDelta converts a pressure difference between two
// containers into a volumetric driving force.
const volumePerPressureDelta = 1.0

// Pipe is an edge between exactly two containers. It carries one lazily
// created element per fluid type currently transferable across it.
type Pipe struct {
	Name string

	// ShapeResistance is determined by the pipe's geometry at construction
	// (corridor length, corridor radius, pipe radius). It never changes
	// afterwards.
	ShapeResistance float64

	containers Binary[ContainerID]
	active     bool

	// static is the sum of all infrequently-changing resistance sources.
	// Currently only shape contributes.
	static float64

	// dynamic is the resistance used for this tick's flow: static plus the
	// occupant viscosity contribution, recomputed every tick.
	dynamic float64

	// force holds the directed volumetric flow budget for this tick.
	// force.Alpha is alpha to beta, force.Beta is beta to alpha; after
	// clamping at most one is non-zero.
	force Binary[float64]

	elements map[Type]*PipeElement

	plan []plannedTransfer
}

// PipeElement is the per-(pipe, fluid type) transfer state.
type PipeElement struct {
	// weight is the base flow-rate coefficient per direction, used to
	// apportion the pipe's flow budget among types sharing the pipe.
	// weight.Alpha weighs the alpha-to-beta output.
	weight Binary[float64]

	// netTransfer accumulates the signed alpha-to-beta mass moved during the
	// current tick. Reset at the start of each transfer phase.
	netTransfer float64

	// bound references the container elements at each endpoint. An unset
	// side means the fluid has not spread into that container yet; the
	// element is only created when it does, so fluids never propagate to the
	// entire network at once. Both sides unset is invalid.
	bound Binary[*ContainerElement]
}

type plannedTransfer struct {
	ty   Type
	from Endpoint
	mass float64
}

func newPipe(name string, containers Binary[ContainerID], shapeResistance float64) Pipe {
	return Pipe{
		Name:            name,
		ShapeResistance: shapeResistance,
		containers:      containers,
		static:          shapeResistance,
		elements:        make(map[Type]*PipeElement),
	}
}

// Containers returns the container handles at both endpoints.
func (p *Pipe) Containers() Binary[ContainerID] {
	return p.containers
}

// endpointOf returns which endpoint of the pipe the container sits at.
func (p *Pipe) endpointOf(id ContainerID) (Endpoint, bool) {
	switch id {
	case p.containers.Alpha:
		return Alpha, true
	case p.containers.Beta:
		return Beta, true
	}
	return 0, false
}

// mustEndpointOf is endpointOf for adjacency-derived lookups, where a miss
// means the adjacency lists are corrupt.
func (p *Pipe) mustEndpointOf(id ContainerID) Endpoint {
	e, ok := p.endpointOf(id)
	if !ok {
		panic(fmt.Sprintf("fluid: pipe %q does not connect container %v", p.Name, id))
	}
	return e
}

func (el *PipeElement) checkBound() {
	if el.bound.Alpha == nil && el.bound.Beta == nil {
		panic("fluid: pipe element with both endpoints unbound")
	}
}

// recomputeResistance refreshes the dynamic resistance and the per-element
// transfer weights for this tick.
//
// Resistance aggregates the static (shape) sum with the volume-weighted mean
// viscosity of the fluids currently bound on the pipe; thicker occupants slow
// the whole pipe down. The transfer weight of an element in a direction is
// the source-side element volume divided by the fluid's viscosity, zero when
// the source side is unbound.
func (p *Pipe) recomputeResistance(reg *Registry) {
	var weightedViscosity, boundVolume float64

	for ty, el := range p.elements {
		el.checkBound()
		def := reg.Get(ty)

		for _, e := range endpoints {
			src := el.bound.Get(e)
			if src == nil {
				el.weight.Set(e, 0)
				continue
			}
			el.weight.Set(e, src.Volume/def.Viscosity)
			weightedViscosity += def.Viscosity * src.Volume
			boundVolume += src.Volume
		}
	}

	p.dynamic = p.static
	if boundVolume > 0 {
		p.dynamic += weightedViscosity / boundVolume
	}
}

// computeForce derives the directed force from the container-level pressure
// difference. This is a pipe-wide quantity: pressure belongs to the whole
// container, not to a single fluid type.
func (p *Pipe) computeForce(alphaPressure, betaPressure float64) {
	ab := (alphaPressure - betaPressure) * volumePerPressureDelta
	p.force.Alpha = ab
	p.force.Beta = -ab
}

// applyResistance clamps each direction's force to be non-negative and
// divides it by the dynamic resistance, yielding the volumetric flow budget
// per direction. A pipe cannot pull fluid against its own gradient; the
// opposite direction's force already covers the reverse case.
func (p *Pipe) applyResistance() {
	for _, e := range endpoints {
		f := p.force.At(e)
		*f = max(*f, 0) / p.dynamic
	}
}

// planTransfers computes the mass each element would move this tick, reading
// current masses only. The actual mutation happens in the sequential apply
// pass, which re-clamps against mass other pipes have taken in the meantime.
func (p *Pipe) planTransfers(reg *Registry) {
	p.plan = p.plan[:0]

	for _, el := range p.elements {
		el.netTransfer = 0
	}

	for _, e := range endpoints {
		budget := p.force.Get(e)
		if budget <= 0 {
			continue
		}

		totalWeight := 0.0
		for _, el := range p.elements {
			totalWeight += el.weight.Get(e)
		}
		if totalWeight <= 0 {
			continue
		}

		for ty, el := range p.elements {
			weight := el.weight.Get(e)
			src := el.bound.Get(e)
			if weight <= 0 || src == nil || src.Mass <= 0 {
				continue
			}

			density := sourceDensity(src, reg.Get(ty))
			share := weight / totalWeight
			mass := min(src.Mass, share*budget*density)
			if mass <= 0 {
				continue
			}

			p.plan = append(p.plan, plannedTransfer{ty: ty, from: e, mass: mass})
		}
	}
}

// sourceDensity is the density used to convert volumetric flow into mass.
// Falls back to the vacuum density when the element volume is degenerate.
func sourceDensity(el *ContainerElement, def TypeDef) float64 {
	if el.Volume > 0 {
		return el.Mass / el.Volume
	}
	return 1 / def.VacuumSpecificVolume
}

package fluid

// Container is a capacity-bounded node of the fluid network. It holds one
// lazily-created element per fluid type currently present, and derives its
// pressure from the total occupied volume every tick.
type Container struct {
	Name        string
	MaxVolume   float64
	MaxPressure float64

	pressure float64
	occupied float64
	exploded bool
	active   bool

	// elements is sparse: only fluid types actually present in the container
	// have an entry. Entries never sit at zero mass for more than one tick.
	elements map[Type]*ContainerElement

	// pipes lists the pipes incident to this container.
	pipes []PipeID
}

// ContainerElement is the per-(container, fluid type) state. Volume is
// derived from mass by the phase model during rebalance; mass is the ground
// truth.
type ContainerElement struct {
	Mass   float64
	Volume float64
}

func newContainer(name string, maxVolume, maxPressure float64) Container {
	return Container{
		Name:        name,
		MaxVolume:   maxVolume,
		MaxPressure: maxPressure,
		elements:    make(map[Type]*ContainerElement),
	}
}

// Pressure returns the pressure derived by the last rebalance.
func (c *Container) Pressure() float64 {
	return c.pressure
}

// OccupiedVolume returns the total volume occupied by fluids after the last
// rebalance. MaxVolume minus this value is vacuum.
func (c *Container) OccupiedVolume() float64 {
	return c.occupied
}

// Exploded reports whether the container's pressure exceeded MaxPressure for
// two consecutive ticks while still rising.
func (c *Container) Exploded() bool {
	return c.exploded
}

func (c *Container) element(ty Type) (*ContainerElement, bool) {
	el, ok := c.elements[ty]
	return el, ok
}

func (c *Container) removePipe(id PipeID) {
	for i, pid := range c.pipes {
		if pid == id {
			c.pipes = append(c.pipes[:i], c.pipes[i+1:]...)
			return
		}
	}
}

// rebalance recomputes element volumes and the container pressure from the
// masses left by the transfer phase.
//
// Every element first gets its vacuum volume (mass times vacuum specific
// volume). While the sum stays within MaxVolume the container is in vacuum
// phase and pressure grows linearly with occupied volume. Past that point the
// element volumes are compressed proportionally to fit MaxVolume, and each
// fluid pushed beyond its critical pressure contributes an additional
// saturation term scaled by its gamma.
func (c *Container) rebalance(reg *Registry) {
	previous := c.pressure

	totalVacuum := 0.0
	for ty, el := range c.elements {
		def := reg.Get(ty)
		el.Volume = el.Mass * def.VacuumSpecificVolume
		totalVacuum += el.Volume
	}

	base := totalVacuum / c.MaxVolume
	c.pressure = base

	if base <= 1 {
		// vacuum phase
		c.occupied = totalVacuum
		return
	}

	c.occupied = c.MaxVolume

	saturated := base
	for ty, el := range c.elements {
		def := reg.Get(ty)

		// scale volumes proportionally to add up to MaxVolume
		el.Volume /= base

		if base > def.CriticalPressure {
			additional := (base - def.CriticalPressure) * el.Volume / c.MaxVolume
			saturated += additional * def.SaturationGamma
		}
	}
	c.pressure = saturated

	if saturated > previous && previous > c.MaxPressure {
		c.exploded = true
	}
}

package fluid

// Structural mutation is expressed as a plain queue of tagged commands,
// applied in submission order when a tick boundary drains the queue. This
// keeps the numeric phases free of collection resizes.

type commandKind uint8

const (
	commandCreateContainer commandKind = iota
	commandCreatePipe
	commandRemoveContainer
	commandRemovePipe
	commandDeposit
)

type command struct {
	kind      commandKind
	container ContainerID
	pipe      PipeID
	ty        Type
	mass      float64
}

// pendingDeposit carries mass that crossed a pipe into a container that does
// not track the fluid type yet. Applied in the element lifecycle phase.
type pendingDeposit struct {
	container ContainerID
	ty        Type
	mass      float64
}

// drainCommands applies all queued structural commands in submission order.
// Callers must hold the write lock.
func (n *Network) drainCommands() {
	cmds := n.commands
	n.commands = nil

	for _, cmd := range cmds {
		switch cmd.kind {
		case commandCreateContainer:
			n.applyCreateContainer(cmd.container)
		case commandCreatePipe:
			n.applyCreatePipe(cmd.pipe)
		case commandRemoveContainer:
			n.applyRemoveContainer(cmd.container)
		case commandRemovePipe:
			n.applyRemovePipe(cmd.pipe)
		case commandDeposit:
			n.depositNow(cmd.container, cmd.ty, cmd.mass)
		}
	}
}

func (n *Network) applyCreateContainer(id ContainerID) {
	c := n.containers.get(id.h)
	if c == nil {
		n.logger.Warnf("create container: handle already removed")
		return
	}
	c.active = true
	n.logger.Debugf("container created: name=%s max_volume=%g max_pressure=%g", c.Name, c.MaxVolume, c.MaxPressure)
}

// applyCreatePipe links a queued pipe into the adjacency lists of its
// endpoints and seeds a pipe element for every fluid type either endpoint
// already holds. Seeding keeps the invariant that an unbound pipe-element
// endpoint means the fluid has not reached that container.
func (n *Network) applyCreatePipe(id PipeID) {
	p := n.pipes.get(id.h)
	if p == nil {
		n.logger.Warnf("create pipe: handle already removed")
		return
	}

	ends := Binary[*Container]{
		Alpha: n.containers.get(p.containers.Alpha.h),
		Beta:  n.containers.get(p.containers.Beta.h),
	}
	if ends.Alpha == nil || ends.Beta == nil {
		n.logger.Warnf("create pipe %s: an endpoint container was removed before the pipe was applied", p.Name)
		n.pipes.release(id.h)
		return
	}

	for _, e := range endpoints {
		c := ends.Get(e)
		c.pipes = append(c.pipes, id)
		for ty, el := range c.elements {
			bindPipeElement(p, e, ty, el)
		}
	}
	p.active = true
	n.logger.Debugf("pipe created: name=%s alpha=%s beta=%s resistance=%g",
		p.Name, ends.Alpha.Name, ends.Beta.Name, p.ShapeResistance)
}

func (n *Network) applyRemoveContainer(id ContainerID) {
	c := n.containers.get(id.h)
	if c == nil {
		n.logger.Warnf("remove container: handle already removed")
		return
	}

	// A pipe needs two live containers, so incident pipes go first.
	for _, pid := range append([]PipeID(nil), c.pipes...) {
		n.applyRemovePipe(pid)
	}

	delete(n.byName, c.Name)
	n.logger.Debugf("container removed: name=%s", c.Name)
	n.containers.release(id.h)
}

func (n *Network) applyRemovePipe(id PipeID) {
	p := n.pipes.get(id.h)
	if p == nil {
		n.logger.Warnf("remove pipe: handle already removed")
		return
	}

	for _, e := range endpoints {
		if c := n.containers.get(p.containers.Get(e).h); c != nil {
			c.removePipe(id)
		}
	}
	n.logger.Debugf("pipe removed: name=%s", p.Name)
	n.pipes.release(id.h)
}

// depositNow adds mass of a fluid type to a container, creating the element
// if needed. Deposits below the creation threshold into a container without
// the element are dropped instead of accumulating long-lived near-empty
// elements.
func (n *Network) depositNow(id ContainerID, ty Type, mass float64) {
	c := n.containers.get(id.h)
	if c == nil {
		n.logger.Warnf("deposit: container was removed before the deposit was applied")
		return
	}

	def := n.registry.Get(ty)

	if el, ok := c.elements[ty]; ok {
		el.Mass += mass
		el.Volume += mass * def.VacuumSpecificVolume
		return
	}

	if mass <= n.scalar.CreationThreshold {
		n.logger.Debugf("deposit dropped below creation threshold: container=%s type=%s mass=%g",
			c.Name, def.Name, mass)
		return
	}

	el := &ContainerElement{Mass: mass, Volume: mass * def.VacuumSpecificVolume}
	c.elements[ty] = el
	n.propagateElement(id, c, ty, el)
	n.logger.Debugf("container element created: container=%s type=%s mass=%g", c.Name, def.Name, mass)
}

// propagateElement runs once per newly-created container element: every pipe
// incident to the container gets its matching pipe element bound, or a fresh
// one created with only this endpoint set. The opposite endpoint stays unset
// until the fluid spreads that far, so a new fluid type becomes transferable
// pipe by pipe instead of populating the whole network at once.
func (n *Network) propagateElement(id ContainerID, c *Container, ty Type, el *ContainerElement) {
	for _, pid := range c.pipes {
		p := n.pipes.get(pid.h)
		if p == nil {
			panic("fluid: container adjacency references a removed pipe")
		}
		bindPipeElement(p, p.mustEndpointOf(id), ty, el)
	}
}

func bindPipeElement(p *Pipe, e Endpoint, ty Type, el *ContainerElement) {
	if pe, ok := p.elements[ty]; ok {
		pe.bound.Set(e, el)
		return
	}
	pe := &PipeElement{}
	pe.bound.Set(e, el)
	p.elements[ty] = pe
}

// deleteElement removes a container element and unbinds it from every
// incident pipe. Pipe elements left with both endpoints unbound are deleted
// as well.
func (n *Network) deleteElement(id ContainerID, c *Container, ty Type) {
	delete(c.elements, ty)
	for _, pid := range c.pipes {
		p := n.pipes.get(pid.h)
		if p == nil {
			panic("fluid: container adjacency references a removed pipe")
		}
		pe, ok := p.elements[ty]
		if !ok {
			continue
		}
		pe.bound.Set(p.mustEndpointOf(id), nil)
		if pe.bound.Alpha == nil && pe.bound.Beta == nil {
			delete(p.elements, ty)
		}
	}
}

package fluid

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Network is a fluid transport graph: containers linked by pipes, advanced in
// discrete ticks. Structural changes (containers, pipes, deposits) are
// deferred commands applied at the next tick boundary, never interleaved with
// the numeric phases.
type Network struct {
	mu       sync.RWMutex
	name     string
	registry *Registry
	scalar   Scalar

	containers arena[Container]
	pipes      arena[Pipe]
	byName     map[string]ContainerID

	commands        []command
	pendingDeposits []pendingDeposit

	tick    int64
	workers int
	logger  Logger

	notifier    *NotificationManager
	notifierIDs []string

	snapshotDir        string
	snapshotEveryTicks int

	stopCh    chan struct{}
	isRunning bool
}

// NewNetwork creates an empty network over the given type registry.
// The registry must outlive the network and stay append-only.
func NewNetwork(name string, registry *Registry, scalar Scalar) *Network {
	return &Network{
		name:     name,
		registry: registry,
		scalar:   scalar,
		byName:   make(map[string]ContainerID),
		workers:  runtime.GOMAXPROCS(0),
		logger:   NewNoOpLogger(),
	}
}

// Name returns the network name.
func (n *Network) Name() string {
	return n.name
}

// Registry returns the fluid type registry backing this network.
func (n *Network) Registry() *Registry {
	return n.registry
}

// Tick returns the number of completed simulation ticks.
func (n *Network) Tick() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.tick
}

// Thresholds returns the scalar threshold configuration.
func (n *Network) Thresholds() Scalar {
	return n.scalar
}

// SetLogger injects a logger. The default discards everything.
func (n *Network) SetLogger(logger Logger) {
	if logger != nil {
		n.logger = logger
	}
}

// SetNotificationManager wires the network to a notification manager.
// After every tick an event is enqueued for the given notifier IDs.
// With no IDs the event goes to every notifier registered on the manager.
func (n *Network) SetNotificationManager(mgr *NotificationManager, notifierIDs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifier = mgr
	n.notifierIDs = notifierIDs
}

// SetSnapshotDir sets the directory periodic snapshots are written to.
// Empty disables snapshot writing.
func (n *Network) SetSnapshotDir(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshotDir = dir
}

// SetSnapshotEveryNTicks sets how often periodic snapshots are written.
// Zero or negative disables them.
func (n *Network) SetSnapshotEveryNTicks(ticks int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshotEveryTicks = ticks
}

// CreateContainer queues creation of a container and returns its handle.
// The container participates in the simulation after the next tick boundary.
func (n *Network) CreateContainer(name string, maxVolume, maxPressure float64) (ContainerID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if name == "" {
		return ContainerID{}, fmt.Errorf("container name is required")
	}
	if _, exists := n.byName[name]; exists {
		return ContainerID{}, fmt.Errorf("container with name %s already exists", name)
	}
	if maxVolume <= 0 {
		return ContainerID{}, fmt.Errorf("container %s: max volume must be positive", name)
	}
	if maxPressure <= 0 {
		return ContainerID{}, fmt.Errorf("container %s: max pressure must be positive", name)
	}

	id := ContainerID{h: n.containers.alloc(newContainer(name, maxVolume, maxPressure))}
	n.byName[name] = id
	n.commands = append(n.commands, command{kind: commandCreateContainer, container: id})
	return id, nil
}

// CreatePipe queues creation of a pipe between two containers and returns its
// handle. Like containers, the pipe becomes live at the next tick boundary.
func (n *Network) CreatePipe(name string, alpha, beta ContainerID, shapeResistance float64) (PipeID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if alpha == beta {
		return PipeID{}, fmt.Errorf("pipe %s: endpoints must be distinct containers", name)
	}
	if n.containers.get(alpha.h) == nil || n.containers.get(beta.h) == nil {
		return PipeID{}, fmt.Errorf("pipe %s: both endpoints must reference existing containers", name)
	}
	if shapeResistance <= 0 {
		return PipeID{}, fmt.Errorf("pipe %s: shape resistance must be positive", name)
	}

	id := PipeID{h: n.pipes.alloc(newPipe(name, Binary[ContainerID]{Alpha: alpha, Beta: beta}, shapeResistance))}
	n.commands = append(n.commands, command{kind: commandCreatePipe, pipe: id})
	return id, nil
}

// RemoveContainer queues destruction of a container, its elements and all
// incident pipes.
func (n *Network) RemoveContainer(id ContainerID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.containers.get(id.h) == nil {
		return fmt.Errorf("container does not exist")
	}
	n.commands = append(n.commands, command{kind: commandRemoveContainer, container: id})
	return nil
}

// RemovePipe queues destruction of a pipe and its transfer elements.
// Container elements at the endpoints are unaffected.
func (n *Network) RemovePipe(id PipeID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pipes.get(id.h) == nil {
		return fmt.Errorf("pipe does not exist")
	}
	n.commands = append(n.commands, command{kind: commandRemovePipe, pipe: id})
	return nil
}

// Deposit queues insertion of fluid mass into a container. This is the entry
// point that triggers lazy element creation once applied.
func (n *Network) Deposit(id ContainerID, ty Type, mass float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.registry.Get(ty) // unknown handle is a programming error
	if mass <= 0 {
		return fmt.Errorf("deposit mass must be positive")
	}
	if n.containers.get(id.h) == nil {
		return fmt.Errorf("container does not exist")
	}
	n.commands = append(n.commands, command{kind: commandDeposit, container: id, ty: ty, mass: mass})
	return nil
}

// ContainerByName resolves a container handle by its name.
func (n *Network) ContainerByName(name string) (ContainerID, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	id, ok := n.byName[name]
	return id, ok
}

// ContainerCount returns the number of containers, including ones still
// pending activation.
func (n *Network) ContainerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.containers.count()
}

// PipeCount returns the number of pipes, including ones pending activation.
func (n *Network) PipeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pipes.count()
}

// ElementLevel is the observable per-type fill state of a container.
type ElementLevel struct {
	Type   string  `json:"type"`
	Mass   float64 `json:"mass"`
	Volume float64 `json:"volume"`
}

// ContainerStatus is a read-only snapshot of one container.
type ContainerStatus struct {
	Name           string         `json:"name"`
	Pressure       float64        `json:"pressure"`
	OccupiedVolume float64        `json:"occupied_volume"`
	MaxVolume      float64        `json:"max_volume"`
	MaxPressure    float64        `json:"max_pressure"`
	Exploded       bool           `json:"exploded,omitempty"`
	Elements       []ElementLevel `json:"elements"`
}

// ForEachContainerElement calls fn with the mass and volume of every element
// in the container, in stable fluid-type order. It reports whether the
// container exists.
func (n *Network) ForEachContainerElement(id ContainerID, fn func(ty Type, mass, volume float64)) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	c := n.containers.get(id.h)
	if c == nil {
		return false
	}
	types := make([]Type, 0, len(c.elements))
	for ty := range c.elements {
		types = append(types, ty)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, ty := range types {
		el := c.elements[ty]
		fn(ty, el.Mass, el.Volume)
	}
	return true
}

// ContainerStatus returns a read-only snapshot of one container.
func (n *Network) ContainerStatus(id ContainerID) (ContainerStatus, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	c := n.containers.get(id.h)
	if c == nil {
		return ContainerStatus{}, false
	}
	return n.statusLocked(c), true
}

// EachContainer calls fn with a read-only snapshot of every live container in
// stable order.
func (n *Network) EachContainer(fn func(ContainerID, ContainerStatus)) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	n.containers.each(func(h handle, c *Container) {
		if !c.active {
			return
		}
		fn(ContainerID{h: h}, n.statusLocked(c))
	})
}

// statusLocked builds a container status. Callers must hold at least a read
// lock.
func (n *Network) statusLocked(c *Container) ContainerStatus {
	status := ContainerStatus{
		Name:           c.Name,
		Pressure:       c.pressure,
		OccupiedVolume: c.occupied,
		MaxVolume:      c.MaxVolume,
		MaxPressure:    c.MaxPressure,
		Exploded:       c.exploded,
		Elements:       make([]ElementLevel, 0, len(c.elements)),
	}
	for ty, el := range c.elements {
		status.Elements = append(status.Elements, ElementLevel{
			Type:   n.registry.Get(ty).Name,
			Mass:   el.Mass,
			Volume: el.Volume,
		})
	}
	sort.Slice(status.Elements, func(i, j int) bool {
		return status.Elements[i].Type < status.Elements[j].Type
	})
	return status
}

// Run starts the network in a goroutine with its own ticker. It can be
// called again after Stop.
func (n *Network) Run(interval time.Duration) {
	n.mu.Lock()
	if n.isRunning {
		n.mu.Unlock()
		return
	}
	n.stopCh = make(chan struct{})
	n.isRunning = true
	stopCh := n.stopCh
	n.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n.Step()
			case <-stopCh:
				n.mu.Lock()
				n.isRunning = false
				n.mu.Unlock()
				return
			}
		}
	}()
}

// Stop stops a running network. Run can be called again afterwards.
func (n *Network) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.isRunning {
		return
	}
	close(n.stopCh)
}

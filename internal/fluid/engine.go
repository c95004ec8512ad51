package fluid

import (
	"sync"
	"time"
)

// Step advances the simulation by one tick. Phases run in strict order:
// drain deferred commands, recompute resistance, compute force, clamp and
// scale by resistance, plan and apply mass transfers, element lifecycle,
// pressure rebalance. Each phase finishes across the whole graph before the
// next one reads its output.
func (n *Network) Step() {
	n.mu.Lock()

	n.drainCommands()
	n.resistancePhase()
	n.forcePhase()
	n.scalePhase()
	n.planPhase()
	n.applyPhase()
	n.lifecyclePhase()
	n.rebalancePhase()
	n.tick++

	var event *TickEvent
	var notifier *NotificationManager
	var notifierIDs []string
	if n.notifier != nil {
		ev := n.buildTickEventLocked()
		event = &ev
		notifier = n.notifier
		notifierIDs = n.notifierIDs
	}

	var snap *Snapshot
	if n.snapshotDir != "" && n.snapshotEveryTicks > 0 && n.tick%int64(n.snapshotEveryTicks) == 0 {
		s := n.takeSnapshotLocked()
		snap = &s
	}
	snapshotDir := n.snapshotDir

	n.mu.Unlock()

	if event != nil {
		notifier.Enqueue(*event, notifierIDs)
	}
	if snap != nil {
		if path, err := WriteSnapshotFile(snapshotDir, *snap); err != nil {
			n.logger.Errorf("periodic snapshot failed: network=%s tick=%d error=%v", n.name, snap.Tick, err)
		} else {
			n.logger.Debugf("periodic snapshot written: network=%s path=%s", n.name, path)
		}
	}
}

// Flush applies pending structural commands and rebalances pressures without
// advancing the simulation. Used when assembling a network so the first Step
// starts from consistent pressures.
func (n *Network) Flush() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drainCommands()
	n.rebalancePhase()
}

func (n *Network) resistancePhase() {
	n.parallel(len(n.pipes.slots), func(start, end int) {
		n.pipes.eachRange(start, end, func(_ handle, p *Pipe) {
			if p.active {
				p.recomputeResistance(n.registry)
			}
		})
	})
}

func (n *Network) forcePhase() {
	n.parallel(len(n.pipes.slots), func(start, end int) {
		n.pipes.eachRange(start, end, func(_ handle, p *Pipe) {
			if !p.active {
				return
			}
			alpha := n.containers.get(p.containers.Alpha.h)
			beta := n.containers.get(p.containers.Beta.h)
			if alpha == nil || beta == nil {
				panic("fluid: pipe endpoints must reference live containers")
			}
			p.computeForce(alpha.pressure, beta.pressure)
		})
	})
}

func (n *Network) scalePhase() {
	n.parallel(len(n.pipes.slots), func(start, end int) {
		n.pipes.eachRange(start, end, func(_ handle, p *Pipe) {
			if p.active {
				p.applyResistance()
			}
		})
	})
}

func (n *Network) planPhase() {
	n.parallel(len(n.pipes.slots), func(start, end int) {
		n.pipes.eachRange(start, end, func(_ handle, p *Pipe) {
			if p.active {
				p.planTransfers(n.registry)
			}
		})
	})
}

// applyPhase executes the planned transfers sequentially in pipe order.
// Several pipes can drain the same container element within one tick, so
// every planned amount is re-clamped against the mass still available.
func (n *Network) applyPhase() {
	n.pipes.each(func(_ handle, p *Pipe) {
		if !p.active {
			return
		}
		for _, t := range p.plan {
			el, ok := p.elements[t.ty]
			if !ok {
				continue
			}
			src := el.bound.Get(t.from)
			if src == nil {
				continue
			}

			mass := min(t.mass, src.Mass)
			if mass <= 0 {
				continue
			}

			dst := el.bound.Get(t.from.Opposite())
			if dst == nil && mass <= n.scalar.CreationThreshold {
				// Too little to create an element on the far side; leave the
				// mass at the source instead of destroying it.
				continue
			}

			def := n.registry.Get(t.ty)
			movedVolume := mass / sourceDensity(src, def)
			src.Mass -= mass
			src.Volume = max(src.Volume-movedVolume, 0)

			if dst != nil {
				dst.Mass += mass
				dst.Volume += mass * def.VacuumSpecificVolume
			} else {
				n.pendingDeposits = append(n.pendingDeposits, pendingDeposit{
					container: p.containers.Get(t.from.Opposite()),
					ty:        t.ty,
					mass:      mass,
				})
			}

			if t.from == Alpha {
				el.netTransfer += mass
			} else {
				el.netTransfer -= mass
			}
		}
	})
}

// lifecyclePhase deletes container elements drained below the deletion
// threshold and applies deposits that crossed into containers which did not
// track the fluid type yet, creating their elements and propagating them to
// adjacent pipes.
func (n *Network) lifecyclePhase() {
	n.containers.each(func(h handle, c *Container) {
		if !c.active {
			return
		}
		for ty, el := range c.elements {
			if el.Mass < n.scalar.DeletionThreshold {
				n.deleteElement(ContainerID{h: h}, c, ty)
			}
		}
	})

	pending := n.pendingDeposits
	n.pendingDeposits = n.pendingDeposits[:0]
	for _, d := range pending {
		n.depositNow(d.container, d.ty, d.mass)
	}
}

func (n *Network) rebalancePhase() {
	n.parallel(len(n.containers.slots), func(start, end int) {
		n.containers.eachRange(start, end, func(_ handle, c *Container) {
			if c.active {
				c.rebalance(n.registry)
			}
		})
	})
}

// minItemsPerWorker keeps small graphs on the calling goroutine; spawning
// workers for a handful of pipes costs more than it saves.
const minItemsPerWorker = 64

// parallel splits [0, count) into chunks processed by worker goroutines and
// waits for all of them. Within a phase, per-pipe and per-container work is
// independent, so chunks never touch the same record.
func (n *Network) parallel(count int, fn func(start, end int)) {
	workers := n.workers
	if w := count / minItemsPerWorker; w < workers {
		workers = w
	}
	if workers <= 1 {
		fn(0, count)
		return
	}

	chunk := (count + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < count; start += chunk {
		end := min(start+chunk, count)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}

// buildTickEventLocked assembles the per-tick observability event. Callers
// must hold the lock.
func (n *Network) buildTickEventLocked() TickEvent {
	ev := TickEvent{
		Network:   n.name,
		Tick:      n.tick,
		Timestamp: time.Now().Unix(),
	}
	n.containers.each(func(_ handle, c *Container) {
		if c.active {
			ev.Containers = append(ev.Containers, n.statusLocked(c))
		}
	})
	n.pipes.each(func(_ handle, p *Pipe) {
		if !p.active {
			return
		}
		for ty, el := range p.elements {
			if el.netTransfer != 0 {
				ev.Transfers = append(ev.Transfers, TransferRecord{
					Pipe: p.Name,
					Type: n.registry.Get(ty).Name,
					Mass: el.netTransfer,
				})
			}
		}
	})
	sortTransfers(ev.Transfers)
	return ev
}

package fluid

// handle is a generation-checked index into an arena. A freed slot bumps its
// generation, so stale handles are detectable instead of silently aliasing
// whatever reuses the slot.
type handle struct {
	index uint32
	gen   uint32
}

// ContainerID is a stable handle to a container.
type ContainerID struct{ h handle }

// PipeID is a stable handle to a pipe.
type PipeID struct{ h handle }

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// arena is a slot map with generation-checked handles.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	lives int
}

func (a *arena[T]) alloc(v T) handle {
	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[index]
		s.value = v
		s.live = true
		a.lives++
		return handle{index: index, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{value: v, live: true})
	a.lives++
	return handle{index: uint32(len(a.slots) - 1)}
}

// get returns the value for a handle, or nil if the handle is stale or the
// slot was freed.
func (a *arena[T]) get(h handle) *T {
	if int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return &s.value
}

// release frees the slot for a handle. It reports whether the handle was live.
func (a *arena[T]) release(h handle) bool {
	if a.get(h) == nil {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.live = false
	s.gen++
	a.free = append(a.free, h.index)
	a.lives--
	return true
}

func (a *arena[T]) count() int {
	return a.lives
}

// eachRange visits live slots with index in [start, end) in index order.
func (a *arena[T]) eachRange(start, end int, fn func(handle, *T)) {
	for i := start; i < end; i++ {
		s := &a.slots[i]
		if s.live {
			fn(handle{index: uint32(i), gen: s.gen}, &s.value)
		}
	}
}

// each visits all live slots in index order.
func (a *arena[T]) each(fn func(handle, *T)) {
	a.eachRange(0, len(a.slots), fn)
}

package fluid

// Endpoint selects one side of a pipe. The labels are arbitrary but stable,
// so directed quantities (force, transfer weight) stay consistent.
type Endpoint int

const (
	Alpha Endpoint = iota
	Beta
)

// String returns "alpha" or "beta".
func (e Endpoint) String() string {
	if e == Alpha {
		return "alpha"
	}
	return "beta"
}

// Opposite returns the other endpoint.
func (e Endpoint) Opposite() Endpoint {
	if e == Alpha {
		return Beta
	}
	return Alpha
}

// endpoints lists both endpoints in a fixed order for iteration.
var endpoints = [2]Endpoint{Alpha, Beta}

// Binary holds one value per pipe endpoint.
type Binary[T any] struct {
	Alpha T
	Beta  T
}

// Get returns the value at the given endpoint.
func (b Binary[T]) Get(e Endpoint) T {
	if e == Alpha {
		return b.Alpha
	}
	return b.Beta
}

// At returns a pointer to the value at the given endpoint.
func (b *Binary[T]) At(e Endpoint) *T {
	if e == Alpha {
		return &b.Alpha
	}
	return &b.Beta
}

// Set stores a value at the given endpoint.
func (b *Binary[T]) Set(e Endpoint, v T) {
	*b.At(e) = v
}

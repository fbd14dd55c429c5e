package signal

import "sync"

// Allocator defines the shape of buffers.
type Allocator struct {
	Channels int
	Length   int
}

// Pool allows to reuse buffers of the same shape.
type Pool struct {
	allocator Allocator
	pool      sync.Pool
}

var pools = struct {
	sync.Mutex
	m map[Allocator]*Pool
}{
	m: map[Allocator]*Pool{},
}

// Float64 allocates a new buffer.
func (a Allocator) Float64() Float64 {
	floats := make(Float64, a.Channels)
	for i := range floats {
		floats[i] = make([]float64, a.Length)
	}
	return floats
}

// GetPool returns pool for provided allocator. Pools are cached, so
// multiple calls for the same allocator return the same pool instance.
func GetPool(a Allocator) *Pool {
	pools.Lock()
	defer pools.Unlock()
	if p, ok := pools.m[a]; ok {
		return p
	}
	p := &Pool{allocator: a}
	p.pool.New = func() interface{} {
		floats := a.Float64()
		return &floats
	}
	pools.m[a] = p
	return p
}

// WipePools cleans up the cache of pools.
func WipePools() {
	pools.Lock()
	defer pools.Unlock()
	pools.m = map[Allocator]*Pool{}
}

// Allocator returns the shape of buffers in the pool.
func (p *Pool) Allocator() Allocator {
	return p.allocator
}

// Get returns a buffer of full length.
func (p *Pool) Get() Float64 {
	return *(p.pool.Get().(*Float64))
}

// Put returns the buffer to the pool. Buffers of different shape are
// dropped.
func (p *Pool) Put(floats Float64) {
	if floats.Channels() != p.allocator.Channels {
		return
	}
	for i := range floats {
		if cap(floats[i]) < p.allocator.Length {
			return
		}
		floats[i] = floats[i][:p.allocator.Length]
	}
	p.pool.Put(&floats)
}

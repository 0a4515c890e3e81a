package trail

// Allocator issues ids in the element id space shared by nodes, edges,
// files, local symbols and errors.
type Allocator struct {
	last int64
}

// NewAllocator creates an allocator whose first id is highWater+1.
func NewAllocator(highWater int64) *Allocator {
	if highWater < 0 {
		highWater = 0
	}
	return &Allocator{last: highWater}
}

// Next returns the next unused id.
func (a *Allocator) Next() int64 {
	a.last++
	return a.last
}

// Last returns the most recently issued id, or the high-water mark the
// allocator was created with.
func (a *Allocator) Last() int64 {
	return a.last
}

// Reset makes the next id 1 again. Only valid after every element row has
// been deleted.
func (a *Allocator) Reset() {
	a.last = 0
}

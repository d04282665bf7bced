package pic

import (
	"fmt"
	"sync"

	"github.com/immersive-video/ivqm/internal/ivqmerr"
)

// Rental is a size-bounded pool of same-layout Plane allocations. Unlike a
// sync.Pool bucketed by size class (the shape this package is grounded on),
// a Rental enforces a hard ceiling on live allocations: once sizeLimit
// planes are checked out and not yet returned, Borrow fails with
// ivqmerr.ErrResourceExhaustion rather than growing without bound. This
// matches the bounded-memory requirement of a sequence-length comparison
// run where plane count must stay proportional to component count, not
// frame count.
type Rental struct {
	mu        sync.Mutex
	width     int
	height    int
	bitDepth  int
	margin    int
	sizeLimit int
	free      []*Plane
	live      int
}

// NewRental creates a pool for planes of the given layout. sizeLimit <= 0
// means unbounded.
func NewRental(width, height, bitDepth, margin, sizeLimit int) *Rental {
	return &Rental{
		width:     width,
		height:    height,
		bitDepth:  bitDepth,
		margin:    margin,
		sizeLimit: sizeLimit,
	}
}

// Borrow returns a plane from the pool, allocating a new one if the free
// stack is empty and the live count has not reached sizeLimit.
func (r *Rental) Borrow() (*Plane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		p := r.free[n-1]
		r.free = r.free[:n-1]
		r.live++
		return p, nil
	}
	if r.sizeLimit > 0 && r.live >= r.sizeLimit {
		return nil, fmt.Errorf("%w: plane rental pool exhausted (limit %d)", ivqmerr.ErrResourceExhaustion, r.sizeLimit)
	}
	r.live++
	return NewPlane(r.width, r.height, r.bitDepth, r.margin), nil
}

// Giveback returns a plane to the pool for reuse. The plane must have been
// obtained from this Rental; its contents are left untouched (the next
// Borrow caller is responsible for clearing/filling as needed).
func (r *Rental) Giveback(p *Plane) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free = append(r.free, p)
	r.live--
}

// Live reports the number of planes currently checked out.
func (r *Rental) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

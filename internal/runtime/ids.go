package runtime

import (
	"math/rand"

	"github.com/openoutcry/botrunner/internal/domain"
)

// Allocator hands out random order ids, collision-checked against every
// id issued during this runtime's lifetime. Seeding makes allocation
// reproducible in tests. An Allocator is not safe for concurrent use;
// the runtime serializes access on its submission path.
type Allocator struct {
	rng    *rand.Rand
	issued map[domain.OrderID]struct{}
}

// NewAllocator creates an Allocator seeded with the given value.
func NewAllocator(seed int64) *Allocator {
	return &Allocator{
		rng:    rand.New(rand.NewSource(seed)),
		issued: make(map[domain.OrderID]struct{}),
	}
}

// Next returns a fresh nonzero order id.
func (a *Allocator) Next() domain.OrderID {
	for {
		id := domain.OrderID(a.rng.Uint64())
		if id == 0 {
			continue
		}
		if _, dup := a.issued[id]; dup {
			continue
		}
		a.issued[id] = struct{}{}
		return id
	}
}

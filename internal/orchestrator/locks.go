package orchestrator

import (
	"sync"

	"github.com/google/uuid"
)

const lockStripes = 64

// stripedLocks serializes mutations per job id. All read-modify-write cycles
// on a job record go through the stripe for its id, so concurrent updates to
// the same job can never interleave partial writes.
type stripedLocks [lockStripes]sync.Mutex

func (l *stripedLocks) lock(id uuid.UUID) *sync.Mutex {
	mu := &l[id[0]%lockStripes]
	mu.Lock()
	return mu
}

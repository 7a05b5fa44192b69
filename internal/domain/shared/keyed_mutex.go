package shared

import (
	"hash/fnv"
	"sync"
)

// keyedMutexStripes is the fixed stripe count. Distinct keys may share a
// stripe, which costs spurious serialization, never a missed exclusion.
const keyedMutexStripes = 64

// KeyedMutex serializes work per key over a fixed pool of striped locks, so
// memory stays bounded no matter how many distinct keys are ever seen.
type KeyedMutex struct {
	stripes [keyedMutexStripes]sync.Mutex
}

// NewKeyedMutex creates a KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the stripe for key and returns its unlock function
func (m *KeyedMutex) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	stripe := &m.stripes[h.Sum32()%keyedMutexStripes]
	stripe.Lock()
	return stripe.Unlock
}

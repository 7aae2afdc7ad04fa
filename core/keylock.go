package core

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLock serializes work per client id over a fixed set of mutexes.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLock) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

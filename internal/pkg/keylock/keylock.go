// Package keylock provides striped per-key mutual exclusion. The orchestrator
// uses it to serialize the read-modify-write sequence for one
// (tenant, person, date) without a global lock across people.
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 64

type KeyLock struct {
	stripes []sync.Mutex
}

func New() *KeyLock {
	return &KeyLock{stripes: make([]sync.Mutex, defaultStripes)}
}

// Lock acquires the stripe owning key and returns its unlock function.
func (k *KeyLock) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	m.Lock()
	return m.Unlock
}

package lockfree

import (
	"fmt"
	"hash/maphash"
	"sync/atomic"
)

const defaultBucketCount = 64

// bucketNode is a hash table bucket-chain element. Multiple live nodes for
// the same key may coexist in a chain (see HashTable's shadowing
// semantics): the most recently inserted is linked closest to the bucket
// head, so a Find traversal sees it first.
type bucketNode[K comparable, V any] struct {
	key   K
	value V
	next  atomic.Pointer[bucketNode[K, V]]
}

// HashTable is a fixed-size array of lock-free singly-linked bucket
// chains. Insert on an existing key shadows rather than replaces in
// place: the new node is linked at the bucket head, the old node stays
// linked behind it (Find no longer returns it, but Each still visits
// it), and Size counts every insert (see DESIGN.md for why this, rather than
// replace-in-place, was chosen).
type HashTable[K comparable, V any] struct {
	buckets []atomic.Pointer[bucketNode[K, V]]
	mask    uint64
	seed    maphash.Seed
	size    atomic.Int64
}

// NewHashTable returns a table with the given bucket count, rounded up to
// the next power of two; a non-positive count uses defaultBucketCount.
func NewHashTable[K comparable, V any](bucketCount int) *HashTable[K, V] {
	if bucketCount <= 0 {
		bucketCount = defaultBucketCount
	}
	n := uint64(1)
	for n < uint64(bucketCount) {
		n <<= 1
	}
	return &HashTable[K, V]{
		buckets: make([]atomic.Pointer[bucketNode[K, V]], n),
		mask:    n - 1,
		seed:    maphash.MakeSeed(),
	}
}

func (h *HashTable[K, V]) bucketIndex(k K) uint64 {
	var m maphash.Hash
	m.SetSeed(h.seed)
	_, _ = m.WriteString(fmt.Sprint(k))
	return m.Sum64() & h.mask
}

// Insert links a new node at the bucket head. If the key already exists
// in the chain, the new node shadows it (see the HashTable doc comment);
// Size increases on every call.
func (h *HashTable[K, V]) Insert(k K, v V) {
	idx := h.bucketIndex(k)
	bucket := &h.buckets[idx]
	n := &bucketNode[K, V]{key: k, value: v}
	for {
		old := bucket.Load()
		n.next.Store(old)
		if bucket.CompareAndSwap(old, n) {
			h.size.Add(1)
			return
		}
	}
}

// Find traverses the bucket chain and returns the first (most recently
// inserted) match.
func (h *HashTable[K, V]) Find(k K) (v V, ok bool) {
	idx := h.bucketIndex(k)
	for n := h.buckets[idx].Load(); n != nil; n = n.next.Load() {
		if n.key == k {
			return n.value, true
		}
	}
	return v, false
}

// Erase removes the first match via CAS on the predecessor's next
// pointer, returning whether a node was removed. An absent key is not an
// error.
func (h *HashTable[K, V]) Erase(k K) bool {
	idx := h.bucketIndex(k)
	bucket := &h.buckets[idx]

	for {
		var prev *bucketNode[K, V]
		curr := bucket.Load()
		for curr != nil && curr.key != k {
			prev = curr
			curr = curr.next.Load()
		}
		if curr == nil {
			return false
		}

		next := curr.next.Load()
		var swapped bool
		if prev == nil {
			swapped = bucket.CompareAndSwap(curr, next)
		} else {
			swapped = prev.next.CompareAndSwap(curr, next)
		}
		if swapped {
			h.size.Add(-1)
			return true
		}
		// Lost the race with a concurrent mutation of this chain; retry.
	}
}

// Size returns an approximate element count, exact only under quiescence.
// Per the chosen shadowing semantics, repeated inserts on the same key
// each count toward Size even though only the newest is reachable via
// Find.
func (h *HashTable[K, V]) Size() int {
	return int(h.size.Load())
}

// Each calls fn for every (key, value) reachable across all buckets at
// the moment each bucket is visited, in unspecified order, stopping early
// if fn returns false. Each yielded key existed at some moment between
// iterator creation and use, but the walk is not a point-in-time
// consistent snapshot across buckets.
func (h *HashTable[K, V]) Each(fn func(K, V) bool) {
	for i := range h.buckets {
		for n := h.buckets[i].Load(); n != nil; n = n.next.Load() {
			if !fn(n.key, n.value) {
				return
			}
		}
	}
}

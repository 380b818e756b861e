// Package sumset implements the hash set that backs incremental
// subset-sum tracking.
//
// The set is specialised for uint64 subset sums: open chaining with a
// Murmur3-finalizer hash, power-of-two bucket counts, and a free-list
// node pool so the remove+add churn of backtracking is allocation-free
// in steady state.
package sumset

const (
	// initialBucketCount is the default number of buckets.
	initialBucketCount = 4096

	// minBucketCount is the smallest bucket count the set accepts.
	minBucketCount = 1024

	// loadFactorThreshold triggers a resize when size/buckets exceeds it.
	loadFactorThreshold = 0.75

	// poolPreallocSize is the number of nodes preallocated at
	// construction, avoiding the first-collision allocation storm.
	poolPreallocSize = 1024
)

// node is a chain link. Detached nodes are parked on the free list.
type node struct {
	value uint64
	next  *node
}

// Set is an open-chained hash set of uint64 values.
// Not safe for concurrent use.
type Set struct {
	buckets []*node
	free    *node // free-list of detached nodes
	size    int
}

// New creates a Set with the default bucket count and a preallocated
// node pool.
func New() *Set {
	return NewWithBuckets(initialBucketCount)
}

// NewWithBuckets creates a Set with at least the given bucket count,
// rounded up to a power of two and clamped to the minimum.
func NewWithBuckets(buckets int) *Set {
	if buckets < minBucketCount {
		buckets = minBucketCount
	}
	buckets = nextPow2(buckets)

	s := &Set{
		buckets: make([]*node, buckets),
	}
	s.prealloc(poolPreallocSize)

	return s
}

// mix64 is the Murmur3 64-bit finalizer. Full avalanche, so the
// power-of-two bucket mask sees well-distributed bits.
func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (s *Set) bucketIndex(v uint64) int {
	return int(mix64(v) & uint64(len(s.buckets)-1))
}

func (s *Set) prealloc(count int) {
	for i := 0; i < count; i++ {
		s.free = &node{next: s.free}
	}
}

func (s *Set) getNode() *node {
	if n := s.free; n != nil {
		s.free = n.next
		return n
	}
	return &node{}
}

func (s *Set) putNode(n *node) {
	n.next = s.free
	s.free = n
}

// resize doubles the bucket count and rehashes all chain nodes in
// place. The nodes themselves are relinked, never reallocated.
func (s *Set) resize() {
	old := s.buckets
	s.buckets = make([]*node, len(old)*2)

	for _, n := range old {
		for n != nil {
			next := n.next
			idx := s.bucketIndex(n.value)
			n.next = s.buckets[idx]
			s.buckets[idx] = n
			n = next
		}
	}
}

// Len returns the number of values in the set.
func (s *Set) Len() int {
	return s.size
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v uint64) bool {
	for n := s.buckets[s.bucketIndex(v)]; n != nil; n = n.next {
		if n.value == v {
			return true
		}
	}
	return false
}

// Add inserts v. It returns false without mutation if v is already
// present.
func (s *Set) Add(v uint64) bool {
	if s.Contains(v) {
		return false
	}

	if float64(s.size)/float64(len(s.buckets)) > loadFactorThreshold {
		s.resize()
	}

	idx := s.bucketIndex(v)
	n := s.getNode()
	n.value = v
	n.next = s.buckets[idx]
	s.buckets[idx] = n
	s.size++

	return true
}

// Remove unlinks v and returns the node to the pool. It returns false
// if v is absent.
func (s *Set) Remove(v uint64) bool {
	idx := s.bucketIndex(v)

	var prev *node
	for n := s.buckets[idx]; n != nil; n = n.next {
		if n.value == v {
			if prev != nil {
				prev.next = n.next
			} else {
				s.buckets[idx] = n.next
			}
			s.putNode(n)
			s.size--
			return true
		}
		prev = n
	}

	return false
}

// Clear removes all values, returning every chain node to the pool.
// Bucket and pool storage is retained for reuse.
func (s *Set) Clear() {
	for i, n := range s.buckets {
		for n != nil {
			next := n.next
			s.putNode(n)
			n = next
		}
		s.buckets[i] = nil
	}
	s.size = 0
}

// AppendTo appends every value in the set to dst and returns the
// extended slice. Iteration order is unspecified.
func (s *Set) AppendTo(dst []uint64) []uint64 {
	for _, n := range s.buckets {
		for ; n != nil; n = n.next {
			dst = append(dst, n.value)
		}
	}
	return dst
}

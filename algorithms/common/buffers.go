package common

import (
	"math/bits"
)

const wordBits = 64

// BitRing is a fixed-capacity circular buffer of bits, packed into uint64
// words. Once full, every push evicts the oldest bit. Capacity is rounded up
// to a whole number of words so shifted word reads can wrap without special
// cases.
type BitRing struct {
	words    []uint64
	size     int
	writePos int
	count    int
	pushes   int64
}

// NewBitRing creates a ring holding at least size bits
func NewBitRing(size int) *BitRing {
	size = RoundUpToMultiple(max(size, 1), wordBits)
	return &BitRing{
		words: make([]uint64, size/wordBits),
		size:  size,
	}
}

// Push appends a bit, evicting the oldest one when the ring is full
func (r *BitRing) Push(bit bool) {
	w, off := r.writePos/wordBits, uint(r.writePos%wordBits)
	if bit {
		r.words[w] |= 1 << off
	} else {
		r.words[w] &^= 1 << off
	}

	r.writePos++
	if r.writePos == r.size {
		r.writePos = 0
	}
	if r.count < r.size {
		r.count++
	}
	r.pushes++
}

// Size returns the capacity in bits
func (r *BitRing) Size() int {
	return r.size
}

// Len returns the number of bits currently held
func (r *BitRing) Len() int {
	return r.count
}

// IsFull returns true once Size() bits have been pushed
func (r *BitRing) IsFull() bool {
	return r.count == r.size
}

// Pushes returns the total number of bits pushed since the last reset
func (r *BitRing) Pushes() int64 {
	return r.pushes
}

// oldest returns the physical position of the oldest bit
func (r *BitRing) oldest() int {
	if r.count < r.size {
		return 0
	}
	return r.writePos
}

// Get returns the i-th bit counting from the oldest. Out of range reads
// return false.
func (r *BitRing) Get(i int) bool {
	if i < 0 || i >= r.count {
		return false
	}
	pos := (r.oldest() + i) % r.size
	return r.words[pos/wordBits]>>(uint(pos%wordBits))&1 == 1
}

// Recent returns the bit offset positions before the newest one (0 = newest)
func (r *BitRing) Recent(offset int) bool {
	return r.Get(r.count - 1 - offset)
}

// wordAt returns 64 bits starting at physical position pos, wrapping around
// the end of the ring
func (r *BitRing) wordAt(pos int) uint64 {
	w, off := pos/wordBits, uint(pos%wordBits)
	v := r.words[w] >> off
	if off != 0 {
		next := w + 1
		if next == len(r.words) {
			next = 0
		}
		v |= r.words[next] << (wordBits - off)
	}
	return v
}

// HammingDistance compares every held bit with the bit lag positions
// earlier and returns the number of mismatches and the number of compared
// positions.
func (r *BitRing) HammingDistance(lag int) (diff, overlap int) {
	n := r.count
	if lag <= 0 || lag >= n {
		return 0, 0
	}

	start := r.oldest()
	for i := lag; i < n; i += wordBits {
		a := r.wordAt((start + i) % r.size)
		b := r.wordAt((start + i - lag) % r.size)
		x := a ^ b
		if rem := n - i; rem < wordBits {
			x &= (uint64(1) << uint(rem)) - 1
		}
		diff += bits.OnesCount64(x)
	}

	return diff, n - lag
}

// Transitions returns the number of adjacent bit pairs that differ
func (r *BitRing) Transitions() int {
	diff, _ := r.HammingDistance(1)
	return diff
}

// Reset empties the ring without releasing its storage
func (r *BitRing) Reset() {
	clear(r.words)
	r.writePos = 0
	r.count = 0
	r.pushes = 0
}

// Bitset is a fixed-size linear bit array packed into uint64 words. It holds
// one analysis window that is rebuilt from scratch every frame.
type Bitset struct {
	words []uint64
	size  int
}

// NewBitset creates a cleared bitset of size bits
func NewBitset(size int) *Bitset {
	size = max(size, 0)
	return &Bitset{
		words: make([]uint64, RoundUpToMultiple(size, wordBits)/wordBits),
		size:  size,
	}
}

// Size returns the number of bits
func (b *Bitset) Size() int {
	return b.size
}

// Get returns bit i. Out of range reads return false.
func (b *Bitset) Get(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i/wordBits]>>(uint(i%wordBits))&1 == 1
}

// SetRange sets bits [from, to), clipped to the bitset
func (b *Bitset) SetRange(from, to int) {
	from = max(from, 0)
	to = min(to, b.size)
	for from < to {
		w, off := from/wordBits, uint(from%wordBits)
		n := min(to-from, wordBits-int(off))
		mask := ^uint64(0)
		if n < wordBits {
			mask = (uint64(1) << uint(n)) - 1
		}
		b.words[w] |= mask << off
		from += n
	}
}

// Clear zeroes every bit
func (b *Bitset) Clear() {
	clear(b.words)
}

// wordAt returns 64 bits starting at pos; bits past the end read as zero
func (b *Bitset) wordAt(pos int) uint64 {
	w, off := pos/wordBits, uint(pos%wordBits)
	if w >= len(b.words) {
		return 0
	}
	v := b.words[w] >> off
	if off != 0 && w+1 < len(b.words) {
		v |= b.words[w+1] << (wordBits - off)
	}
	return v
}

// HammingDistance compares bits [0, span) with bits [lag, lag+span) and
// returns the number of mismatches. span is clipped so the shifted run stays
// inside the bitset.
func (b *Bitset) HammingDistance(lag, span int) int {
	if lag < 0 || lag >= b.size {
		return 0
	}
	span = min(span, b.size-lag)

	diff := 0
	for i := 0; i < span; i += wordBits {
		x := b.wordAt(i) ^ b.wordAt(i+lag)
		if rem := span - i; rem < wordBits {
			x &= (uint64(1) << uint(rem)) - 1
		}
		diff += bits.OnesCount64(x)
	}
	return diff
}

// Transitions returns the number of adjacent bit pairs that differ
func (b *Bitset) Transitions() int {
	return b.HammingDistance(1, b.size-1)
}

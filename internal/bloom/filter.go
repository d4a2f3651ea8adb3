// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package bloom

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sync"

	"golang.org/x/crypto/sha3"
)

const (
	// DefaultSize is the bit count used by Default.
	DefaultSize = 1000
	// DefaultHashCount is the probe count used by Default.
	DefaultHashCount = 3
)

// Filter is a bit array probed by hashCount independent SHA3-256 digests.
// It is safe for concurrent use.
type Filter struct {
	mu        sync.RWMutex
	words     []uint64
	size      uint64
	hashCount int
	added     uint64
}

// New allocates a filter of size bits, all clear.
func New(size, hashCount int) (*Filter, error) {
	if size < 1 {
		return nil, fmt.Errorf("bloom: size must be >= 1, got %d", size)
	}
	if hashCount < 1 {
		return nil, fmt.Errorf("bloom: hash count must be >= 1, got %d", hashCount)
	}
	return &Filter{
		words:     make([]uint64, (size+63)/64),
		size:      uint64(size),
		hashCount: hashCount,
	}, nil
}

// NewWithEstimates sizes a filter for expectedItems at the target false
// positive rate using m = -n*ln(p)/ln(2)^2 and k = m/n*ln(2).
func NewWithEstimates(expectedItems int, fpRate float64) (*Filter, error) {
	if expectedItems < 1 {
		return nil, fmt.Errorf("bloom: expected items must be >= 1, got %d", expectedItems)
	}
	if fpRate <= 0 || fpRate >= 1 {
		return nil, fmt.Errorf("bloom: false positive rate must be in (0,1), got %f", fpRate)
	}
	n := float64(expectedItems)
	m := math.Ceil(-n * math.Log(fpRate) / (math.Ln2 * math.Ln2))
	k := int(math.Round(m / n * math.Ln2))
	if k < 1 {
		k = 1
	}
	return New(int(m), k)
}

// Default returns a filter sized for small ad-hoc sets.
func Default() *Filter {
	f, _ := New(DefaultSize, DefaultHashCount)
	return f
}

// Add sets the bit of every probe for item. Bits are never cleared by Add.
func (f *Filter) Add(item string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < f.hashCount; i++ {
		idx := f.index(item, i)
		f.words[idx/64] |= 1 << (idx % 64)
	}
	f.added++
}

// MightContain reports false as soon as one probe hits a clear bit. A true
// result means the item was probably added.
func (f *Filter) MightContain(item string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := 0; i < f.hashCount; i++ {
		idx := f.index(item, i)
		if f.words[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// Reset replaces the bit array with a fresh, all-clear one of the same shape.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = make([]uint64, len(f.words))
	f.added = 0
}

// Size returns the number of bits.
func (f *Filter) Size() int { return int(f.size) }

// HashCount returns the number of probes per item.
func (f *Filter) HashCount() int { return f.hashCount }

// Count returns how many Add calls happened since construction or the last Reset.
func (f *Filter) Count() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.added
}

// SetBits returns the number of bits currently set.
func (f *Filter) SetBits() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, w := range f.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// EstimatedFalsePositiveRate returns (1 - e^(-k*n/m))^k for n distinct items.
func (f *Filter) EstimatedFalsePositiveRate(n int) float64 {
	if n <= 0 {
		return 0
	}
	k := float64(f.hashCount)
	return math.Pow(1-math.Exp(-k*float64(n)/float64(f.size)), k)
}

// index digests item || probe and reduces the first 8 bytes of the digest
// (little endian) modulo the filter size.
func (f *Filter) index(item string, probe int) uint64 {
	h := sha3.New256()
	_, _ = h.Write([]byte(item))
	_, _ = h.Write(binary.AppendUvarint(nil, uint64(probe)))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]) % f.size
}

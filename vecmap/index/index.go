// Copyright © 2024-2025 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package index

import (
	"errors"

	"github.com/shenwei356/kmers"
	"github.com/twotwotwo/sorts/sortutil"
	"github.com/zeebo/wyhash"
)

// ErrEmptyReference occurs when the reference sequence is empty.
var ErrEmptyReference = errors.New("index: empty reference sequence")

// ErrInvalidKmerLen occurs when k < 1 or k > the reference length.
var ErrInvalidKmerLen = errors.New("index: invalid k-mer length")

// ErrKmerTooLarge occurs when asking to decode k-mers of an index
// built with k > 32, which stores hash values instead of k-mer codes.
var ErrKmerTooLarge = errors.New("index: k-mers of k > 32 are not decodable")

// wyhashSeed is the fixed seed for hashing k-mers of k > 32.
const wyhashSeed uint64 = 42

// Index is a read-only mapping from every k-mer of a reference
// sequence to the list of its start positions (0-based, in scan
// order). It is built once with NewIndex and never mutated afterwards,
// so any number of goroutines may call Search concurrently.
//
// For k <= 32, keys are 2-bit k-mer codes (A/C/G/T only, as in
// github.com/shenwei356/kmers); windows containing other symbols are
// not indexed, since they can never equal a clean seed anyway.
// For k > 32, keys are wyhash values of the k-mer bytes. Hash
// collisions only add spurious candidates, which the scoring step
// eliminates by comparing the actual sequences.
type Index struct {
	k      int
	ref    []byte // uppercased copy of the reference
	hashed bool   // k > 32, keys are wyhash values

	kmers map[uint64]*[]int

	searchOptions *SearchOptions
}

var base2bit = [256]uint8{}

func init() {
	for i := range base2bit {
		base2bit[i] = 255
	}
	base2bit['A'], base2bit['a'] = 0, 0
	base2bit['C'], base2bit['c'] = 1, 1
	base2bit['G'], base2bit['g'] = 2, 2
	base2bit['T'], base2bit['t'] = 3, 3
}

// NewIndex builds an index of all k-mers of the reference sequence.
// The reference is copied and uppercased, the caller's slice is not
// retained. k must be in [1, len(ref)].
func NewIndex(ref []byte, k int) (*Index, error) {
	if len(ref) == 0 {
		return nil, ErrEmptyReference
	}
	if k < 1 || k > len(ref) {
		return nil, ErrInvalidKmerLen
	}

	r := make([]byte, len(ref))
	for i, b := range ref {
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		r[i] = b
	}

	idx := &Index{
		k:      k,
		ref:    r,
		hashed: k > 32,
		kmers:  make(map[uint64]*[]int, mapInitSize(len(r), k)),
	}

	if idx.hashed {
		idx.buildHashed()
	} else {
		idx.build()
	}

	so := DefaultSearchOptions
	if err := idx.SetSearchOptions(&so); err != nil {
		return nil, err
	}

	return idx, nil
}

func mapInitSize(l, k int) int {
	n := l - k + 1
	if n > 1<<20 {
		n = 1 << 20
	}
	return n
}

// build indexes 2-bit k-mer codes with a rolling encoder.
// valid tracks the length of the current run of A/C/G/T bytes, so
// windows spanning an ambiguous base are skipped without re-scanning.
func (idx *Index) build() {
	k := idx.k
	mask := uint64(1)<<(uint(k)<<1) - 1
	var code uint64
	var valid int
	for i, b := range idx.ref {
		c := base2bit[b]
		if c == 255 {
			valid = 0
			code = 0
			continue
		}
		code = (code<<2 | uint64(c)) & mask
		valid++
		if valid < k {
			continue
		}
		idx.add(code, i-k+1)
	}
}

func (idx *Index) buildHashed() {
	k := idx.k
	end := len(idx.ref) - k
	for p := 0; p <= end; p++ {
		idx.add(wyhash.Hash(idx.ref[p:p+k], wyhashSeed), p)
	}
}

func (idx *Index) add(key uint64, pos int) {
	if locs, ok := idx.kmers[key]; ok {
		*locs = append(*locs, pos)
	} else {
		tmp := make([]int, 1, 4)
		tmp[0] = pos
		idx.kmers[key] = &tmp
	}
}

// K returns the k-mer length.
func (idx *Index) K() int { return idx.k }

// RefLen returns the length of the reference sequence.
func (idx *Index) RefLen() int { return len(idx.ref) }

// Ref returns the uppercased reference sequence.
// The returned slice must not be modified.
func (idx *Index) Ref() []byte { return idx.ref }

// NumKmers returns the number of distinct keys in the index.
func (idx *Index) NumKmers() int { return len(idx.kmers) }

// key encodes a k-mer into its index key.
// ok is false for k-mers containing non-A/C/G/T bytes (k <= 32 only).
func (idx *Index) key(kmer []byte) (uint64, bool) {
	if idx.hashed {
		return wyhash.Hash(kmer, wyhashSeed), true
	}
	var code uint64
	for _, b := range kmer {
		c := base2bit[b]
		if c == 255 {
			return 0, false
		}
		code = code<<2 | uint64(c)
	}
	return code, true
}

// Positions returns all start positions of a k-mer in the reference,
// in ascending order, or nil for k-mers absent from the index.
// The returned slice must not be modified.
func (idx *Index) Positions(kmer []byte) []int {
	if len(kmer) != idx.k {
		return nil
	}
	key, ok := idx.key(kmer)
	if !ok {
		return nil
	}
	locs, ok := idx.kmers[key]
	if !ok {
		return nil
	}
	return *locs
}

// WalkKmers calls fn for every indexed k-mer with its position list,
// in ascending order of k-mer codes. Returning false stops the walk.
// Only available for k <= 32, hashed keys cannot be decoded.
func (idx *Index) WalkKmers(fn func(kmer []byte, positions []int) bool) error {
	if idx.hashed {
		return ErrKmerTooLarge
	}

	codes := make([]uint64, 0, len(idx.kmers))
	for code := range idx.kmers {
		codes = append(codes, code)
	}
	sortutil.Uint64s(codes)

	for _, code := range codes {
		if !fn(kmers.MustDecode(code, idx.k), *idx.kmers[code]) {
			return nil
		}
	}
	return nil
}

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
	"sync"

	"github.com/shenwei356/vecmap/vecmap/util"
)

// ErrShortRead occurs when a read is shorter than the k-mer length,
// so that not a single seed can be extracted.
var ErrShortRead = errors.New("index: read shorter than k")

// ErrInvalidOffsets occurs when the seed offset list is empty or
// contains a negative offset.
var ErrInvalidOffsets = errors.New("index: invalid seed offsets")

// SearchOptions defines options used in searching.
type SearchOptions struct {
	// Offsets are the read positions seeds are extracted at.
	// Offsets beyond the end of a read are skipped for that read.
	Offsets []int
}

// DefaultSearchOptions contains default option values.
var DefaultSearchOptions = SearchOptions{
	Offsets: []int{0, 20, 40, 60, 80},
}

// SetSearchOptions replaces the search options.
func (idx *Index) SetSearchOptions(so *SearchOptions) error {
	if len(so.Offsets) == 0 {
		return ErrInvalidOffsets
	}
	for _, o := range so.Offsets {
		if o < 0 {
			return ErrInvalidOffsets
		}
	}
	idx.searchOptions = so
	return nil
}

// Seed is a k-mer extracted from a read at a fixed offset.
// Kmer is a sub-slice of the read, not a copy.
type Seed struct {
	Offset int
	Kmer   []byte
}

// ExtractSeeds returns the seeds of a read for the given k and
// offsets, appending to buf. Offsets with offset+k > len(read) are
// skipped, shorter reads simply yield fewer seeds.
func ExtractSeeds(read []byte, k int, offsets []int, buf []Seed) []Seed {
	for _, o := range offsets {
		if o+k > len(read) {
			continue
		}
		buf = append(buf, Seed{Offset: o, Kmer: read[o : o+k]})
	}
	return buf
}

// SearchResult is the mapping result of one read.
type SearchResult struct {
	Pos        int // 0-based start position in the reference
	Mismatches int // Hamming distance between read and window at Pos
	Candidates int // number of candidate positions that were scored
}

var poolSearchResult = &sync.Pool{New: func() interface{} {
	return &SearchResult{}
}}

var poolSeeds = &sync.Pool{New: func() interface{} {
	tmp := make([]Seed, 0, 8)
	return &tmp
}}

var poolCandidates = &sync.Pool{New: func() interface{} {
	tmp := make([]int, 0, 128)
	return &tmp
}}

var poolReadBuf = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 1<<10)
	return &tmp
}}

// Search maps one read against the reference and returns the
// position with the minimum mismatch count, or nil if the read
// shares no indexed k-mer with the reference (unmapped).
//
// Candidate positions are scored in ascending order and only a
// strictly smaller mismatch count replaces the current best, so among
// equal-minimum candidates the lowest reference position wins. The
// result is deterministic for identical inputs.
//
// Results should be returned with RecycleSearchResult.
// Search is safe for concurrent use, the index is never mutated.
func (idx *Index) Search(read []byte) (*SearchResult, error) {
	k := idx.k
	if len(read) < k {
		return nil, ErrShortRead
	}
	if len(read) > len(idx.ref) {
		// no window of the reference can hold the read
		return nil, nil
	}

	// normalized copy of the read, scoring is case-insensitive
	bufp := poolReadBuf.Get().(*[]byte)
	defer poolReadBuf.Put(bufp)
	buf := (*bufp)[:0]
	for _, b := range read {
		if b >= 'a' && b <= 'z' {
			b -= 32
		}
		buf = append(buf, b)
	}
	*bufp = buf
	read = buf

	// seeding
	seeds := poolSeeds.Get().(*[]Seed)
	*seeds = ExtractSeeds(read, k, idx.searchOptions.Offsets, (*seeds)[:0])

	// collecting candidates
	cands := poolCandidates.Get().(*[]int)
	*cands = idx.collectCandidates(*seeds, len(read), (*cands)[:0])

	poolSeeds.Put(seeds)

	if len(*cands) == 0 { // unmapped, a normal terminal outcome
		poolCandidates.Put(cands)
		return nil, nil
	}

	// batch scoring and selection
	s := poolScorer.Get().(*scorer)
	counts := s.score(idx.ref, read, *cands)

	best := 0
	for i, n := range counts {
		if n < counts[best] {
			best = i
		}
	}

	r := poolSearchResult.Get().(*SearchResult)
	r.Pos = (*cands)[best]
	r.Mismatches = counts[best]
	r.Candidates = len(*cands)

	poolScorer.Put(s)
	poolCandidates.Put(cands)

	return r, nil
}

// collectCandidates turns seed index-hits into the sorted, unique
// list of plausible alignment start positions.
func (idx *Index) collectCandidates(seeds []Seed, readLen int, buf []int) []int {
	maxStart := len(idx.ref) - readLen
	for _, seed := range seeds {
		key, ok := idx.key(seed.Kmer)
		if !ok { // seed contains a non-A/C/G/T byte
			continue
		}
		locs, ok := idx.kmers[key]
		if !ok {
			continue
		}
		for _, p := range *locs {
			c := p - seed.Offset
			if c >= 0 && c <= maxStart {
				buf = append(buf, c)
			}
		}
	}
	util.UniqInts(&buf)
	return buf
}

// RecycleSearchResult recycles a search result object.
func (idx *Index) RecycleSearchResult(r *SearchResult) {
	if r != nil {
		poolSearchResult.Put(r)
	}
}

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
	"encoding/binary"
	"math/bits"
	"sync"
)

// scorer computes the Hamming distance between a read and the
// reference window at every candidate position, as one batched pass:
// all windows are gathered into a single contiguous buffer, then one
// tight loop compares them against the read 8 bytes at a time.
// Buffers are reused across reads via poolScorer.
type scorer struct {
	windows []byte // |candidates| gathered windows, each len(read) bytes
	counts  []int  // one mismatch count per candidate
}

var poolScorer = &sync.Pool{New: func() interface{} {
	return &scorer{
		windows: make([]byte, 0, 64<<10),
		counts:  make([]int, 0, 128),
	}
}}

// score returns the mismatch count of every candidate, in the order
// of the candidates slice. All candidates c must satisfy
// 0 <= c <= len(ref)-len(read). The returned slice is owned by the
// scorer and valid until the next call.
func (s *scorer) score(ref, read []byte, candidates []int) []int {
	n := len(candidates)
	rl := len(read)

	if cap(s.windows) < n*rl {
		s.windows = make([]byte, n*rl)
	}
	windows := s.windows[:n*rl]

	// gather
	for i, c := range candidates {
		copy(windows[i*rl:(i+1)*rl], ref[c:c+rl])
	}

	// elementwise compare + reduce
	if cap(s.counts) < n {
		s.counts = make([]int, n)
	}
	counts := s.counts[:n]
	for i := range counts {
		counts[i] = countMismatches(windows[i*rl:(i+1)*rl], read)
	}

	return counts
}

const lo7 = 0x7f7f7f7f7f7f7f7f

// countMismatches returns the number of differing bytes of two
// equal-length slices. 8 bytes are compared per step: in
// ((x&lo7)+lo7)|x, the high bit of each byte is set iff the byte of
// x = a^b is non-zero, and the per-byte sums cannot carry.
func countMismatches(a, b []byte) (n int) {
	i := 0
	for ; i+8 <= len(a); i += 8 {
		x := binary.LittleEndian.Uint64(a[i:]) ^ binary.LittleEndian.Uint64(b[i:])
		n += bits.OnesCount64((((x & lo7) + lo7) | x) &^ lo7)
	}
	for ; i < len(a); i++ {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

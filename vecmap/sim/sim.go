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

// Package sim generates reference sequences and error-bearing reads
// with known truth positions, for testing and benchmarking read
// mapping. All output is deterministic for a given seed.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/rdleal/intervalst/interval"
)

var bases = []byte("ACGT")

// unitLen is the length of the random unit the reference is built
// from. Repeating a unit yields a highly repetitive reference, which
// stresses candidate collection (many index hits per seed).
const unitLen = 100

// GenerateReference returns a reference sequence of the given length,
// built by repeating a random 100-bp unit.
func GenerateReference(length int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))

	unit := make([]byte, unitLen)
	for i := range unit {
		unit[i] = bases[r.Intn(4)]
	}

	ref := make([]byte, 0, length)
	for len(ref) < length {
		ref = append(ref, unit...)
	}
	return ref[:length]
}

// Read is a simulated read with its truth.
type Read struct {
	ID     []byte
	Seq    []byte
	Pos    int // sampled start position in the reference
	Errors int // number of injected substitutions
}

// maxAttempts bounds position sampling with non-overlapping mode on.
const maxAttempts = 1000

// GenerateReads samples n reads of length readLen from the reference
// and injects substitution errors at the given per-base rate.
// Errors never keep the original base. With nonOverlapping, sampled
// windows are rejected if they intersect a previously sampled one.
func GenerateReads(ref []byte, n, readLen int, errorRate float64, seed int64, nonOverlapping bool) ([]Read, error) {
	if readLen < 1 || readLen > len(ref) {
		return nil, errors.Errorf("sim: read length %d out of range for a %d-bp reference", readLen, len(ref))
	}
	if errorRate < 0 || errorRate >= 1 {
		return nil, errors.Errorf("sim: invalid error rate: %f", errorRate)
	}

	r := rand.New(rand.NewSource(seed))

	var tree *interval.SearchTree[int, int]
	if nonOverlapping {
		tree = interval.NewSearchTree[int, int](func(x, y int) int { return x - y })
	}

	reads := make([]Read, 0, n)
	for i := 0; i < n; i++ {
		var pos int
		if nonOverlapping {
			var ok bool
			for j := 0; j < maxAttempts; j++ {
				pos = r.Intn(len(ref) - readLen + 1)
				if _, hit := tree.AnyIntersection(pos, pos+readLen); !hit {
					ok = true
					break
				}
			}
			if !ok {
				return reads, errors.Errorf("sim: failed to sample a non-overlapping position for read %d", i)
			}
			tree.Insert(pos, pos+readLen, pos)
		} else {
			pos = r.Intn(len(ref) - readLen + 1)
		}

		seq := make([]byte, readLen)
		copy(seq, ref[pos:pos+readLen])

		var ne int
		for j := range seq {
			if r.Float64() < errorRate {
				// substitute with one of the three other bases
				b := bases[r.Intn(3)]
				if b == seq[j] {
					b = bases[3]
				}
				seq[j] = b
				ne++
			}
		}

		reads = append(reads, Read{
			ID:     []byte(fmt.Sprintf("read_%d", i)),
			Seq:    seq,
			Pos:    pos,
			Errors: ne,
		})
	}

	return reads, nil
}
